/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, DESC, d)
	assert.True(t, d.IsDescending())

	d, err = ParseDirection(" Asc ")
	require.NoError(t, err)
	assert.Equal(t, ASC, d)

	_, err = ParseDirection("up")
	assert.Error(t, err)
	assert.False(t, Direction(IllegalValue).IsValid())
	assert.Equal(t, IllegalName, Direction(7).Name())
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		param string
		want  Sort
	}{
		{"username", Sort{Asc("username")}},
		{"username,desc", Sort{Desc("username")}},
		{"age,username,DESC", Sort{Desc("age"), Desc("username")}},
		{"age,username", Sort{Asc("age"), Asc("username")}},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			got, err := ParseSort(tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSortRejectsEmpty(t *testing.T) {
	_, err := ParseSort(",desc")
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestParseSortsKeepsParameterOrder(t *testing.T) {
	got, err := ParseSorts([]string{"age,desc", "username"})
	require.NoError(t, err)
	assert.Equal(t, Sort{Desc("age"), Asc("username")}, got)
	assert.Equal(t, "age: DESC,username: ASC", got.String())
	assert.True(t, got.IsSorted())
	assert.Equal(t, "UNSORTED", Unsorted().String())
}
