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

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/config"
	"github.com/tomoncle/membership/types"
)

func TestPageableConfig(t *testing.T) {
	got, err := pageableConfig(config.PageableConfig{
		DefaultSize:          5,
		MaxSize:              2000,
		OneIndexedParameters: true,
		DefaultSort:          "username,desc",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, got.DefaultSize)
	assert.Equal(t, 2000, got.MaxSize)
	assert.True(t, got.OneIndexedParameters)
	assert.Equal(t, types.Sort{types.Desc("username")}, got.DefaultSort)

	got, err = pageableConfig(config.PageableConfig{DefaultSize: 5})
	require.NoError(t, err)
	assert.False(t, got.DefaultSort.IsSorted())

	_, err = pageableConfig(config.PageableConfig{DefaultSize: 5, DefaultSort: ","})
	assert.Error(t, err)
}

func TestCommandsAreRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate"})
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
