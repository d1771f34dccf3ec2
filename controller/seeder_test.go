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

package controller_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/controller"
)

func TestSeederFillsEmptyTable(t *testing.T) {
	s := newServer(t, nil)
	seeder := controller.NewSeeder(s.members, s.tm)
	ctx := context.Background()

	n, err := seeder.Seed(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	count, err := s.members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)

	user, err := s.members.FindMemberByUsername(ctx, "user42")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 42, user.Age)

	n, err = seeder.Seed(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err = s.members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)
}
