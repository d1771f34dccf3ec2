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

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/database/databasetest"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/uptrace/bun"
)

type fixture struct {
	db      *bun.DB
	tm      *persistence.Manager
	members repository.MemberRepository
	teams   repository.TeamRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.Open(t)
	return &fixture{
		db:      db,
		tm:      persistence.NewManager(db),
		members: repository.NewMemberRepository(db),
		teams:   repository.NewTeamRepository(db),
	}
}

// tx runs fn in a committed unit of work.
func (f *fixture) tx(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	err := f.tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) saveMembers(t *testing.T, members ...*entity.Member) {
	t.Helper()
	f.tx(t, func(ctx context.Context) {
		_, err := f.members.SaveAll(ctx, members...)
		require.NoError(t, err)
	})
}

func (f *fixture) saveTeams(t *testing.T, teams ...*entity.Team) {
	t.Helper()
	f.tx(t, func(ctx context.Context) {
		_, err := f.teams.SaveAll(ctx, teams...)
		require.NoError(t, err)
	})
}

// reload reads a member in a fresh unit of work.
func (f *fixture) reload(t *testing.T, id int64) *entity.Member {
	t.Helper()
	m, err := f.members.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}
