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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/tomoncle/membership/types"
)

func TestSaveAndFindReturnSameInstance(t *testing.T) {
	f := newFixture(t)

	f.tx(t, func(ctx context.Context) {
		saved, err := f.members.Save(ctx, entity.NewMember("memberA"))
		require.NoError(t, err)
		require.NotZero(t, saved.ID)

		found, err := f.members.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Same(t, saved, found)

		again, err := f.members.FindByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Same(t, saved, again.MustGet())
	})
}

func TestIdentityAcrossQueries(t *testing.T) {
	f := newFixture(t)
	f.saveMembers(t, entity.NewMemberWithAge("member1", 10), entity.NewMemberWithAge("member2", 20))

	f.tx(t, func(ctx context.Context) {
		byName, err := f.members.FindByUsername(ctx, "member1")
		require.NoError(t, err)
		require.Len(t, byName, 1)

		all, err := f.members.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Same(t, byName[0], all[0])
	})
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.members.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	found, err := f.members.FindByID(context.Background(), 404)
	require.NoError(t, err)
	assert.True(t, found.IsEmpty())
}

func TestCountExistsAndDelete(t *testing.T) {
	f := newFixture(t)
	m1 := entity.NewMember("member1")
	m2 := entity.NewMember("member2")
	m3 := entity.NewMember("member3")
	f.saveMembers(t, m1, m2, m3)

	ctx := context.Background()
	n, err := f.members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	exists, err := f.members.ExistsByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	f.tx(t, func(ctx context.Context) {
		require.NoError(t, f.members.Delete(ctx, m1))
		require.NoError(t, f.members.DeleteByID(ctx, m2.ID))
	})

	exists, err = f.members.ExistsByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	n, err = f.members.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	f.tx(t, func(ctx context.Context) {
		require.NoError(t, f.members.DeleteAll(ctx))
		assert.Zero(t, persistence.Current(ctx).Len())
	})
	n, err = f.members.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirtyCheckingWritesOnCommit(t *testing.T) {
	f := newFixture(t)
	m := entity.NewMemberWithAge("member1", 10)
	f.saveMembers(t, m)

	f.tx(t, func(ctx context.Context) {
		found, err := f.members.GetByID(ctx, m.ID)
		require.NoError(t, err)
		found.Username = "member2"
		found.Age = 11
	})

	reloaded := f.reload(t, m.ID)
	assert.Equal(t, "member2", reloaded.Username)
	assert.Equal(t, 11, reloaded.Age)
}

func TestQueriesObservePendingChanges(t *testing.T) {
	f := newFixture(t)
	m := entity.NewMemberWithAge("AAA", 10)
	f.saveMembers(t, m)

	f.tx(t, func(ctx context.Context) {
		found, err := f.members.GetByID(ctx, m.ID)
		require.NoError(t, err)
		found.Age = 30

		result, err := f.members.FindByUsernameAndAgeGreaterThan(ctx, "AAA", 15)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Same(t, found, result[0])
	})
}

func TestSaveDetachedEntityUpdatesRow(t *testing.T) {
	f := newFixture(t)
	m := entity.NewMemberWithAge("member1", 10)
	f.saveMembers(t, m)

	m.Age = 42
	_, err := f.members.Save(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 42, f.reload(t, m.ID).Age)
}

func TestListAndQuery(t *testing.T) {
	f := newFixture(t)
	f.saveMembers(t,
		entity.NewMemberWithAge("member1", 10),
		entity.NewMemberWithAge("member2", 20),
		entity.NewMemberWithAge("member3", 30),
	)
	ctx := context.Background()

	older, err := f.members.List(ctx, types.NewQueryFilter("m.age > ?", 15))
	require.NoError(t, err)
	assert.Len(t, older, 2)

	all, err := f.members.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	queried, err := f.members.Query(ctx, "m.username = ?", "member3")
	require.NoError(t, err)
	require.Len(t, queried, 1)
	assert.Equal(t, 30, queried[0].Age)
}

func TestFindAllSortedAcceptsColumnAndFieldNames(t *testing.T) {
	f := newFixture(t)
	f.saveMembers(t,
		entity.NewMemberWithAge("b", 10),
		entity.NewMemberWithAge("a", 20),
		entity.NewMemberWithAge("c", 30),
	)
	ctx := context.Background()

	byColumn, err := f.members.FindAllSorted(ctx, types.SortBy(types.DESC, "username"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, usernames(byColumn))

	byField, err := f.members.FindAllSorted(ctx, types.SortBy(types.ASC, "Age"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, usernames(byField))
}

func TestUnknownSortPropertyIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.members.FindAllPage(context.Background(), types.Of(0, 5, types.SortBy(types.ASC, "nickname")))
	assert.ErrorIs(t, err, types.ErrInvalidSort)
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	f := newFixture(t)
	m := entity.NewMemberWithAge("member1", 10)
	f.saveMembers(t, m)

	changed := &entity.Member{ID: m.ID, Username: "member1", Age: 77}
	fresh := entity.NewMemberWithAge("member2", 5)
	require.NoError(t, f.members.Upsert(context.Background(), []string{"age"}, nil, changed, fresh))

	assert.Equal(t, 77, f.reload(t, m.ID).Age)
	n, err := f.members.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpsertInUnitOfWorkDetachesManagedInstance(t *testing.T) {
	f := newFixture(t)
	m := entity.NewMemberWithAge("member1", 10)
	f.saveMembers(t, m)

	f.tx(t, func(ctx context.Context) {
		managed, err := f.members.GetByID(ctx, m.ID)
		require.NoError(t, err)
		managed.Username = "renamed"

		changed := &entity.Member{ID: m.ID, Username: "member1", Age: 77}
		require.NoError(t, f.members.Upsert(ctx, []string{"age"}, nil, changed))
		assert.False(t, persistence.Current(ctx).Contains(managed))

		reloaded, err := f.members.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.NotSame(t, managed, reloaded)
		assert.Equal(t, 77, reloaded.Age)
		assert.Equal(t, "renamed", reloaded.Username)
	})

	assert.Equal(t, 77, f.reload(t, m.ID).Age)
}

func TestUpsertByExplicitPrimaryKeyDetachesTeam(t *testing.T) {
	f := newFixture(t)
	team := entity.NewTeam("teamA")
	f.saveTeams(t, team)

	f.tx(t, func(ctx context.Context) {
		managed, err := f.teams.GetByID(ctx, team.ID)
		require.NoError(t, err)
		require.NoError(t, f.teams.Upsert(ctx, []string{"name"}, []string{"team_id"}, &entity.Team{ID: team.ID, Name: "teamB"}))
		assert.False(t, persistence.Current(ctx).Contains(managed))
	})
}

func TestUpsertRequiresFields(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.members.Upsert(context.Background(), nil, nil, entity.NewMember("member1")))
}

func TestGenericRepository(t *testing.T) {
	f := newFixture(t)
	teams := repository.NewRepository[entity.Team](f.db)

	f.tx(t, func(ctx context.Context) {
		_, err := teams.SaveAll(ctx, entity.NewTeam("teamA"), entity.NewTeam("teamB"))
		require.NoError(t, err)
	})

	page, err := teams.FindAllPage(context.Background(), types.Of(0, 1, types.SortBy(types.DESC, "name")))
	require.NoError(t, err)
	require.Len(t, page.GetContent(), 1)
	assert.Equal(t, "teamB", page.GetContent()[0].Name)
	assert.Equal(t, int64(2), page.GetTotalElements())
}

func usernames(members []*entity.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}
	return names
}
