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

package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
)

func TestManageReturnsOneInstancePerIdentity(t *testing.T) {
	db, _ := setup(t)
	saved := insertMember(t, db, "member1", 10)
	tc := persistence.NewContext(db)

	first := tc.Manage(loadMember(t, db, saved.ID))
	second := tc.Manage(loadMember(t, db, saved.ID))
	assert.Same(t, first, second)
	assert.Equal(t, 1, tc.Len())
	assert.True(t, tc.Contains(first))

	found, ok := tc.Lookup((*entity.Member)(nil), saved.ID)
	require.True(t, ok)
	assert.Same(t, first, found)

	_, ok = tc.Lookup((*entity.Team)(nil), saved.ID)
	assert.False(t, ok)
}

func TestManageIgnoresTransientEntities(t *testing.T) {
	db, _ := setup(t)
	tc := persistence.NewContext(db)

	transient := entity.NewMember("member1")
	assert.Same(t, transient, tc.Manage(transient))
	assert.Zero(t, tc.Len())
	assert.False(t, tc.Contains(transient))
}

func TestFlushWritesOnlyChangedEntities(t *testing.T) {
	db, _ := setup(t)
	ctx := context.Background()
	a := insertMember(t, db, "memberA", 10)
	b := insertMember(t, db, "memberB", 20)
	tc := persistence.NewContext(db)

	ma := tc.Manage(loadMember(t, db, a.ID)).(*entity.Member)
	tc.Manage(loadMember(t, db, b.ID))

	n, err := tc.Flush(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)

	ma.Age = 11
	n, err = tc.Flush(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 11, loadMember(t, db, a.ID).Age)

	// the snapshot was refreshed, so a second flush is a no-op
	n, err = tc.Flush(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushSkipsReadOnlyEntities(t *testing.T) {
	db, _ := setup(t)
	saved := insertMember(t, db, "member1", 10)
	tc := persistence.NewContext(db)

	m := tc.ManageReadOnly(loadMember(t, db, saved.ID)).(*entity.Member)
	assert.True(t, tc.IsReadOnly(m))
	m.Username = "member2"

	n, err := tc.Flush(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "member1", loadMember(t, db, saved.ID).Username)
}

func TestFlushSyncsTeamForeignKey(t *testing.T) {
	db, _ := setup(t)
	ctx := context.Background()
	saved := insertMember(t, db, "member1", 10)
	team := entity.NewTeam("teamA")
	_, err := db.NewInsert().Model(team).Exec(ctx)
	require.NoError(t, err)

	tc := persistence.NewContext(db)
	m := tc.Manage(loadMember(t, db, saved.ID)).(*entity.Member)
	m.Team = team

	n, err := tc.Flush(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, team.ID, loadMember(t, db, saved.ID).TeamID)
}

func TestDetachAndClear(t *testing.T) {
	db, _ := setup(t)
	ctx := context.Background()
	a := insertMember(t, db, "memberA", 10)
	b := insertMember(t, db, "memberB", 20)
	tc := persistence.NewContext(db)

	ma := tc.Manage(loadMember(t, db, a.ID)).(*entity.Member)
	mb := tc.Manage(loadMember(t, db, b.ID)).(*entity.Member)

	tc.Detach(ma)
	assert.False(t, tc.Contains(ma))
	assert.Equal(t, 1, tc.Len())
	ma.Age = 99
	n, err := tc.Flush(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 10, loadMember(t, db, a.ID).Age)

	tc.Clear()
	assert.Zero(t, tc.Len())
	assert.False(t, tc.Contains(mb))

	fresh := tc.Manage(loadMember(t, db, b.ID))
	assert.NotSame(t, mb, fresh)
}

func TestRefreshMarksCurrentStateClean(t *testing.T) {
	db, _ := setup(t)
	saved := insertMember(t, db, "member1", 10)
	tc := persistence.NewContext(db)

	m := tc.Manage(loadMember(t, db, saved.ID)).(*entity.Member)
	m.Age = 30
	tc.Refresh(m)

	n, err := tc.Flush(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 10, loadMember(t, db, saved.ID).Age)
}
