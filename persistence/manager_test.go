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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/database/databasetest"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/uptrace/bun"
)

func setup(t *testing.T) (*bun.DB, *persistence.Manager) {
	t.Helper()
	db := databasetest.Open(t)
	return db, persistence.NewManager(db)
}

func insertMember(t *testing.T, db *bun.DB, username string, age int) *entity.Member {
	t.Helper()
	m := entity.NewMemberWithAge(username, age)
	_, err := db.NewInsert().Model(m).Exec(context.Background())
	require.NoError(t, err)
	return m
}

func loadMember(t *testing.T, db *bun.DB, id int64) *entity.Member {
	t.Helper()
	return loadMemberIn(context.Background(), t, db, id)
}

// loadMemberIn reads through the transaction of ctx; the in-memory database
// has a single connection, so reading through db would block.
func loadMemberIn(ctx context.Context, t *testing.T, db *bun.DB, id int64) *entity.Member {
	t.Helper()
	m := new(entity.Member)
	require.NoError(t, persistence.IDB(ctx, db).NewSelect().Model(m).Where("m.member_id = ?", id).Scan(ctx))
	return m
}

func TestOutsideUnitOfWork(t *testing.T) {
	db, _ := setup(t)
	ctx := context.Background()

	assert.False(t, persistence.HasTransaction(ctx))
	assert.False(t, persistence.IsReadOnly(ctx))
	assert.Nil(t, persistence.Current(ctx))
	assert.Same(t, db, persistence.IDB(ctx, db))
}

func TestRunInTransactionFlushesOnCommit(t *testing.T) {
	db, tm := setup(t)
	saved := insertMember(t, db, "member1", 10)

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, persistence.HasTransaction(ctx))
		assert.False(t, persistence.IsReadOnly(ctx))

		m := persistence.Current(ctx).Manage(loadMemberIn(ctx, t, db, saved.ID)).(*entity.Member)
		m.Username = "member2"
		return nil
	})
	require.NoError(t, err)

	reloaded := loadMember(t, db, saved.ID)
	assert.Equal(t, "member2", reloaded.Username)
	assert.Equal(t, 10, reloaded.Age)
	assert.False(t, reloaded.LastModifiedDate.IsZero())
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	db, tm := setup(t)
	saved := insertMember(t, db, "member1", 10)
	boom := errors.New("boom")

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, err := persistence.IDB(ctx, db).NewUpdate().
			Model((*entity.Member)(nil)).
			Set("age = ?", 99).
			Where("member_id = ?", saved.ID).
			Exec(ctx)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 10, loadMember(t, db, saved.ID).Age)
}

func TestRunInTransactionRollsBackOnPanic(t *testing.T) {
	db, tm := setup(t)
	saved := insertMember(t, db, "member1", 10)

	assert.PanicsWithValue(t, "boom", func() {
		_ = tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
			m := persistence.Current(ctx).Manage(loadMemberIn(ctx, t, db, saved.ID)).(*entity.Member)
			m.Age = 50
			panic("boom")
		})
	})
	assert.Equal(t, 10, loadMember(t, db, saved.ID).Age)
}

func TestRunReadOnlyDiscardsChanges(t *testing.T) {
	db, tm := setup(t)
	saved := insertMember(t, db, "member1", 10)

	err := tm.RunReadOnly(context.Background(), func(ctx context.Context) error {
		assert.True(t, persistence.IsReadOnly(ctx))
		m := persistence.Current(ctx).Manage(loadMemberIn(ctx, t, db, saved.ID)).(*entity.Member)
		m.Username = "changed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "member1", loadMember(t, db, saved.ID).Username)
}

func TestNestedCallsJoinTheOuterUnit(t *testing.T) {
	_, tm := setup(t)

	err := tm.RunInTransaction(context.Background(), func(outer context.Context) error {
		return tm.RunReadOnly(outer, func(inner context.Context) error {
			assert.Same(t, persistence.Current(outer), persistence.Current(inner))
			assert.False(t, persistence.IsReadOnly(inner))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestNestedErrorRollsBackTheOuterUnit(t *testing.T) {
	db, tm := setup(t)
	boom := errors.New("boom")

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, err := persistence.IDB(ctx, db).NewInsert().Model(entity.NewMember("member1")).Exec(ctx)
		require.NoError(t, err)
		return tm.RunInTransaction(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	n, err := db.NewSelect().Model((*entity.Member)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
