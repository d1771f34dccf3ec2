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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/membership/dto"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// MemberRepository is the Repository of entity.Member plus its finder,
// paging, bulk, fetch-join, read-only, locking and projection queries.
type MemberRepository interface {
	Repository[entity.Member]

	FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error)
	// FindTop3 returns the first three members by id.
	FindTop3(ctx context.Context) ([]*entity.Member, error)
	FindByUsername(ctx context.Context, username string) ([]*entity.Member, error)
	FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error)
	FindUsernameList(ctx context.Context) ([]string, error)
	// FindMemberDto joins team, so members without a team are left out.
	FindMemberDto(ctx context.Context) ([]*dto.MemberDto, error)
	FindByNames(ctx context.Context, names []string) ([]*entity.Member, error)

	FindListByUsername(ctx context.Context, username string) ([]*entity.Member, error)
	FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error)
	FindOptionalByUsername(ctx context.Context, username string) (types.Optional[entity.Member], error)

	FindByAge(ctx context.Context, age int, pageable *types.PageRequest) (*types.Page[entity.Member], error)
	FindSliceByAge(ctx context.Context, age int, pageable *types.PageRequest) (*types.Slice[entity.Member], error)
	// BulkAgePlus increments the age of every member at least age years old
	// and clears the tracking context afterwards.
	BulkAgePlus(ctx context.Context, age int) (int, error)

	FindMemberFetchJoin(ctx context.Context) ([]*entity.Member, error)
	FindMemberEntityGraph(ctx context.Context) ([]*entity.Member, error)
	FindEntityGraphByUsername(ctx context.Context, username string) ([]*entity.Member, error)
	FindAllWithTeam(ctx context.Context, pageable *types.PageRequest) (*types.Page[entity.Member], error)
	LoadTeam(ctx context.Context, member *entity.Member) (*entity.Team, error)

	// FindReadOnlyByUsername returns a member whose changes are never flushed.
	FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, error)
	// FindLockByUsername selects with FOR UPDATE and needs a unit of work.
	FindLockByUsername(ctx context.Context, username string) ([]*entity.Member, error)
	FindProjectionsByUsername(ctx context.Context, username string) ([]dto.UsernameOnly, error)
}

type memberRepository struct {
	*baseRepositoryImpl[entity.Member]
}

func NewMemberRepository(db *bun.DB) MemberRepository {
	base := newBaseRepository[entity.Member](db)
	base.onManage = manageMemberTeam
	return &memberRepository{baseRepositoryImpl: base}
}

// manageMemberTeam replaces a fetched team by its managed instance, so
// members of one team share one *Team within a unit of work. A member that
// was already managed keeps a team it was moved to in memory.
func manageMemberTeam(tc *persistence.Context, managed, loaded *entity.Member) {
	if loaded.Team == nil {
		return
	}
	if loaded.TeamID == 0 {
		loaded.Team = nil
		return
	}
	if tc == nil {
		return
	}
	team := tc.Manage(loaded.Team).(*entity.Team)
	if managed == loaded || managed.Team == nil || managed.Team.ID == team.ID {
		managed.Team = team
	}
}

func byUsername(username string) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.username = ?", username)
	}
}

func byAge(age int) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.age = ?", age)
	}
}

func (r *memberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.username = ?", username).Where("m.age > ?", age)
	})
}

func (r *memberRepository) FindTop3(ctx context.Context) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("m.member_id ASC").Limit(3)
	})
}

func (r *memberRepository) FindByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.find(ctx, byUsername(username))
}

func (r *memberRepository) FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.username = ? AND m.age = ?", username, age)
	})
}

func (r *memberRepository) FindUsernameList(ctx context.Context) ([]string, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	err = db.NewSelect().
		Model((*entity.Member)(nil)).
		Column("username").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &names)
	return names, err
}

func (r *memberRepository) FindMemberDto(ctx context.Context) ([]*dto.MemberDto, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var rows []*dto.MemberDto
	err = db.NewSelect().
		Model((*entity.Member)(nil)).
		ColumnExpr("m.member_id AS id").
		ColumnExpr("m.username AS username").
		ColumnExpr("t.name AS team_name").
		Join("JOIN team AS t ON t.team_id = m.team_id").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &rows)
	return rows, err
}

func (r *memberRepository) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	if len(names) == 0 {
		return []*entity.Member{}, nil
	}
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.username IN (?)", bun.In(names))
	})
}

func (r *memberRepository) FindListByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.find(ctx, byUsername(username))
}

func (r *memberRepository) FindMemberByUsername(ctx context.Context, username string) (*entity.Member, error) {
	return r.findOne(ctx, byUsername(username))
}

func (r *memberRepository) FindOptionalByUsername(ctx context.Context, username string) (types.Optional[entity.Member], error) {
	m, err := r.findOne(ctx, byUsername(username))
	if err != nil {
		return types.Empty[entity.Member](), err
	}
	return types.OptionalOf(m), nil
}

func (r *memberRepository) FindByAge(ctx context.Context, age int, pageable *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.findPage(ctx, pageable, byAge(age))
}

func (r *memberRepository) FindSliceByAge(ctx context.Context, age int, pageable *types.PageRequest) (*types.Slice[entity.Member], error) {
	return r.findSlice(ctx, pageable, byAge(age))
}

func (r *memberRepository) BulkAgePlus(ctx context.Context, age int) (int, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.NewUpdate().
		Model((*entity.Member)(nil)).
		Set("age = age + 1").
		Where("age >= ?", age).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	r.Clear(ctx)
	n, err := res.RowsAffected()
	return int(n), err
}

// FindAll loads every member together with its team.
func (r *memberRepository) FindAll(ctx context.Context) ([]*entity.Member, error) {
	return r.withTeam(ctx, nil)
}

func (r *memberRepository) FindMemberFetchJoin(ctx context.Context) ([]*entity.Member, error) {
	return r.withTeam(ctx, nil)
}

func (r *memberRepository) FindMemberEntityGraph(ctx context.Context) ([]*entity.Member, error) {
	return r.withTeam(ctx, nil)
}

func (r *memberRepository) FindEntityGraphByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.withTeam(ctx, byUsername(username))
}

func (r *memberRepository) FindAllWithTeam(ctx context.Context, pageable *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.findPage(ctx, pageable, nil, "Team")
}

// withTeam resolves the team in the same statement with a left join.
func (r *memberRepository) withTeam(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*entity.Member, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Relation("Team").OrderExpr("m.member_id ASC")
		if filter != nil {
			q = filter(q)
		}
		return q
	})
}

// LoadTeam resolves the team of member on first access. A team already
// managed by the unit of work is reused without a query.
func (r *memberRepository) LoadTeam(ctx context.Context, member *entity.Member) (*entity.Team, error) {
	if member == nil {
		return nil, nil
	}
	if member.Team != nil {
		return member.Team, nil
	}
	if member.TeamID == 0 {
		return nil, nil
	}
	if tc := persistence.Current(ctx); tc != nil {
		if managed, ok := tc.Lookup((*entity.Team)(nil), member.TeamID); ok {
			member.Team = managed.(*entity.Team)
			return member.Team, nil
		}
	}
	team := new(entity.Team)
	err := r.idb(ctx).NewSelect().Model(team).Where("t.team_id = ?", member.TeamID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: team team_id=%d", ErrNotFound, member.TeamID)
	}
	if err != nil {
		return nil, err
	}
	if tc := persistence.Current(ctx); tc != nil {
		team = tc.Manage(team).(*entity.Team)
	}
	member.Team = team
	return team, nil
}

func (r *memberRepository) FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var members []*entity.Member
	if err := byUsername(username)(db.NewSelect().Model(&members)).Limit(2).Scan(ctx); err != nil {
		return nil, err
	}
	switch len(members) {
	case 0:
		return nil, nil
	case 1:
		return r.manageWith(ctx, members[0], true), nil
	default:
		return nil, fmt.Errorf("%w: member username=%s", ErrNonUniqueResult, username)
	}
}

func (r *memberRepository) FindLockByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	if !persistence.HasTransaction(ctx) {
		return nil, ErrTransactionRequired
	}
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return r.forUpdate(byUsername(username)(q))
	})
}

// forUpdate adds a pessimistic write lock. sqlite locks the whole database
// on write and has no FOR UPDATE.
func (r *memberRepository) forUpdate(q *bun.SelectQuery) *bun.SelectQuery {
	if r.Dialect().Name() == dialect.SQLite {
		return q
	}
	return q.For("UPDATE")
}

func (r *memberRepository) FindProjectionsByUsername(ctx context.Context, username string) ([]dto.UsernameOnly, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var rows []dto.UsernameOnly
	err = byUsername(username)(db.NewSelect().Model((*entity.Member)(nil)).Column("username")).Scan(ctx, &rows)
	return rows, err
}
