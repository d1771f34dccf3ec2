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

	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/uptrace/bun"
)

// TeamRepository is the Repository of entity.Team.
type TeamRepository interface {
	Repository[entity.Team]

	FindByName(ctx context.Context, name string) ([]*entity.Team, error)
	// LoadMembers fills team.Members from the member table, reusing members
	// that are already managed.
	LoadMembers(ctx context.Context, team *entity.Team) ([]*entity.Member, error)
}

type teamRepository struct {
	*baseRepositoryImpl[entity.Team]
}

func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepository{baseRepositoryImpl: newBaseRepository[entity.Team](db)}
}

func (r *teamRepository) FindByName(ctx context.Context, name string) ([]*entity.Team, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("t.name = ?", name)
	})
}

func (r *teamRepository) LoadMembers(ctx context.Context, team *entity.Team) ([]*entity.Member, error) {
	if team == nil || team.ID == 0 {
		return nil, nil
	}
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var members []*entity.Member
	err = db.NewSelect().
		Model(&members).
		Where("m.team_id = ?", team.ID).
		OrderExpr("m.member_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	tc := persistence.Current(ctx)
	for i, m := range members {
		if tc != nil {
			m = tc.Manage(m).(*entity.Member)
		}
		m.Team = team
		members[i] = m
	}
	team.Members = members
	return members, nil
}
