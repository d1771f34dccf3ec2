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

package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/tomoncle/membership/utils"
)

// Seeder fills an empty member table with sample rows at startup.
type Seeder struct {
	members repository.MemberRepository
	tm      *persistence.Manager
}

func NewSeeder(members repository.MemberRepository, tm *persistence.Manager) *Seeder {
	return &Seeder{members: members, tm: tm}
}

// Seed saves user0..user{n-1}, user i being i years old, in one unit of
// work. Nothing is written when members already exist. It returns the
// number of saved members.
func (s *Seeder) Seed(ctx context.Context, n int) (int, error) {
	start := time.Now()
	saved := 0
	err := s.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		count, err := s.members.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			log.WithField("members", count).Info("member table not empty, skipping seed")
			return nil
		}
		for i := 0; i < n; i++ {
			if _, err := s.members.Save(ctx, entity.NewMemberWithAge(fmt.Sprintf("user%d", i), i)); err != nil {
				return err
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed members: %w", err)
	}
	if saved > 0 {
		log.WithField("members", saved).WithField("elapsed", utils.Since(start)).Info("seeded sample members")
	}
	return saved, nil
}
