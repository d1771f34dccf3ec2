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

package membership

import (
	"context"
	"sync"

	"github.com/tomoncle/membership/database"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/tomoncle/membership/types"
)

// Service runs each repository call in its own unit of work.
type Service[T any] interface {
	// Get returns a single entity by its identifier, or repository.ErrNotFound.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a page of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Page[T], error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int64, error)

	// Save inserts new entities and updates existing ones.
	Save(ctx context.Context, model ...*T) ([]*T, error)

	// Update loads the entity with id, applies fn to it and lets the unit of
	// work write the changed columns back on commit.
	Update(ctx context.Context, id any, fn func(*T) error) (*T, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error
}

type baseServiceImpl[T any] struct {
	repo repository.Repository[T]
	tm   *persistence.Manager
	once sync.Once
}

// NewService returns a Service over the generic repository backed by the
// global database connection.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWith returns a Service over repo whose units of work are opened
// by tm.
func NewServiceWith[T any](repo repository.Repository[T], tm *persistence.Manager) Service[T] {
	return &baseServiceImpl[T]{repo: repo, tm: tm}
}

func (s *baseServiceImpl[T]) init() {
	s.once.Do(func() {
		if s.repo != nil && s.tm != nil {
			return
		}
		db := database.GetDB()
		s.repo = repository.NewRepository[T](db)
		s.tm = persistence.NewManager(db)
	})
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	s.init()
	var result *T
	err := s.tm.RunReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.GetByID(ctx, id)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	s.init()
	var result []*T
	err := s.tm.RunReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.FindAll(ctx)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	s.init()
	var result []*T
	err := s.tm.RunReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.List(ctx, filter)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Page[T], error) {
	s.init()
	var result *types.Page[T]
	err := s.tm.RunReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.FindAllPage(ctx, page)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) Count(ctx context.Context) (int64, error) {
	s.init()
	var result int64
	err := s.tm.RunReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.Count(ctx)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) ([]*T, error) {
	s.init()
	var result []*T
	err := s.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.SaveAll(ctx, model...)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, id any, fn func(*T) error) (*T, error) {
	s.init()
	var result *T
	err := s.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		entity, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(entity); err != nil {
			return err
		}
		result = entity
		return nil
	})
	return result, err
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	s.init()
	return s.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.DeleteByID(ctx, id)
	})
}
