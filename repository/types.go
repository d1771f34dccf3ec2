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

	"github.com/tomoncle/membership/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	FindByID(ctx context.Context, id any) (types.Optional[T], error)

	GetByID(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	ExistsByID(ctx context.Context, id any) (bool, error)

	Count(ctx context.Context) (int64, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Save inserts entity when its primary key is zero and updates it
	// otherwise. The returned pointer is the managed instance.
	Save(ctx context.Context, entity *T) (*T, error)

	SaveAll(ctx context.Context, entities ...*T) ([]*T, error)

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error

	DeleteAll(ctx context.Context) error
}

// PagingAndSortingRepository defines sorted and paged listing.
type PagingAndSortingRepository[T any] interface {
	FindAllSorted(ctx context.Context, sort types.Sort) ([]*T, error)
	FindAllPage(ctx context.Context, pageable *types.PageRequest) (*types.Page[T], error)
}

// TrackingRepository exposes the tracking context of the unit of work.
type TrackingRepository interface {
	// Flush writes pending changes of managed entities.
	Flush(ctx context.Context) error
	// Clear detaches every managed entity.
	Clear(ctx context.Context)
}

// Repository combines CRUD, paging and tracking operations and exposes Bun
// query builders bound to the unit of work of ctx.
type Repository[T any] interface {
	CrudRepository[T]
	PagingAndSortingRepository[T]
	TrackingRepository
	Dialect() schema.Dialect
	NewSelect(ctx context.Context) *bun.SelectQuery
	NewInsert(ctx context.Context) *bun.InsertQuery
	NewUpdate(ctx context.Context) *bun.UpdateQuery
	NewDelete(ctx context.Context) *bun.DeleteQuery
}
