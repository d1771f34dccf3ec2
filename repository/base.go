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
	"reflect"
	"slices"
	"strings"

	"github.com/tomoncle/membership/database"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db *bun.DB
	// onManage runs for every loaded entity; managed is the instance handed
	// to the caller. tc is nil outside a unit of work.
	onManage func(tc *persistence.Context, managed, loaded *T)
}

// NewRepository returns a generic repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB) Repository[T] {
	return newBaseRepository[T](db)
}

func newBaseRepository[T any](db *bun.DB) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{db: db}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect(ctx context.Context) *bun.SelectQuery {
	return r.idb(ctx).NewSelect()
}

func (r *baseRepositoryImpl[T]) NewInsert(ctx context.Context) *bun.InsertQuery {
	return r.idb(ctx).NewInsert()
}

func (r *baseRepositoryImpl[T]) NewUpdate(ctx context.Context) *bun.UpdateQuery {
	return r.idb(ctx).NewUpdate()
}

func (r *baseRepositoryImpl[T]) NewDelete(ctx context.Context) *bun.DeleteQuery {
	return r.idb(ctx).NewDelete()
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (types.Optional[T], error) {
	if tc := persistence.Current(ctx); tc != nil {
		if managed, ok := tc.Lookup((*T)(nil), id); ok {
			return types.OptionalOf(managed.(*T)), nil
		}
	}
	db, err := r.prepare(ctx)
	if err != nil {
		return types.Empty[T](), err
	}
	entity := new(T)
	err = db.NewSelect().Model(entity).Where("? = ?", r.column(r.pk()), id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Empty[T](), nil
	}
	if err != nil {
		return types.Empty[T](), err
	}
	return types.OptionalOf(r.manage(ctx, entity)), nil
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id any) (*T, error) {
	found, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entity, ok := found.Get()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s=%v", ErrNotFound, r.table().Name, r.pk(), id)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.find(ctx, nil)
}

func (r *baseRepositoryImpl[T]) FindAllSorted(ctx context.Context, sort types.Sort) ([]*T, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	query, err := r.applySort(db.NewSelect().Model(&entities), sort)
	if err != nil {
		return nil, err
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

func (r *baseRepositoryImpl[T]) FindAllPage(ctx context.Context, pageable *types.PageRequest) (*types.Page[T], error) {
	return r.findPage(ctx, pageable, nil)
}

func (r *baseRepositoryImpl[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return false, err
	}
	return db.NewSelect().Model((*T)(nil)).Where("? = ?", r.column(r.pk()), id).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int64, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}
	n, err := db.NewSelect().Model((*T)(nil)).Count(ctx)
	return int64(n), err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	if filter == nil {
		return r.find(ctx, nil)
	}
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(filter.Schema, filter.Args...)
	})
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(query, args...)
	})
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity must not be nil")
	}
	if s, ok := any(entity).(persistence.Syncable); ok {
		s.SyncForeignKeys()
	}
	db := r.idb(ctx)
	tc := persistence.Current(ctx)

	if r.isNew(entity) {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			return nil, r.writeError(err)
		}
		if tc == nil {
			return entity, nil
		}
		return tc.Manage(entity).(*T), nil
	}

	// managed instances are written by the dirty check
	if tc != nil && tc.Contains(entity) {
		return entity, nil
	}
	if _, err := db.NewUpdate().Model(entity).WherePK().Exec(ctx); err != nil {
		return nil, r.writeError(err)
	}
	if tc == nil {
		return entity, nil
	}
	tc.Detach(entity)
	return tc.Manage(entity).(*T), nil
}

func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entities ...*T) ([]*T, error) {
	saved := make([]*T, 0, len(entities))
	for _, entity := range entities {
		s, err := r.Save(ctx, entity)
		if err != nil {
			return saved, err
		}
		saved = append(saved, s)
	}
	return saved, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	if entity == nil || r.isNew(entity) {
		return nil
	}
	if _, err := r.idb(ctx).NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
		return err
	}
	if tc := persistence.Current(ctx); tc != nil {
		tc.Detach(entity)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	_, err := r.idb(ctx).NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(r.pk()), id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if tc := persistence.Current(ctx); tc != nil {
		if managed, ok := tc.Lookup((*T)(nil), id); ok {
			tc.Detach(managed)
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context) error {
	db, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	if _, err := db.NewDelete().Model((*T)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return err
	}
	r.Clear(ctx)
	return nil
}

func (r *baseRepositoryImpl[T]) Flush(ctx context.Context) error {
	tc := persistence.Current(ctx)
	if tc == nil {
		return nil
	}
	_, err := tc.Flush(ctx, r.idb(ctx))
	return err
}

func (r *baseRepositoryImpl[T]) Clear(ctx context.Context) {
	if tc := persistence.Current(ctx); tc != nil {
		tc.Clear()
	}
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	db, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	insertQuery := db.NewInsert()
	entities := make([]*T, len(entity))
	copy(entities, entity)

	if r.db.HasFeature(feature.InsertOnConflict) {
		err = r.upsertWithPostgresqlOrSQLite(ctx, insertQuery, fields, duplicateKeys, entities)
	} else if r.db.HasFeature(feature.InsertOnDuplicateKey) {
		err = r.upsertWithMySQL(ctx, insertQuery, fields, entities)
	} else {
		err = r.upsertFallback(ctx, entities)
	}
	if err != nil {
		return err
	}
	r.detachUpserted(ctx, duplicateKeys, entities)
	return nil
}

// detachUpserted stops tracking the managed instances of the upserted rows,
// whose snapshots no longer match the database. When a row cannot be mapped
// to an identity the whole tracking context is cleared.
func (r *baseRepositoryImpl[T]) detachUpserted(ctx context.Context, duplicateKeys []string, entities []*T) {
	tc := persistence.Current(ctx)
	if tc == nil {
		return
	}
	pk := r.table().PKs[0]
	if len(duplicateKeys) > 0 && !slices.Equal(duplicateKeys, []string{pk.Name}) {
		tc.Clear()
		return
	}
	for _, entity := range entities {
		strct := reflect.ValueOf(entity).Elem()
		if pk.HasZeroValue(strct) {
			tc.Clear()
			return
		}
		if managed, ok := tc.Lookup((*T)(nil), pk.Value(strct).Interface()); ok {
			tc.Detach(managed)
		}
	}
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		for _, pk := range r.table().PKs {
			duplicateKeys = append(duplicateKeys, pk.Name)
		}
	}
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (" + strings.Join(duplicateKeys, ",") + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, entities []*T) error {
	db := r.idb(ctx)
	for _, entity := range entities {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}

// find flushes, selects with filter applied and manages the result.
func (r *baseRepositoryImpl[T]) find(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]*T, error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var entities []*T
	query := db.NewSelect().Model(&entities)
	if filter != nil {
		query = filter(query)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return r.manageAll(ctx, entities), nil
}

// findOne is find for queries that may match at most one row. Zero rows
// yield nil and more than one ErrNonUniqueResult.
func (r *baseRepositoryImpl[T]) findOne(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) (*T, error) {
	entities, err := r.find(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return filter(q).Limit(2)
	})
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return entities[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNonUniqueResult, r.table().Name)
	}
}

// findPage loads one page. filter is applied to both the content and the
// count query; relations only to the content query.
func (r *baseRepositoryImpl[T]) findPage(ctx context.Context, pageable *types.PageRequest, filter func(*bun.SelectQuery) *bun.SelectQuery, relations ...string) (*types.Page[T], error) {
	if filter == nil {
		filter = func(q *bun.SelectQuery) *bun.SelectQuery { return q }
	}
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var content []*T
	query := filter(db.NewSelect().Model(&content))
	for _, rel := range relations {
		query = query.Relation(rel)
	}
	if query, err = r.applySort(query, pageable.GetSort()); err != nil {
		return nil, err
	}
	if err := query.Limit(pageable.GetPageSize()).Offset(pageable.GetOffset()).Scan(ctx); err != nil {
		return nil, err
	}
	total, err := types.ResolveTotal(pageable, len(content), func() (int64, error) {
		n, err := filter(db.NewSelect().Model((*T)(nil))).Count(ctx)
		return int64(n), err
	})
	if err != nil {
		return nil, err
	}
	return types.NewPage(r.manageAll(ctx, content), pageable, total), nil
}

// findSlice loads size+1 rows to learn whether a next slice exists.
func (r *baseRepositoryImpl[T]) findSlice(ctx context.Context, pageable *types.PageRequest, filter func(*bun.SelectQuery) *bun.SelectQuery) (*types.Slice[T], error) {
	db, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	var content []*T
	query := db.NewSelect().Model(&content)
	if filter != nil {
		query = filter(query)
	}
	if query, err = r.applySort(query, pageable.GetSort()); err != nil {
		return nil, err
	}
	if err := query.Limit(pageable.GetPageSize() + 1).Offset(pageable.GetOffset()).Scan(ctx); err != nil {
		return nil, err
	}
	return types.NewSlice(r.manageAll(ctx, content), pageable), nil
}

func (r *baseRepositoryImpl[T]) applySort(query *bun.SelectQuery, sort types.Sort) (*bun.SelectQuery, error) {
	for _, order := range sort {
		column, ok := r.resolveProperty(order.Property)
		if !ok {
			return nil, fmt.Errorf("%w: %q on %s", types.ErrInvalidSort, order.Property, r.table().Name)
		}
		query = query.OrderExpr("? "+order.Direction.Name(), r.column(column))
	}
	return query, nil
}

// resolveProperty maps a sort property to a column. Both column names and
// Go field names are accepted.
func (r *baseRepositoryImpl[T]) resolveProperty(property string) (string, bool) {
	table := r.table()
	if f, ok := table.FieldMap[property]; ok {
		return f.Name, true
	}
	for _, f := range table.Fields {
		if strings.EqualFold(f.GoName, property) {
			return f.Name, true
		}
	}
	return "", false
}

// prepare flushes pending changes so the next query observes them, and
// returns the handle bound to ctx.
func (r *baseRepositoryImpl[T]) prepare(ctx context.Context) (bun.IDB, error) {
	db := r.idb(ctx)
	if tc := persistence.Current(ctx); tc != nil && !persistence.IsReadOnly(ctx) {
		if _, err := tc.Flush(ctx, db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (r *baseRepositoryImpl[T]) manage(ctx context.Context, loaded *T) *T {
	return r.manageWith(ctx, loaded, false)
}

func (r *baseRepositoryImpl[T]) manageWith(ctx context.Context, loaded *T, readOnly bool) *T {
	if loaded == nil {
		return nil
	}
	tc := persistence.Current(ctx)
	if tc == nil {
		if r.onManage != nil {
			r.onManage(nil, loaded, loaded)
		}
		return loaded
	}
	var managed *T
	if readOnly {
		managed = tc.ManageReadOnly(loaded).(*T)
	} else {
		managed = tc.Manage(loaded).(*T)
	}
	if r.onManage != nil {
		r.onManage(tc, managed, loaded)
	}
	return managed
}

func (r *baseRepositoryImpl[T]) manageAll(ctx context.Context, loaded []*T) []*T {
	for i, entity := range loaded {
		loaded[i] = r.manage(ctx, entity)
	}
	return loaded
}

func (r *baseRepositoryImpl[T]) idb(ctx context.Context) bun.IDB {
	return persistence.IDB(ctx, r.db)
}

func (r *baseRepositoryImpl[T]) table() *schema.Table {
	return r.db.Table(reflect.TypeOf((*T)(nil)).Elem())
}

func (r *baseRepositoryImpl[T]) pk() string {
	return r.table().PKs[0].Name
}

// column qualifies name with the table alias used by select queries.
func (r *baseRepositoryImpl[T]) column(name string) schema.Ident {
	return bun.Ident(r.table().Alias + "." + name)
}

func (r *baseRepositoryImpl[T]) isNew(entity *T) bool {
	strct := reflect.ValueOf(entity).Elem()
	for _, pk := range r.table().PKs {
		if !pk.HasZeroValue(strct) {
			return false
		}
	}
	return true
}

func (r *baseRepositoryImpl[T]) writeError(err error) error {
	if database.IsDuplicateKey(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}
