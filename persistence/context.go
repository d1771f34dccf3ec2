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

package persistence

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

const lastModifiedColumn = "last_modified_date"

// Syncable entities copy association ids into their foreign key columns
// before the tracking context diffs them.
type Syncable interface {
	SyncForeignKeys()
}

type identity struct {
	table string
	id    string
}

type entry struct {
	entity   interface{}
	table    *schema.Table
	snapshot map[string]interface{}
	readOnly bool
}

// Context is the identity map of one unit of work.
type Context struct {
	db      *bun.DB
	mu      sync.Mutex
	entries map[identity]*entry
	order   []identity
}

func NewContext(db *bun.DB) *Context {
	return &Context{db: db, entries: make(map[identity]*entry)}
}

// Manage returns the managed instance with the identity of entity. When
// none exists, entity itself becomes managed and its columns are
// snapshotted. Entities without a primary key are returned unmanaged.
func (c *Context) Manage(entity interface{}) interface{} {
	return c.manage(entity, false)
}

// ManageReadOnly is Manage, but newly managed entities are never flushed.
func (c *Context) ManageReadOnly(entity interface{}) interface{} {
	return c.manage(entity, true)
}

func (c *Context) manage(entity interface{}, readOnly bool) interface{} {
	key, table, ok := c.identityOf(entity)
	if !ok {
		return entity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, found := c.entries[key]; found {
		return existing.entity
	}
	e := &entry{entity: entity, table: table, readOnly: readOnly}
	e.snapshot = capture(e)
	c.entries[key] = e
	c.order = append(c.order, key)
	return entity
}

// Lookup returns the managed instance of model's table with primary key id.
// model is only used for its type, e.g. (*entity.Member)(nil).
func (c *Context) Lookup(model interface{}, id interface{}) (interface{}, bool) {
	typ := reflect.TypeOf(model)
	if typ == nil {
		return nil, false
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, false
	}
	table := c.db.Table(typ)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[identity{table: table.Name, id: fmt.Sprint(id)}]; ok {
		return e.entity, true
	}
	return nil, false
}

func (c *Context) Contains(entity interface{}) bool {
	key, _, ok := c.identityOf(entity)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	return found && e.entity == entity
}

// IsReadOnly reports whether entity is managed and excluded from flushing.
func (c *Context) IsReadOnly(entity interface{}) bool {
	key, _, ok := c.identityOf(entity)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	return found && e.readOnly
}

// Detach stops tracking entity. Later changes to it are not flushed.
func (c *Context) Detach(entity interface{}) {
	key, _, ok := c.identityOf(entity)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// Clear detaches every managed entity.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[identity]*entry)
	c.order = nil
}

func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush writes the changed columns of every writable managed entity and
// returns the number of updated rows.
func (c *Context) Flush(ctx context.Context, db bun.IDB) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	flushed := 0
	for _, key := range c.order {
		e := c.entries[key]
		if e.readOnly {
			continue
		}
		if s, ok := e.entity.(Syncable); ok {
			s.SyncForeignKeys()
		}
		changed := dirtyColumns(e)
		if len(changed) == 0 {
			continue
		}
		if _, ok := e.table.FieldMap[lastModifiedColumn]; ok && !slices.Contains(changed, lastModifiedColumn) {
			changed = append(changed, lastModifiedColumn)
		}
		_, err := db.NewUpdate().
			Model(e.entity).
			Column(changed...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return flushed, fmt.Errorf("failed to flush %s(%s): %w", key.table, key.id, err)
		}
		e.snapshot = capture(e)
		flushed++
	}
	return flushed, nil
}

// Refresh takes a new snapshot of entity, so its current state counts as
// clean.
func (c *Context) Refresh(entity interface{}) {
	key, _, ok := c.identityOf(entity)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, found := c.entries[key]; found && e.entity == entity {
		e.snapshot = capture(e)
	}
}

func (c *Context) remove(key identity) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Context) identityOf(entity interface{}) (identity, *schema.Table, bool) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return identity{}, nil, false
	}
	strct := v.Elem()
	table := c.db.Table(strct.Type())
	if len(table.PKs) == 0 {
		return identity{}, nil, false
	}
	ids := make([]string, 0, len(table.PKs))
	for _, pk := range table.PKs {
		if pk.HasZeroValue(strct) {
			return identity{}, nil, false
		}
		ids = append(ids, fmt.Sprint(pk.Value(strct).Interface()))
	}
	return identity{table: table.Name, id: strings.Join(ids, ",")}, table, true
}

func capture(e *entry) map[string]interface{} {
	strct := reflect.ValueOf(e.entity).Elem()
	snapshot := make(map[string]interface{}, len(e.table.Fields))
	for _, f := range e.table.Fields {
		if f.IsPK {
			continue
		}
		snapshot[f.Name] = f.Value(strct).Interface()
	}
	return snapshot
}

func dirtyColumns(e *entry) []string {
	strct := reflect.ValueOf(e.entity).Elem()
	var changed []string
	for _, f := range e.table.Fields {
		if f.IsPK {
			continue
		}
		if !reflect.DeepEqual(e.snapshot[f.Name], f.Value(strct).Interface()) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}
