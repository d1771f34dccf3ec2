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

	"github.com/tomoncle/membership/utils"
	"github.com/uptrace/bun"
)

var log = utils.NewLogger("PERSISTENCE")

type unitKey struct{}

type unitOfWork struct {
	tx       bun.Tx
	tracking *Context
	readOnly bool
}

// Manager opens units of work on a bun database.
type Manager struct {
	db *bun.DB
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{db: db}
}

func (m *Manager) DB() *bun.DB { return m.db }

// RunInTransaction runs fn inside a unit of work. When ctx already carries
// one, fn joins it. On success the dirty entities are flushed and the
// transaction commits; an error or panic from fn rolls it back.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if fromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.run(ctx, false, fn)
}

// RunReadOnly is RunInTransaction without the final flush: changes made to
// managed entities are discarded.
func (m *Manager) RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if fromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.run(ctx, true, fn)
}

func (m *Manager) run(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	uow := &unitOfWork{tx: tx, tracking: NewContext(m.db), readOnly: readOnly}
	txCtx := context.WithValue(ctx, unitKey{}, uow)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if !readOnly {
		n, err := uow.tracking.Flush(txCtx, tx)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to flush tracking context: %w", err)
		}
		if n > 0 {
			log.WithField("entities", n).Debug("flushed dirty entities")
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func fromContext(ctx context.Context) *unitOfWork {
	if uow, ok := ctx.Value(unitKey{}).(*unitOfWork); ok {
		return uow
	}
	return nil
}

// IDB returns the transaction bound to ctx, or db when there is none.
func IDB(ctx context.Context, db *bun.DB) bun.IDB {
	if uow := fromContext(ctx); uow != nil {
		return uow.tx
	}
	return db
}

func HasTransaction(ctx context.Context) bool {
	return fromContext(ctx) != nil
}

// IsReadOnly reports whether ctx carries a unit of work opened by RunReadOnly.
func IsReadOnly(ctx context.Context) bool {
	uow := fromContext(ctx)
	return uow != nil && uow.readOnly
}

// Current returns the tracking context of ctx, or nil outside a unit of work.
func Current(ctx context.Context) *Context {
	if uow := fromContext(ctx); uow != nil {
		return uow.tracking
	}
	return nil
}
