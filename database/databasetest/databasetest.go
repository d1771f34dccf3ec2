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

// Package databasetest opens migrated in-memory SQLite databases for tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/database"
	"github.com/uptrace/bun"
)

// Open returns a private in-memory database with every registered model
// migrated. It is closed when the test ends.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	return OpenManager(t).GetDB()
}

// OpenManager is Open returning the database manager.
func OpenManager(t testing.TB) database.AbstractDatabaseManager {
	t.Helper()
	factory := database.NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(database.DefaultConnectionConfig())
	require.NoError(t, err)
	err = factory.InitializeDatabase(context.Background(), &database.DataMigrateConfig{
		EnableMigrateOnStartup: true,
		EnableForeignKey:       true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	db := manager.GetDB()
	db.RegisterModel(database.RegisteredModelInstances()...)
	return manager
}
