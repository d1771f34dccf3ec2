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

package database

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// EnvOverrides holds the DB_* environment variables that take precedence
// over file configuration. Unset variables leave the config untouched.
type EnvOverrides struct {
	Host            *string `envconfig:"HOST"`
	Port            *int    `envconfig:"PORT"`
	Username        *string `envconfig:"USERNAME"`
	Password        *string `envconfig:"PASSWORD"`
	Name            *string `envconfig:"NAME"`
	SSLMode         *string `envconfig:"SSLMODE"`
	MaxIdleConns    *int    `envconfig:"MAX_IDLE_CONNS"`
	MaxOpenConns    *int    `envconfig:"MAX_OPEN_CONNS"`
	ConnMaxLifetime *int    `envconfig:"CONN_MAX_LIFETIME"` // seconds
	EnableReconnect *bool   `envconfig:"ENABLE_RECONNECT"`
	EnableQueryLog  *bool   `envconfig:"ENABLE_QUERY_LOG"`
}

// Apply copies every set override into cfg.
func (o *EnvOverrides) Apply(cfg *ConnectionConfig) {
	setIf(&cfg.Host, o.Host)
	setIf(&cfg.Port, o.Port)
	setIf(&cfg.Username, o.Username)
	setIf(&cfg.Password, o.Password)
	setIf(&cfg.DBName, o.Name)
	setIf(&cfg.SSLMode, o.SSLMode)
	setIf(&cfg.MaxIdleConns, o.MaxIdleConns)
	setIf(&cfg.MaxOpenConns, o.MaxOpenConns)
	setIf(&cfg.EnableReconnect, o.EnableReconnect)
	setIf(&cfg.EnableQueryLog, o.EnableQueryLog)
	if o.ConnMaxLifetime != nil {
		cfg.ConnMaxLifetime = time.Duration(*o.ConnMaxLifetime) * time.Second
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig constructs a database manager from the given connection
// configuration after applying DB_* environment overrides.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if !slices.Contains(supportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}

	var overrides EnvOverrides
	if err := envconfig.Process("DB", &overrides); err != nil {
		return nil, fmt.Errorf("failed to read database environment overrides: %w", err)
	}
	overrides.Apply(cfg)

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// InitializeDatabase connects to the database and optionally runs migrations.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, migrate *DataMigrateConfig) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate != nil && migrate.EnableMigrateOnStartup {
		if err := f.manager.RunMigrations(ctx, migrate); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
