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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/membership/database"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, database.MemoryDBName, cfg.Database.DBName)
	assert.True(t, cfg.Migrate.OnStartup)
	assert.Equal(t, 5, cfg.Pageable.DefaultSize)
	assert.Equal(t, 2000, cfg.Pageable.MaxSize)
	assert.Equal(t, "username,asc", cfg.Pageable.DefaultSort)
	assert.True(t, cfg.Bootstrap.Seed)
	assert.Equal(t, 100, cfg.Bootstrap.SeedCount)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 3s
database:
  type: postgres
  host: db.internal
  port: 5432
  dbname: membership
pageable:
  default_size: 20
  one_indexed_parameters: true
bootstrap:
  seed: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Pageable.DefaultSize)
	assert.True(t, cfg.Pageable.OneIndexedParameters)
	assert.False(t, cfg.Bootstrap.Seed)
	// untouched keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2000, cfg.Pageable.MaxSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("MEMBERSVC_SERVER_PORT", "7070")
	t.Setenv("MEMBERSVC_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"database type", func(c *Config) { c.Database.Type = "" }},
		{"page size", func(c *Config) { c.Pageable.DefaultSize = 0 }},
		{"max size", func(c *Config) { c.Pageable.MaxSize = 1 }},
		{"seed count", func(c *Config) { c.Bootstrap.SeedCount = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigLoader(t *testing.T) {
	path := writeConfig(t, `
database:
  type: mysql
  host: 10.0.0.1
  port: 3306
  username: root
  password: secret
  dbname: membership
  max_open_conns: 7
migrate:
  on_startup: false
  foreign_keys: true
  foreign_key_file: fk.yaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dbCfg := cfg.ConfigLoader()
	conn := dbCfg.ConnectionConfig
	assert.Equal(t, "mysql", conn.Type)
	assert.Equal(t, "10.0.0.1", conn.Host)
	assert.Equal(t, 3306, conn.Port)
	assert.Equal(t, "root", conn.Username)
	assert.Equal(t, "secret", conn.Password)
	assert.Equal(t, 7, conn.MaxOpenConns)
	// not exposed by the file, taken from the database defaults
	assert.Equal(t, 3, conn.MaxReconnectTries)

	assert.False(t, dbCfg.DataMigrateConfig.EnableMigrateOnStartup)
	assert.True(t, dbCfg.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, "fk.yaml", dbCfg.DataMigrateConfig.ForeignKeyFile)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEMBERSVC_BOOTSTRAP_SEED_COUNT=7\nMEMBERSVC_SERVER_PORT=6060\n"), 0o600))
	t.Setenv("MEMBERSVC_SERVER_PORT", "7070")
	t.Cleanup(func() { _ = os.Unsetenv("MEMBERSVC_BOOTSTRAP_SEED_COUNT") })

	old := EnvFile
	EnvFile = path
	t.Cleanup(func() { EnvFile = old })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Bootstrap.SeedCount)
	assert.Equal(t, 7070, cfg.Server.Port)
}
