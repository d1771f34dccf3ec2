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

// Package config loads the application configuration with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tomoncle/membership/database"
)

const EnvPrefix = "MEMBERSVC"

// EnvFile is read before the environment is consulted. Variables already
// set in the process win over the file.
var EnvFile = "configs/.env"

// Config holds application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Migrate   MigrateConfig   `mapstructure:"migrate"`
	Pageable  PageableConfig  `mapstructure:"pageable"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	EnableReconnect bool          `mapstructure:"enable_reconnect"`
	EnableQueryLog  bool          `mapstructure:"enable_query_log"`
	SlowQueryTime   time.Duration `mapstructure:"slow_query_time"`
}

type MigrateConfig struct {
	OnStartup      bool   `mapstructure:"on_startup"`
	ForeignKeys    bool   `mapstructure:"foreign_keys"`
	ForeignKeyFile string `mapstructure:"foreign_key_file"`
}

type PageableConfig struct {
	DefaultSize          int    `mapstructure:"default_size"`
	MaxSize              int    `mapstructure:"max_size"`
	OneIndexedParameters bool   `mapstructure:"one_indexed_parameters"`
	DefaultSort          string `mapstructure:"default_sort"`
}

type BootstrapConfig struct {
	Seed      bool `mapstructure:"seed"`
	SeedCount int  `mapstructure:"seed_count"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads path (when not empty) over the defaults and applies
// MEMBERSVC_* environment variables, e.g. MEMBERSVC_SERVER_PORT.
func Load(path string) (*Config, error) {
	loadEnvFile(EnvFile)

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(path string) {
	envMap, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for k, val := range envMap {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, val)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", database.MemoryDBName)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.enable_reconnect", true)
	v.SetDefault("database.enable_query_log", false)
	v.SetDefault("database.slow_query_time", 2*time.Second)

	v.SetDefault("migrate.on_startup", true)
	v.SetDefault("migrate.foreign_keys", true)
	v.SetDefault("migrate.foreign_key_file", "")

	v.SetDefault("pageable.default_size", 5)
	v.SetDefault("pageable.max_size", 2000)
	v.SetDefault("pageable.one_indexed_parameters", false)
	v.SetDefault("pageable.default_sort", "username,asc")

	v.SetDefault("bootstrap.seed", true)
	v.SetDefault("bootstrap.seed_count", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port is required")
	}
	if c.Database.Type == "" {
		return errors.New("database.type is required")
	}
	if c.Pageable.DefaultSize < 1 {
		return errors.New("pageable.default_size must be positive")
	}
	if c.Pageable.MaxSize < c.Pageable.DefaultSize {
		return errors.New("pageable.max_size must not be below pageable.default_size")
	}
	if c.Bootstrap.SeedCount < 0 {
		return errors.New("bootstrap.seed_count must not be negative")
	}
	return nil
}

// Addr returns host:port for HTTP server binding.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConfigLoader converts the database and migrate sections for the database
// package. Settings not exposed here keep database.DefaultConnectionConfig.
func (c *Config) ConfigLoader() *database.Config {
	conn := database.DefaultConnectionConfig()
	conn.Type = c.Database.Type
	conn.Host = c.Database.Host
	conn.Port = c.Database.Port
	conn.Username = c.Database.Username
	conn.Password = c.Database.Password
	conn.DBName = c.Database.DBName
	conn.SSLMode = c.Database.SSLMode
	conn.MaxIdleConns = c.Database.MaxIdleConns
	conn.MaxOpenConns = c.Database.MaxOpenConns
	conn.ConnMaxLifetime = c.Database.ConnMaxLifetime
	conn.EnableReconnect = c.Database.EnableReconnect
	conn.EnableQueryLog = c.Database.EnableQueryLog
	conn.SlowQueryTime = c.Database.SlowQueryTime
	return &database.Config{
		ConnectionConfig: *conn,
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: c.Migrate.OnStartup,
			EnableForeignKey:       c.Migrate.ForeignKeys,
			ForeignKeyFile:         c.Migrate.ForeignKeyFile,
		},
	}
}
