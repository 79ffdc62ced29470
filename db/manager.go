// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package db

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
)

const (
	// target pool sizing: a fixed working set plus bounded overflow
	targetPoolMinConns = 5
	targetPoolMaxConns = 15

	// connections are probed before reuse and recycled hourly so a stale
	// socket is never handed to a caller
	targetHealthCheckPeriod = time.Minute
	targetConnMaxLifetime   = time.Hour
)

// Manager owns the two connection pools used by hdldata: an administrative
// pool scoped to the maintenance database (for database existence checks and
// CREATE DATABASE, which PostgreSQL refuses inside a transaction) and a
// target pool scoped to the report library itself. Both pools are created
// lazily on first use and cached. Manager performs no retries; failures
// surface to the caller.
type Manager struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	AdminDatabase string

	mu         sync.Mutex
	adminPool  *pgxpool.Pool
	targetPool *pgxpool.Pool
}

// NewManager builds a Manager from the database settings in viper.
func NewManager() *Manager {
	return &Manager{
		Host:          viper.GetString("database.host"),
		Port:          viper.GetInt("database.port"),
		User:          viper.GetString("database.user"),
		Password:      viper.GetString("database.password"),
		Database:      viper.GetString("database.name"),
		AdminDatabase: viper.GetString("database.admin_name"),
	}
}

// URL returns the DSN for either the administrative or the target database.
// Both share credentials, host and port; only the database name differs.
func (manager *Manager) URL(admin bool) string {
	database := manager.Database
	if admin {
		database = manager.AdminDatabase
		if database == "" {
			database = "postgres"
		}
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(manager.User), url.QueryEscape(manager.Password),
		manager.Host, manager.Port, database)
}

// MigrateURL returns the target DSN in the scheme golang-migrate's pgx/v5
// driver expects.
func (manager *Manager) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s",
		url.QueryEscape(manager.User), url.QueryEscape(manager.Password),
		manager.Host, manager.Port, manager.Database)
}

// AdminPool returns the cached administrative pool, creating it on first
// call. Statements executed directly on the pool run in autocommit mode,
// which schema-level DDL requires.
func (manager *Manager) AdminPool(ctx context.Context) (*pgxpool.Pool, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.adminPool != nil {
		return manager.adminPool, nil
	}

	config, err := pgxpool.ParseConfig(manager.URL(true))
	if err != nil {
		return nil, err
	}

	// administrative work is rare and sequential
	config.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	manager.adminPool = pool
	return pool, nil
}

// TargetPool returns the cached pool for the report library, creating it on
// first call.
func (manager *Manager) TargetPool(ctx context.Context) (*pgxpool.Pool, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.targetPool != nil {
		return manager.targetPool, nil
	}

	config, err := pgxpool.ParseConfig(manager.URL(false))
	if err != nil {
		return nil, err
	}

	config.MinConns = targetPoolMinConns
	config.MaxConns = targetPoolMaxConns
	config.HealthCheckPeriod = targetHealthCheckPeriod
	config.MaxConnLifetime = targetConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	manager.targetPool = pool
	return pool, nil
}

// CloseAll disposes both pools. Safe to call repeatedly and when no pool was
// ever created.
func (manager *Manager) CloseAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.targetPool != nil {
		manager.targetPool.Close()
		manager.targetPool = nil
	}

	if manager.adminPool != nil {
		manager.adminPool.Close()
		manager.adminPool = nil
	}
}
