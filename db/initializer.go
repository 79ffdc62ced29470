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
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ErrNoConnection is returned by Initialize when the database server itself
// is unreachable. It is the only condition Initialize escalates as an error;
// everything downstream is pointless without a server.
var ErrNoConnection = errors.New("cannot connect to database server")

// requiredTables is the relation set that gates readiness. All four must be
// visible in the target schema before the store accepts traffic.
var requiredTables = []string{
	"balance_sheet_items",
	"cash_flow_statement_items",
	"financial_reports",
	"income_statement_items",
}

type State int

const (
	StateUninitialized State = iota
	StateConnected
	StateDBVerified
	StateSchemaSynced
	StateReady
	StateFailed
)

func (state State) String() string {
	switch state {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConnected:
		return "CONNECTED"
	case StateDBVerified:
		return "DB_VERIFIED"
	case StateSchemaSynced:
		return "SCHEMA_SYNCED"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Initializer drives the bootstrap sequence that takes the report library
// from unknown state to schema-ready: connectivity check, database existence,
// table existence, then schema synchronization through golang-migrate. Every
// step converts its internal failure into a boolean result and a logged
// cause; nothing panics across this boundary.
//
// Initialize is meant to run exactly once at process startup, before store
// traffic is accepted. It is not designed for concurrent re-entry.
type Initializer struct {
	Manager *Manager

	state State
}

func NewInitializer(manager *Manager) *Initializer {
	return &Initializer{Manager: manager}
}

// State returns the last state the bootstrap sequence reached. The API layer
// uses this as its readiness probe.
func (initializer *Initializer) State() State {
	return initializer.state
}

// Ready reports whether bootstrap completed successfully.
func (initializer *Initializer) Ready() bool {
	return initializer.state == StateReady
}

// VerifyConnectivity executes a trivial round trip against the
// administrative database.
func (initializer *Initializer) VerifyConnectivity(ctx context.Context) bool {
	pool, err := initializer.Manager.AdminPool(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not create administrative pool")
		return false
	}

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		log.Error().Err(err).Str("Host", initializer.Manager.Host).Msg("database server connection failed")
		return false
	}

	return true
}

// DatabaseExists checks the server catalog for the target database. A query
// failure is reported as "does not exist," not as an error state.
func (initializer *Initializer) DatabaseExists(ctx context.Context) bool {
	pool, err := initializer.Manager.AdminPool(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not create administrative pool")
		return false
	}

	var exists bool
	err = pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1)",
		initializer.Manager.Database).Scan(&exists)
	if err != nil {
		log.Error().Err(err).Str("Database", initializer.Manager.Database).Msg("database existence check failed")
		return false
	}

	if !exists {
		log.Warn().Str("Database", initializer.Manager.Database).Msg("database not found")
	}

	return exists
}

// CreateDatabase creates the target database if it does not already exist.
// CREATE DATABASE cannot run inside a transaction, so the statement executes
// in autocommit mode on the administrative pool. Idempotent.
func (initializer *Initializer) CreateDatabase(ctx context.Context) bool {
	if initializer.DatabaseExists(ctx) {
		log.Info().Str("Database", initializer.Manager.Database).Msg("database already exists")
		return true
	}

	pool, err := initializer.Manager.AdminPool(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not create administrative pool")
		return false
	}

	createSQL := "CREATE DATABASE " + pgx.Identifier{initializer.Manager.Database}.Sanitize()
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		log.Error().Err(err).Str("Database", initializer.Manager.Database).Msg("create database failed")
		return false
	}

	log.Info().Str("Database", initializer.Manager.Database).Msg("database created")
	return true
}

// TablesExist reports whether every required relation is visible in the
// target schema. When the database itself is missing no query is attempted
// against it.
func (initializer *Initializer) TablesExist(ctx context.Context) bool {
	if !initializer.DatabaseExists(ctx) {
		return false
	}

	pool, err := initializer.Manager.TargetPool(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not create target pool")
		return false
	}

	rows, err := pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_type = 'BASE TABLE' AND table_schema = 'public'`)
	if err != nil {
		log.Error().Err(err).Msg("table existence check failed")
		return false
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Error().Err(err).Msg("scanning table name failed")
			return false
		}
		existing[name] = true
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("reading table list failed")
		return false
	}

	if missing := missingTables(existing); len(missing) > 0 {
		log.Warn().Str("MissingTables", strings.Join(missing, ", ")).Msg("required tables missing")
		return false
	}

	return true
}

// SynchronizeSchema brings the schema to the latest migration revision.
// Migration failures are collapsed to a boolean at this boundary.
func (initializer *Initializer) SynchronizeSchema() bool {
	if err := Migrate(initializer.Manager.MigrateURL()); err != nil {
		log.Error().Err(err).Msg("schema synchronization failed")
		return false
	}

	log.Info().Msg("schema synchronized to latest revision")
	return true
}

// Initialize runs the bootstrap sequence. Connectivity failure is fatal and
// returns ErrNoConnection; every later failure is reported through the
// boolean result. Database provisioning is an administrative responsibility:
// a missing database is a failure here, not a trigger for CreateDatabase.
// All pools held by the Manager are disposed on every exit path.
func (initializer *Initializer) Initialize(ctx context.Context) (ready bool, err error) {
	log.Info().Msg("starting database initialization")

	defer func() {
		if !ready {
			initializer.state = StateFailed
		}
		initializer.Manager.CloseAll()
	}()

	if !initializer.VerifyConnectivity(ctx) {
		return false, ErrNoConnection
	}
	initializer.state = StateConnected

	if !initializer.DatabaseExists(ctx) {
		log.Error().Str("Database", initializer.Manager.Database).
			Msg("database does not exist; create it before running hdldata")
		return false, nil
	}
	initializer.state = StateDBVerified

	if !initializer.TablesExist(ctx) {
		log.Info().Msg("tables missing or incomplete, synchronizing schema")
		if !initializer.SynchronizeSchema() {
			return false, nil
		}
	} else {
		// tables already exist; pick up any pending revisions but
		// tolerate a failed sync
		if !initializer.SynchronizeSchema() {
			log.Warn().Msg("tables exist but migration sync failed")
		}
	}
	initializer.state = StateSchemaSynced

	if !initializer.TablesExist(ctx) {
		log.Error().Msg("database initialization failed: tables not created properly")
		return false, nil
	}

	initializer.state = StateReady
	log.Info().Msg("database initialization completed successfully")
	return true, nil
}

// missingTables returns the required relations absent from existing, sorted
// for stable log output.
func missingTables(existing map[string]bool) []string {
	var missing []string
	for _, tbl := range requiredTables {
		if !existing[tbl] {
			missing = append(missing, tbl)
		}
	}
	sort.Strings(missing)
	return missing
}
