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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("readiness gate", func() {
	It("requires all four report relations", func() {
		existing := map[string]bool{
			"financial_reports":         true,
			"balance_sheet_items":       true,
			"income_statement_items":    true,
			"cash_flow_statement_items": true,
		}
		Expect(missingTables(existing)).To(BeEmpty())
	})

	It("reports every missing relation", func() {
		existing := map[string]bool{
			"financial_reports": true,
		}
		Expect(missingTables(existing)).To(ConsistOf(
			"balance_sheet_items",
			"income_statement_items",
			"cash_flow_statement_items",
		))
	})

	It("ignores unrelated relations", func() {
		existing := map[string]bool{
			"financial_reports":         true,
			"balance_sheet_items":       true,
			"income_statement_items":    true,
			"cash_flow_statement_items": true,
			"schema_migrations":         true,
		}
		Expect(missingTables(existing)).To(BeEmpty())
	})
})

var _ = Describe("bootstrap state machine", func() {
	It("starts uninitialized and not ready", func() {
		initializer := NewInitializer(&Manager{})
		Expect(initializer.State()).To(Equal(StateUninitialized))
		Expect(initializer.Ready()).To(BeFalse())
	})

	It("names every state", func() {
		states := []State{StateUninitialized, StateConnected, StateDBVerified,
			StateSchemaSynced, StateReady, StateFailed}
		names := make([]string, len(states))
		for idx, state := range states {
			names[idx] = state.String()
		}
		Expect(names).To(Equal([]string{"UNINITIALIZED", "CONNECTED", "DB_VERIFIED",
			"SCHEMA_SYNCED", "READY", "FAILED"}))
	})
})

var _ = Describe("Initialize connectivity boundary", func() {
	It("escalates an unreachable server as fatal and still releases pools", func() {
		// 'x' is not a routable host; pool creation succeeds lazily but
		// the SELECT 1 round trip cannot
		manager := &Manager{Host: "x.invalid", Port: 1, User: "u", Password: "p", Database: "d"}
		initializer := NewInitializer(manager)

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // fail the probe immediately rather than waiting on a dial

		ready, err := initializer.Initialize(ctx)
		Expect(ready).To(BeFalse())
		Expect(err).To(MatchError(ErrNoConnection))
		Expect(initializer.State()).To(Equal(StateFailed))
		Expect(initializer.Ready()).To(BeFalse())

		// pools were disposed on the fatal path
		Expect(manager.adminPool).To(BeNil())
		Expect(manager.targetPool).To(BeNil())
	})
})
