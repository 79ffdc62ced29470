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
package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hyper-data-lab/hdldata/data"
)

// Job describes a single scrape run: which symbols to fetch, what kind of
// report, and which fiscal years. Each run gets its own id so log lines and
// healthcheck pings can be correlated.
type Job struct {
	ID         uuid.UUID
	Symbols    []string
	ReportType data.ReportType
	FromYear   int
	ToYear     int

	StartTime time.Time
}

// RunSummary is emitted when a scrape run finishes.
type RunSummary struct {
	JobID      uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	NumReports int
}

// Duration returns the wall time the run took.
func (summary RunSummary) Duration() time.Duration {
	return summary.EndTime.Sub(summary.StartTime)
}

// Scraper fetches financial report payloads from an upstream source and
// streams them to the out channel. Implementations normalize symbols and set
// the full business key on every report they emit; the store performs no
// further payload validation.
type Scraper interface {
	Name() string
	Description() string
	Fetch(ctx context.Context, job *Job, out chan<- *data.FinancialReport) (int, error)
}

// Map holds all registered scrapers keyed by name.
var Map = map[string]Scraper{
	"cafef": &CafeF{},
}

// NewJob builds a Job covering fromYear..toYear for the given symbols.
func NewJob(symbols []string, reportType data.ReportType, fromYear, toYear int) *Job {
	normalized := make([]string, len(symbols))
	for idx, symbol := range symbols {
		normalized[idx] = data.NormalizeSymbol(symbol)
	}

	return &Job{
		ID:         uuid.New(),
		Symbols:    normalized,
		ReportType: reportType,
		FromYear:   fromYear,
		ToYear:     toYear,
		StartTime:  time.Now(),
	}
}

// Finish closes out the job after numReports reports were fetched and returns
// its run summary.
func (job *Job) Finish(numReports int) RunSummary {
	return RunSummary{
		JobID:      job.ID,
		StartTime:  job.StartTime,
		EndTime:    time.Now(),
		NumReports: numReports,
	}
}
