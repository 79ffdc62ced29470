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
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyper-data-lab/hdldata/data"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NumSymbols returns the count of distinct symbols with at least one report.
func (store *Store) NumSymbols(ctx context.Context) (int, error) {
	count := 0
	err := store.Pool.QueryRow(ctx, "SELECT count(DISTINCT symbol) FROM financial_reports").Scan(&count)
	return count, err
}

// CountByType returns the number of stored reports of the given kind.
func (store *Store) CountByType(ctx context.Context, reportType data.ReportType) (int64, error) {
	var count int64
	err := store.Pool.QueryRow(ctx, "SELECT count(*) FROM financial_reports WHERE report_type = $1",
		reportType).Scan(&count)
	return count, err
}

// LastUpdated returns the most recent ingest time across the library.
func (store *Store) LastUpdated(ctx context.Context) (time.Time, error) {
	var lastUpdated time.Time
	err := store.Pool.QueryRow(ctx,
		"SELECT coalesce(max(last_updated), '0001-01-01'::timestamptz) FROM financial_reports").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}

	return lastUpdated, nil
}

// Summary returns a description of the report library in markdown
func (store *Store) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# Financial Report Library\n\n")
	builder.WriteString("## Details\n\n")

	totalReports, err := store.Count(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Total Reports: %d\n", totalReports))

	numSymbols, err := store.NumSymbols(ctx)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Symbols Tracked: %d\n", numSymbols))

	numAnnual, err := store.CountByType(ctx, data.AnnualReport)
	if err != nil {
		return "", err
	}

	numQuarterly, err := store.CountByType(ctx, data.QuarterlyReport)
	if err != nil {
		return "", err
	}

	builder.WriteString(p.Sprintf("  * Annual Reports: %d\n", numAnnual))
	builder.WriteString(p.Sprintf("  * Quarterly Reports: %d\n\n", numQuarterly))

	lastUpdated, err := store.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	if lastUpdated.Equal(time.Time{}) || lastUpdated.Year() <= 1 {
		builder.WriteString("Last Updated: Never\n")
	} else {
		age := timeago.English.Format(lastUpdated)
		builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n",
			age, lastUpdated.Local().Format("01/02/2006")))
	}

	return builder.String(), nil
}
