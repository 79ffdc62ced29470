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
	"strconv"
	"strings"
	"time"
)

// ReportUpdate is the allow-list of fields a partial update may touch. Nil
// members are left unchanged. Identity fields (symbol, report type, year,
// quarter) are deliberately absent: changing a report's business key is not
// an update, it is a different report. Unknown fields cannot be expressed at
// all, so a misspelled client field is a compile error rather than a silent
// no-op.
type ReportUpdate struct {
	CompanyName *string    `json:"company_name,omitempty"`
	Currency    *string    `json:"currency,omitempty"`
	SourceURL   *string    `json:"source_url,omitempty"`
	ScrapedAt   *time.Time `json:"scraped_at,omitempty"`
}

// Empty reports whether no field is set.
func (update ReportUpdate) Empty() bool {
	return update.CompanyName == nil && update.Currency == nil &&
		update.SourceURL == nil && update.ScrapedAt == nil
}

// setClause renders the SET fragment for the fields that are present,
// numbering placeholders from firstArg. last_updated is always touched.
func (update ReportUpdate) setClause(firstArg int) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	next := func() string {
		return "$" + strconv.Itoa(firstArg+len(args))
	}

	if update.CompanyName != nil {
		clauses = append(clauses, "company_name = "+next())
		args = append(args, *update.CompanyName)
	}
	if update.Currency != nil {
		clauses = append(clauses, "currency = "+next())
		args = append(args, *update.Currency)
	}
	if update.SourceURL != nil {
		clauses = append(clauses, "source_url = "+next())
		args = append(args, *update.SourceURL)
	}
	if update.ScrapedAt != nil {
		clauses = append(clauses, "scraped_at = "+next())
		args = append(args, *update.ScrapedAt)
	}

	clauses = append(clauses, "last_updated = now()")

	return strings.Join(clauses, ", "), args
}

func argNum(n int) string {
	return strconv.Itoa(n)
}
