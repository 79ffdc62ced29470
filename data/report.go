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
package data

import (
	"strings"
	"time"
)

type ReportType string

const (
	AnnualReport    ReportType = "annual"
	QuarterlyReport ReportType = "quarterly"
)

// Valid reports whether the report type is one of the known kinds.
func (rt ReportType) Valid() bool {
	return rt == AnnualReport || rt == QuarterlyReport
}

// FinancialReport is a single scraped filing for one company and one fiscal
// period. The surrogate ID is assigned by the database and never changes. The
// tuple (symbol, report_type, report_year, report_quarter) is the business
// key: it uniquely identifies a report across scraper runs and is the basis
// for duplicate detection during ingest.
//
// ReportQuarter is nil for annual reports. A nil quarter and a set quarter
// are distinct identities; comparisons must branch on IS NULL rather than
// relying on SQL equality, which never matches NULL.
type FinancialReport struct {
	ID            int64      `db:"id" json:"id" csv:"id"`
	Symbol        string     `db:"symbol" json:"symbol" csv:"symbol"`
	ReportType    ReportType `db:"report_type" json:"report_type" csv:"report_type"`
	ReportYear    int        `db:"report_year" json:"report_year" csv:"report_year"`
	ReportQuarter *int       `db:"report_quarter" json:"report_quarter,omitempty" csv:"report_quarter"`

	CompanyName string `db:"company_name" json:"company_name" csv:"company_name"`
	Currency    string `db:"currency" json:"currency" csv:"currency"`
	SourceURL   string `db:"source_url" json:"source_url" csv:"source_url"`

	BalanceSheet    []*BalanceSheetItem    `db:"-" json:"balance_sheet,omitempty" csv:"-"`
	IncomeStatement []*IncomeStatementItem `db:"-" json:"income_statement,omitempty" csv:"-"`
	CashFlow        []*CashFlowItem        `db:"-" json:"cash_flow,omitempty" csv:"-"`

	ScrapedAt   time.Time `db:"scraped_at" json:"scraped_at" csv:"scraped_at"`
	CreatedOn   time.Time `db:"created_on" json:"created_on" csv:"-"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated" csv:"-"`
}

// NormalizeSymbol folds a ticker to its canonical form. Every code path that
// accepts a symbol runs it through here so lookups are case-insensitive by
// construction.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

// Normalize canonicalizes the fields that participate in the business key.
func (report *FinancialReport) Normalize() {
	report.Symbol = NormalizeSymbol(report.Symbol)
}

// SameBusinessKey reports whether two reports identify the same filing. The
// nil-quarter branch is deliberate: annual reports only ever match other
// reports without a quarter.
func (report *FinancialReport) SameBusinessKey(other *FinancialReport) bool {
	if NormalizeSymbol(report.Symbol) != NormalizeSymbol(other.Symbol) ||
		report.ReportType != other.ReportType ||
		report.ReportYear != other.ReportYear {
		return false
	}

	if report.ReportQuarter == nil || other.ReportQuarter == nil {
		return report.ReportQuarter == nil && other.ReportQuarter == nil
	}

	return *report.ReportQuarter == *other.ReportQuarter
}
