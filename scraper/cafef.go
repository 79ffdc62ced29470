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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/hyper-data-lab/hdldata/data"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var ErrStatus = errors.New("status code is invalid")

const cafefEndpoint = "https://s.cafef.vn/api/financial-reports"

// CafeF scrapes financial statements from cafef.vn. The site serves its
// report viewer from JSON endpoints, one document per symbol, period and
// statement kind, so no browser automation is involved. Requests are
// throttled to stay under the site's rate limits.
type CafeF struct {
	// BaseURL overrides the production endpoint, used by tests.
	BaseURL string

	client  *resty.Client
	limiter *rate.Limiter
}

func (cafef *CafeF) Name() string {
	return "CafeF"
}

func (cafef *CafeF) Description() string {
	return `CafeF publishes quarterly and annual financial statements for companies listed on the HOSE, HNX and UPCOM exchanges`
}

// Fetch downloads reports for every symbol and year in the job and streams
// them to out. Individual symbol failures are logged and skipped; the run
// continues with the remaining symbols.
func (cafef *CafeF) Fetch(ctx context.Context, job *Job, out chan<- *data.FinancialReport) (int, error) {
	logger := zerolog.Ctx(ctx)

	if cafef.client == nil {
		cafef.client = resty.New().SetHeader("User-Agent", "hdldata")
	}
	if cafef.limiter == nil {
		// 2 requests per second with a small burst
		cafef.limiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
	}

	baseURL := cafef.BaseURL
	if baseURL == "" {
		baseURL = cafefEndpoint
	}

	numReports := 0

	for _, symbol := range job.Symbols {
		for year := job.FromYear; year <= job.ToYear; year++ {
			if err := cafef.limiter.Wait(ctx); err != nil {
				return numReports, err
			}

			payload, err := cafef.download(ctx, baseURL, symbol, job.ReportType, year)
			if err != nil {
				logger.Error().Err(err).Str("Symbol", symbol).Int("Year", year).Msg("downloading reports failed")
				continue
			}

			reportList, err := parseReports(symbol, payload)
			if err != nil {
				logger.Error().Err(err).Str("Symbol", symbol).Int("Year", year).Msg("parsing report payload failed")
				continue
			}

			for _, report := range reportList {
				select {
				case out <- report:
					numReports++
				case <-ctx.Done():
					return numReports, ctx.Err()
				}
			}
		}
	}

	return numReports, nil
}

func (cafef *CafeF) download(ctx context.Context, baseURL, symbol string, reportType data.ReportType, year int) ([]byte, error) {
	resp, err := cafef.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.ToUpper(symbol)).
		SetQueryParam("type", string(reportType)).
		SetQueryParam("year", fmt.Sprintf("%d", year)).
		Get(baseURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return resp.Body(), nil
}

type cafefDocument struct {
	Symbol      string        `json:"symbol"`
	CompanyName string        `json:"companyName"`
	Currency    string        `json:"currency"`
	Reports     []cafefReport `json:"reports"`
}

type cafefReport struct {
	Year         int         `json:"year"`
	Quarter      int         `json:"quarter"` // 0 means annual
	URL          string      `json:"url"`
	BalanceSheet []cafefItem `json:"balanceSheet"`
	IncomeStmt   []cafefItem `json:"incomeStatement"`
	CashFlow     []cafefItem `json:"cashFlow"`
}

type cafefItem struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// parseReports converts a CafeF report document into FinancialReport values.
// CafeF encodes annual reports as quarter 0; those map to a nil quarter so
// they land in the annual dedup partition rather than a bogus quarter value.
func parseReports(symbol string, payload []byte) ([]*data.FinancialReport, error) {
	var document cafefDocument
	if err := json.Unmarshal(payload, &document); err != nil {
		return nil, err
	}

	reportList := make([]*data.FinancialReport, 0, len(document.Reports))
	for _, entry := range document.Reports {
		report := &data.FinancialReport{
			Symbol:      data.NormalizeSymbol(symbol),
			ReportYear:  entry.Year,
			CompanyName: document.CompanyName,
			Currency:    document.Currency,
			SourceURL:   entry.URL,
			ScrapedAt:   time.Now(),
		}

		if entry.Quarter == 0 {
			report.ReportType = data.AnnualReport
		} else {
			quarter := entry.Quarter
			report.ReportType = data.QuarterlyReport
			report.ReportQuarter = &quarter
		}

		for _, item := range entry.BalanceSheet {
			report.BalanceSheet = append(report.BalanceSheet,
				&data.BalanceSheetItem{ItemCode: item.Code, ItemName: item.Name, Value: item.Value})
		}
		for _, item := range entry.IncomeStmt {
			report.IncomeStatement = append(report.IncomeStatement,
				&data.IncomeStatementItem{ItemCode: item.Code, ItemName: item.Name, Value: item.Value})
		}
		for _, item := range entry.CashFlow {
			report.CashFlow = append(report.CashFlow,
				&data.CashFlowItem{ItemCode: item.Code, ItemName: item.Name, Value: item.Value})
		}

		reportList = append(reportList, report)
	}

	return reportList, nil
}
