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
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/hyper-data-lab/hdldata/data"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const reportColumns = `id, symbol, report_type, report_year, report_quarter,
company_name, currency, source_url, scraped_at, created_on, last_updated`

// Store persists financial reports in the library database. Each operation
// uses its own transaction and commits before returning; no transaction is
// held across calls. Lookup misses are reported as a nil report, not as an
// error.
//
// Upsert performs a check-then-act sequence without in-process locking. Two
// concurrent upserts on the same business key may both observe "absent"; the
// unique indexes on financial_reports reject the losing insert and the loser
// retries as an update of the winner's row.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// UpsertStats summarizes a bulk ingest.
type UpsertStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// Add inserts a single report along with any attached line items and refreshes
// the store-assigned fields on the passed report.
func (store *Store) Add(ctx context.Context, report *data.FinancialReport) error {
	report.Normalize()

	conn, err := store.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			if !errors.Is(err, pgx.ErrTxClosed) {
				log.Error().Err(err).Msg("error rolling back add transaction")
			}
		}
	}()

	if err := store.insertTx(ctx, tx, report); err != nil {
		return err
	}

	if err := saveItems(ctx, tx, report); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddBulk inserts reports in one batched transaction and refreshes the
// store-assigned fields on every passed report. Attached line items are not
// written; use Upsert for full-bodied ingest.
func (store *Store) AddBulk(ctx context.Context, reports []*data.FinancialReport) error {
	conn, err := store.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			if !errors.Is(err, pgx.ErrTxClosed) {
				log.Error().Err(err).Msg("error rolling back bulk add transaction")
			}
		}
	}()

	batch := &pgx.Batch{}
	for _, report := range reports {
		report.Normalize()
		batch.Queue(`INSERT INTO financial_reports
("symbol", "report_type", "report_year", "report_quarter", "company_name", "currency", "source_url", "scraped_at")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_on, last_updated`,
			report.Symbol, report.ReportType, report.ReportYear, report.ReportQuarter,
			report.CompanyName, report.Currency, report.SourceURL, report.ScrapedAt)
	}

	results := tx.SendBatch(ctx, batch)
	for _, report := range reports {
		if err := results.QueryRow().Scan(&report.ID, &report.CreatedOn, &report.LastUpdated); err != nil {
			_ = results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID fetches one report. Returns nil when no report has the id.
func (store *Store) GetByID(ctx context.Context, id int64) (*data.FinancialReport, error) {
	report := &data.FinancialReport{}
	err := pgxscan.Get(ctx, store.Pool, report,
		`SELECT `+reportColumns+` FROM financial_reports WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetBySymbol returns every report stored for the symbol, any case.
func (store *Store) GetBySymbol(ctx context.Context, symbol string) ([]*data.FinancialReport, error) {
	var found []*data.FinancialReport
	err := pgxscan.Select(ctx, store.Pool, &found,
		`SELECT `+reportColumns+` FROM financial_reports WHERE symbol = $1`,
		data.NormalizeSymbol(symbol))
	return found, err
}

// FindDuplicate looks up a report by its business key. A nil quarter matches
// only rows whose quarter IS NULL; a set quarter matches only that quarter.
// The two predicates are mutually exclusive, never combined.
func (store *Store) FindDuplicate(ctx context.Context, symbol string, reportType data.ReportType, year int, quarter *int) (*data.FinancialReport, error) {
	report := &data.FinancialReport{}

	var err error
	if quarter == nil {
		err = pgxscan.Get(ctx, store.Pool, report,
			`SELECT `+reportColumns+` FROM financial_reports
			 WHERE symbol = $1 AND report_type = $2 AND report_year = $3 AND report_quarter IS NULL`,
			data.NormalizeSymbol(symbol), reportType, year)
	} else {
		err = pgxscan.Get(ctx, store.Pool, report,
			`SELECT `+reportColumns+` FROM financial_reports
			 WHERE symbol = $1 AND report_type = $2 AND report_year = $3 AND report_quarter = $4`,
			data.NormalizeSymbol(symbol), reportType, year, *quarter)
	}

	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Update applies the set fields of update to the report with the given id and
// returns the refreshed row, or nil when the id is unknown. Identity fields
// are not updatable through this path.
func (store *Store) Update(ctx context.Context, id int64, update ReportUpdate) (*data.FinancialReport, error) {
	if update.Empty() {
		return store.GetByID(ctx, id)
	}

	setSQL, args := update.setClause(1)
	args = append(args, id)

	sql := `UPDATE financial_reports SET ` + setSQL +
		` WHERE id = $` + argNum(len(args)) + ` RETURNING ` + reportColumns

	report := &data.FinancialReport{}
	err := pgxscan.Get(ctx, store.Pool, report, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Upsert inserts the report or, when its business key is already present,
// overwrites the stored content in place. The surrogate id and the business
// key of an existing row are never changed. Returns the stored row and
// whether it was newly created.
func (store *Store) Upsert(ctx context.Context, report *data.FinancialReport) (*data.FinancialReport, bool, error) {
	report.Normalize()

	existing, err := store.FindDuplicate(ctx, report.Symbol, report.ReportType, report.ReportYear, report.ReportQuarter)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		updated, err := store.overwrite(ctx, existing.ID, report)
		return updated, false, err
	}

	created, err := store.insert(ctx, report)
	if err == nil {
		return created, true, nil
	}

	// a concurrent upsert won the insert race; the unique index rejected
	// ours, so retry as an update of the winner's row
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		winner, findErr := store.FindDuplicate(ctx, report.Symbol, report.ReportType, report.ReportYear, report.ReportQuarter)
		if findErr != nil {
			return nil, false, findErr
		}
		if winner == nil {
			return nil, false, err
		}

		updated, updateErr := store.overwrite(ctx, winner.ID, report)
		return updated, false, updateErr
	}

	return nil, false, err
}

// UpsertBulk upserts each report in turn. Each item commits independently so
// a failure partway through keeps the progress already made; this is the
// streaming-ingest contract scraper pipelines rely on.
func (store *Store) UpsertBulk(ctx context.Context, reportList []*data.FinancialReport) (UpsertStats, error) {
	stats := UpsertStats{Total: len(reportList)}

	for _, report := range reportList {
		_, created, err := store.Upsert(ctx, report)
		if err != nil {
			return stats, err
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	return stats, nil
}

// Delete removes one report. Returns false when the id is unknown.
func (store *Store) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := store.Pool.Exec(ctx, "DELETE FROM financial_reports WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteBySymbol removes every report for the symbol and returns the count
// deleted.
func (store *Store) DeleteBySymbol(ctx context.Context, symbol string) (int64, error) {
	tag, err := store.Pool.Exec(ctx, "DELETE FROM financial_reports WHERE symbol = $1",
		data.NormalizeSymbol(symbol))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetAll returns reports ordered by symbol ascending, then year descending,
// then quarter ascending with annual reports first. Zero limit means no
// limit.
func (store *Store) GetAll(ctx context.Context, limit, offset int) ([]*data.FinancialReport, error) {
	sql := `SELECT ` + reportColumns + ` FROM financial_reports
		ORDER BY symbol ASC, report_year DESC, report_quarter ASC NULLS FIRST`
	args := []any{}

	if offset > 0 {
		args = append(args, offset)
		sql += ` OFFSET $` + argNum(len(args))
	}
	if limit > 0 {
		args = append(args, limit)
		sql += ` LIMIT $` + argNum(len(args))
	}

	var found []*data.FinancialReport
	err := pgxscan.Select(ctx, store.Pool, &found, sql, args...)
	return found, err
}

// Count returns the total number of stored reports.
func (store *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := store.Pool.QueryRow(ctx, "SELECT count(*) FROM financial_reports").Scan(&count)
	return count, err
}

// CountBySymbol returns the number of reports stored for the symbol.
func (store *Store) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	var count int64
	err := store.Pool.QueryRow(ctx, "SELECT count(*) FROM financial_reports WHERE symbol = $1",
		data.NormalizeSymbol(symbol)).Scan(&count)
	return count, err
}

// insert writes a new report row plus line items in one transaction and
// returns the stored row.
func (store *Store) insert(ctx context.Context, report *data.FinancialReport) (*data.FinancialReport, error) {
	stored := *report
	if err := store.Add(ctx, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// insertTx inserts the report row inside tx and refreshes the store-assigned
// fields.
func (store *Store) insertTx(ctx context.Context, tx pgx.Tx, report *data.FinancialReport) error {
	return tx.QueryRow(ctx, `INSERT INTO financial_reports
("symbol", "report_type", "report_year", "report_quarter", "company_name", "currency", "source_url", "scraped_at")
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_on, last_updated`,
		report.Symbol, report.ReportType, report.ReportYear, report.ReportQuarter,
		report.CompanyName, report.Currency, report.SourceURL, report.ScrapedAt).
		Scan(&report.ID, &report.CreatedOn, &report.LastUpdated)
}

// overwrite replaces the content of the row with the given id using the
// fields of report, leaving id and the business key untouched, and rewrites
// any attached line items.
func (store *Store) overwrite(ctx context.Context, id int64, report *data.FinancialReport) (*data.FinancialReport, error) {
	conn, err := store.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			if !errors.Is(err, pgx.ErrTxClosed) {
				log.Error().Err(err).Msg("error rolling back overwrite transaction")
			}
		}
	}()

	stored := &data.FinancialReport{}
	err = pgxscan.Get(ctx, tx, stored, `UPDATE financial_reports SET
		company_name = $1, currency = $2, source_url = $3, scraped_at = $4, last_updated = now()
		WHERE id = $5 RETURNING `+reportColumns,
		report.CompanyName, report.Currency, report.SourceURL, report.ScrapedAt, id)
	if err != nil {
		return nil, err
	}

	refreshed := *report
	refreshed.ID = id
	if err := saveItems(ctx, tx, &refreshed); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	stored.BalanceSheet = report.BalanceSheet
	stored.IncomeStatement = report.IncomeStatement
	stored.CashFlow = report.CashFlow
	return stored, nil
}

// saveItems upserts every line item attached to the report inside tx. The
// report must already carry its store-assigned id.
func saveItems(ctx context.Context, tx pgx.Tx, report *data.FinancialReport) error {
	for _, item := range report.BalanceSheet {
		item.ReportID = report.ID
		if err := item.SaveDB(ctx, tx); err != nil {
			return err
		}
	}
	for _, item := range report.IncomeStatement {
		item.ReportID = report.ID
		if err := item.SaveDB(ctx, tx); err != nil {
			return err
		}
	}
	for _, item := range report.CashFlow {
		item.ReportID = report.ID
		if err := item.SaveDB(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
