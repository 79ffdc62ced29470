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
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// BalanceSheetItem is one line of a report's balance sheet statement. Items
// are keyed (report_id, item_code) and overwritten in place when a report is
// re-ingested.
type BalanceSheetItem struct {
	ReportID int64   `db:"report_id" json:"report_id"`
	ItemCode string  `db:"item_code" json:"item_code"`
	ItemName string  `db:"item_name" json:"item_name"`
	Value    float64 `db:"value" json:"value"`
}

// IncomeStatementItem is one line of a report's income statement.
type IncomeStatementItem struct {
	ReportID int64   `db:"report_id" json:"report_id"`
	ItemCode string  `db:"item_code" json:"item_code"`
	ItemName string  `db:"item_name" json:"item_name"`
	Value    float64 `db:"value" json:"value"`
}

// CashFlowItem is one line of a report's cash-flow statement.
type CashFlowItem struct {
	ReportID int64   `db:"report_id" json:"report_id"`
	ItemCode string  `db:"item_code" json:"item_code"`
	ItemName string  `db:"item_name" json:"item_name"`
	Value    float64 `db:"value" json:"value"`
}

const lineItemSQL = `INSERT INTO %s (
	"report_id",
	"item_code",
	"item_name",
	"value"
) VALUES (
	$1,
	$2,
	$3,
	$4
) ON CONFLICT (report_id, item_code)
DO UPDATE SET
	item_name = EXCLUDED.item_name,
	value = EXCLUDED.value;`

func saveLineItem(ctx context.Context, tx pgx.Tx, tbl string, reportID int64, code, name string, value float64) error {
	sql := fmt.Sprintf(lineItemSQL, tbl)
	if _, err := tx.Exec(ctx, sql, reportID, code, name, value); err != nil {
		log.Error().Err(err).Str("Table", tbl).Str("ItemCode", code).Msg("save line item to database failed")
		return err
	}
	return nil
}

func (item *BalanceSheetItem) SaveDB(ctx context.Context, tx pgx.Tx) error {
	return saveLineItem(ctx, tx, "balance_sheet_items", item.ReportID, item.ItemCode, item.ItemName, item.Value)
}

func (item *IncomeStatementItem) SaveDB(ctx context.Context, tx pgx.Tx) error {
	return saveLineItem(ctx, tx, "income_statement_items", item.ReportID, item.ItemCode, item.ItemName, item.Value)
}

func (item *CashFlowItem) SaveDB(ctx context.Context, tx pgx.Tx) error {
	return saveLineItem(ctx, tx, "cash_flow_statement_items", item.ReportID, item.ItemCode, item.ItemName, item.Value)
}
