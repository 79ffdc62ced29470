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
package cmd

import (
	"context"
	"strconv"

	"github.com/hyper-data-lab/hdldata/db"
	"github.com/hyper-data-lab/hdldata/reports"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var deleteSymbol string

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete [report-id...]",
	Short: "Delete reports from the library by id or by symbol",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if len(args) == 0 && deleteSymbol == "" {
			log.Fatal().Msg("provide report ids or --symbol")
		}

		manager := db.NewManager()
		defer manager.CloseAll()

		pool, err := manager.TargetPool(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to report library")
		}

		store := reports.NewStore(pool)

		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				log.Fatal().Str("ReportID", arg).Msg("report id must be an integer")
			}

			deleted, err := store.Delete(ctx, id)
			if err != nil {
				log.Fatal().Err(err).Int64("ReportID", id).Msg("could not delete report")
			}

			if deleted {
				log.Info().Int64("ReportID", id).Msg("report deleted")
			} else {
				log.Warn().Int64("ReportID", id).Msg("report not found")
			}
		}

		if deleteSymbol != "" {
			count, err := store.DeleteBySymbol(ctx, deleteSymbol)
			if err != nil {
				log.Fatal().Err(err).Str("Symbol", deleteSymbol).Msg("could not delete reports")
			}

			log.Info().Str("Symbol", deleteSymbol).Int64("NumDeleted", count).Msg("reports deleted")
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().StringVar(&deleteSymbol, "symbol", "", "delete every report for this symbol")
}
