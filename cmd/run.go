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
	"errors"
	"os"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/hyper-data-lab/hdldata/data"
	"github.com/hyper-data-lab/hdldata/db"
	"github.com/hyper-data-lab/hdldata/healthcheck"
	"github.com/hyper-data-lab/hdldata/reports"
	"github.com/hyper-data-lab/hdldata/scraper"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	runScraperName string
	runReportType  string
	runFromYear    int
	runToYear      int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run symbol [symbol...]",
	Args:  cobra.MinimumNArgs(1),
	Short: "Scrape financial reports and ingest them into the library",
	Long: `The run sub-command executes a scraper for the requested symbols and saves
the reports it produces. Ingestion is idempotent: a report whose business key
(symbol, report type, year, quarter) is already stored is overwritten in
place rather than duplicated, so re-running a scrape is always safe.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		manager := db.NewManager()
		initializer := db.NewInitializer(manager)

		ready, err := initializer.Initialize(ctx)
		if err != nil {
			// nothing downstream can succeed without a server
			log.Fatal().Err(err).Msg("database bootstrap failed")
		}
		if !ready {
			log.Error().Msg("report library is not ready; run 'hdldata init' first")
			os.Exit(1)
		}

		reportType := data.ReportType(runReportType)
		if !reportType.Valid() {
			log.Fatal().Str("ReportType", runReportType).Msg("report type must be 'annual' or 'quarterly'")
		}

		sel, ok := scraper.Map[runScraperName]
		if !ok {
			log.Fatal().Str("Scraper", runScraperName).Msg("scraper not found")
		}

		// Initialize disposed its pools; the store gets a fresh one
		pool, err := manager.TargetPool(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to report library")
		}
		defer manager.CloseAll()

		store := reports.NewStore(pool)

		job := scraper.NewJob(args, reportType, runFromYear, runToYear)
		jobLogger := log.With().Str("JobID", job.ID.String()).Str("Scraper", sel.Name()).Logger()
		ctx = jobLogger.WithContext(ctx)

		out := make(chan *data.FinancialReport, 100)

		// per-symbol ingest counts, written by the saver while the
		// scraper keeps producing
		symbolStats := haxmap.New[string, int64]()

		var (
			wg      sync.WaitGroup
			stats   reports.UpsertStats
			saveErr error
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for report := range out {
				_, created, err := store.Upsert(ctx, report)
				if err != nil {
					jobLogger.Error().Err(err).Str("Symbol", report.Symbol).
						Int("Year", report.ReportYear).Msg("could not save report")
					saveErr = err
					continue
				}

				stats.Total++
				if created {
					stats.Created++
				} else {
					stats.Updated++
				}

				count, _ := symbolStats.GetOrSet(report.Symbol, 0)
				symbolStats.Set(report.Symbol, count+1)
			}
		}()

		numReports, fetchErr := sel.Fetch(ctx, job, out)
		close(out)
		wg.Wait()

		summary := job.Finish(numReports)

		symbolStats.ForEach(func(symbol string, count int64) bool {
			jobLogger.Info().Str("Symbol", symbol).Int64("NumReports", count).Msg("symbol ingested")
			return true
		})

		jobLogger.Info().
			Int("NumFetched", summary.NumReports).
			Int("Created", stats.Created).
			Int("Updated", stats.Updated).
			Int("Total", stats.Total).
			Dur("RunTime", summary.Duration()).
			Msg("scrape run finished")

		checkID := viper.GetString("healthchecks.checkid")
		if fetchErr != nil || saveErr != nil {
			if err := healthcheck.Fail(checkID); err != nil {
				jobLogger.Error().Err(err).Msg("could not signal failed healthcheck")
			}
			log.Fatal().Err(errors.Join(fetchErr, saveErr)).Msg("scrape run failed")
		}

		if err := healthcheck.Ping(checkID); err != nil {
			jobLogger.Error().Err(err).Msg("could not ping healthcheck")
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runScraperName, "scraper", "cafef", "scraper to execute")
	runCmd.Flags().StringVar(&runReportType, "type", string(data.QuarterlyReport), "report type to fetch (annual or quarterly)")
	runCmd.Flags().IntVar(&runFromYear, "from", time.Now().Year()-1, "first fiscal year to fetch")
	runCmd.Flags().IntVar(&runToYear, "to", time.Now().Year(), "last fiscal year to fetch")
}
