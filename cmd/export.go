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
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/hyper-data-lab/hdldata/backup"
	"github.com/hyper-data-lab/hdldata/data"
	"github.com/hyper-data-lab/hdldata/db"
	"github.com/hyper-data-lab/hdldata/reports"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	exportSymbol string
	exportOutput string
	exportUpload bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export report summaries to a CSV file",
	Long: `The export sub-command dumps stored report records to CSV, either the whole
library or a single symbol. The file can optionally be archived to a
Backblaze B2 bucket.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		manager := db.NewManager()
		defer manager.CloseAll()

		pool, err := manager.TargetPool(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to report library")
		}

		store := reports.NewStore(pool)

		var reportList []*data.FinancialReport
		if exportSymbol != "" {
			reportList, err = store.GetBySymbol(ctx, exportSymbol)
		} else {
			reportList, err = store.GetAll(ctx, 0, 0)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("could not read reports from library")
		}

		outFile, err := os.Create(exportOutput)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", exportOutput).Msg("could not create output file")
		}
		defer outFile.Close()

		if err := gocsv.MarshalFile(&reportList, outFile); err != nil {
			log.Fatal().Err(err).Msg("could not write CSV export")
		}

		log.Info().Str("FileName", exportOutput).Int("NumReports", len(reportList)).Msg("reports exported")

		if exportUpload {
			bucket := viper.GetString("backblaze.bucket")
			dirname := time.Now().Format("2006-01-02")
			if err := backup.Upload(exportOutput, bucket, dirname); err != nil {
				log.Fatal().Err(err).Msg("could not upload export archive")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "limit the export to a single symbol")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "reports.csv", "output file name")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "upload the export to Backblaze")
}
