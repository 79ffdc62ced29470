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
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hdldata",
	Short: "hdldata manages the financial report library used by the Hyper Data Lab tools",
	Long: `hdldata is a command line utility for building and maintaining a
PostgreSQL library of scraped financial filings: balance sheets, income
statements, cash-flow statements and report summaries. Reports are keyed by
their business identity (symbol, report type, fiscal year and quarter), so a
filing that arrives duplicated across scraper runs converges to a single
stored record.

The library is consumed by the Hyper Data Lab API for read-side queries and
fed by scrapers such as CafeF. hdldata owns the persistence boundary: it
bootstraps the database schema through versioned migrations and provides
idempotent ingestion for report payloads.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hdldata.toml)")
	rootCmd.PersistentFlags().String("dbHost", "", "database host")
	if err := viper.BindPFlag("database.host", rootCmd.PersistentFlags().Lookup("dbHost")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbHost failed")
	}
	rootCmd.PersistentFlags().String("dbName", "", "database name")
	if err := viper.BindPFlag("database.name", rootCmd.PersistentFlags().Lookup("dbName")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for dbName failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".hdldata" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".hdldata")
	}

	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.admin_name", "postgres")

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}
