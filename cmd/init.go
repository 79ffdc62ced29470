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
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/hyper-data-lab/hdldata/db"
	"github.com/hyper-data-lab/hdldata/healthcheck"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type initSettings struct {
	Database struct {
		Host      string `toml:"host"`
		Port      int    `toml:"port"`
		User      string `toml:"user"`
		Password  string `toml:"password"`
		Name      string `toml:"name"`
		AdminName string `toml:"admin_name"`
	} `toml:"database"`

	Healthchecks struct {
		APIKey  string `toml:"apikey,omitempty"`
		CheckID string `toml:"checkid,omitempty"`
	} `toml:"healthchecks,omitempty"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup the report library schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		settings := initSettings{}
		settings.Database.Port = 5432
		settings.Database.AdminName = "postgres"
		portStr := "5432"

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Database host:").
					Value(&settings.Database.Host),

				huh.NewInput().
					Title("Database port:").
					Value(&portStr).
					Validate(func(value string) error {
						_, err := strconv.Atoi(value)
						return err
					}),

				huh.NewInput().
					Title("Database user:").
					Value(&settings.Database.User),

				huh.NewInput().
					Title("Database password:").
					Password(true).
					Value(&settings.Database.Password),

				huh.NewInput().
					Title("Report library database name:").
					Value(&settings.Database.Name),
			),

			huh.NewGroup(
				huh.NewInput().
					Title("healthchecks.io API key (blank to skip):").
					Value(&settings.Healthchecks.APIKey),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		settings.Database.Port, _ = strconv.Atoi(portStr)

		manager := &db.Manager{
			Host:          settings.Database.Host,
			Port:          settings.Database.Port,
			User:          settings.Database.User,
			Password:      settings.Database.Password,
			Database:      settings.Database.Name,
			AdminDatabase: settings.Database.AdminName,
		}
		defer manager.CloseAll()

		initializer := db.NewInitializer(manager)

		if !initializer.VerifyConnectivity(ctx) {
			log.Fatal().Msg("cannot connect to database server")
		}

		// provision the database here; at service startup a missing
		// database is an error instead
		if !initializer.CreateDatabase(ctx) {
			log.Fatal().Msg("error creating report library database")
		}

		log.Info().Msg("creating report library tables")

		if !initializer.SynchronizeSchema() {
			log.Fatal().Msg("error running database migration")
		}

		log.Info().Msg("report library tables created")

		if settings.Healthchecks.APIKey != "" {
			viper.Set("healthchecks.apikey", settings.Healthchecks.APIKey)

			// a re-init replaces any previously provisioned check
			if staleID := viper.GetString("healthchecks.checkid"); staleID != "" {
				if err := healthcheck.Delete(staleID); err != nil {
					log.Warn().Err(err).Str("CheckID", staleID).Msg("could not delete stale healthcheck")
				}
			}

			checkID, err := healthcheck.Create("hdldata scrape", []string{"hdldata"}, "0 6 * * *")
			if err != nil {
				log.Error().Err(err).Msg("could not create healthcheck; scrape runs will not be monitored")
			} else {
				settings.Healthchecks.CheckID = checkID
				log.Info().Str("CheckID", checkID).Msg("healthcheck created")
			}
		}

		// save database settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".hdldata.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving database connection info to config file")
		configData, err := toml.Marshal(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your report library has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
