/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tomoncle/membership/database"
	_ "github.com/tomoncle/membership/entity"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the member and team tables and their foreign keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := database.InitDatabaseWithOptions(cfg.ConfigLoader(), true); err != nil {
			return err
		}
		defer func() { _ = database.CloseDB() }()
		log.Info("migrations applied")
		return nil
	},
}
