// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-arcade/helpdesk/internal/engine/bootstrap"
	"github.com/go-arcade/helpdesk/internal/engine/config"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/pkg/database"
	"github.com/go-arcade/helpdesk/pkg/http/jwt"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/version"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "helpdesk",
	Short: "helpdesk access control and notification server",
	Long:  "helpdesk access control and notification server: permission matrix, audit trail and live notifications",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the http and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bootstrap 初始化应用
		app, cleanup, err := bootstrap.Bootstrap(configFile, initApp)
		if err != nil {
			return err
		}
		// 启动应用并等待退出信号
		bootstrap.Run(app, cleanup)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the permission, audit and notification tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.NewDatabase(appConf.Database)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Infow("migration finished", "type", appConf.Database.Type, "db", appConf.Database.DB)
		return nil
	},
}

// tokenCmd 为运维调试签发 access token，正式登录由用户管理系统负责
var tokenCmd = &cobra.Command{
	Use:   "token <userId>",
	Short: "Issue an access token for a user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		appConf, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := jwt.GenToken(args[0], []byte(appConf.Http.Auth.SecretKey), appConf.Http.Auth.AccessExpire)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func loadConfig() (*config.AppConfig, error) {
	appConf, err := config.LoadConfigFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := log.Init(&appConf.Log); err != nil {
		return nil, err
	}
	return &appConf, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "conf", "c", "conf.d/config.toml", "conf file path, e.g. -c ./conf.d/config.toml")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd, version.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
