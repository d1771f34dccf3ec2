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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomoncle/membership/config"
	"github.com/tomoncle/membership/controller"
	"github.com/tomoncle/membership/database"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/tomoncle/membership/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the member HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.InitDB(cfg.ConfigLoader())
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()

	tm := persistence.NewManager(db)
	members := repository.NewMemberRepository(db)

	if cfg.Bootstrap.Seed {
		if _, err := controller.NewSeeder(members, tm).Seed(ctx, cfg.Bootstrap.SeedCount); err != nil {
			return err
		}
	}

	pageable, err := pageableConfig(cfg.Pageable)
	if err != nil {
		return err
	}
	router := controller.NewRouter(controller.RouterConfig{
		Members:  members,
		Tx:       tm,
		Pageable: pageable,
		Health:   database.GetHealthStatus,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func pageableConfig(c config.PageableConfig) (controller.PageableConfig, error) {
	sort := types.Unsorted()
	if c.DefaultSort != "" {
		parsed, err := types.ParseSort(c.DefaultSort)
		if err != nil {
			return controller.PageableConfig{}, fmt.Errorf("pageable.default_sort: %w", err)
		}
		sort = parsed
	}
	return controller.PageableConfig{
		DefaultSize:          c.DefaultSize,
		MaxSize:              c.MaxSize,
		OneIndexedParameters: c.OneIndexedParameters,
		DefaultSort:          sort,
	}, nil
}
