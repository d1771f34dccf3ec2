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

// Package controller exposes the member endpoints over chi.
package controller

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/tomoncle/membership/utils"
)

var log = utils.NewLogger("HTTP")

// RouterConfig holds the collaborators of the router.
type RouterConfig struct {
	Members  repository.MemberRepository
	Tx       *persistence.Manager
	Pageable PageableConfig
	Health   HealthChecker
	// Logger defaults to the "HTTP" logger.
	Logger *logrus.Logger
}

// NewRouter creates and configures the router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = log
	}
	if cfg.Pageable.DefaultSize == 0 {
		cfg.Pageable = DefaultPageableConfig()
	}
	members := NewMemberHandler(cfg.Members, cfg.Tx)
	health := NewHealthHandler(cfg.Health)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", health.Check)

	r.Get("/members/{id}", members.FindMember)
	r.With(MemberResolver(cfg.Members)).Get("/members2/{id}", members.FindMember2)
	r.With(PageableResolver(cfg.Pageable)).Get("/members", members.List)

	return r
}
