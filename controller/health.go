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

package controller

import (
	"context"
	"net/http"

	"github.com/tomoncle/membership/database"
)

// HealthChecker reports the state of the database.
type HealthChecker func(ctx context.Context) *database.HealthStatus

type HealthHandler struct {
	check HealthChecker
}

// NewHealthHandler returns a handler that only reports the process as up
// when check is nil.
func NewHealthHandler(check HealthChecker) *HealthHandler {
	return &HealthHandler{check: check}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.check == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
		return
	}
	status := h.check(r.Context())
	if !status.Healthy {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "down", "database": status})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "database": status})
}
