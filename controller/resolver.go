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
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/repository"
)

type memberKey struct{}

// MemberResolver loads the member named by the {id} path parameter and
// stores it in the request context. It runs outside any unit of work, so
// the member is detached and changes to it are never written.
func MemberResolver(members repository.MemberRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := parseID(chi.URLParam(r, "id"))
			if err != nil {
				handleError(w, err)
				return
			}
			member, err := members.GetByID(r.Context(), id)
			if err != nil {
				handleError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), memberKey{}, member)))
		})
	}
}

// MemberFrom returns the member bound by MemberResolver.
func MemberFrom(ctx context.Context) (*entity.Member, bool) {
	m, ok := ctx.Value(memberKey{}).(*entity.Member)
	return m, ok
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id=%q", errInvalidParameter, raw)
	}
	return id, nil
}
