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
	"strconv"

	"github.com/tomoncle/membership/types"
)

const (
	defaultPageSize = 5
	maxPageSize     = 2000
)

// PageableConfig drives how page, size and sort parameters are bound.
type PageableConfig struct {
	DefaultSize int
	MaxSize     int
	// OneIndexedParameters makes page=1 the first page on the wire.
	OneIndexedParameters bool
	DefaultSort          types.Sort
}

// DefaultPageableConfig pages by 5, sorted by username.
func DefaultPageableConfig() PageableConfig {
	return PageableConfig{
		DefaultSize: defaultPageSize,
		MaxSize:     maxPageSize,
		DefaultSort: types.Sort{types.Asc("username")},
	}
}

// Resolve builds a page request from the page, size and repeated sort
// query parameters. Malformed values fall back to the defaults.
func (c PageableConfig) Resolve(r *http.Request) *types.PageRequest {
	query := r.URL.Query()

	page := 0
	if n, err := strconv.Atoi(query.Get("page")); err == nil {
		if c.OneIndexedParameters {
			n--
		}
		page = max(n, 0)
	}

	size := c.DefaultSize
	if size < 1 {
		size = defaultPageSize
	}
	if n, err := strconv.Atoi(query.Get("size")); err == nil && n >= 1 {
		size = n
	}
	if c.MaxSize > 0 && size > c.MaxSize {
		size = c.MaxSize
	}

	sort := types.Unsorted()
	for _, param := range query["sort"] {
		if parsed, err := types.ParseSort(param); err == nil {
			sort = sort.And(parsed)
		}
	}
	if !sort.IsSorted() {
		sort = c.DefaultSort
	}
	return types.Of(page, size, sort)
}

type pageableKey struct{}

// PageableResolver binds the page request of every request into its context.
func PageableResolver(cfg PageableConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pageable := cfg.Resolve(r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pageableKey{}, pageable)))
		})
	}
}

// PageableFrom returns the page request bound by PageableResolver.
func PageableFrom(ctx context.Context) (*types.PageRequest, bool) {
	p, ok := ctx.Value(pageableKey{}).(*types.PageRequest)
	return p, ok
}
