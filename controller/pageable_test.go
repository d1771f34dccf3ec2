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

package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomoncle/membership/controller"
	"github.com/tomoncle/membership/types"
)

func resolve(t *testing.T, cfg controller.PageableConfig, target string) *types.PageRequest {
	t.Helper()
	return cfg.Resolve(httptest.NewRequest(http.MethodGet, target, nil))
}

func TestResolveDefaults(t *testing.T) {
	p := resolve(t, controller.DefaultPageableConfig(), "/members")
	assert.Equal(t, 0, p.GetPage())
	assert.Equal(t, 5, p.GetPageSize())
	assert.Equal(t, types.Sort{types.Asc("username")}, p.GetSort())
}

func TestResolveClampsValues(t *testing.T) {
	cfg := controller.DefaultPageableConfig()

	p := resolve(t, cfg, "/members?page=-2&size=0")
	assert.Equal(t, 0, p.GetPage())
	assert.Equal(t, 5, p.GetPageSize())

	p = resolve(t, cfg, "/members?size=5000")
	assert.Equal(t, 2000, p.GetPageSize())
}

func TestResolveOneIndexed(t *testing.T) {
	cfg := controller.DefaultPageableConfig()
	cfg.OneIndexedParameters = true

	assert.Equal(t, 0, resolve(t, cfg, "/members?page=1").GetPage())
	assert.Equal(t, 2, resolve(t, cfg, "/members?page=3").GetPage())
	assert.Equal(t, 0, resolve(t, cfg, "/members?page=0").GetPage())
}

func TestResolveRepeatedSort(t *testing.T) {
	p := resolve(t, controller.DefaultPageableConfig(), "/members?sort=age,desc&sort=username,asc")
	assert.Equal(t, types.Sort{types.Desc("age"), types.Asc("username")}, p.GetSort())
}

func TestResolveIgnoresMalformedValues(t *testing.T) {
	cfg := controller.DefaultPageableConfig()

	p := resolve(t, cfg, "/members?page=one&size=big&sort=,desc")
	assert.Equal(t, 0, p.GetPage())
	assert.Equal(t, 5, p.GetPageSize())
	assert.Equal(t, types.Sort{types.Asc("username")}, p.GetSort())

	p = resolve(t, cfg, "/members?page=2&size=big&sort=&sort=age,desc")
	assert.Equal(t, 2, p.GetPage())
	assert.Equal(t, 5, p.GetPageSize())
	assert.Equal(t, types.Sort{types.Desc("age")}, p.GetSort())
}
