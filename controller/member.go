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

	"github.com/go-chi/chi/v5"
	"github.com/tomoncle/membership/dto"
	"github.com/tomoncle/membership/entity"
	"github.com/tomoncle/membership/persistence"
	"github.com/tomoncle/membership/repository"
	"github.com/tomoncle/membership/types"
)

// MemberHandler serves the member endpoints.
type MemberHandler struct {
	members repository.MemberRepository
	tm      *persistence.Manager
}

func NewMemberHandler(members repository.MemberRepository, tm *persistence.Manager) *MemberHandler {
	return &MemberHandler{members: members, tm: tm}
}

// FindMember handles GET /members/{id}.
func (h *MemberHandler) FindMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	var member *entity.Member
	err = h.tm.RunReadOnly(r.Context(), func(ctx context.Context) error {
		member, err = h.members.GetByID(ctx, id)
		return err
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondText(w, http.StatusOK, member.Username)
}

// FindMember2 handles GET /members2/{id}; the member comes from MemberResolver.
func (h *MemberHandler) FindMember2(w http.ResponseWriter, r *http.Request) {
	member, ok := MemberFrom(r.Context())
	if !ok {
		handleError(w, repository.ErrNotFound)
		return
	}
	respondText(w, http.StatusOK, member.Username)
}

// List handles GET /members?page=&size=&sort=.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	pageable, ok := PageableFrom(r.Context())
	if !ok {
		pageable = types.Of(0, defaultPageSize, types.Sort{types.Asc("username")})
	}
	var page *types.Page[dto.MemberDto]
	err := h.tm.RunReadOnly(r.Context(), func(ctx context.Context) error {
		members, err := h.members.FindAllWithTeam(ctx, pageable)
		if err != nil {
			return err
		}
		page = types.MapPage(members, dto.FromMember)
		return nil
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}
