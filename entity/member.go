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

package entity

import (
	"fmt"

	"github.com/uptrace/bun"
)

// Member is the owning side of the member/team association: team_id lives
// on the member row.
type Member struct {
	bun.BaseModel `bun:"table:member,alias:m"`

	ID       int64  `bun:"member_id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull" json:"username"`
	Age      int    `bun:"age,notnull" json:"age"`
	TeamID   int64  `bun:"team_id,nullzero" json:"teamId,omitempty"`
	Team     *Team  `bun:"rel:belongs-to,join:team_id=team_id" json:"-"`
	BaseEntity
}

func NewMember(username string) *Member {
	return &Member{Username: username}
}

func NewMemberWithAge(username string, age int) *Member {
	return &Member{Username: username, Age: age}
}

// NewMemberWithTeam creates a member and joins team when it is not nil.
func NewMemberWithTeam(username string, age int, team *Team) *Member {
	m := NewMemberWithAge(username, age)
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team and keeps team.Members in step.
// The previous team, if loaded, loses the member.
func (m *Member) ChangeTeam(team *Team) {
	if m.Team != nil && m.Team != team {
		m.Team.Members = removeMember(m.Team.Members, m)
	}
	m.Team = team
	if team == nil {
		m.TeamID = 0
		return
	}
	m.TeamID = team.ID
	for _, existing := range team.Members {
		if existing == m {
			return
		}
	}
	team.Members = append(team.Members, m)
}

// SyncForeignKeys copies the id of the referenced team into TeamID, which
// matters when the team was saved after ChangeTeam was called.
func (m *Member) SyncForeignKeys() {
	if m.Team != nil {
		m.TeamID = m.Team.ID
	}
}

func (m *Member) String() string {
	return fmt.Sprintf("Member(id=%d, username=%s, age=%d)", m.ID, m.Username, m.Age)
}

func removeMember(members []*Member, target *Member) []*Member {
	for i, existing := range members {
		if existing == target {
			return append(members[:i], members[i+1:]...)
		}
	}
	return members
}
