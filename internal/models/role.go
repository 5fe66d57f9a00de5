package models

import (
	"fmt"
	"strings"
)

// Role is the function of the calling user within the municipality.
type Role string

const (
	RoleCitizen       Role = "citizen"
	RoleAgent         Role = "agent"
	RoleCollector     Role = "collector"
	RoleCouncilMember Role = "council_member"
	RoleAdmin         Role = "admin"
)

// Roles lists every role from the least to the most privileged.
var Roles = []Role{RoleCitizen, RoleAgent, RoleCollector, RoleCouncilMember, RoleAdmin}

// Level returns the ordered permission level of the role. Unknown roles are 0.
func (r Role) Level() int {
	for i, role := range Roles {
		if role == r {
			return i + 1
		}
	}
	return 0
}

// AtLeast reports whether r is as privileged as min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() > 0 && r.Level() >= min.Level()
}

// ParseRole accepts the canonical role names and the legacy French ones.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "citizen", "citoyen":
		return RoleCitizen, nil
	case "agent":
		return RoleAgent, nil
	case "collector", "percepteur":
		return RoleCollector, nil
	case "council_member", "membre", "membre du conseil", "membre_du_conseil":
		return RoleCouncilMember, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}
