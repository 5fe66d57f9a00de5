// Package authz decides which roles may perform which operations.
//
// Roles form a strict hierarchy (admin > council_member > collector > agent >
// citizen); every role inherits the permissions of the role below it.
package authz

import (
	"errors"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/metrics"
	"github.com/baladia/taxe/internal/models"
)

// ErrForbidden is returned by Authorize when the role lacks the permission.
var ErrForbidden = errors.New("forbidden")

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Permission is an action on a kind of resource.
type Permission struct {
	Object string
	Action string
}

func (p Permission) String() string {
	return p.Object + ":" + p.Action
}

// Permissions checked at the HTTP boundary.
var (
	PropertiesRead    = Permission{Object: "properties", Action: "read"}
	PropertiesWrite   = Permission{Object: "properties", Action: "write"}
	PropertiesArchive = Permission{Object: "properties", Action: "archive"}
	OppositionsSubmit = Permission{Object: "oppositions", Action: "submit"}
	OppositionsRead   = Permission{Object: "oppositions", Action: "read"}
	OppositionsReview = Permission{Object: "oppositions", Action: "review"}
	PaymentsRead      = Permission{Object: "payments", Action: "read"}
	PaymentsWrite     = Permission{Object: "payments", Action: "write"}
)

// grants lists the permissions introduced at each level. Higher levels inherit them.
var grants = map[models.Role][]Permission{
	models.RoleCitizen:   {OppositionsSubmit},
	models.RoleAgent:     {PropertiesRead, PropertiesWrite, OppositionsRead},
	models.RoleCollector: {PaymentsRead, PaymentsWrite, OppositionsReview},
	models.RoleAdmin:     {PropertiesArchive},
}

// Authorizer evaluates permissions with a casbin RBAC enforcer.
type Authorizer struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	log      *logger.Logger
}

// New builds an Authorizer loaded with the built-in role policies.
func New(log *logger.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to parse model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}

	for role, perms := range grants {
		for _, p := range perms {
			if _, err := enf.AddPolicy(string(role), p.Object, p.Action); err != nil {
				return nil, fmt.Errorf("authz: failed to add policy %s %s: %w", role, p, err)
			}
		}
	}

	// Each role inherits from the one directly below it.
	for i := len(models.Roles) - 1; i > 0; i-- {
		if _, err := enf.AddGroupingPolicy(string(models.Roles[i]), string(models.Roles[i-1])); err != nil {
			return nil, fmt.Errorf("authz: failed to add role inheritance: %w", err)
		}
	}

	return &Authorizer{enforcer: enf, log: log.WithComponent("authz")}, nil
}

// Allowed reports whether role holds permission p. Unknown roles hold nothing.
func (a *Authorizer) Allowed(role models.Role, p Permission) (bool, error) {
	if role.Level() == 0 {
		metrics.AuthzDecision(p.Object, p.Action, false)
		return false, nil
	}

	a.mu.RLock()
	ok, err := a.enforcer.Enforce(string(role), p.Object, p.Action)
	a.mu.RUnlock()
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}

	metrics.AuthzDecision(p.Object, p.Action, ok)
	return ok, nil
}

// Authorize returns ErrForbidden when role lacks permission p.
func (a *Authorizer) Authorize(role models.Role, p Permission) error {
	ok, err := a.Allowed(role, p)
	if err != nil {
		return err
	}
	if !ok {
		a.log.Warn("Permission denied", map[string]interface{}{
			"role":       role,
			"permission": p.String(),
		})
		return fmt.Errorf("%w: role %q lacks %s", ErrForbidden, role, p)
	}
	return nil
}

// MinimumRole returns the least privileged role holding p, or "" if none does.
func (a *Authorizer) MinimumRole(p Permission) models.Role {
	for _, role := range models.Roles {
		if ok, err := a.Allowed(role, p); err == nil && ok {
			return role
		}
	}
	return ""
}
