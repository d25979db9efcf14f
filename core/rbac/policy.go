package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	PermDashboardProf  Permission = "dashboard.prof"
	PermDashboardAdmin Permission = "dashboard.admin"
	PermReport         Permission = "incidents.report"
	PermManage         Permission = "incidents.manage"
)

const (
	RoleProfesseur = "professeur"
	RoleChef       = "chef"
)

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj
`

var rolePermissions = map[string][]Permission{
	RoleProfesseur: {PermDashboardProf, PermReport},
	RoleChef:       {PermDashboardAdmin, PermManage},
}

// Policy answers "may this role perform this operation". Departmental
// scoping is not a policy concern: it stays with the stores and
// handlers, which compare department ids row by row.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for role, perms := range rolePermissions {
		for _, perm := range perms {
			if _, err := e.AddPolicy(role, string(perm)); err != nil {
				return nil, err
			}
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role string, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(role, string(perm))
	return err == nil && ok
}

// ValidRole reports whether role is one of the two registrable roles.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
