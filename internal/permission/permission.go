// Package permission answers role-based questions such as "may this role
// create gigs". Decisions are made by a Casbin enforcer built from a static
// model; the policy set is seeded at construction and lives in process.
package permission

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/taskfi/marketplace/internal/domain"
)

const (
	ResourceGig = "gig"
	ResourceJob = "job"

	ActionManage = "manage"
	ActionPost   = "post"
	ActionApply  = "apply"
)

// modelConfig is the request/policy/matcher definition: subjects are roles,
// with g-rules letting one role inherit another's grants.
const modelConfig = `
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

var grants = [][]string{
	{string(domain.RoleFreelancer), ResourceGig, ActionManage},
	{string(domain.RoleFreelancer), ResourceJob, ActionApply},
	{string(domain.RoleHirer), ResourceJob, ActionPost},
}

var inherits = [][]string{
	{string(domain.RoleAdmin), string(domain.RoleFreelancer)},
	{string(domain.RoleAdmin), string(domain.RoleHirer)},
}

// Service makes role-based permission decisions.
type Service struct {
	enforcer casbin.IEnforcer
}

// NewService builds the enforcer from the embedded model and seeds the grant
// table.
func NewService() (*Service, error) {
	m, err := model.NewModelFromString(modelConfig)
	if err != nil {
		return nil, fmt.Errorf("parse permission model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create permission enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(grants); err != nil {
		return nil, fmt.Errorf("seed permission grants: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicies(inherits); err != nil {
		return nil, fmt.Errorf("seed role inheritance: %w", err)
	}

	return &Service{enforcer: enforcer}, nil
}

// Can reports whether the role is granted the action on the resource.
func (s *Service) Can(role domain.Role, resource, action string) (bool, error) {
	allowed, err := s.enforcer.Enforce(string(role), resource, action)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s %s: %w", role, resource, action, err)
	}

	return allowed, nil
}

// CanManageGigs reports whether the role may create and update gigs.
func (s *Service) CanManageGigs(role domain.Role) (bool, error) {
	return s.Can(role, ResourceGig, ActionManage)
}

// CanPostJobs reports whether the role may publish job postings.
func (s *Service) CanPostJobs(role domain.Role) (bool, error) {
	return s.Can(role, ResourceJob, ActionPost)
}

// CanApplyToJobs reports whether the role may apply to job postings.
func (s *Service) CanApplyToJobs(role domain.Role) (bool, error) {
	return s.Can(role, ResourceJob, ActionApply)
}
