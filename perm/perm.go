// Package perm implements the PermissionSubsystem (spec §3 "Role
// graph", §4.6 permission gate, §6 "Permission key grammar").
//
// Grounded directly on forbearing-gst's authz/rbac package: casbin's
// Enforcer supplies role inheritance (RBAC's built-in role hierarchy,
// which already implements spec's "role transitively inherits all
// permissions of its reachable roles" via g, _, _ grouping policies)
// and grant/revoke mutation (authz/rbac.RBAC()). perm layers the
// spec's own colon-segment wildcard grant-key grammar on top, since
// casbin's matcher operates on its own (resource, action) pair, not on
// this spec's single-string permission key.
package perm

import (
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/forbearing/admincore/authz/rbac"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/logger"
	"github.com/forbearing/admincore/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// defaultModel is the casbin RBAC model used to store role groupings
// and (subject, resource, action, effect) grants.
const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act, eft

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Subsystem is the PermissionSubsystem: role graph mutation (via
// types.RBAC) plus wildcard grant-key evaluation (isGranted).
type Subsystem struct {
	mu            sync.RWMutex
	enforcer      *casbin.Enforcer
	rbac          types.RBAC
	anonymousRole string
}

// Option configures New.
type Option func(*Subsystem)

// WithAnonymousRole sets the role applied when no user is authenticated
// (spec §3 "A designated anonymous role is applied when no user is
// authenticated").
func WithAnonymousRole(role string) Option {
	return func(s *Subsystem) { s.anonymousRole = role }
}

// New builds a Subsystem backed by a sqlite-persisted casbin enforcer
// at dbPath. Passing dbPath="" uses an in-memory sqlite database (no
// persistence -- suitable for tests).
func New(dbPath string, opts ...Option) (*Subsystem, error) {
	dsn := dbPath
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Gorm})
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "perm: open sqlite")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", "casbin_rule")
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "perm: build gorm adapter")
	}
	m, err := casbinmodel.NewModelFromString(defaultModel)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "perm: parse model")
	}
	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "perm: new enforcer")
	}
	if logger.Casbin != nil {
		enforcer.SetLogger(logger.Casbin)
		enforcer.EnableLog(true)
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "perm: load policy")
	}

	rbac.Enforcer = enforcer
	rbac.Adapter = adapter

	s := &Subsystem{enforcer: enforcer, rbac: rbac.RBAC(), anonymousRole: "anonymous"}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// RBAC exposes the role/permission mutation contract (AddRole,
// GrantPermission, AssignRole, ...).
func (s *Subsystem) RBAC() types.RBAC { return s.rbac }

// IsGranted reports whether subject (a role or user id; "" means
// anonymous) is granted permissionKey, honoring the wildcard grammar
// fixed in SPEC_FULL.md §4: `*` matches exactly one segment at that
// position in a stored grant; a stored grant of the single segment `*`
// matches any key.
func (s *Subsystem) IsGranted(subject, permissionKey string) bool {
	if subject == "" {
		subject = s.anonymousRole
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles, _ := s.enforcer.GetImplicitRolesForUser(subject) //nolint:errcheck
	candidates := append([]string{subject}, roles...)

	for _, who := range candidates {
		perms, _ := s.enforcer.GetImplicitPermissionsForUser(who) //nolint:errcheck
		for _, p := range perms {
			if len(p) < 3 {
				continue
			}
			grantKey := p[1]
			if matchGrant(grantKey, permissionKey) {
				return true
			}
		}
	}
	return false
}

// matchGrant implements the fixed permission wildcard grammar: grantKey
// segments of `*` match any single segment of key at that position; a
// grantKey that is exactly "*" matches any key.
func matchGrant(grantKey, key string) bool {
	if grantKey == "*" {
		return true
	}
	gs := strings.Split(grantKey, ":")
	ks := strings.Split(key, ":")
	if len(gs) != len(ks) {
		return false
	}
	for i, seg := range gs {
		if seg == "*" {
			continue
		}
		if seg != ks[i] {
			return false
		}
	}
	return true
}

// GetPermissions returns every grant key reachable by subject, through
// its role graph.
func (s *Subsystem) GetPermissions(subject string) []string {
	if subject == "" {
		subject = s.anonymousRole
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms, _ := s.enforcer.GetImplicitPermissionsForUser(subject) //nolint:errcheck
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if len(p) >= 2 {
			out = append(out, p[1])
		}
	}
	return out
}

