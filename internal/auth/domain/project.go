package domain

import (
	"fmt"
	"time"
)

// ProjectRole is the effective role an identity holds on a project. Roles
// form a total order so access checks reduce to a level comparison.
type ProjectRole string

const (
	RoleNone      ProjectRole = "none"
	RoleViewer    ProjectRole = "viewer"
	RoleCommenter ProjectRole = "commenter"
	RoleEditor    ProjectRole = "editor"
	RoleAdmin     ProjectRole = "admin"
)

var roleLevels = map[ProjectRole]int{
	RoleNone:      0,
	RoleViewer:    1,
	RoleCommenter: 2,
	RoleEditor:    3,
	RoleAdmin:     4,
}

// Level returns the role's position in the total order (none < viewer <
// commenter < editor < admin). Unknown roles rank as none.
func (r ProjectRole) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r grants everything other does.
func (r ProjectRole) AtLeast(other ProjectRole) bool {
	return r.Level() >= other.Level()
}

// ParseProjectRole validates a role string from storage or an API request.
func ParseProjectRole(s string) (ProjectRole, error) {
	role := ProjectRole(s)
	if _, ok := roleLevels[role]; !ok {
		return RoleNone, fmt.Errorf("unknown project role %q", s)
	}
	return role, nil
}

// Project is a task container owned by a single identity. The broader task
// data lives outside this service; the auth core only needs ownership to
// resolve effective roles.
type Project struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectAccess grants an identity a role on a project it does not own.
// Unique per (project, identity). Owners and system admins bypass these rows
// entirely.
type ProjectAccess struct {
	ID         string
	ProjectID  string
	IdentityID string
	Role       ProjectRole
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
