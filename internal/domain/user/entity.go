package user

import "fmt"

type Role string

const (
	RoleOwner    Role = "owner"    // Full access
	RoleManager  Role = "manager"  // Approves corrections, views everyone's attendance
	RoleEmployee Role = "employee" // Checks in and out, submits corrections
)

// ParseRole validates a role claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleManager, RoleEmployee:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Identity is the caller as asserted by a verified access token.
type Identity struct {
	UserID   string
	WorkerID string
	Role     Role
}

// CanApprove checks if the caller may decide correction requests
func (i Identity) CanApprove() bool {
	return HasPermission(i.Role, PermissionAttendanceApprove)
}
