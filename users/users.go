package users

import (
	"encoding/json"
	"strings"
	"time"
)

// Role represents a user's authorization level within the chama platform.
type Role string

const (
	RoleMember     Role = "member"     // Regular group member
	RoleAdmin      Role = "admin"      // Group administrator
	RoleSuperAdmin Role = "superadmin" // Platform-wide administrator
)

// NormalizeRole maps the role spellings that appear in older API payloads
// ("super_admin", "Admin") onto the canonical enumeration. Unknown values are
// preserved as-is so the server remains the authority on new roles.
func NormalizeRole(raw string) Role {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", "")
	switch normalized {
	case "member", "admin", "superadmin":
		return Role(normalized)
	}
	return Role(raw)
}

// UnmarshalJSON normalizes the role spelling on decode.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = NormalizeRole(raw)
	return nil
}

// GroupRef is the denormalized group reference carried on a user profile.
type GroupRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the authenticated user's profile snapshot as returned by the API.
// The client treats it as immutable; profile changes replace the whole snapshot.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Group       *GroupRef `json:"group,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	LastLogin   time.Time `json:"last_login,omitempty"`
}

// IsAdmin returns true for users with group or platform administration rights.
// Derived from the role on every call, never cached.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// HasRole checks whether the user's role is within the given set. An empty set
// means any authenticated user qualifies.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so callers holding the snapshot cannot mutate the
// session's view of the profile.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.Group != nil {
		group := *u.Group
		clone.Group = &group
	}
	return &clone
}
