package domain

import "time"

// Role is the coarse permission class of an account.
type Role string

const (
	RoleNonRegistered Role = "non-registered"
	RolePending       Role = "pending"
	RoleClient        Role = "client"
	RoleVendor        Role = "vendor"
	RoleAdmin         Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNonRegistered, RolePending, RoleClient, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Assignable reports whether an admin may put an account into role r.
// The anonymous role is never stored on an account.
func (r Role) Assignable() bool {
	return r.Valid() && r != RoleNonRegistered
}

// UserStatus is the approval state of an account.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusApproved  UserStatus = "approved"
	UserStatusRejected  UserStatus = "rejected"
	UserStatusSuspended UserStatus = "suspended"
)

// User is a marketplace account.
type User struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	Role            Role       `json:"role"`
	Status          UserStatus `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Principal returns the authorization identity of the account.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role, Status: u.Status}
}

// CanSignIn reports whether the account may authenticate at all.
// Pending accounts may sign in; the status gate restricts what they can do.
func (u *User) CanSignIn() bool {
	return u.Status == UserStatusApproved || u.Status == UserStatusPending
}

// Principal is the identity an access decision is made for.
type Principal struct {
	UserID int64
	Role   Role
	Status UserStatus
}

// Anonymous is the principal of an unauthenticated caller.
var Anonymous = Principal{Role: RoleNonRegistered}

// NeedsApproval reports whether the account is still waiting for an admin.
func (p Principal) NeedsApproval() bool {
	return p.Status == UserStatusPending
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
