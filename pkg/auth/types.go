package auth

import "time"

// Role is the authorization role carried by an account and embedded in
// session tokens. Roles are a closed set.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleTreasurer     Role = "treasurer"
	RoleGeneralPastor Role = "generalPastor"
)

// AllRoles lists every valid role, used for rules that admit any
// authenticated user.
var AllRoles = []Role{RoleAdmin, RoleTreasurer, RoleGeneralPastor}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer, RoleGeneralPastor:
		return true
	}
	return false
}

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusLocked   Status = "locked"
)

// Account is the full credential record as stored. PasswordHash never
// leaves this package in API responses.
type Account struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FullName       string     `json:"fullName"`
	PasswordHash   string     `json:"-"`
	Role           Role       `json:"role"`
	Status         Status     `json:"status"`
	FailedAttempts int        `json:"failedAttempts"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	LastAccess     *time.Time `json:"lastAccess,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// LockedAt reports whether the account is locked out at the given instant.
// A locked status with an elapsed locked_until no longer blocks login.
func (a *Account) LockedAt(now time.Time) bool {
	if a.Status != StatusLocked {
		return false
	}
	return a.LockedUntil == nil || a.LockedUntil.After(now)
}

// PublicAccount is the sanitized view of an account handed to handlers
// and serialized to clients. It carries no secrets or lockout counters.
type PublicAccount struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FullName   string     `json:"fullName"`
	Role       Role       `json:"role"`
	Status     Status     `json:"status"`
	LastAccess *time.Time `json:"lastAccess,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Public returns the sanitized view of the account.
func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		Role:       a.Role,
		Status:     a.Status,
		LastAccess: a.LastAccess,
		CreatedAt:  a.CreatedAt,
	}
}

// AccountDraft is the input for creating a new account. Password is the
// plaintext credential and is hashed before storage.
type AccountDraft struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// AccountUpdate carries the mutable fields of an account for admin edits.
// Nil fields are left unchanged.
type AccountUpdate struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Status   *Status `json:"status,omitempty"`
}
