package model

import (
	"database/sql"
	"time"
)

// Application roles. Stored in users.role and snapshotted into access tokens
// at issuance time.
const (
	RoleStudent = "student"
	RoleClergy  = "clergy"
	RoleAdmin   = "admin"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleStudent || s == RoleClergy || s == RoleAdmin
}

// User represents an application user record as stored in the `users` table.
// Email is persisted lowercased so that lookups are case-insensitive via a
// plain equality match. Accounts are never physically removed: deactivation
// flips IsActive and doubles as token revocation, because the active flag is
// re-checked on every authenticated request.
type User struct {
	ID                uint64
	Name              string
	Email             string
	PasswordHash      string
	Role              string
	Phone             string
	Bio               string
	Church            string
	Position          string
	Department        string
	StudentRef        string
	Photo             AssetMeta // profile photo slot (bytes live in photo_data)
	IsActive          bool
	LastLoginAt       sql.NullTime
	PasswordChangedAt sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
