package models

import "time"

// Role identifies the kind of account.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Account represents a login account stored in the accounts table.
type Account struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         Role       `db:"role" json:"role"`
	IsSuperAdmin bool       `db:"is_super_admin" json:"is_super_admin"`
	IsVerified   bool       `db:"is_verified" json:"is_verified"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	VerifiedBy   *string    `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// AccountSummary is the password-free projection returned to clients.
type AccountSummary struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         Role      `db:"role" json:"role"`
	IsSuperAdmin bool      `db:"is_super_admin" json:"is_super_admin"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Summary strips the credential fields from an account.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:           a.ID,
		Username:     a.Username,
		FullName:     a.FullName,
		Role:         a.Role,
		IsSuperAdmin: a.IsSuperAdmin,
		IsVerified:   a.IsVerified,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt,
	}
}

// AccountFilter captures filtering criteria for listing accounts.
type AccountFilter struct {
	Role      *Role
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
