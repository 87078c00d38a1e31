package models

import (
	"regexp"
	"strings"
	"time"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Role decides which pages and endpoints a user can reach
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RolePimpinan Role = "pimpinan"
)

// IsValidRole reports whether r is a known role
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleOperator, RolePimpinan:
		return true
	}
	return false
}

// User represents an office staff account. NIP is the login identifier.
type User struct {
	ID           string     `json:"id"`
	NIP          string     `json:"nip"`
	Nama         string     `json:"nama"`
	Jabatan      string     `json:"jabatan,omitempty"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// IsActive reports whether the account may log in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// CreateUserParams represents parameters for creating a user.
// Password holds the bcrypt hash by the time it reaches the store.
type CreateUserParams struct {
	NIP      string `json:"nip"`
	Nama     string `json:"nama"`
	Jabatan  string `json:"jabatan"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

// UpdateUserParams represents parameters for updating a user
type UpdateUserParams struct {
	Nama     *string     `json:"nama,omitempty"`
	Jabatan  *string     `json:"jabatan,omitempty"`
	Role     *Role       `json:"role,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
	Password *string     `json:"-"`
}

// LoginParams represents NIP/password login input
type LoginParams struct {
	NIP      string `json:"nip"`
	Password string `json:"password"`
}

// AuthTokens represents the token returned after authentication
type AuthTokens struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"` // seconds
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User   *User       `json:"user"`
	Tokens *AuthTokens `json:"tokens"`
}

// UserFilterParams represents parameters for filtering users
type UserFilterParams struct {
	Query  string     `json:"query,omitempty"`
	Role   Role       `json:"role,omitempty"`
	Status UserStatus `json:"status,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// UsersResponse represents a paginated list of users
type UsersResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"totalCount"`
}

var nipRegex = regexp.MustCompile(`^[0-9]{18}$`)

// NormalizeNIP strips the spaces commonly typed between NIP groups
func NormalizeNIP(nip string) string {
	return strings.ReplaceAll(strings.TrimSpace(nip), " ", "")
}

// ValidateNIP validates a civil-servant identification number
func ValidateNIP(nip string) error {
	nip = NormalizeNIP(nip)
	if nip == "" {
		return &ValidationError{Field: "nip", Message: "NIP is required"}
	}
	if !nipRegex.MatchString(nip) {
		return &ValidationError{Field: "nip", Message: "NIP must be exactly 18 digits"}
	}
	return nil
}

// ValidatePassword enforces the minimum password policy
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
