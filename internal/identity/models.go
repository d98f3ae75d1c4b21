// Package identity manages user accounts, roles, and credential verification
// for the dashboard. It backs both the auth endpoints and the per-client
// session stores.
package identity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusLocked   = "locked"
)

// Built-in role names seeded on first start.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// User is a dashboard account. PasswordHash never leaves the server.
type User struct {
	ID           string    `db:"id" json:"id"`
	DisplayName  string    `db:"display_name" json:"displayName"`
	Email        string    `db:"email" json:"email"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	Avatar       string    `db:"avatar" json:"avatar,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Role groups a set of permission strings under a name.
type Role struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Permissions StringList `db:"permissions" json:"permissions"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Credentials carries a login attempt.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// UserFilter narrows ListUsers results. Zero values mean "no filter".
type UserFilter struct {
	Search string // matches display name or email, case-insensitive
	Role   string
	Status string
}

// StringList stores a []string as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	return json.Unmarshal(data, (*[]string)(l))
}
