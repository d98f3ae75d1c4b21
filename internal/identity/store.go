package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
)

const identitySchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	avatar        TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS roles (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	permissions TEXT NOT NULL DEFAULT '[]',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
`

// Store persists users and roles through the shared read/write pool.
type Store struct {
	pool *db.Pool
	log  *logger.Logger
	now  func() time.Time
}

// NewStore creates the identity store and ensures its tables exist.
func NewStore(ctx context.Context, pool *db.Pool, log *logger.Logger) (*Store, error) {
	s := &Store{
		pool: pool,
		log:  log.WithFields(zap.String("component", "identity-store")),
		now:  func() time.Time { return time.Now().UTC() },
	}
	if _, err := pool.Writer().ExecContext(ctx, identitySchema); err != nil {
		return nil, fmt.Errorf("failed to create identity tables: %w", err)
	}
	return s, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	reader := s.pool.Reader()
	var user User
	err := reader.GetContext(ctx, &user, reader.Rebind(`SELECT * FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail returns a user by email (exact, case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	reader := s.pool.Reader()
	var user User
	err := reader.GetContext(ctx, &user,
		reader.Rebind(`SELECT * FROM users WHERE LOWER(email) = LOWER(?)`), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// ListUsers returns a page of users matching the filter, plus the unpaged total.
func (s *Store) ListUsers(ctx context.Context, filter UserFilter, page, pageSize int) ([]User, int, error) {
	where, args := buildUserFilter(filter)

	reader := s.pool.Reader()

	var total int
	countQuery := reader.Rebind(`SELECT COUNT(*) FROM users` + where)
	if err := reader.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery := reader.Rebind(
		`SELECT * FROM users` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`)
	listArgs := append(append([]interface{}{}, args...), pageSize, (page-1)*pageSize)

	users := []User{}
	if err := reader.SelectContext(ctx, &users, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func buildUserFilter(filter UserFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, `(LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?)`)
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Role != "" {
		clauses = append(clauses, `role = ?`)
		args = append(args, filter.Role)
	}
	if filter.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, filter.Status)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CreateUser inserts a user. The caller is responsible for hashing the password.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Status == "" {
		user.Status = StatusActive
	}

	writer := s.pool.Writer()
	_, err := writer.NamedExecContext(ctx, `
		INSERT INTO users (id, display_name, email, role, status, avatar, password_hash, created_at, updated_at)
		VALUES (:id, :display_name, :email, :role, :status, :avatar, :password_hash, :created_at, :updated_at)`,
		user)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("email '%s' is already in use", user.Email))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser updates an existing user's mutable fields.
func (s *Store) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = s.now()

	writer := s.pool.Writer()
	res, err := writer.NamedExecContext(ctx, `
		UPDATE users SET
			display_name = :display_name,
			email = :email,
			role = :role,
			status = :status,
			avatar = :avatar,
			password_hash = :password_hash,
			updated_at = :updated_at
		WHERE id = :id`,
		user)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("email '%s' is already in use", user.Email))
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("user", user.ID)
	}
	return nil
}

// DeleteUser removes a user by id.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	writer := s.pool.Writer()
	res, err := writer.ExecContext(ctx, writer.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// GetRole returns a role by id.
func (s *Store) GetRole(ctx context.Context, id string) (*Role, error) {
	reader := s.pool.Reader()
	var role Role
	err := reader.GetContext(ctx, &role, reader.Rebind(`SELECT * FROM roles WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("role", id)
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// ListRoles returns every role ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	reader := s.pool.Reader()
	roles := []Role{}
	if err := reader.SelectContext(ctx, &roles, `SELECT * FROM roles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// CreateRole inserts a role.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	now := s.now()
	role.CreatedAt = now
	role.UpdatedAt = now
	if role.ID == "" {
		role.ID = uuid.NewString()
	}

	writer := s.pool.Writer()
	_, err := writer.NamedExecContext(ctx, `
		INSERT INTO roles (id, name, description, permissions, created_at, updated_at)
		VALUES (:id, :name, :description, :permissions, :created_at, :updated_at)`,
		role)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("role '%s' already exists", role.Name))
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// UpdateRole updates an existing role.
func (s *Store) UpdateRole(ctx context.Context, role *Role) error {
	role.UpdatedAt = s.now()

	writer := s.pool.Writer()
	res, err := writer.NamedExecContext(ctx, `
		UPDATE roles SET
			name = :name,
			description = :description,
			permissions = :permissions,
			updated_at = :updated_at
		WHERE id = :id`,
		role)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("role '%s' already exists", role.Name))
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("role", role.ID)
	}
	return nil
}

// DeleteRole removes a role by id.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	writer := s.pool.Writer()
	res, err := writer.ExecContext(ctx, writer.Rebind(`DELETE FROM roles WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("role", id)
	}
	return nil
}

// isUniqueViolation detects unique constraint errors from both sqlite and
// postgres without importing driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// Seed populates the built-in roles and demo accounts when the store is
// empty. It is idempotent; an already-seeded database is left untouched.
func (s *Store) Seed(ctx context.Context) error {
	reader := s.pool.Reader()
	var userCount int
	if err := reader.GetContext(ctx, &userCount, `SELECT COUNT(*) FROM users`); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	roles := []Role{
		{
			Name:        RoleAdmin,
			Description: "Full access to every dashboard feature",
			Permissions: StringList{"users:read", "users:write", "roles:read", "roles:write", "settings:write", "content:read", "content:write"},
		},
		{
			Name:        RoleEditor,
			Description: "Can manage content but not users or roles",
			Permissions: StringList{"content:read", "content:write"},
		},
		{
			Name:        RoleViewer,
			Description: "Read-only access",
			Permissions: StringList{"content:read"},
		},
	}
	for i := range roles {
		if err := s.CreateRole(ctx, &roles[i]); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	users := []User{
		{DisplayName: "Demo Admin", Email: "demo@example.com", Role: RoleAdmin},
		{DisplayName: "Maya Chen", Email: "maya.chen@example.com", Role: RoleEditor},
		{DisplayName: "Jonas Berg", Email: "jonas.berg@example.com", Role: RoleEditor},
		{DisplayName: "Priya Nair", Email: "priya.nair@example.com", Role: RoleViewer},
		{DisplayName: "Tom Okafor", Email: "tom.okafor@example.com", Role: RoleViewer, Status: StatusInactive},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		if err := s.CreateUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	s.log.Info("Seeded identity store",
		zap.Int("users", len(users)),
		zap.Int("roles", len(roles)))
	return nil
}
