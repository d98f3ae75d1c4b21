package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/identity/auth"
)

// Service exposes identity operations to the auth endpoints and the
// per-client session stores.
type Service struct {
	store  *Store
	tokens *auth.TokenManager
	bus    bus.EventBus
	log    *logger.Logger
}

// NewService creates an identity service.
func NewService(store *Store, tokens *auth.TokenManager, eventBus bus.EventBus, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		bus:    eventBus,
		log:    log.WithFields(zap.String("component", "identity-service")),
	}
}

// Authenticate verifies credentials and issues a token pair. Every failure
// mode maps to the same unauthorized error so callers cannot probe for
// registered emails.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*User, *auth.TokenPair, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, nil, apperrors.BadRequest("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, err
	}

	if user.Status != StatusActive {
		return nil, nil, apperrors.Unauthorized("account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to issue tokens", err)
	}

	s.log.Info("User authenticated",
		zap.String("user_id", user.ID),
		zap.String("role", user.Role))
	return user, pair, nil
}

// Refresh validates a refresh token and rotates the pair. The user record is
// re-read so role or status changes take effect on rotation.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, *auth.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, nil, err
	}
	if user.Status != StatusActive {
		return nil, nil, apperrors.Unauthorized("account is not active")
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to issue tokens", err)
	}
	return user, pair, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(tokenString string) (*auth.Claims, error) {
	return s.tokens.VerifyAccess(tokenString)
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns a page of users and the unpaged total.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter, page, pageSize int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return s.store.ListUsers(ctx, filter, page, pageSize)
}

// CreateUser creates a user from a plaintext password.
func (s *Service) CreateUser(ctx context.Context, user *User, password string) (*User, error) {
	if strings.TrimSpace(user.Email) == "" {
		return nil, apperrors.ValidationError("email", "must not be empty")
	}
	if strings.TrimSpace(user.DisplayName) == "" {
		return nil, apperrors.ValidationError("displayName", "must not be empty")
	}
	if len(password) < 6 {
		return nil, apperrors.ValidationError("password", "must be at least 6 characters")
	}
	if user.Role == "" {
		user.Role = RoleViewer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password", err)
	}
	user.PasswordHash = string(hash)

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserCreated, map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// UserPatch carries partial user updates; nil fields are left unchanged.
type UserPatch struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	Status      *string `json:"status"`
	Avatar      *string `json:"avatar"`
	Password    *string `json:"password"`
}

// UpdateUser applies a patch to an existing user.
func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.DisplayName != nil {
		if strings.TrimSpace(*patch.DisplayName) == "" {
			return nil, apperrors.ValidationError("displayName", "must not be empty")
		}
		user.DisplayName = *patch.DisplayName
	}
	if patch.Email != nil {
		if strings.TrimSpace(*patch.Email) == "" {
			return nil, apperrors.ValidationError("email", "must not be empty")
		}
		user.Email = *patch.Email
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Status != nil {
		switch *patch.Status {
		case StatusActive, StatusInactive, StatusLocked:
			user.Status = *patch.Status
		default:
			return nil, apperrors.ValidationError("status", "must be one of: active, inactive, locked")
		}
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.Password != nil {
		if len(*patch.Password) < 6 {
			return nil, apperrors.ValidationError("password", "must be at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.InternalError("failed to hash password", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.UserUpdated, map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.UserDeleted, map[string]interface{}{"user_id": id})
	return nil
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole returns a role by id.
func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	return s.store.GetRole(ctx, id)
}

// CreateRole creates a role.
func (s *Service) CreateRole(ctx context.Context, role *Role) (*Role, error) {
	if strings.TrimSpace(role.Name) == "" {
		return nil, apperrors.ValidationError("name", "must not be empty")
	}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	s.publish(ctx, events.RoleUpdated, map[string]interface{}{"role_id": role.ID})
	return role, nil
}

// RolePatch carries partial role updates; nil fields are left unchanged.
type RolePatch struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Permissions *StringList `json:"permissions"`
}

// UpdateRole applies a patch to an existing role.
func (s *Service) UpdateRole(ctx context.Context, id string, patch RolePatch) (*Role, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, apperrors.ValidationError("name", "must not be empty")
		}
		role.Name = *patch.Name
	}
	if patch.Description != nil {
		role.Description = *patch.Description
	}
	if patch.Permissions != nil {
		role.Permissions = *patch.Permissions
	}

	if err := s.store.UpdateRole(ctx, role); err != nil {
		return nil, err
	}
	s.publish(ctx, events.RoleUpdated, map[string]interface{}{"role_id": role.ID})
	return role, nil
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.RoleUpdated, map[string]interface{}{"role_id": id})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(eventType, "identity-service", data)
	if err := s.bus.Publish(ctx, eventType, event); err != nil {
		s.log.Warn("Failed to publish identity event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
