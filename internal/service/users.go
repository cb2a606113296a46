package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
)

// UserService manages a tenant's members. All operations are scoped to
// one tenant; the handler layer enforces the admin role.
type UserService struct {
	repo repository.Repository
}

// NewUserService creates a UserService.
func NewUserService(repo repository.Repository) *UserService {
	return &UserService{repo: repo}
}

// List returns the tenant's users.
func (s *UserService) List(ctx context.Context, tenantID string) ([]*models.User, error) {
	return s.repo.ListUsers(ctx, tenantID)
}

// Create adds a user to the tenant.
func (s *UserService) Create(ctx context.Context, tenantID string, req *models.CreateUserRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleViewer
	}
	if !models.ValidRole(role) {
		return nil, models.Invalid("role", "role must be one of: admin, analyst, viewer")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	user := &models.User{
		ID:           id.String(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateRole changes a user's role. Demoting the tenant's only admin is
// rejected with ErrLastAdmin so the tenant never locks itself out.
func (s *UserService) UpdateRole(ctx context.Context, tenantID, userID, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, models.Invalid("role", "role must be one of: admin, analyst, viewer")
	}

	user, err := s.repo.GetUserByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin && role != models.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, tenantID); err != nil {
			return nil, err
		}
	}

	return s.repo.UpdateUserRole(ctx, tenantID, userID, role)
}

// Delete removes a user from the tenant. The last admin cannot be deleted,
// and users cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, tenantID, userID, actorID string) error {
	if userID == actorID {
		return models.Invalid("id", "you cannot delete your own account")
	}

	user, err := s.repo.GetUserByID(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		if err := s.requireAnotherAdmin(ctx, tenantID); err != nil {
			return err
		}
	}

	return s.repo.DeleteUser(ctx, tenantID, userID)
}

func (s *UserService) requireAnotherAdmin(ctx context.Context, tenantID string) error {
	n, err := s.repo.CountAdmins(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}
