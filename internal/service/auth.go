package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/pkg/logging"
	"github.com/graylake-systems/graylake/pkg/tokens"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
	bcryptCost     = 12
)

// AuthService handles tenant signup, login, and session introspection.
type AuthService struct {
	repo   repository.Repository
	tokens *tokens.Generator
	log    *logging.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(repo repository.Repository, gen *tokens.Generator, log *logging.Logger) *AuthService {
	if log == nil {
		log = logging.Default()
	}
	return &AuthService{repo: repo, tokens: gen, log: log}
}

// Register creates a new tenant with its first admin user and returns a
// signed session. The email is unique across all tenants.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.SessionResponse, error) {
	company := strings.TrimSpace(req.CompanyName)
	email := normalizeEmail(req.Email)

	if company == "" {
		return nil, models.Invalid("companyName", "companyName is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tenantID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate tenant id: %w", err)
	}
	userID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	tenant := &models.Tenant{ID: tenantID.String(), Name: company}
	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	user := &models.User{
		ID:           userID.String(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.InfoContext(ctx, "tenant registered", "tenant_id", tenant.ID, "user_id", user.ID)
	return s.session(user, tenant)
}

// Login verifies credentials and returns a signed session. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.SessionResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	tenant, err := s.repo.GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("look up tenant: %w", err)
	}

	return s.session(user, tenant)
}

// Me returns the profile behind an authenticated session.
func (s *AuthService) Me(ctx context.Context, tenantID, userID string) (*models.UserSummary, *models.TenantInfo, error) {
	user, err := s.repo.GetUserByID(ctx, tenantID, userID)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.repo.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return &models.UserSummary{ID: user.ID, Email: user.Email, Role: user.Role},
		&models.TenantInfo{ID: tenant.ID, Name: tenant.Name}, nil
}

func (s *AuthService) session(user *models.User, tenant *models.Tenant) (*models.SessionResponse, error) {
	token, err := s.tokens.Generate(user.ID, user.TenantID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.SessionResponse{
		Token:  token,
		User:   models.UserSummary{ID: user.ID, Email: user.Email, Role: user.Role},
		Tenant: models.TenantInfo{ID: tenant.ID, Name: tenant.Name},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return models.Invalid("email", "email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return models.Invalid("email", "email must be a valid address")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return models.Invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if len(pw) > maxPasswordLen {
		return models.Invalid("password", fmt.Sprintf("password must be at most %d characters", maxPasswordLen))
	}
	return nil
}
