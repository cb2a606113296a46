package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
	"github.com/graylake-systems/graylake/pkg/logging"
)

const (
	apiKeyPrefix  = "gl_live_"
	apiKeyBytes   = 32
	maxKeyNameLen = 100
)

// APIKeyService issues and authenticates ingest API keys. Raw keys are
// shown once at creation; only a SHA-256 digest is stored.
type APIKeyService struct {
	repo repository.Repository
	log  *logging.Logger
	now  func() time.Time
}

// NewAPIKeyService creates an APIKeyService.
func NewAPIKeyService(repo repository.Repository, log *logging.Logger) *APIKeyService {
	if log == nil {
		log = logging.Default()
	}
	return &APIKeyService{repo: repo, log: log, now: time.Now}
}

// Create mints a new key for the tenant and returns the raw secret
// alongside the stored record. The secret cannot be recovered later.
func (s *APIKeyService) Create(ctx context.Context, tenantID string, req *models.CreateAPIKeyRequest) (*models.CreateAPIKeyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.Invalid("name", "name is required")
	}
	if len(name) > maxKeyNameLen {
		return nil, models.Invalid("name", fmt.Sprintf("name must be at most %d characters", maxKeyNameLen))
	}

	secret := make([]byte, apiKeyBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate key material: %w", err)
	}
	rawKey := apiKeyPrefix + hex.EncodeToString(secret)

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate key id: %w", err)
	}

	key := &models.APIKey{
		ID:        id.String(),
		TenantID:  tenantID,
		Name:      name,
		KeyDigest: digestKey(rawKey),
		Prefix:    rawKey[:len(apiKeyPrefix)+8],
		Enabled:   true,
	}
	if err := s.repo.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	s.log.InfoContext(ctx, "api key created", "tenant_id", tenantID, "key_id", key.ID)
	return &models.CreateAPIKeyResponse{APIKey: key, RawKey: rawKey}, nil
}

// Authenticate resolves a raw key to its tenant. Unknown, malformed, and
// revoked keys all return ErrInvalidAPIKey. The last-used stamp is updated
// out of band so authentication never waits on the write.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error) {
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return nil, ErrInvalidAPIKey
	}

	key, err := s.repo.GetAPIKeyByDigest(ctx, digestKey(rawKey))
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("look up api key: %w", err)
	}
	if !key.Enabled {
		return nil, ErrInvalidAPIKey
	}

	usedAt := s.now().UTC()
	go func() {
		touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.TouchAPIKey(touchCtx, key.ID, usedAt); err != nil {
			s.log.Warn("touch api key failed", "key_id", key.ID, "error", err)
		}
	}()

	return key, nil
}

// List returns the tenant's keys, digests omitted by the model's JSON tags.
func (s *APIKeyService) List(ctx context.Context, tenantID string) ([]*models.APIKey, error) {
	return s.repo.ListAPIKeys(ctx, tenantID)
}

// Revoke deactivates a key. Revoked keys stay listed for audit but no
// longer authenticate.
func (s *APIKeyService) Revoke(ctx context.Context, tenantID, id string) (*models.APIKey, error) {
	return s.repo.RevokeAPIKey(ctx, tenantID, id)
}

func digestKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
