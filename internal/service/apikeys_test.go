package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graylake-systems/graylake/internal/models"
	"github.com/graylake-systems/graylake/internal/repository"
)

func TestAPIKey_CreateAndAuthenticate(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewAPIKeyService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "prod ingest"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.RawKey, "gl_live_"))
	assert.NotEmpty(t, created.APIKey.ID)
	assert.True(t, created.APIKey.Enabled)
	assert.NotEqual(t, created.RawKey, created.APIKey.KeyDigest, "the raw key is never stored")
	assert.True(t, strings.HasPrefix(created.RawKey, created.APIKey.Prefix))

	key, err := svc.Authenticate(ctx, created.RawKey)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", key.TenantID)
}

func TestAPIKey_AuthenticateRejections(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewAPIKeyService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "prod ingest"})
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong prefix", "sk_live_deadbeef"},
		{"unknown key", "gl_live_0000000000000000000000000000000000000000000000000000000000000000"},
		{"truncated key", created.RawKey[:len(created.RawKey)-2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.key)
			assert.ErrorIs(t, err, ErrInvalidAPIKey)
		})
	}
}

func TestAPIKey_RevokedKeyStopsAuthenticating(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewAPIKeyService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "prod ingest"})
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, "tenant-1", created.APIKey.ID)
	require.NoError(t, err)
	assert.False(t, revoked.Enabled)

	_, err = svc.Authenticate(ctx, created.RawKey)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	// Revoked keys remain listed for audit.
	keys, err := svc.List(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestAPIKey_AuthenticateTouchesLastUsed(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewAPIKeyService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "prod ingest"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, created.RawKey)
	require.NoError(t, err)

	// The touch is asynchronous; wait for it to land.
	require.Eventually(t, func() bool {
		keys, err := svc.List(ctx, "tenant-1")
		return err == nil && len(keys) == 1 && keys[0].LastUsed != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAPIKey_NameValidation(t *testing.T) {
	svc := NewAPIKeyService(repository.NewInMemoryRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "   "})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
}

func TestAPIKey_KeysAreUnique(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewAPIKeyService(repo, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "tenant-1", &models.CreateAPIKeyRequest{Name: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, a.RawKey, b.RawKey)
}
