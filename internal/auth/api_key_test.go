package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco_gateway/internal/utils"
)

func mustHash(t *testing.T, key string) string {
	t.Helper()
	hash, err := utils.HashPasswordArgon2(key)
	require.NoError(t, err)
	return hash
}

func newTestStore(t *testing.T) *StaticKeyStore {
	t.Helper()
	specs, err := ParseKeySpecs("team-a=" + mustHash(t, "key-a") + "; team-b=" + mustHash(t, "key-b"))
	require.NoError(t, err)
	return NewStaticKeyStore(specs, 10, time.Minute)
}

func TestParseKeySpecs(t *testing.T) {
	hash := mustHash(t, "k")

	specs, err := ParseKeySpecs("a=" + hash + ";;")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "a", specs[0].Record.ID)
	assert.Equal(t, hash, specs[0].Hash)

	specs, err = ParseKeySpecs("")
	require.NoError(t, err)
	assert.Empty(t, specs)

	for _, bad := range []string{"no-separator", "=" + hash, "a=plaintext"} {
		_, err := ParseKeySpecs(bad)
		assert.ErrorIs(t, err, ErrInvalidKeySpec, bad)
	}
}

func TestStaticKeyStore_Lookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	assert.Equal(t, 2, store.Len())

	rec, err := store.Lookup(ctx, "key-b")
	require.NoError(t, err)
	assert.Equal(t, "team-b", rec.ID)

	// Cached path returns the same record.
	again, err := store.Lookup(ctx, "key-b")
	require.NoError(t, err)
	assert.Same(t, rec, again)
	assert.Equal(t, 1, store.cache.Len())

	// Entries are keyed by fingerprint, never by the plaintext key.
	cached, ok := store.cache.Get(utils.Fingerprint("key-b"))
	require.True(t, ok)
	assert.Same(t, rec, cached)
	_, ok = store.cache.Get("key-b")
	assert.False(t, ok)

	_, err = store.Lookup(ctx, "wrong")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStaticKeyStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Lookup(ctx, "key-a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIKeyRecord_AllowsModel(t *testing.T) {
	open := &APIKeyRecord{}
	assert.True(t, open.AllowsModel("openai:gpt-4o"))

	scoped := &APIKeyRecord{AllowedModels: []string{"mistral:*", "mock:echo"}}
	assert.True(t, scoped.AllowsModel("mistral:small"))
	assert.True(t, scoped.AllowsModel("mock:echo"))
	assert.False(t, scoped.AllowsModel("openai:gpt-4o"))
}

type failingStore struct{}

func (failingStore) Lookup(ctx context.Context, key string) (*APIKeyRecord, error) {
	return nil, errors.New("backend down")
}

type revokedStore struct{}

func (revokedStore) Lookup(ctx context.Context, key string) (*APIKeyRecord, error) {
	return &APIKeyRecord{ID: "old", Revoked: true}, nil
}

func TestAuthHandler(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name   string
		store  APIKeyStore
		key    string
		status int
	}{
		{name: "valid", store: store, key: "key-a", status: http.StatusOK},
		{name: "missing", store: store, key: "", status: http.StatusBadRequest},
		{name: "unknown", store: store, key: "nope", status: http.StatusUnauthorized},
		{name: "revoked", store: revokedStore{}, key: "x", status: http.StatusUnauthorized},
		{name: "store error", store: failingStore{}, key: "x", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			AuthHandler(tt.store, testSecret)(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("token validates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		req.Header.Set("X-API-Key", "key-a")
		w := httptest.NewRecorder()
		AuthHandler(store, testSecret)(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		claims, err := ValidateJWT(resp.Token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "team-a", claims.KeyID)
		assert.Equal(t, utils.Fingerprint("key-a"), claims.HashedKey)
	})
}
