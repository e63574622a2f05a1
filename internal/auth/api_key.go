package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"eco_gateway/internal/storage"
	"eco_gateway/internal/utils"
)

// APIKeyRecord is the view of an API key needed at request time.
type APIKeyRecord struct {
	ID            string
	Name          string
	AllowedModels []string
	Revoked       bool
}

// AllowsModel checks whether this key may call model. Entries of the form
// "provider:*" allow every model of that provider; an empty list allows all.
func (k *APIKeyRecord) AllowsModel(model string) bool {
	if len(k.AllowedModels) == 0 {
		return true
	}
	if slices.Contains(k.AllowedModels, model) {
		return true
	}
	for _, allowed := range k.AllowedModels {
		if prefix, ok := strings.CutSuffix(allowed, "*"); ok && strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// APIKeyStore resolves plaintext API keys into stored records.
type APIKeyStore interface {
	Lookup(ctx context.Context, plaintextKey string) (*APIKeyRecord, error)
}

// KeySpec is one configured key: its record and argon2id PHC hash.
type KeySpec struct {
	Record APIKeyRecord
	Hash   string
}

// ParseKeySpecs parses "id=<argon2id hash>" entries separated by ';'. The
// hash itself contains '=' so only the first one separates the ID.
func ParseKeySpecs(raw string) ([]KeySpec, error) {
	var specs []KeySpec
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, hash, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		hash = strings.TrimSpace(hash)
		if !ok || id == "" || !strings.HasPrefix(hash, "$argon2id$") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKeySpec, id)
		}
		specs = append(specs, KeySpec{Record: APIKeyRecord{ID: id, Name: id}, Hash: hash})
	}
	return specs, nil
}

// StaticKeyStore checks keys against a fixed set of argon2id hashes.
// Successful lookups are cached by the SHA-256 of the key so the argon2
// cost is paid once per key per TTL.
type StaticKeyStore struct {
	specs []KeySpec
	cache *storage.LRUCache[*APIKeyRecord]
}

// NewStaticKeyStore builds a store over specs.
func NewStaticKeyStore(specs []KeySpec, cacheSize int, cacheTTL time.Duration) *StaticKeyStore {
	return &StaticKeyStore{
		specs: slices.Clone(specs),
		cache: storage.NewLRUCache[*APIKeyRecord](cacheSize, cacheTTL),
	}
}

// Len returns the number of configured keys.
func (s *StaticKeyStore) Len() int {
	return len(s.specs)
}

func (s *StaticKeyStore) Lookup(ctx context.Context, plaintextKey string) (*APIKeyRecord, error) {
	cacheKey := utils.Fingerprint(plaintextKey)
	if rec, ok := s.cache.Get(cacheKey); ok {
		return rec, nil
	}

	for i := range s.specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := utils.VerifyPasswordArgon2(plaintextKey, s.specs[i].Hash)
		if err != nil {
			return nil, fmt.Errorf("verify key %s: %w", s.specs[i].Record.ID, err)
		}
		if ok {
			rec := s.specs[i].Record
			s.cache.Set(cacheKey, &rec)
			return &rec, nil
		}
	}
	return nil, ErrKeyNotFound
}
