package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// DocumentKey derives the cache key for one document body analysed under a
// given configuration fingerprint. Keys are filename-safe.
func DocumentKey(fingerprint, text string) string {
	hash := sha256.Sum256([]byte(text))
	return "contractdiff-v1-" + fingerprint + "-" + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg: nil when disabled, memory only
// without a directory, memory over disk otherwise
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// DocumentStore caches per-document leaf outputs as JSON
type DocumentStore struct {
	cache       Cache
	fingerprint string
	ttl         time.Duration
}

// NewDocumentStore wraps a byte cache for analyses produced under fingerprint
func NewDocumentStore(c Cache, fingerprint string, ttl time.Duration) *DocumentStore {
	return &DocumentStore{cache: c, fingerprint: fingerprint, ttl: ttl}
}

// Get returns the cached analysis of text, if any. Undecodable entries are dropped.
func (s *DocumentStore) Get(text string) (model.DocumentAnalysis, bool) {
	key := DocumentKey(s.fingerprint, text)
	data, ok := s.cache.Get(key)
	if !ok {
		return model.DocumentAnalysis{}, false
	}

	var doc model.DocumentAnalysis
	if err := json.Unmarshal(data, &doc); err != nil {
		_ = s.cache.Delete(key)
		return model.DocumentAnalysis{}, false
	}
	return doc, true
}

// Put stores the analysis of text
func (s *DocumentStore) Put(text string, doc model.DocumentAnalysis) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return s.cache.Set(DocumentKey(s.fingerprint, text), data, s.ttl)
}
