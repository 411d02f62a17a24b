package vmid

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var (
	ErrMappingNotFound      = errors.New("no merchant mapping for timestamp")
	ErrMappingPersistFailed = errors.New("failed to persist merchant mappings")
)

// MappingStore records the timestamp to permanent-identifier shortcut written
// on issuance. Entries are never deleted; redemption reads them back.
type MappingStore interface {
	Put(timestamp string, merchantID string) error
	Get(timestamp string) (string, error)
}

// FileMappingStore keeps the mappings as a flat JSON table rewritten in full
// on every issuance, fronted by an in-memory TTL cache for the redemption
// fast path.
type FileMappingStore struct {
	mu       sync.Mutex
	path     string
	mappings map[string]string
	cache    *gocache.Cache
}

func NewFileMappingStore(path string, cacheTTL time.Duration) (*FileMappingStore, error) {
	s := &FileMappingStore{
		path:     path,
		mappings: map[string]string{},
		cache:    gocache.New(cacheTTL, cacheTTL),
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		err = json.Unmarshal(raw, &s.mappings)
		if err != nil {
			return nil, errors.Join(ErrMappingPersistFailed, err)
		}

	case os.IsNotExist(err):
		// first run, nothing to load

	default:
		return nil, errors.Join(ErrMappingPersistFailed, err)
	}

	return s, nil
}

func (s *FileMappingStore) Put(timestamp string, merchantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings[timestamp] = merchantID
	s.cache.SetDefault(timestamp, merchantID)

	raw, err := json.Marshal(s.mappings)
	if err != nil {
		return errors.Join(ErrMappingPersistFailed, err)
	}

	tmp := s.path + ".tmp"
	err = os.WriteFile(tmp, raw, 0o644)
	if err != nil {
		return errors.Join(ErrMappingPersistFailed, err)
	}

	err = os.Rename(tmp, s.path)
	if err != nil {
		return errors.Join(ErrMappingPersistFailed, err)
	}

	return nil
}

func (s *FileMappingStore) Get(timestamp string) (string, error) {
	if cached, found := s.cache.Get(timestamp); found {
		return cached.(string), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merchantID, found := s.mappings[timestamp]
	if !found {
		return "", ErrMappingNotFound
	}

	s.cache.SetDefault(timestamp, merchantID)
	return merchantID, nil
}
