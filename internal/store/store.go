package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/encore/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// SchemaVersion is the on-disk layout version recorded in the meta bucket
const SchemaVersion = 1

const dbFileName = "encore.db"

// Bucket names
var (
	bucketSongs    = []byte("songs")
	bucketSetlists = []byte("setlists")
	bucketMeta     = []byte("meta")
)

var keySchemaVersion = []byte("schema_version")

// CacheStore implements domain.Store using BoltDB.
// It must be initialized before use.
type CacheStore struct {
	dir string

	openMu sync.Mutex
	db     *bolt.DB
	ready  bool

	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte

	now func() time.Time
}

// NewCacheStore creates an unopened cache rooted at baseCacheDir.
// serverURL namespaces the database so two backends never share records.
// An empty baseCacheDir selects memory-only mode (no persistence).
func NewCacheStore(baseCacheDir, serverURL string) *CacheStore {
	dir := baseCacheDir
	if dir != "" && serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	return &CacheStore{
		dir:   dir,
		cache: make(map[string][]byte),
		now:   time.Now,
	}
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Initialize opens (creating if absent) the database and its buckets.
// Calling it again after a successful open is a no-op.
func (s *CacheStore) Initialize() error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	if s.ready {
		return nil
	}

	if s.dir == "" {
		s.ready = true
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(s.dir, dbFileName), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSongs, bucketSetlists, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keySchemaVersion); v != nil {
			var stored int
			if err := json.Unmarshal(v, &stored); err == nil && stored > SchemaVersion {
				return fmt.Errorf("cache schema version %d is newer than supported %d", stored, SchemaVersion)
			}
		}
		data, _ := json.Marshal(SchemaVersion)
		return meta.Put(keySchemaVersion, data)
	})
	if err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.ready = true
	return nil
}

// Path returns the database file, or "" in memory-only mode
func (s *CacheStore) Path() string {
	if s.dir == "" {
		return ""
	}
	return filepath.Join(s.dir, dbFileName)
}

func (s *CacheStore) Close() error {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	s.ready = false
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *CacheStore) isReady() bool {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	return s.ready
}

// === Generic helpers ===

func (s *CacheStore) get(bucket []byte, key string, dest interface{}) (bool, error) {
	if !s.isReady() {
		return false, domain.ErrCacheNotInitialized
	}

	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		if err := json.Unmarshal(data, dest); err != nil {
			return false, fmt.Errorf("failed to decode %s: %w", cacheKey, err)
		}
		return true, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false, nil
	}

	// Read from BoltDB
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if data == nil {
		return false, nil
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", cacheKey, err)
	}
	return true, nil
}

func (s *CacheStore) set(bucket []byte, key string, value interface{}) error {
	if !s.isReady() {
		return domain.ErrCacheNotInitialized
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	if s.db != nil {
		// Write to BoltDB first so memory never holds a record the disk rejected
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucket)
			return b.Put([]byte(key), data)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return nil
}

// === Songs ===

// PutSong upserts a song payload. Versions below 1 are stored as 1.
func (s *CacheStore) PutSong(id string, payload json.RawMessage, version int) error {
	if version <= 0 {
		version = 1
	}
	return s.set(bucketSongs, id, domain.CachedSong{
		ID:       id,
		Payload:  payload,
		Version:  version,
		CachedAt: s.now(),
	})
}

// GetSong returns the song payload only
func (s *CacheStore) GetSong(id string) (json.RawMessage, bool, error) {
	rec, ok, err := s.SongRecord(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec.Payload, true, nil
}

// SongRecord returns the full stored wrapper
func (s *CacheStore) SongRecord(id string) (*domain.CachedSong, bool, error) {
	var rec domain.CachedSong
	ok, err := s.get(bucketSongs, id, &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// === Setlists ===

// PutSetlist upserts a setlist payload with its ordered items
func (s *CacheStore) PutSetlist(id string, payload json.RawMessage, items []json.RawMessage, version int) error {
	if version <= 0 {
		version = 1
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return s.set(bucketSetlists, id, domain.CachedSetlist{
		ID:       id,
		Payload:  payload,
		Items:    items,
		Version:  version,
		CachedAt: s.now(),
	})
}

// PreloadSetlist stores a setlist downloaded for offline use
func (s *CacheStore) PreloadSetlist(id string, payload json.RawMessage, items []json.RawMessage) error {
	return s.PutSetlist(id, payload, items, 1)
}

// GetSetlist returns the setlist payload and items
func (s *CacheStore) GetSetlist(id string) (*domain.SetlistEntry, bool, error) {
	rec, ok, err := s.SetlistRecord(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &domain.SetlistEntry{Payload: rec.Payload, Items: rec.Items}, true, nil
}

// SetlistRecord returns the full stored wrapper
func (s *CacheStore) SetlistRecord(id string) (*domain.CachedSetlist, bool, error) {
	var rec domain.CachedSetlist
	ok, err := s.get(bucketSetlists, id, &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// ListSetlists returns every cached setlist, ordered by id
func (s *CacheStore) ListSetlists() ([]*domain.CachedSetlist, error) {
	if !s.isReady() {
		return nil, domain.ErrCacheNotInitialized
	}

	if s.db == nil {
		return s.listMemorySetlists()
	}

	var setlists []*domain.CachedSetlist
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSetlists)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec domain.CachedSetlist
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode setlist %s: %w", k, err)
			}
			setlists = append(setlists, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return setlists, nil
}

func (s *CacheStore) listMemorySetlists() ([]*domain.CachedSetlist, error) {
	prefix := string(bucketSetlists) + ":"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	setlists := make([]*domain.CachedSetlist, 0, len(keys))
	for _, k := range keys {
		var rec domain.CachedSetlist
		if err := json.Unmarshal(s.cache[k], &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", k, err)
		}
		setlists = append(setlists, &rec)
	}
	return setlists, nil
}
