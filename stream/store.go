package stream

import (
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/reelscout/reelscout/content"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/mo"
)

const (
	MinTTL = time.Hour
	MaxTTL = 7 * 24 * time.Hour
)

// Key is the storage key of a stream reference.
func Key(contentID, episodeID string) string {
	if episodeID == "" {
		return contentID
	}
	return contentID + ":" + episodeID
}

// TTL is the time until expiresAt, clamped to [MinTTL, MaxTTL].
func TTL(expiresAt, now time.Time) time.Duration {
	return util.Clamp(expiresAt.Sub(now), MinTTL, MaxTTL)
}

type entry struct {
	Stream   content.Stream `json:"stream"`
	StoredAt time.Time      `json:"storedAt"`
	EvictAt  time.Time      `json:"evictAt"`
}

// Store keeps stream references on disk keyed by Key.
type Store struct {
	cache *gache.Cache[map[string]*entry]
	mu    sync.Mutex
	now   func() time.Time
}

// NewStore opens the reference store backed by the JSON file at path.
func NewStore(path string) *Store {
	return &Store{
		cache: gache.New[map[string]*entry](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
		now: time.Now,
	}
}

func (s *Store) load() (map[string]*entry, error) {
	data, expired, err := s.cache.Get()
	if err != nil {
		return nil, err
	}
	if expired || data == nil {
		return make(map[string]*entry), nil
	}
	return data, nil
}

// Put stores ref under key and returns the TTL it was given.
func (s *Store) Put(key string, ref *content.Stream) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return 0, err
	}

	now := s.now()
	ttl := TTL(ref.ExpiresAt, now)
	data[key] = &entry{Stream: *ref, StoredAt: now, EvictAt: now.Add(ttl)}

	for k, e := range data {
		if !now.Before(e.EvictAt) {
			delete(data, k)
		}
	}
	return ttl, s.cache.Set(data)
}

// Get returns the reference stored under key unless it was evicted.
func (s *Store) Get(key string) (mo.Option[content.Stream], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return mo.None[content.Stream](), err
	}

	e, ok := data[key]
	if !ok || !s.now().Before(e.EvictAt) {
		return mo.None[content.Stream](), nil
	}
	return mo.Some(e.Stream), nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.cache.Set(data)
}
