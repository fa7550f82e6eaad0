// Package cache implements the bounded, TTL-based in-memory store that sits in
// front of every upstream scrape. Entries are evicted first-in first-out once
// the store is full, expire lazily on read, and are swept periodically.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-data-explorer/internal/metrics"
)

// Store defaults.
const (
	DefaultMaxEntries    = 1000
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Entry is an immutable cached value.
type Entry struct {
	Key       string
	Value     any
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is no longer readable at now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Stats is a read-only snapshot of the store.
type Stats struct {
	Size    int      `json:"size"`
	MaxSize int      `json:"maxSize"`
	Keys    []string `json:"keys"`
}

// Config controls Store behavior.
type Config struct {
	MaxEntries int
	DefaultTTL time.Duration
	Clock      Clock
	Logger     *zap.Logger
}

// Store is an insertion-ordered key/value map bounded by MaxEntries.
// All operations are serialized by a single mutex.
type Store struct {
	mu         sync.Mutex
	maxEntries int
	defaultTTL time.Duration
	entries    map[string]*list.Element
	order      *list.List
	clock      Clock
	logger     *zap.Logger
}

// New constructs a Store, filling unset config values with defaults.
func New(cfg Config) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Store{
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.DefaultTTL,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Set stores value under key for ttl (the default TTL when ttl <= 0).
// Adding a new key to a full store evicts the oldest-inserted entry first.
// Replacing an existing key moves it to the newest position.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	entry := &Entry{Key: key, Value: value, CreatedAt: s.clock.Now(), TTL: ttl}

	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.entries[key]; ok {
		elem.Value = entry
		s.order.MoveToBack(elem)
		return
	}
	if s.order.Len() >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[key] = s.order.PushBack(entry)
}

// Get returns the value for key while it is unexpired. An expired entry is
// removed as a side effect.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*Entry)
	if entry.Expired(s.clock.Now()) {
		s.removeLocked(elem)
		metrics.ObserveCacheEviction("expired", 1)
		return nil, false
	}
	return entry.Value, true
}

// Peek returns a copy of the entry for key without expiring it.
func (s *Store) Peek(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *elem.Value.(*Entry), true
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.entries[key]
	if !ok {
		return false
	}
	s.removeLocked(elem)
	return true
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.order.Len()
	s.entries = make(map[string]*list.Element)
	s.order.Init()
	metrics.ObserveCacheEviction("cleared", n)
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats returns size, capacity and keys in insertion order.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*Entry).Key)
	}
	return Stats{Size: len(keys), MaxSize: s.maxEntries, Keys: keys}
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*Entry).Expired(now) {
			s.removeLocked(elem)
			removed++
		}
		elem = next
	}
	metrics.ObserveCacheEviction("expired", removed)
	return removed
}

// Run sweeps the store every interval until ctx is canceled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("cache sweeper stopped")
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Debug("swept expired cache entries", zap.Int("removed", removed), zap.Int("size", s.Len()))
			}
		}
	}
}

func (s *Store) evictOldestLocked() {
	oldest := s.order.Front()
	if oldest == nil {
		return
	}
	s.logger.Debug("evicting oldest cache entry", zap.String("key", oldest.Value.(*Entry).Key))
	s.removeLocked(oldest)
	metrics.ObserveCacheEviction("capacity", 1)
}

func (s *Store) removeLocked(elem *list.Element) {
	s.order.Remove(elem)
	delete(s.entries, elem.Value.(*Entry).Key)
}
