package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot per series in memory. It is safe
// for concurrent use.
//
// With a TTL configured, a background goroutine periodically removes stale
// snapshots; Stop must be called to shut that goroutine down. For
// multi-instance deployments use RedisStore instead.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot

	ttl         time.Duration
	ticker      *time.Ticker
	stopCleanup chan struct{}
	cleanupDone chan struct{}

	stopOnce sync.Once
}

// NewMemoryStore creates an in-memory snapshot store without expiration.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

// NewMemoryStoreWithTTL creates an in-memory snapshot store whose entries
// expire after ttl. cleanupInterval controls how often expired entries are
// swept; values <= 0 default to one minute.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) (*MemoryStore, error) {
	if ttl <= 0 {
		return nil, errors.New("storage: ttl must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &MemoryStore{
		snapshots:   make(map[string]Snapshot),
		ttl:         ttl,
		ticker:      time.NewTicker(cleanupInterval),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s, nil
}

// Put stores the snapshot, replacing any previous one for the same series.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if snapshot.Series == "" {
		return errors.New("storage: series name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Series] = snapshot
	return nil
}

// GetLatest returns the most recent snapshot for the series. The boolean
// reports whether one exists (expired entries count as absent).
func (s *MemoryStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if series == "" {
		return Snapshot{}, false, errors.New("storage: series name required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[series]
	if !ok {
		return Snapshot{}, false, nil
	}
	if s.ttl > 0 && time.Since(snapshot.GeneratedAt) > s.ttl {
		return Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Stop terminates the TTL cleanup goroutine. Safe to call multiple times
// and a no-op for stores without TTL.
func (s *MemoryStore) Stop() {
	if s.ticker == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
		<-s.cleanupDone
		s.ticker.Stop()
	})
}

func (s *MemoryStore) cleanupLoop() {
	defer close(s.cleanupDone)
	for {
		select {
		case <-s.stopCleanup:
			return
		case <-s.ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for series, snapshot := range s.snapshots {
		if time.Since(snapshot.GeneratedAt) > s.ttl {
			delete(s.snapshots, series)
		}
	}
}
