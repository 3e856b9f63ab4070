package anomaly

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 32

type memoryShard struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// MemoryStore is the default process-local ProfileStore: a sharded map with an
// optional janitor that evicts profiles idle past idleTTL. Locked profiles are
// never evicted; their locks expire first via the engine's decay sweep.
type MemoryStore struct {
	shards  [memoryShards]memoryShard
	idleTTL time.Duration
	nowFn   func() time.Time
}

// NewMemoryStore creates an in-memory store. idleTTL <= 0 disables eviction.
func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	s := &MemoryStore{
		idleTTL: idleTTL,
		nowFn:   time.Now,
	}
	for i := range s.shards {
		s.shards[i].profiles = make(map[string]*Profile)
	}
	return s
}

func (s *MemoryStore) shard(userID string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.shards[h.Sum32()%memoryShards]
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	p, ok := sh.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, p *Profile) error {
	sh := s.shard(p.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.profiles[p.UserID] = p.clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.profiles, userID)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	var keys []string
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for id := range sh.profiles {
			keys = append(keys, id)
		}
		sh.mu.RUnlock()
	}
	return keys, nil
}

// Sweep evicts unlocked profiles that have not been touched within idleTTL.
// It returns the number of evicted profiles.
func (s *MemoryStore) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.nowFn().Add(-s.idleTTL)
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, p := range sh.profiles {
			if !p.Locked && p.LastSeen.Before(cutoff) {
				delete(sh.profiles, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// StartJanitor runs Sweep on the given interval until ctx is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
