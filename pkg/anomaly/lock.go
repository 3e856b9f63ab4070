package anomaly

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyedMutex serializes mutations per user without a table-wide lock. Two
// users may share a shard, which is harmless: critical sections are short and
// bounded by the configured history windows.
type keyedMutex struct {
	shards [lockShards]sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &k.shards[h.Sum32()%lockShards]
	mu.Lock()
	return mu.Unlock
}
