package ds

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	DefaultShardCount = 32
)

type MapShard[K comparable, V any] struct {
	items        map[K]V
	sync.RWMutex // r&w lock for every shard
}

// Get gets the value under a given key.
func (ms *MapShard[K, V]) Get(key K) (V, bool) {
	val, ok := ms.items[key]
	return val, ok
}

// Set sets the key and value under a specific MapShard.
func (ms *MapShard[K, V]) Set(key K, value V) {
	ms.items[key] = value
}

// Has returns if the map contains a specific key.
func (ms *MapShard[K, V]) Has(key K) bool {
	_, ok := ms.items[key]
	return ok
}

// Remove deletes an element from the map.
func (ms *MapShard[K, V]) Remove(key K) {
	delete(ms.items, key)
}

// Pop deletes an element from the map and returns it.
func (ms *MapShard[K, V]) Pop(key K) (V, bool) {
	val, exist := ms.items[key]
	delete(ms.items, key)
	return val, exist
}

type ConcurrentMap[K comparable, V any] struct {
	shards     []*MapShard[K, V]
	sharding   func(key K) uint64
	shardCount uint64
}

// NewConcurrentMap returns a ConcurrentMap with string keys sharded by xxhash.
func NewConcurrentMap[V any](mapShardCount int) *ConcurrentMap[string, V] {
	cm := newConcurrentMap[string, V](mapShardCount, xxhash.Sum64String)
	return &cm
}

// NewWithCustomShardingFunction creates a new concurrent map.
func NewWithCustomShardingFunction[K comparable, V any](mapShardCount int, sharding func(key K) uint64) *ConcurrentMap[K, V] {
	cm := newConcurrentMap[K, V](mapShardCount, sharding)
	return &cm
}

func newConcurrentMap[K comparable, V any](mapShardCount int, sharding func(key K) uint64) ConcurrentMap[K, V] {
	// suggest powers of 2
	if mapShardCount < DefaultShardCount {
		mapShardCount = DefaultShardCount
	}

	cm := ConcurrentMap[K, V]{
		sharding:   sharding,
		shards:     make([]*MapShard[K, V], mapShardCount),
		shardCount: uint64(mapShardCount),
	}

	for i := 0; i < mapShardCount; i++ {
		cm.shards[i] = &MapShard[K, V]{items: make(map[K]V)}
	}

	return cm
}

// GetShard returns the MapShard under the given key.
func (cm *ConcurrentMap[K, V]) GetShard(key K) *MapShard[K, V] {
	return cm.shards[cm.sharding(key)%cm.shardCount]
}

// GetShardByReading returns the MapShard under the given key after RLocking.
// Remember to unlock the shard!
func (cm *ConcurrentMap[K, V]) GetShardByReading(key K) *MapShard[K, V] {
	shard := cm.GetShard(key)
	shard.RLock()
	// remember to RUnlock
	return shard
}

// GetShardByWriting returns the MapShard under the given key after Locking.
// Remember to unlock the shard!
func (cm *ConcurrentMap[K, V]) GetShardByWriting(key K) *MapShard[K, V] {
	shard := cm.GetShard(key)
	shard.Lock()
	// remember to Unlock
	return shard
}

// Get gets the value under a given key.
func (cm *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	shard := cm.GetShardByReading(key)
	defer shard.RUnlock()
	return shard.Get(key)
}

// Set sets the key and value under a specific MapShard.
func (cm *ConcurrentMap[K, V]) Set(key K, value V) {
	shard := cm.GetShardByWriting(key)
	defer shard.Unlock()
	shard.Set(key, value)
}

// Has returns if the map contains a specific key.
func (cm *ConcurrentMap[K, V]) Has(key K) bool {
	shard := cm.GetShardByReading(key)
	defer shard.RUnlock()
	return shard.Has(key)
}

// Remove deletes an element from the map.
func (cm *ConcurrentMap[K, V]) Remove(key K) {
	shard := cm.GetShardByWriting(key)
	defer shard.Unlock()
	shard.Remove(key)
}

// Pop deletes an element from the map and returns it.
func (cm *ConcurrentMap[K, V]) Pop(key K) (V, bool) {
	shard := cm.GetShardByWriting(key)
	defer shard.Unlock()
	return shard.Pop(key)
}

// Size returns the number of keys.
func (cm *ConcurrentMap[K, V]) Size() int {
	cnt := 0
	for _, shard := range cm.shards {
		shard.RLock()
		cnt += len(shard.items)
		shard.RUnlock()
	}
	return cnt
}

// Range calls fn on every key and value until fn returns false.
// The shard lock is held while fn runs, so fn must not call back into the map.
func (cm *ConcurrentMap[K, V]) Range(fn func(key K, value V) bool) {
	for _, shard := range cm.shards {
		shard.RLock()
		for k, v := range shard.items {
			if !fn(k, v) {
				shard.RUnlock()
				return
			}
		}
		shard.RUnlock()
	}
}
