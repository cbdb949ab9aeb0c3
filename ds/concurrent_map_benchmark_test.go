package ds

import (
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"
)

// go test -bench='Map$' -benchtime=5s -count=1 -benchmem

var mapKeyCount = 1000000

func benchmarkWriteMap(b *testing.B) {
	mp := make(map[string]int)
	lock := sync.RWMutex{}
	wg := sync.WaitGroup{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		go func(key int) {
			lock.Lock()
			mp[strconv.Itoa(key)] = key
			lock.Unlock()
			wg.Done()
		}(i)
	}
	wg.Wait()
}

func benchmarkWriteSyncMap(b *testing.B) {
	sm := sync.Map{}
	wg := sync.WaitGroup{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		go func(key int) {
			sm.Store(strconv.Itoa(key), key)
			wg.Done()
		}(i)
	}
	wg.Wait()
}

func benchmarkWriteShardConcurrentMap(b *testing.B, shardCount int) {
	cm := NewConcurrentMap[int](shardCount)
	wg := sync.WaitGroup{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		go func(key int) {
			strKey := strconv.Itoa(key)
			shard := cm.GetShardByWriting(strKey)
			shard.Set(strKey, key)
			shard.Unlock()
			wg.Done()
		}(i)
	}
	wg.Wait()
}

func BenchmarkWriteMap(b *testing.B) {
	benchmarkWriteMap(b)
}

func BenchmarkWriteSyncMap(b *testing.B) {
	benchmarkWriteSyncMap(b)
}

func BenchmarkWrite32ShardConcurrentMap(b *testing.B) {
	benchmarkWriteShardConcurrentMap(b, 32)
}

func BenchmarkWrite64ShardConcurrentMap(b *testing.B) {
	benchmarkWriteShardConcurrentMap(b, 64)
}

// read

func benchmarkReadMap(b *testing.B) {
	mp := make(map[string]int)
	for i := 0; i < mapKeyCount; i++ {
		mp[strconv.Itoa(i)] = i
	}
	rand.Seed(time.Now().UnixNano())
	lock := sync.RWMutex{}
	wg := sync.WaitGroup{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		go func() {
			lock.RLock()
			_ = mp[strconv.Itoa(rand.Intn(mapKeyCount))]
			lock.RUnlock()
			wg.Done()
		}()
	}
	wg.Wait()
}

func benchmarkReadShardConcurrentMap(b *testing.B, shardCount int) {
	cm := NewConcurrentMap[int](shardCount)
	for i := 0; i < mapKeyCount; i++ {
		cm.Set(strconv.Itoa(i), i)
	}
	rand.Seed(time.Now().UnixNano())
	wg := sync.WaitGroup{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		go func() {
			strKey := strconv.Itoa(rand.Intn(mapKeyCount))
			shard := cm.GetShardByReading(strKey)
			shard.Get(strKey)
			shard.RUnlock()
			wg.Done()
		}()
	}
	wg.Wait()
}

func BenchmarkReadMap(b *testing.B) {
	benchmarkReadMap(b)
}

func BenchmarkRead32ShardConcurrentMap(b *testing.B) {
	benchmarkReadShardConcurrentMap(b, 32)
}

func BenchmarkRead64ShardConcurrentMap(b *testing.B) {
	benchmarkReadShardConcurrentMap(b, 64)
}
