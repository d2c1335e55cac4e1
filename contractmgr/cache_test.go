package contractmgr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyDeterministic(t *testing.T) {
	key1 := cacheKey("contract A {}", "A", "0.8.19")
	key2 := cacheKey("contract A {}", "A", "0.8.19")
	assert.Equal(t, key1, key2)

	assert.NotEqual(t, key1, cacheKey("contract A { }", "A", "0.8.19"), "source change must change the key")
	assert.NotEqual(t, key1, cacheKey("contract A {}", "B", "0.8.19"), "name change must change the key")
	assert.NotEqual(t, key1, cacheKey("contract A {}", "A", "0.8.20"), "compiler change must change the key")
}

func TestCacheHitMissStats(t *testing.T) {
	cache, err := newCompileCache(16)
	require.NoError(t, err)

	key := cacheKey("src", "A", "0.8.19")
	_, ok := cache.get(key)
	assert.False(t, ok)

	cache.add(key, &cacheEntry{artifact: &Artifact{ContractName: "A"}})
	entry, ok := cache.get(key)
	require.True(t, ok)
	assert.Equal(t, "A", entry.artifact.ContractName)

	stats := cache.stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 16, stats.MaxEntries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestCacheEvictionBound(t *testing.T) {
	cache, err := newCompileCache(4)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		source := fmt.Sprintf("contract C%d {}", i)
		cache.add(cacheKey(source, "C", "0.8.19"), &cacheEntry{artifact: &Artifact{}})
	}
	assert.LessOrEqual(t, cache.stats().Entries, 4, "cache must stay within its bound")
}

func TestCacheClear(t *testing.T) {
	cache, err := newCompileCache(16)
	require.NoError(t, err)
	cache.add(cacheKey("src", "A", "v"), &cacheEntry{})
	cache.clear()
	assert.Zero(t, cache.stats().Entries)
}
