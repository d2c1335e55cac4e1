//
// Created on 2023/5/23 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry holds the immutable outcome of one compilation. The findings
// are kept alongside the artifact so a cache hit reproduces the full
// compile result without re-running the scanner.
type cacheEntry struct {
	artifact *Artifact
	warnings []string
	findings []Finding
}

// compileCache is the content-addressed artifact store. Entries key on
// (source, contract name, compiler version); concurrent compilations of the
// same key may race and the last write wins, which is safe because
// compilation is a pure function of the key. The cache is LRU-bounded so a
// long-lived sandbox cannot grow it without limit.
type compileCache struct {
	entries *lru.Cache[common.Hash, *cacheEntry]
	size    int
	hits    atomic.Uint64
	misses  atomic.Uint64
}

type CacheStats struct {
	Entries    int
	MaxEntries int
	Hits       uint64
	Misses     uint64
}

func newCompileCache(size int) (*compileCache, error) {
	entries, err := lru.New[common.Hash, *cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &compileCache{entries: entries, size: size}, nil
}

// cacheKey derives the deterministic content address of a compilation.
func cacheKey(source, contractName, compilerVersion string) common.Hash {
	return crypto.Keccak256Hash(
		[]byte(source), []byte{0},
		[]byte(contractName), []byte{0},
		[]byte(compilerVersion),
	)
}

func (c *compileCache) get(key common.Hash) (*cacheEntry, bool) {
	entry, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

func (c *compileCache) add(key common.Hash, entry *cacheEntry) {
	c.entries.Add(key, entry)
}

func (c *compileCache) stats() CacheStats {
	return CacheStats{
		Entries:    c.entries.Len(),
		MaxEntries: c.size,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}
}

func (c *compileCache) clear() {
	c.entries.Purge()
}
