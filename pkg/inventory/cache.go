package inventory

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed tables kept in memory
const DefaultCacheSize = 16

type cacheEntry struct {
	version string
	value   any
}

// TableCache keeps parsed ledger/log tables keyed by blob name. An entry is only
// served while the stored version (or content hash) is unchanged.
// 解析済みテーブルのキャッシュ（バージョン一致時のみ有効）
type TableCache struct {
	lru *lru.Cache[string, cacheEntry]
}

// NewTableCache creates a cache holding up to size tables
// 新しいテーブルキャッシュを作成
func NewTableCache(size int) (*TableCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &TableCache{lru: c}, nil
}

// Get returns the cached value for name if it was stored under version
func (c *TableCache) Get(name, version string) (any, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.lru.Get(name)
	if !ok || e.version != version {
		return nil, false
	}
	return e.value, true
}

// Put stores value for name at version
func (c *TableCache) Put(name, version string, value any) {
	if c == nil {
		return
	}
	c.lru.Add(name, cacheEntry{version: version, value: value})
}

// Invalidate drops the entry for name
// 保存後にエントリを破棄
func (c *TableCache) Invalidate(name string) {
	if c == nil {
		return
	}
	c.lru.Remove(name)
}

// ContentVersion derives a version stamp from blob content for stores without native versions
// バージョンを持たないストア用にコンテンツハッシュを算出
func ContentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
