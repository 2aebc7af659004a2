package media

import (
	"context"
	"sync"
	"time"
)

// Entry 一次解析的结果。URL 有时效，不能作为持久值保存
type Entry struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	Failed      bool      `json:"failed,omitempty"`
}

// Cache 按媒体 key 缓存解析结果；写入是合并语义，不清空已有条目
type Cache interface {
	GetMany(ctx context.Context, keys []string) (map[string]Entry, error)
	PutMany(ctx context.Context, entries map[string]Entry) error
}

// MemoryCache 会话级缓存值，由调用方持有并传入
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) GetMany(_ context.Context, keys []string) (map[string]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(keys))
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			out[k] = e
		}
	}
	return out, nil
}

func (c *MemoryCache) PutMany(_ context.Context, entries map[string]Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range entries {
		c.entries[k] = e
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot 返回当前缓存的拷贝
func (c *MemoryCache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		out[k] = e
	}
	return out
}
