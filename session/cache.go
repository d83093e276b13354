package session

import (
	"sync"
	"time"

	"tripmate/models"
)

// GroupCache 小组快照的 TTL 缓存
// 显式注入到请求处理器，不做包级全局；写操作后由调用方显式 Invalidate
type GroupCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uint]groupCacheEntry
}

type groupCacheEntry struct {
	group     models.Group
	expiresAt time.Time
}

// NewGroupCache 创建缓存，ttl 为单条记录的存活时长
func NewGroupCache(ttl time.Duration) *GroupCache {
	return &GroupCache{
		ttl:     ttl,
		entries: make(map[uint]groupCacheEntry),
	}
}

// Get 读取缓存，过期记录当作未命中并顺手删除
func (c *GroupCache) Get(groupID uint, now time.Time) (models.Group, bool) {
	c.mu.RLock()
	e, ok := c.entries[groupID]
	c.mu.RUnlock()
	if !ok {
		return models.Group{}, false
	}
	if now.After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, groupID)
		c.mu.Unlock()
		return models.Group{}, false
	}
	return e.group, true
}

// Set 写入缓存
func (c *GroupCache) Set(groupID uint, g models.Group, now time.Time) {
	c.mu.Lock()
	c.entries[groupID] = groupCacheEntry{group: g, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate 主动失效单条记录，小组数据变更后必须调用
func (c *GroupCache) Invalidate(groupID uint) {
	c.mu.Lock()
	delete(c.entries, groupID)
	c.mu.Unlock()
}
