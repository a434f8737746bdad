// Package cache holds synthesized speech in memory so repeated phrases are
// replayed without another upstream call.
package cache

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/bobarin/signspeak/internal/models"
)

// DefaultCapacity is the number of entries kept when no capacity is given.
const DefaultCapacity = 50

// Key identifies a synthesized phrase. Text must already be trimmed.
type Key struct {
	Voice string
	Text  string
}

// String renders the key unambiguously, so distinct keys never collide.
func (k Key) String() string {
	return strconv.Quote(k.Voice) + "|" + strconv.Quote(k.Text)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Capacity  int   `json:"capacity"`
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// AudioCache is a fixed-size LRU of synthesized audio keyed by voice and text.
// The front of the eviction list is the most recently used entry.
type AudioCache struct {
	capacity int

	items    map[Key]*list.Element
	eviction *list.List

	mu sync.Mutex

	stats Stats
}

type audioEntry struct {
	key   Key
	audio models.Audio
}

// NewAudioCache creates an empty cache holding at most capacity entries.
// A capacity below 1 falls back to DefaultCapacity.
func NewAudioCache(capacity int) *AudioCache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &AudioCache{
		capacity: capacity,
		items:    make(map[Key]*list.Element, capacity),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get returns the audio for key and marks it most recently used.
func (c *AudioCache) Get(key Key) (models.Audio, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return models.Audio{}, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*audioEntry).audio, true
}

// Put stores audio under key. Storing an existing key replaces its value and
// marks it most recently used. Inserting a new key into a full cache evicts
// the least recently used entry first.
func (c *AudioCache) Put(key Key, audio models.Audio) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*audioEntry).audio = audio
		return
	}

	if c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.eviction.PushFront(&audioEntry{key: key, audio: audio})
}

// Len returns the number of cached entries.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *AudioCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.eviction.Len()
	return s
}

// evictOldest removes the least recently used entry. Caller holds c.mu.
func (c *AudioCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*audioEntry).key)
	c.stats.Evictions++
}
