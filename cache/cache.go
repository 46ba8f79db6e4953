package cache

// cache/cache.go

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanjt06/pagesim/internal"
	"go.uber.org/zap"
)

// Policy selects what a hit does to the eviction order.
type Policy int

const (
	// FIFO never reorders on a hit; eviction follows insertion order.
	FIFO Policy = iota
	// LRU moves a hit entry to the head; eviction follows recency.
	LRU
)

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

var ErrUnknownPolicy = errors.New("unknown replacement policy")

// ErrInvalidCapacity is returned by New for a capacity below one.
var ErrInvalidCapacity = internal.ErrInvalidCapacity

func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "fifo":
		return FIFO, nil
	case "lru":
		return LRU, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Outcome is the result of a single Access.
type Outcome bool

const (
	Miss Outcome = false
	Hit  Outcome = true
)

func (o Outcome) String() string {
	if o {
		return "Hit"
	}
	return "Miss"
}

// Stats counts the outcomes since construction or the last Clear.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// none terminates the order list at both ends.
const none = -1

type entry struct {
	key  string
	prev int
	next int
}

// OrderedCache is a capacity-bounded set of normalized keys with FIFO or LRU
// eviction. Entries live in an arena slice and are linked by their slot
// numbers; the KeyIndex maps each key to its slot. head is the most recently
// inserted (or, under LRU, used) entry and tail is the next to be evicted.
//
// An OrderedCache is not safe for concurrent use.
type OrderedCache struct {
	capacity int
	policy   Policy

	entries []entry
	free    []int
	head    int
	tail    int
	size    int

	index KeyIndex
	stats Stats

	logger *zap.SugaredLogger
	debug  bool
}

type Option func(*OrderedCache)

// WithIndex replaces the default map-backed KeyIndex. The index must be empty.
func WithIndex(index KeyIndex) Option {
	return func(c *OrderedCache) {
		c.index = index
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *OrderedCache) {
		c.logger = logger
	}
}

// constructor
func New(capacity int, policy Policy, opts ...Option) (*OrderedCache, error) {
	if err := internal.ValidateCapacity(capacity); err != nil {
		return nil, err
	}
	if policy != FIFO && policy != LRU {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(policy))
	}

	c := &OrderedCache{
		capacity: capacity,
		policy:   policy,
		head:     none,
		tail:     none,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.index == nil {
		c.index = NewMapIndex()
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	c.debug = c.logger.Desugar().Core().Enabled(zap.DebugLevel)

	return c, nil
}

// Access records a reference to key and reports whether it was resident.
// A miss inserts the key at the head and, when that overflows the capacity,
// evicts exactly one entry from the tail.
func (c *OrderedCache) Access(key string) Outcome {
	key = internal.NormalizeKey(key)

	if slot, ok := c.index.Lookup(key); ok {
		c.stats.Hits++
		if c.policy == LRU && slot != c.head {
			c.unlink(slot)
			c.pushFront(slot)
		}
		return Hit
	}

	c.stats.Misses++
	slot := c.alloc(key)
	c.pushFront(slot)
	c.index.Insert(key, slot)
	c.size++

	if c.size > c.capacity {
		c.evictTail()
	}
	return Miss
}

// Contains reports whether key is resident without touching the order.
func (c *OrderedCache) Contains(key string) bool {
	_, ok := c.index.Lookup(internal.NormalizeKey(key))
	return ok
}

// Clear drops every entry and resets the counters. Capacity and policy are
// kept.
func (c *OrderedCache) Clear() {
	dropped := c.size

	c.index.Clear()
	c.entries = c.entries[:0]
	c.free = c.free[:0]
	c.head, c.tail = none, none
	c.size = 0
	c.stats = Stats{}

	if c.debug {
		c.logger.Debugw("Cleared cache",
			"policy", c.policy,
			"capacity", c.capacity,
			"dropped", dropped,
		)
	}
}

func (c *OrderedCache) Len() int {
	return c.size
}

func (c *OrderedCache) Capacity() int {
	return c.capacity
}

func (c *OrderedCache) Policy() Policy {
	return c.policy
}

func (c *OrderedCache) Stats() Stats {
	return c.stats
}

// Keys returns the normalized keys from head (newest) to tail (next victim).
func (c *OrderedCache) Keys() []string {
	out := make([]string, 0, c.size)
	for slot := c.head; slot != none; slot = c.entries[slot].next {
		out = append(out, c.entries[slot].key)
	}
	return out
}

func (c *OrderedCache) alloc(key string) int {
	if n := len(c.free); n > 0 {
		slot := c.free[n-1]
		c.free = c.free[:n-1]
		c.entries[slot] = entry{key: key, prev: none, next: none}
		return slot
	}
	c.entries = append(c.entries, entry{key: key, prev: none, next: none})
	return len(c.entries) - 1
}

func (c *OrderedCache) pushFront(slot int) {
	e := &c.entries[slot]
	e.prev = none
	e.next = c.head
	if c.head != none {
		c.entries[c.head].prev = slot
	} else {
		c.tail = slot
	}
	c.head = slot
}

func (c *OrderedCache) unlink(slot int) {
	e := &c.entries[slot]
	if e.prev != none {
		c.entries[e.prev].next = e.next
	} else {
		c.head = e.next
	}
	if e.next != none {
		c.entries[e.next].prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = none, none
}

// evictTail removes the tail entry from the index, the order list and the
// arena in one step.
func (c *OrderedCache) evictTail() {
	slot := c.tail
	key := c.entries[slot].key

	c.index.Remove(key)
	c.unlink(slot)
	c.entries[slot] = entry{prev: none, next: none}
	c.free = append(c.free, slot)
	c.size--
	c.stats.Evictions++

	if c.debug {
		c.logger.Debugw("Deleted entry due to capacity",
			"key", internal.DisplayKey(key),
			"policy", c.policy,
		)
	}
}
