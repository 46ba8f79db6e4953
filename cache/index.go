package cache

import (
	"fmt"

	"github.com/k-sone/critbitgo"
)

// KeyIndex maps a normalized key to the arena handle of the entry holding it.
// It has no ordering semantics and never owns entries.
//
// Insert must only be called for keys that Lookup reports absent, and Remove
// only for keys that are present. Violations are programming errors.
type KeyIndex interface {
	Lookup(key string) (handle int, ok bool)
	Insert(key string, handle int)
	Remove(key string)
	Len() int
	Clear()
}

type mapIndex struct {
	handles map[string]int
}

// NewMapIndex returns a KeyIndex backed by a Go map.
func NewMapIndex() KeyIndex {
	return &mapIndex{handles: make(map[string]int)}
}

func (m *mapIndex) Lookup(key string) (int, bool) {
	h, ok := m.handles[key]
	return h, ok
}

func (m *mapIndex) Insert(key string, handle int) {
	if _, ok := m.handles[key]; ok {
		panic(fmt.Sprintf("cache: duplicate index insert for key %q", key))
	}
	m.handles[key] = handle
}

func (m *mapIndex) Remove(key string) {
	delete(m.handles, key)
}

func (m *mapIndex) Len() int {
	return len(m.handles)
}

func (m *mapIndex) Clear() {
	clear(m.handles)
}

// trieIndex keeps keys in a crit-bit tree. Lookups are O(key length), which
// is constant for fixed-width keys.
type trieIndex struct {
	trie *critbitgo.Trie
}

// NewTrieIndex returns a KeyIndex backed by a crit-bit tree.
func NewTrieIndex() KeyIndex {
	return &trieIndex{trie: critbitgo.NewTrie()}
}

func (t *trieIndex) Lookup(key string) (int, bool) {
	v, ok := t.trie.Get([]byte(key))
	if !ok {
		return 0, false
	}
	return v.(int), true
}

func (t *trieIndex) Insert(key string, handle int) {
	if !t.trie.Insert([]byte(key), handle) {
		panic(fmt.Sprintf("cache: duplicate index insert for key %q", key))
	}
}

func (t *trieIndex) Remove(key string) {
	t.trie.Delete([]byte(key))
}

func (t *trieIndex) Len() int {
	return t.trie.Size()
}

func (t *trieIndex) Clear() {
	t.trie.Clear()
}

// NewIndex returns the KeyIndex registered under name ("map" or "critbit").
func NewIndex(name string) (KeyIndex, error) {
	switch name {
	case "", "map":
		return NewMapIndex(), nil
	case "critbit":
		return NewTrieIndex(), nil
	}
	return nil, fmt.Errorf("cache: unknown index %q", name)
}
