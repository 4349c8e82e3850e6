// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package memory provides in-process repositories for every aggregate.
//
// Each repository is backed by a Table: a key-value store where a key has at
// most one writer. Insert refuses an existing key and Update refuses a
// missing one, so two concurrent creates of the same id cannot both succeed.
package memory

import (
	"sort"
	"sync"
)

// Table is a concurrency-safe key-value store with insert/update semantics.
type Table[K comparable, V any] struct {
	mu   sync.RWMutex
	rows map[K]V
}

// NewTable creates an empty table.
func NewTable[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{rows: make(map[K]V)}
}

// Insert stores v under k. It returns false when k already exists.
func (t *Table[K, V]) Insert(k K, v V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[k]; exists {
		return false
	}
	t.rows[k] = v
	return true
}

// Update replaces the value under k. It returns false when k does not exist.
func (t *Table[K, V]) Update(k K, v V) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[k]; !exists {
		return false
	}
	t.rows[k] = v
	return true
}

// Get returns the value under k.
func (t *Table[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[k]
	return v, ok
}

// Contains reports whether k exists.
func (t *Table[K, V]) Contains(k K) bool {
	_, ok := t.Get(k)
	return ok
}

// Delete removes k. It returns false when k does not exist.
func (t *Table[K, V]) Delete(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[k]; !exists {
		return false
	}
	delete(t.rows, k)
	return true
}

// Filter returns the values matching keep, ordered by less.
func (t *Table[K, V]) Filter(keep func(V) bool, less func(a, b V) bool) []V {
	t.mu.RLock()
	out := make([]V, 0)
	for _, v := range t.rows {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	t.mu.RUnlock()

	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Len returns the number of rows.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
