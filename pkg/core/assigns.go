package core

import (
	"maps"
	"reflect"
	"slices"
	"sync"
)

// Assigns holds the values a component renders from. Keys whose value
// differs from the previous Set are marked dirty until Flush, which lets
// the router skip renders when an event changed nothing.
//
// Stored values are compared with reflect.DeepEqual, so callers must not
// mutate a map or slice after handing it to Set.
type Assigns struct {
	mu      sync.RWMutex
	values  map[string]any
	dirty   map[string]struct{}
	flushes uint64
}

// NewAssigns creates an empty store.
func NewAssigns() *Assigns {
	return &Assigns{
		values: make(map[string]any),
		dirty:  make(map[string]struct{}),
	}
}

// Get returns the value for key, or nil.
func (a *Assigns) Get(key string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.values[key]
}

// GetString returns the value for key if it is a string.
func (a *Assigns) GetString(key string) string {
	s, _ := a.Get(key).(string)
	return s
}

// GetInt returns the value for key if it is an int.
func (a *Assigns) GetInt(key string) int {
	n, _ := a.Get(key).(int)
	return n
}

// Set stores value under key. The key becomes dirty only when the value
// differs from what was stored before.
func (a *Assigns) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if old, ok := a.values[key]; ok && reflect.DeepEqual(old, value) {
		return
	}
	a.values[key] = value
	a.dirty[key] = struct{}{}
}

// Changed reports whether any key is dirty.
func (a *Assigns) Changed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.dirty) > 0
}

// Flush returns the dirty keys in sorted order and marks them clean.
func (a *Assigns) Flush() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := slices.Sorted(maps.Keys(a.dirty))
	clear(a.dirty)
	a.flushes++
	return keys
}

// Flushes counts Flush calls, one per render.
func (a *Assigns) Flushes() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.flushes
}
