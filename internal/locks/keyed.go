// Package locks provides in-process serialization keyed by entity id.
// Mutations to one ticket or one agent take its key; operations on
// different entities proceed in parallel.
package locks

import "sync"

// KeyedMutex hands out one mutex per key.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty registry.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyedMutex) Lock(key string) {
	k.mutexFor(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyedMutex) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

func (k *KeyedMutex) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &sync.Mutex{}
		k.entries[key] = entry
	}
	return entry
}
