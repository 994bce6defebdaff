package services

import (
	"fmt"
	"sync"
)

// pairLock serializes in-process writers contending on the same logical key,
// e.g. the (user, map) pair of a completion submission. Row locks inside the
// transaction cover cross-process writers; this covers dialects without
// SELECT ... FOR UPDATE, such as sqlite.
type pairLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPairLock() *pairLock {
	return &pairLock{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the key is held and returns the matching unlock func.
func (p *pairLock) Lock(key string) func() {
	p.mu.Lock()
	entry, ok := p.locks[key]
	if !ok {
		entry = &lockEntry{}
		p.locks[key] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		p.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func pairKey(userID, mapID uint64) string {
	return fmt.Sprintf("%d:%d", userID, mapID)
}
