package application

import (
	"slices"
	"sync"
)

// participantLocks hands out one mutex per username. Callers that need
// several users lock them in sorted order so two confirmations touching the
// same pair cannot deadlock.
type participantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newParticipantLocks() *participantLocks {
	return &participantLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *participantLocks) get(username string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[username]
	if !ok {
		m = &sync.Mutex{}
		p.locks[username] = m
	}
	return m
}

// lock acquires every named user's mutex and returns the matching unlock.
func (p *participantLocks) lock(usernames ...string) func() {
	names := slices.Clone(usernames)
	slices.Sort(names)
	names = slices.Compact(names)

	held := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		m := p.get(name)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
