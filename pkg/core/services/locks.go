package services

import "sync"

// trainingLocks is a mutex per training id. Entries are dropped once nobody
// holds or waits for them.
type trainingLocks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTrainingLocks() *trainingLocks {
	return &trainingLocks{entries: make(map[int64]*lockEntry)}
}

// lock blocks until the training's mutex is held and returns its release func
func (l *trainingLocks) lock(trainingID int64) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.entries[trainingID]
	if !ok {
		entry = &lockEntry{}
		l.entries[trainingID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, trainingID)
		}
		l.mu.Unlock()
	}
}

// size reports how many trainings currently have an entry
func (l *trainingLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
