package core

import "sync"

// taskLocks serialises dispatches per task. Entries are dropped once no
// goroutine holds or waits for them.
type taskLocks struct {
	mu    sync.Mutex
	locks map[string]*taskLock
}

type taskLock struct {
	mu   sync.Mutex
	refs int
}

func newTaskLocks() *taskLocks {
	return &taskLocks{locks: make(map[string]*taskLock)}
}

func (l *taskLocks) lock(workflowID, taskID string) func() {
	key := workflowID + "/" + taskID

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &taskLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *taskLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
