package service

import "sync"

// channelLocks serializes work on one ticket channel within this process.
// Entries are dropped once no caller holds or waits on them.
type channelLocks struct {
	mu    sync.Mutex
	locks map[string]*channelLock
}

type channelLock struct {
	sync.Mutex
	refs int
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[string]*channelLock)}
}

// lock blocks until channelID is free and returns the matching unlock.
func (l *channelLocks) lock(channelID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[channelID]
	if !ok {
		entry = &channelLock{}
		l.locks[channelID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, channelID)
		}
		l.mu.Unlock()
	}
}

// holders counts the callers holding or waiting on channelID.
func (l *channelLocks) holders(channelID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.locks[channelID]; ok {
		return entry.refs
	}
	return 0
}
