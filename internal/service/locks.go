package service

import "sync"

// roomLocks 为每个房间提供一把互斥锁，同一房间的变更串行执行，不同房间互不阻塞。
// 没有持有者时锁会被回收。
type roomLocks struct {
	mu    sync.Mutex
	locks map[uint]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[uint]*roomLock)}
}

func (l *roomLocks) lock(roomID uint) func() {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
