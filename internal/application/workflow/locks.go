package workflow

import "sync"

// referralLocks serializes work per referral ID
type referralLocks struct {
	mu    sync.Mutex
	locks map[int64]*referralLock
}

type referralLock struct {
	mu      sync.Mutex
	holders int
}

func newReferralLocks() *referralLocks {
	return &referralLocks{locks: make(map[int64]*referralLock)}
}

// Lock blocks until the referral is free and returns its unlock function
func (l *referralLocks) Lock(id int64) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &referralLock{}
		l.locks[id] = lk
	}
	lk.holders++
	l.mu.Unlock()

	lk.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lk.mu.Unlock()

			l.mu.Lock()
			lk.holders--
			if lk.holders == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// size returns the number of referrals currently locked or waited on
func (l *referralLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
