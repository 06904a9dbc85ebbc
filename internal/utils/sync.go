package utils

import (
	"sync"
)

// OptionalMutex is an exclusive, non-reentrant lock that can be compiled down to
// nothing for consumers that guarantee single-threaded access (for example,
// kernel contexts that run with interrupts disabled). Locking it again from a
// goroutine that already holds it deadlocks.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) TryLock() bool {
	if m.UseMutex {
		return m.Mutex.TryLock()
	}

	return true
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}
