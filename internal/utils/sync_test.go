package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptionalMutexExcludes(t *testing.T) {
	m := OptionalMutex{UseMutex: true}
	m.Lock()

	// the lock is not reentrant: a holder that tries again does not get it
	require.False(t, m.TryLock())

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		m.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("a second locker acquired the mutex while it was held")
	case <-time.After(10 * time.Millisecond):
	}

	m.Unlock()
	<-acquired

	require.True(t, m.TryLock())
	m.Unlock()
}

func TestOptionalMutexDisabled(t *testing.T) {
	m := OptionalMutex{UseMutex: false}

	// with the mutex compiled out every acquisition succeeds immediately
	m.Lock()
	require.True(t, m.TryLock())
	m.Unlock()
}
