package accountlock

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameAccount(t *testing.T) {
	reg := New()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock(id)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestLockDoesNotBlockOtherAccounts(t *testing.T) {
	reg := New()
	a, b := uuid.New(), uuid.New()

	unlockA := reg.Lock(a)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := reg.Lock(b)
		unlockB()
		close(done)
	}()

	<-done
}

func TestLockEvictsIdleEntries(t *testing.T) {
	reg := New()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock(id)
			unlock()
		}()
	}
	wg.Wait()

	reg.mu.Lock()
	defer reg.mu.Unlock()
	assert.Empty(t, reg.locks)
}
