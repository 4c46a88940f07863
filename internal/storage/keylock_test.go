package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerialisesSameKey(t *testing.T) {
	locks := newKeyLock()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("movie-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.size())
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	locks := newKeyLock()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()
	<-done

	assert.Equal(t, 1, locks.size())
	unlockA()
	assert.Equal(t, 0, locks.size())
}
