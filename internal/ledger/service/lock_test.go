package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()

	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(context.Background(), "acct-1")
			if err != nil {
				t.Error(err)
				return
			}
			counter++
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := NewKeyedMutex()

	releaseA, err := locks.Acquire(context.Background(), "acct-a")
	if err != nil {
		t.Fatal(err)
	}
	defer releaseA()

	// A different key must not block behind acct-a.
	done := make(chan struct{})
	go func() {
		releaseB, err := locks.Acquire(context.Background(), "acct-b")
		if err != nil {
			t.Error(err)
			return
		}
		releaseB()
		close(done)
	}()

	<-done
}

func TestKeyedMutexReleasesEntry(t *testing.T) {
	locks := NewKeyedMutex()

	release, err := locks.Acquire(context.Background(), "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	release()

	km, ok := locks.(*keyedMutex)
	if !ok {
		t.Fatalf("unexpected locker type %T", locks)
	}
	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}
