package sessions

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	unlock := k.Lock(1)
	acquired := make(chan struct{})
	go func() {
		u := k.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock on the same key must wait")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()

	unlock1 := k.Lock(1)
	defer unlock1()

	done := make(chan struct{})
	go func() {
		k.Lock(2)()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different keys must not block each other")
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := NewKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()
			k.Lock(key % 5)()
		}(int64(i))
	}
	wg.Wait()

	if n := k.size(); n != 0 {
		t.Errorf("size() = %d after all unlocks, want 0", n)
	}
}

func TestWithoutParticipantRemovesFirstMatchOnly(t *testing.T) {
	got := withoutParticipant([]int64{3, 7, 3}, 3)
	if len(got) != 2 || got[0] != 7 || got[1] != 3 {
		t.Errorf("withoutParticipant() = %v", got)
	}
}
