package chat

import (
	"context"
	"sync"
	"testing"
)

func TestLocalLocker_SerializesSameSession(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "s1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		u, err := l.Lock(context.Background(), "s1")
		if err == nil {
			u()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second lock acquired while first still held")
	default:
	}

	unlock()
	<-acquired
}

func TestLocalLocker_IndependentSessions(t *testing.T) {
	l := NewLocalLocker()

	u1, err := l.Lock(context.Background(), "s1")
	if err != nil {
		t.Fatalf("lock s1: %v", err)
	}
	defer u1()

	// A different session must not block.
	u2, err := l.Lock(context.Background(), "s2")
	if err != nil {
		t.Fatalf("lock s2: %v", err)
	}
	u2()
}

func TestLocalLocker_ConcurrentCounter(t *testing.T) {
	l := NewLocalLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "shared")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
}
