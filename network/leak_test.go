package network

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

// TestMain ensures no goroutine leaks across all tests in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestSerialQueue_Close_NoGoroutineLeak verifies the worker goroutine exits
// once the queue is closed.
func TestSerialQueue_Close_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	for i := 0; i < 20; i++ {
		q := NewSerialQueue()
		q.Submit(func() {})
		q.Close()
	}

	time.Sleep(20 * time.Millisecond)
}

// TestSerialQueue_CloseDrains_NoLeak verifies accepted work still runs when
// Close races with submission.
func TestSerialQueue_CloseDrains_NoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewSerialQueue()
	count := 0
	var done []<-chan struct{}
	for i := 0; i < 50; i++ {
		done = append(done, q.Submit(func() { count++ }))
	}
	q.Close()

	for _, d := range done {
		select {
		case <-d:
		case <-time.After(time.Second):
			t.Fatal("accepted work dropped by Close")
		}
	}
	if count != 50 {
		t.Errorf("ran %d of 50 accepted tasks", count)
	}
}
