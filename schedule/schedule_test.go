package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryFires(t *testing.T) {
	var n atomic.Int32
	task := Every(time.Millisecond, func() bool {
		n.Add(1)
		return true
	})
	deadline := time.After(2 * time.Second)
	for n.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 fires, got %d", n.Load())
		case <-time.After(time.Millisecond):
		}
	}
	task.Stop()
}

func TestStopWaitsForInflightFire(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	var once atomic.Bool

	task := Every(time.Millisecond, func() bool {
		if once.CompareAndSwap(false, true) {
			close(entered)
			<-release
			finished.Store(true)
		}
		return true
	})
	<-entered

	stopped := make(chan struct{})
	go func() {
		task.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while fn was still running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-stopped
	if !finished.Load() {
		t.Error("fn did not finish before Stop returned")
	}
}

func TestNoFireAfterStop(t *testing.T) {
	var n atomic.Int32
	task := Every(time.Millisecond, func() bool {
		n.Add(1)
		return true
	})
	time.Sleep(5 * time.Millisecond)
	task.Stop()
	after := n.Load()
	time.Sleep(10 * time.Millisecond)
	if got := n.Load(); got != after {
		t.Errorf("fn ran %d times after Stop", got-after)
	}
}

func TestStopIdempotent(t *testing.T) {
	task := Every(time.Hour, func() bool { return true })
	task.Stop()
	task.Stop()

	var nilTask *Task
	nilTask.Stop()
}

func TestReturnFalseEndsTask(t *testing.T) {
	task := Every(time.Millisecond, func() bool { return false })
	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not end after fn returned false")
	}
	task.Stop()
}
