// Package schedule runs periodic work on a dedicated goroutine.
//
// A Task replaces bare timers: Stop cancels the ticker and blocks until any
// fire already in progress has returned, so callers can release resources
// right after Stop without racing a late callback.
package schedule

import (
	"sync"
	"time"
)

type Task struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Every calls fn once per interval until fn returns false or Stop is called.
// fn must not call Stop on its own task; returning false ends it instead.
func Every(interval time.Duration, fn func() bool) *Task {
	t := &Task{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(interval, fn)
	return t
}

func (t *Task) run(interval time.Duration, fn func() bool) {
	defer close(t.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			// A tick and a stop can be ready together; stop wins.
			select {
			case <-t.stop:
				return
			default:
			}
			if !fn() {
				return
			}
		}
	}
}

// Stop is idempotent and safe on a nil Task.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

// Done closes when the task goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }
