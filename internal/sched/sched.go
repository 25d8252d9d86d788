// internal/sched/sched.go
package sched

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler hands out named, cancellable timer tasks. All callbacks run on the
// goroutine that owns the session, never concurrently with each other.
type Scheduler interface {
	Now() time.Time
	AfterFunc(name string, d time.Duration, fn func()) *Task
}

// Task is a handle to one scheduled callback.
type Task struct {
	name     string
	stop     func() bool
	canceled bool
	fired    bool
}

// Name returns the name the task was scheduled under (e.g. "reconnect", "pace").
func (t *Task) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Stop cancels the task. A stopped task never runs, even when its timer has
// already fired and the callback is waiting in the loop inbox.
// Must be called from the owning goroutine. Safe on a nil task.
func (t *Task) Stop() bool {
	if t == nil || t.canceled || t.fired {
		return false
	}
	t.canceled = true
	if t.stop != nil {
		t.stop()
	}
	return true
}

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool {
	return t != nil && !t.canceled && !t.fired
}

func (t *Task) run(fn func()) {
	if t.canceled || t.fired {
		return
	}
	t.fired = true
	fn()
}

// Loop is the production scheduler. Timers run on the clock's goroutines and
// only post the callback; post must deliver it to the session loop.
type Loop struct {
	clock clock.Clock
	post  func(func())
}

// NewLoop builds a scheduler on top of clk. A nil clk means the wall clock.
func NewLoop(clk clock.Clock, post func(func())) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{clock: clk, post: post}
}

func (l *Loop) Now() time.Time { return l.clock.Now() }

func (l *Loop) AfterFunc(name string, d time.Duration, fn func()) *Task {
	t := &Task{name: name}
	timer := l.clock.AfterFunc(d, func() {
		l.post(func() { t.run(fn) })
	})
	t.stop = timer.Stop
	return t
}
