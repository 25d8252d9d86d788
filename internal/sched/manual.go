package sched

import (
	"sort"
	"time"

	"github.com/benbjohnson/clock"
)

type manualEntry struct {
	task *Task
	at   time.Time
	seq  int
	fn   func()
}

// Manual is a deterministic scheduler for tests. Time only moves in Advance,
// and due callbacks run synchronously on the caller's goroutine.
type Manual struct {
	clock *clock.Mock
	seq   int
	queue []*manualEntry
}

// NewManual returns a Manual scheduler starting at the mock clock's epoch.
func NewManual() *Manual {
	return &Manual{clock: clock.NewMock()}
}

// Clock exposes the underlying mock clock.
func (m *Manual) Clock() *clock.Mock { return m.clock }

func (m *Manual) Now() time.Time { return m.clock.Now() }

func (m *Manual) AfterFunc(name string, d time.Duration, fn func()) *Task {
	t := &Task{name: name}
	m.seq++
	m.queue = append(m.queue, &manualEntry{
		task: t,
		at:   m.clock.Now().Add(d),
		seq:  m.seq,
		fn:   fn,
	})
	return t
}

// Advance moves time forward by d and runs every task that falls due, in
// deadline order. Tasks scheduled by a running task run too when they fall
// inside the window.
func (m *Manual) Advance(d time.Duration) {
	target := m.clock.Now().Add(d)
	for {
		e := m.next(target)
		if e == nil {
			break
		}
		if gap := e.at.Sub(m.clock.Now()); gap > 0 {
			m.clock.Add(gap)
		}
		e.task.run(e.fn)
	}
	if gap := target.Sub(m.clock.Now()); gap > 0 {
		m.clock.Add(gap)
	}
}

// Pending returns the names of live tasks ordered by deadline.
func (m *Manual) Pending() []string {
	m.prune()
	live := make([]*manualEntry, len(m.queue))
	copy(live, m.queue)
	sort.SliceStable(live, func(i, j int) bool { return less(live[i], live[j]) })
	names := make([]string, 0, len(live))
	for _, e := range live {
		names = append(names, e.task.name)
	}
	return names
}

func (m *Manual) next(target time.Time) *manualEntry {
	m.prune()
	var best *manualEntry
	bestIdx := -1
	for i, e := range m.queue {
		if e.at.After(target) {
			continue
		}
		if best == nil || less(e, best) {
			best, bestIdx = e, i
		}
	}
	if best != nil {
		m.queue = append(m.queue[:bestIdx], m.queue[bestIdx+1:]...)
	}
	return best
}

func (m *Manual) prune() {
	kept := m.queue[:0]
	for _, e := range m.queue {
		if e.task.Pending() {
			kept = append(kept, e)
		}
	}
	m.queue = kept
}

func less(a, b *manualEntry) bool {
	if a.at.Equal(b.at) {
		return a.seq < b.seq
	}
	return a.at.Before(b.at)
}
