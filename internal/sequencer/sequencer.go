// internal/sequencer/sequencer.go
package sequencer

import (
	"math"
	"time"

	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/sched"
	"github.com/sirupsen/logrus"
)

// State of the playback machine.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

const (
	// MinPace is the shortest gap between two events of a batch.
	MinPace        = 200 * time.Millisecond
	ExplosionDwell = 2 * time.Second
	SpreadDwell    = 1500 * time.Millisecond
)

// Display is the animation currently on screen. Index is the position in its
// batch, or -1 for a standalone event.
type Display struct {
	Event protocol.AnimationEvent
	Index int
}

// Hooks are called synchronously from Sequencer methods and tasks.
type Hooks struct {
	// Idle fires when a batch finishes playing on its own.
	Idle func()
	// Change fires whenever the displayed event changes or is cleared.
	Change func()
}

// Sequencer replays a batch of animation events one at a time, paced by their
// server timestamps. Not safe for concurrent use; it runs on the session loop.
type Sequencer struct {
	sched sched.Scheduler
	log   logrus.FieldLogger
	hooks Hooks

	state   State
	pending []protocol.AnimationEvent
	index   int
	pace    *sched.Task

	current *Display
	token   uint64
}

func New(s sched.Scheduler, log logrus.FieldLogger, hooks Hooks) *Sequencer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sequencer{sched: s, log: log, hooks: hooks}
}

func (s *Sequencer) State() State  { return s.state }
func (s *Sequencer) Playing() bool { return s.state == Playing }
func (s *Sequencer) Pending() int  { return len(s.pending) }

// Current returns a copy of the displayed event, or nil.
func (s *Sequencer) Current() *Display {
	if s.current == nil {
		return nil
	}
	d := *s.current
	return &d
}

// Enqueue replaces the pending queue with batch. When idle, playback starts
// immediately; while playing, the running pace task picks up the new queue.
func (s *Sequencer) Enqueue(batch []protocol.AnimationEvent) {
	if len(batch) == 0 {
		return
	}
	s.pending = append([]protocol.AnimationEvent(nil), batch...)
	s.index = 0
	if s.state == Playing {
		s.log.Debugf("Replacing animation queue while playing (%d events)", len(batch))
		return
	}
	s.state = Playing
	s.drainNext()
}

// Cancel drops the queue and stops pacing. The display is left alone; dwell
// tasks still clear it when they fire.
func (s *Sequencer) Cancel() {
	s.pending = nil
	s.pace.Stop()
	s.pace = nil
	s.state = Idle
	s.index = 0
}

// Reset is Cancel plus clearing the display.
func (s *Sequencer) Reset() {
	s.Cancel()
	s.ClearDisplay()
}

// Show displays a standalone event outside of any batch.
func (s *Sequencer) Show(ev protocol.AnimationEvent) {
	s.show(ev, -1)
}

func (s *Sequencer) ClearDisplay() {
	if s.current == nil {
		return
	}
	s.current = nil
	s.changed()
}

func (s *Sequencer) advance() {
	s.pace = nil
	if len(s.pending) > 0 {
		s.drainNext()
		return
	}
	s.ClearDisplay()
	s.state = Idle
	s.index = 0
	if s.hooks.Idle != nil {
		s.hooks.Idle()
	}
}

func (s *Sequencer) drainNext() {
	ev := s.pending[0]
	s.pending = s.pending[1:]
	s.show(ev, s.index)
	s.index++

	delay := tail(ev)
	if len(s.pending) > 0 {
		delay = Pace(ev, s.pending[0])
	}
	s.pace = s.sched.AfterFunc("pace", delay, s.advance)
}

func (s *Sequencer) show(ev protocol.AnimationEvent, index int) {
	s.token++
	tok := s.token
	s.current = &Display{Event: ev, Index: index}
	s.changed()

	if d := dwell(ev); d > 0 {
		s.sched.AfterFunc("dwell", d, func() {
			// only clear if nothing replaced it meanwhile
			if s.current != nil && s.token == tok {
				s.ClearDisplay()
			}
		})
	}
}

func (s *Sequencer) changed() {
	if s.hooks.Change != nil {
		s.hooks.Change()
	}
}

// Pace is the delay between showing cur and showing next: the server time gap,
// in whole milliseconds, floored at MinPace. A missing timestamp counts as zero.
func Pace(cur, next protocol.AnimationEvent) time.Duration {
	ct, _ := cur.Time()
	nt, _ := next.Time()
	d := time.Duration(math.Round((nt-ct)*1000)) * time.Millisecond
	if d < MinPace {
		return MinPace
	}
	return d
}

func dwell(ev protocol.AnimationEvent) time.Duration {
	switch ev.Kind() {
	case protocol.KindExplosion:
		return ExplosionDwell
	case protocol.KindSpread:
		return SpreadDwell
	default:
		return 0
	}
}

// tail is how long the last event of a batch stays up before playback ends.
func tail(ev protocol.AnimationEvent) time.Duration {
	if d := dwell(ev); d > 0 {
		return d
	}
	return MinPace
}
