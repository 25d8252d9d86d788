package sequencer

import (
	"testing"
	"time"

	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/sched"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	seq   *Sequencer
	shown []protocol.AnimationEvent // nil entries are clears
	idle  int
}

func newRecorder(t *testing.T, s sched.Scheduler) *recorder {
	t.Helper()
	logger, _ := test.NewNullLogger()
	r := &recorder{}
	r.seq = New(s, logger, Hooks{
		Idle: func() { r.idle++ },
		Change: func() {
			if d := r.seq.Current(); d != nil {
				r.shown = append(r.shown, d.Event)
				return
			}
			r.shown = append(r.shown, nil)
		},
	})
	return r
}

func current(t *testing.T, s *Sequencer) protocol.AnimationEvent {
	t.Helper()
	d := s.Current()
	if d == nil {
		return nil
	}
	return d.Event
}

func TestBatchPlaysInOrderOneAtATime(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	e1 := protocol.Explosion{X: 1, Y: 1, Color: "red", ServerTime: protocol.Seconds(0)}
	e2 := protocol.Spread{FromX: 1, FromY: 1, ToX: 2, ToY: 1, Color: "red", ServerTime: protocol.Seconds(0.05)}
	e3 := protocol.Explosion{X: 2, Y: 1, Color: "red", ServerTime: protocol.Seconds(0.5)}
	r.seq.Enqueue([]protocol.AnimationEvent{e1, e2, e3})

	require.True(t, r.seq.Playing())
	assert.Equal(t, e1, current(t, r.seq))
	assert.Equal(t, 0, r.seq.Current().Index)

	// 0.05 s gap is under the floor
	m.Advance(199 * time.Millisecond)
	assert.Equal(t, e1, current(t, r.seq))
	m.Advance(time.Millisecond)
	assert.Equal(t, e2, current(t, r.seq))

	// 0.45 s gap from e2 to e3
	m.Advance(449 * time.Millisecond)
	assert.Equal(t, e2, current(t, r.seq))
	m.Advance(time.Millisecond)
	assert.Equal(t, e3, current(t, r.seq))
	assert.Equal(t, 2, r.seq.Current().Index)

	// e3 stays for its dwell, then playback ends
	m.Advance(ExplosionDwell - time.Millisecond)
	assert.True(t, r.seq.Playing())
	assert.Equal(t, 0, r.idle)
	m.Advance(time.Millisecond)
	assert.False(t, r.seq.Playing())
	assert.Nil(t, r.seq.Current())
	assert.Equal(t, 1, r.idle)

	assert.Equal(t, []protocol.AnimationEvent{e1, e2, e3, nil}, r.shown,
		"every change replaces the single displayed event")
	assert.Empty(t, m.Pending())
}

func TestPacingFloor(t *testing.T) {
	a := protocol.Explosion{ServerTime: protocol.Seconds(0.0)}
	b := protocol.Explosion{ServerTime: protocol.Seconds(0.05)}
	assert.Equal(t, MinPace, Pace(a, b))
	assert.Equal(t, MinPace, Pace(b, a), "negative gaps are floored")

	c := protocol.Spread{ServerTime: protocol.Seconds(0.75)}
	assert.Equal(t, 700*time.Millisecond, Pace(b, c))

	// missing timestamps count as zero
	assert.Equal(t, MinPace, Pace(protocol.AddBall{}, protocol.Explosion{}))
	assert.Equal(t, time.Second, Pace(protocol.AddBall{}, protocol.Explosion{ServerTime: protocol.Seconds(1)}))
}

func TestLastAddBallUsesFloor(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	r.seq.Enqueue([]protocol.AnimationEvent{protocol.AddBall{X: 3, Y: 4, Color: "blue"}})
	assert.Equal(t, []string{"pace"}, m.Pending())

	m.Advance(MinPace)
	assert.Equal(t, Idle, r.seq.State())
	assert.Equal(t, 1, r.idle)
	assert.Nil(t, r.seq.Current())
}

func TestSpreadDwellClearsOnlyItsOwnDisplay(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	s1 := protocol.Spread{FromX: 0, FromY: 0, ToX: 1, ToY: 0}
	r.seq.Show(s1)
	assert.Equal(t, -1, r.seq.Current().Index)

	m.Advance(time.Second)
	x := protocol.Explosion{X: 5, Y: 5}
	r.seq.Show(x)

	// s1's dwell fires here but x is on screen
	m.Advance(500 * time.Millisecond)
	assert.Equal(t, x, current(t, r.seq))

	m.Advance(1500 * time.Millisecond)
	assert.Nil(t, r.seq.Current())
	assert.Equal(t, 0, r.idle, "standalone events do not fire the idle hook")
}

func TestCancelStopsPlaybackKeepsDisplay(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	e1 := protocol.Spread{ServerTime: protocol.Seconds(0)}
	e2 := protocol.Explosion{ServerTime: protocol.Seconds(1)}
	r.seq.Enqueue([]protocol.AnimationEvent{e1, e2})

	r.seq.Cancel()
	assert.Equal(t, Idle, r.seq.State())
	assert.Equal(t, 0, r.seq.Pending())
	assert.Equal(t, e1, current(t, r.seq))

	m.Advance(5 * time.Second)
	assert.Nil(t, r.seq.Current(), "dwell clears the leftover display")
	assert.Equal(t, []protocol.AnimationEvent{e1, nil}, r.shown)
	assert.Equal(t, 0, r.idle)
}

func TestResetClearsDisplay(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	r.seq.Enqueue([]protocol.AnimationEvent{protocol.Explosion{}, protocol.Explosion{}})
	r.seq.Reset()
	assert.Nil(t, r.seq.Current())
	assert.False(t, r.seq.Playing())

	m.Advance(5 * time.Second)
	assert.Equal(t, 0, r.idle)
	assert.Len(t, r.shown, 2)
}

func TestEnqueueWhilePlayingReplacesQueue(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	a := protocol.AddBall{X: 0, Y: 0}
	old := protocol.Explosion{X: 9, Y: 9}
	r.seq.Enqueue([]protocol.AnimationEvent{a, old})

	fresh := protocol.Spread{ToX: 7}
	r.seq.Enqueue([]protocol.AnimationEvent{fresh})
	assert.Equal(t, a, current(t, r.seq), "the running event is not interrupted")

	m.Advance(MinPace)
	assert.Equal(t, fresh, current(t, r.seq))
	assert.Equal(t, 0, r.seq.Current().Index, "index restarts with the new batch")

	m.Advance(SpreadDwell)
	assert.Equal(t, Idle, r.seq.State())
	assert.Equal(t, 1, r.idle)
	assert.NotContains(t, r.shown, protocol.AnimationEvent(old))
}

func TestEnqueueEmptyBatchIsNoop(t *testing.T) {
	m := sched.NewManual()
	r := newRecorder(t, m)

	r.seq.Enqueue(nil)
	assert.Equal(t, Idle, r.seq.State())
	assert.Empty(t, m.Pending())
	assert.Equal(t, "idle", r.seq.State().String())
}
