package gate

import (
	"errors"
	"testing"
	"time"

	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSender collects sent moves.
type mockSender struct {
	sent []protocol.Move
	err  error
}

func (m *mockSender) send(mv protocol.Move) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mv)
	return nil
}

func newGate(t *testing.T) (*Gate, *clock.Mock, *mockSender) {
	t.Helper()
	clk := clock.NewMock()
	s := &mockSender{}
	logger, _ := test.NewNullLogger()
	return New(clk.Now, s.send, logger), clk, s
}

func TestDebounceAndLatch(t *testing.T) {
	g, clk, s := newGate(t)

	require.NoError(t, g.TrySubmit(protocol.Number(5)))
	clk.Add(100 * time.Millisecond)
	err := g.TrySubmit(protocol.Number(3))

	assert.ErrorIs(t, err, ErrMoveInProgress)
	assert.Equal(t, []protocol.Move{protocol.Number(5)}, s.sent)
	assert.True(t, g.InProgress())
}

func TestDebounceAfterRelease(t *testing.T) {
	g, clk, s := newGate(t)

	require.NoError(t, g.TrySubmit(protocol.Number(5)))
	g.Release("error")
	clk.Add(100 * time.Millisecond)
	assert.ErrorIs(t, g.TrySubmit(protocol.Number(3)), ErrDebounced)

	clk.Add(200 * time.Millisecond)
	require.NoError(t, g.TrySubmit(protocol.Number(3)))
	assert.Equal(t, []protocol.Move{protocol.Number(5), protocol.Number(3)}, s.sent)
}

func TestReleaseUnlatches(t *testing.T) {
	g, clk, _ := newGate(t)

	require.NoError(t, g.TrySubmit(protocol.Coord{X: 1, Y: 2}))
	g.Release("next_turn")
	assert.False(t, g.InProgress())

	// releasing twice is harmless
	g.Release("next_turn")
	clk.Add(Debounce)
	require.NoError(t, g.TrySubmit(protocol.Coord{X: 2, Y: 2}))
}

func TestSendFailureRollsBack(t *testing.T) {
	g, clk, s := newGate(t)
	s.err = errors.New("not connected")

	err := g.TrySubmit(protocol.Sign("rock"))
	require.Error(t, err)
	assert.ErrorIs(t, err, s.err)
	assert.False(t, g.InProgress())
	assert.True(t, g.LastSubmit().IsZero())

	// a failed send does not consume the debounce window
	s.err = nil
	clk.Add(10 * time.Millisecond)
	require.NoError(t, g.TrySubmit(protocol.Sign("rock")))
	assert.Equal(t, clk.Now(), g.LastSubmit())
}
