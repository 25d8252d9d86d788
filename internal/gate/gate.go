// internal/gate/gate.go
package gate

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Debounce is the minimum gap between two accepted submissions.
const Debounce = 300 * time.Millisecond

var (
	ErrMoveInProgress = errors.New("move already in progress")
	ErrDebounced      = errors.New("move submitted too quickly")
)

// SendFunc hands an accepted move to the connection.
type SendFunc func(protocol.Move) error

// Gate allows at most one unconfirmed move at a time. It latches on a send
// and only the server's reply (turn advance, error, game end) releases it.
// Not safe for concurrent use; it runs on the session loop.
type Gate struct {
	now  func() time.Time
	send SendFunc
	log  logrus.FieldLogger

	inProgress bool
	last       time.Time
}

func New(now func() time.Time, send SendFunc, log logrus.FieldLogger) *Gate {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gate{now: now, send: send, log: log}
}

func (g *Gate) InProgress() bool { return g.inProgress }

// LastSubmit is the time of the last accepted submission, zero if none.
func (g *Gate) LastSubmit() time.Time { return g.last }

// TrySubmit latches the gate and sends m. Rejected submissions have no effect.
// When the send itself fails the gate is restored to its previous state.
func (g *Gate) TrySubmit(m protocol.Move) error {
	if g.inProgress {
		g.log.Debugf("Rejecting move %s: waiting for server", m)
		return ErrMoveInProgress
	}
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < Debounce {
		g.log.Debugf("Rejecting move %s: %s since last move", m, now.Sub(g.last))
		return ErrDebounced
	}

	prev := g.last
	g.inProgress = true
	g.last = now
	if err := g.send(m); err != nil {
		g.inProgress = false
		g.last = prev
		return fmt.Errorf("send move %s: %w", m, err)
	}
	return nil
}

// Release clears the latch. reason is for the log only.
func (g *Gate) Release(reason string) {
	if !g.inProgress {
		return
	}
	g.inProgress = false
	g.log.Debugf("Move lock released (%s)", reason)
}
