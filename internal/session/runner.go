// internal/session/runner.go
package session

import (
	"context"
	"errors"
	"time"

	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/sched"
	"github.com/benbjohnson/clock"
)

var ErrStopped = errors.New("session stopped")

const (
	inboxSize = 256
	// drainTimeout bounds how long Run waits for queued frames such as
	// exit_game to reach the server.
	drainTimeout = 2 * time.Second
)

// Runner owns a Session and the goroutine it runs on. Network reads, timers
// and caller requests all become closures in one inbox, executed in order, so
// the Session itself needs no locks.
type Runner struct {
	sess  *Session
	inbox chan func()
	done  chan struct{}
}

// NewRunner builds a Session whose scheduler and post func feed the runner's
// inbox. clk may be nil for the wall clock.
func NewRunner(opts Options, clk clock.Clock) (*Runner, error) {
	r := &Runner{
		inbox: make(chan func(), inboxSize),
		done:  make(chan struct{}),
	}
	opts.Post = r.post
	if opts.Scheduler == nil {
		opts.Scheduler = sched.NewLoop(clk, r.post)
	}
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	r.sess = s
	return r, nil
}

// Run connects and then processes the inbox until ctx is done. The
// connection is flushed and closed before Run returns; the room is not left on
// the server unless Exit was called.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	if err := r.sess.Connect(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			r.sess.shutdown("client shutdown")
			if !r.sess.conn.Drain(drainTimeout) {
				r.sess.log.Warn("Connection did not close cleanly")
			}
			return ctx.Err()
		case fn := <-r.inbox:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) post(fn func()) {
	select {
	case r.inbox <- fn:
	case <-r.done:
	}
}

// call runs fn on the loop and waits for it.
func (r *Runner) call(fn func()) error {
	reply := make(chan struct{})
	select {
	case r.inbox <- func() { fn(); close(reply) }:
	case <-r.done:
		return ErrStopped
	}
	select {
	case <-reply:
		return nil
	case <-r.done:
		return ErrStopped
	}
}

func (r *Runner) callErr(fn func() error) error {
	var err error
	if stopped := r.call(func() { err = fn() }); stopped != nil {
		return stopped
	}
	return err
}

func (r *Runner) SubmitMove(m protocol.Move) error {
	return r.callErr(func() error { return r.sess.SubmitMove(m) })
}

func (r *Runner) StartGame() error   { return r.callErr(r.sess.StartGame) }
func (r *Runner) RestartGame() error { return r.callErr(r.sess.RestartGame) }
func (r *Runner) Exit() error        { return r.callErr(r.sess.Exit) }

// Snapshot returns the current View.
func (r *Runner) Snapshot() (View, error) {
	var v View
	err := r.call(func() { v = r.sess.View() })
	return v, err
}
