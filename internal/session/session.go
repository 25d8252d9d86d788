// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/abhijit77github/turn-game/internal/conn"
	"github.com/abhijit77github/turn-game/internal/gate"
	"github.com/abhijit77github/turn-game/internal/journal"
	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/sched"
	"github.com/abhijit77github/turn-game/internal/sequencer"
	"github.com/abhijit77github/turn-game/internal/transport"
	"github.com/abhijit77github/turn-game/internal/turnclock"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrBadRoomCode    = errors.New("room code must be 6 letters or digits")
	ErrNoUsername     = errors.New("username is required")
	ErrNoRoom         = errors.New("no active room")
	ErrNotConnected   = conn.ErrNotConnected
	ErrGameNotStarted = errors.New("game not started")
	ErrGameStarted    = errors.New("game already started")
	ErrNotCreator     = errors.New("only the room creator can do that")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrMoveInProgress = gate.ErrMoveInProgress
	ErrDebounced      = gate.ErrDebounced
)

var roomCodeRE = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NormalizeRoomCode upper-cases code and checks its shape.
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !roomCodeRE.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrBadRoomCode, code)
	}
	return code, nil
}

type Options struct {
	RoomCode  string
	Username  string
	ServerURL string
	Dialer    transport.Dialer

	// Scheduler and Post tie the session to the goroutine that owns it. A
	// Runner fills both in.
	Scheduler sched.Scheduler
	Post      func(func())

	Logger logrus.FieldLogger
	// Journal receives every inbound frame when set.
	Journal *journal.Async
	// OnChange is called on the loop goroutine after every state change.
	OnChange func(View)
}

// Session is one client's view of one match. It is not safe for concurrent
// use: every method must run on the goroutine that owns it (see Runner).
type Session struct {
	id   uuid.UUID
	log  *logrus.Entry
	opts Options

	state State
	conn  *conn.Manager
	seq   *sequencer.Sequencer
	gate  *gate.Gate
	clock *turnclock.Clock

	frames  int
	dropped int
}

func New(opts Options) (*Session, error) {
	room, err := NormalizeRoomCode(opts.RoomCode)
	if err != nil {
		return nil, err
	}
	user := strings.TrimSpace(opts.Username)
	if user == "" {
		return nil, ErrNoUsername
	}
	if opts.Scheduler == nil || opts.Post == nil {
		return nil, errors.New("session needs a scheduler and a post func")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	id := uuid.New()
	s := &Session{
		id:   id,
		opts: opts,
		log: opts.Logger.WithFields(logrus.Fields{
			"session": id.String(),
			"room":    room,
			"user":    user,
		}),
		state: State{RoomCode: room, Username: user},
	}

	s.conn = conn.NewManager(conn.Options{
		ServerURL: opts.ServerURL,
		Dialer:    opts.Dialer,
		Scheduler: opts.Scheduler,
		Post:      opts.Post,
		Logger:    s.log,
		Handlers: conn.Handlers{
			OnState:   func(conn.State) { s.changed() },
			OnMessage: s.handleFrame,
			OnError:   s.onConnError,
			OnClose:   s.onConnClose,
		},
	})
	s.seq = sequencer.New(opts.Scheduler, s.log, sequencer.Hooks{
		Idle:   s.onAnimationIdle,
		Change: s.changed,
	})
	s.gate = gate.New(opts.Scheduler.Now, s.sendMove, s.log)
	s.clock = turnclock.New(opts.Scheduler, func(int) { s.changed() })
	return s, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

// Connect opens the room connection. Reconnection after abnormal closes is
// automatic until Exit.
func (s *Session) Connect() error {
	if s.state.RoomCode == "" {
		return ErrNoRoom
	}
	s.log.Infof("Connecting to room %s as %s", s.state.RoomCode, s.state.Username)
	s.conn.Connect(s.state.RoomCode, s.state.Username)
	return nil
}

// SubmitMove validates m against the current turn and sends it through the
// move gate.
func (s *Session) SubmitMove(m protocol.Move) error {
	if err := s.ready(); err != nil {
		return err
	}
	st := &s.state
	if !st.GameStarted || st.GameEnded {
		return ErrGameNotStarted
	}
	if st.CurrentPlayer != st.Username {
		return fmt.Errorf("%w: waiting for %s", ErrNotYourTurn, st.CurrentPlayer)
	}
	if err := s.checkLegal(m); err != nil {
		return err
	}
	err := s.gate.TrySubmit(m)
	s.changed()
	return err
}

// StartGame asks the server to start the match. Only the creator may.
func (s *Session) StartGame() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.state.Creator != "" && s.state.Creator != s.state.Username {
		return ErrNotCreator
	}
	if s.state.GameStarted && !s.state.GameEnded {
		return ErrGameStarted
	}
	return s.send(protocol.StartGame())
}

// RestartGame asks the server for a rematch with the same players.
func (s *Session) RestartGame() error {
	if err := s.ready(); err != nil {
		return err
	}
	if s.state.Creator != "" && s.state.Creator != s.state.Username {
		return ErrNotCreator
	}
	return s.send(protocol.RestartGame())
}

// Exit leaves the room: exit_game is sent if possible, the connection closes
// normally and no reconnection follows. The session cannot be reused.
func (s *Session) Exit() error {
	if s.state.RoomCode == "" {
		return ErrNoRoom
	}
	if err := s.send(protocol.ExitGame()); err != nil && !errors.Is(err, ErrNotConnected) {
		s.log.Warnf("Failed to send exit_game: %v", err)
	}
	s.log.Infof("Leaving room %s", s.state.RoomCode)
	s.shutdown("exit")
	s.state.RoomCode = ""
	s.changed()
	return nil
}

// shutdown stops every task and closes the connection without leaving the
// room on the server.
func (s *Session) shutdown(reason string) {
	s.conn.Shutdown(reason)
	s.seq.Reset()
	s.gate.Release(reason)
	s.clock.Stop()
}

// View returns a deep copy of the session.
func (s *Session) View() View {
	v := View{
		State:          s.state.clone(),
		SessionID:      s.id,
		Conn:           s.conn.State(),
		Reconnecting:   s.conn.ReconnectPending(),
		MoveInProgress: s.gate.InProgress(),
		Playing:        s.seq.Playing(),
		Animation:      s.seq.Current(),
		Remaining:      s.clock.Remaining(),
		SecondsLeft:    s.clock.Seconds(),
		Frames:         s.frames,
		DroppedFrames:  s.dropped,
	}
	v.IsMyTurn = v.GameStarted && !v.GameEnded && v.CurrentPlayer != "" && v.CurrentPlayer == v.Username
	return v
}

func (s *Session) ready() error {
	if s.state.RoomCode == "" {
		return ErrNoRoom
	}
	if !s.conn.Active() || s.conn.State() != conn.Connected {
		return ErrNotConnected
	}
	return nil
}

func (s *Session) checkLegal(m protocol.Move) error {
	if m == nil {
		return fmt.Errorf("%w: empty", ErrIllegalMove)
	}
	if c, ok := m.(protocol.Coord); ok && !s.state.Board.Empty() && !s.state.Board.Contains(c.X, c.Y) {
		return fmt.Errorf("%w: %s is off the board", ErrIllegalMove, c)
	}
	if len(s.state.Choices) > 0 && !s.state.Choices.Contains(m) {
		return fmt.Errorf("%w: %s is not one of the choices", ErrIllegalMove, m)
	}
	return nil
}

func (s *Session) sendMove(m protocol.Move) error {
	return s.send(protocol.MakeChoice(m))
}

func (s *Session) send(c protocol.Command) error {
	data, err := protocol.Encode(c)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.Type, err)
	}
	if err := s.conn.Send(data); err != nil {
		return err
	}
	s.log.Debugf("Sent %s", data)
	return nil
}

func (s *Session) onConnError(err error) {
	s.log.Warnf("Connection error: %v", err)
}

func (s *Session) onConnClose(code websocket.StatusCode) {
	if s.conn.ReconnectPending() {
		s.log.Warnf("Connection closed (%d), will reconnect", code)
	} else {
		s.log.Infof("Connection closed (%d)", code)
	}
	s.changed()
}

func (s *Session) onAnimationIdle() {
	s.gate.Release("animation finished")
	s.changed()
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.View())
	}
}
