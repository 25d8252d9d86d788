// internal/session/state.go
package session

import (
	"time"

	"github.com/abhijit77github/turn-game/internal/conn"
	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/sequencer"
	"github.com/google/uuid"
)

// AutoChoice is a move the server made for a player who ran out of time.
type AutoChoice struct {
	Player string
	Move   protocol.Move
}

// State is the client's mirror of the room and match. Only the dispatcher
// writes it.
type State struct {
	RoomCode   string
	Username   string
	GameType   string
	Players    []string
	Creator    string
	MaxPlayers int

	GameStarted   bool
	Turn          int
	Round         int
	MaxTurns      int
	TurnTime      int // seconds
	CurrentPlayer string
	Choices       protocol.Choices
	Board         protocol.Board
	PlayerColors  map[string]string

	GameEnded  bool
	Winner     string
	CanRestart bool
	EndReason  string
	TotalSum   *int

	LastAutoChoice *AutoChoice
	LastError      string
}

func (s State) clone() State {
	out := s
	out.Players = append([]string(nil), s.Players...)
	out.Choices = append(protocol.Choices(nil), s.Choices...)
	out.Board = s.Board.Clone()
	if s.PlayerColors != nil {
		out.PlayerColors = make(map[string]string, len(s.PlayerColors))
		for k, v := range s.PlayerColors {
			out.PlayerColors[k] = v
		}
	}
	if s.TotalSum != nil {
		n := *s.TotalSum
		out.TotalSum = &n
	}
	if s.LastAutoChoice != nil {
		ac := *s.LastAutoChoice
		out.LastAutoChoice = &ac
	}
	return out
}

// View is a deep copy of the session handed to callers outside the loop.
type View struct {
	State

	SessionID    uuid.UUID
	Conn         conn.State
	Reconnecting bool

	IsMyTurn       bool
	MoveInProgress bool
	Playing        bool
	Animation      *sequencer.Display

	// Remaining is the turn time left on the local countdown.
	Remaining   time.Duration
	SecondsLeft int

	Frames        int
	DroppedFrames int
}

// IsCreator reports whether the local user created the room.
func (v View) IsCreator() bool { return v.Creator != "" && v.Creator == v.Username }

// ColorOf returns the color assigned to player, if any.
func (v View) ColorOf(player string) string { return v.PlayerColors[player] }
