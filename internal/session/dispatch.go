// internal/session/dispatch.go
package session

import (
	"github.com/abhijit77github/turn-game/internal/journal"
	"github.com/abhijit77github/turn-game/internal/protocol"
)

// handleFrame decodes one inbound frame and applies it. Malformed frames and
// unknown types are logged and skipped; nothing here ever fails the session.
func (s *Session) handleFrame(data []byte) {
	s.frames++
	msg, err := protocol.Decode(data)
	s.record(data, msg)
	if err != nil {
		s.dropped++
		s.log.Warnf("Dropping frame %d: %v", s.frames, err)
		s.changed()
		return
	}
	s.apply(msg)
	s.changed()
}

func (s *Session) apply(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.RoomState:
		s.onRoomState(m)
	case protocol.PlayerJoined:
		s.state.Players = append([]string(nil), m.Players...)
		s.log.Infof("%s joined", m.Username)
	case protocol.PlayerLeft:
		s.state.Players = append([]string(nil), m.Players...)
		if m.Creator != "" {
			s.state.Creator = m.Creator
		}
		s.log.Infof("%s left", m.Username)
	case protocol.GameStarted:
		s.onGameStarted(m)
	case protocol.NextTurn:
		s.onTurn(m.TurnInfo)
		s.gate.Release("next_turn")
		s.seq.Cancel()
	case protocol.GameEvents:
		s.onGameEvents(m)
	case protocol.AddBallMsg:
		if m.Board != nil {
			s.state.Board = m.Board.Clone()
		}
		s.seq.ClearDisplay()
	case protocol.ExplosionMsg:
		s.seq.Show(m.Explosion)
	case protocol.SpreadMsg:
		s.seq.Show(m.Spread)
	case protocol.GameOver:
		s.state.GameEnded = true
		s.state.Winner = m.Winner
		s.seq.ClearDisplay()
	case protocol.AutoChoice:
		s.state.LastAutoChoice = &AutoChoice{Player: m.Player, Move: m.Action}
		s.log.Infof("Server chose %v for %s", m.Action, m.Player)
	case protocol.GameEnded:
		s.onGameEnded(m)
	case protocol.ServerError:
		s.state.LastError = m.Message
		s.gate.Release("error")
		s.seq.Cancel()
		s.log.Warnf("Server error: %s", m.Message)
	case protocol.Unknown:
		s.log.Debugf("Ignoring message type %q", m.Type)
	default:
		s.log.Debugf("Ignoring message %T", m)
	}
}

// onRoomState replaces the room mirror wholesale. It is the resync point after
// a reconnect, so fields absent from the frame are cleared.
func (s *Session) onRoomState(m protocol.RoomState) {
	st := &s.state
	st.Players = append([]string(nil), m.Room.Players...)
	st.Creator = m.Room.Creator
	st.GameStarted = m.Room.GameStarted
	st.GameType = m.Room.GameType
	st.MaxPlayers = m.Room.MaxPlayers

	if e := m.GameEnded; e != nil {
		st.GameEnded = true
		st.Winner = e.Winner
		st.CanRestart = e.CanRestart
		st.TotalSum = e.TotalSum
	} else {
		st.GameEnded = false
		st.Winner = ""
		st.CanRestart = false
		st.TotalSum = nil
		st.EndReason = ""
	}
	if !st.GameStarted {
		s.clock.Stop()
	}
}

func (s *Session) onGameStarted(m protocol.GameStarted) {
	st := &s.state
	st.GameStarted = true
	st.GameEnded = false
	st.Winner = ""
	st.CanRestart = false
	st.EndReason = ""
	st.TotalSum = nil
	st.LastAutoChoice = nil
	st.LastError = ""
	if len(m.Players) > 0 {
		st.Players = append([]string(nil), m.Players...)
	}
	// a restart reuses turn numbers
	s.clock.Stop()
	s.onTurn(m.TurnInfo)
	s.gate.Release("game_started")
	s.seq.Reset()
}

func (s *Session) onTurn(t protocol.TurnInfo) {
	st := &s.state
	st.CurrentPlayer = t.CurrentPlayer
	st.Choices = append(protocol.Choices(nil), t.Choices...)
	st.Turn = t.Turn
	st.Round = t.Round
	if t.MaxTurns != nil {
		st.MaxTurns = *t.MaxTurns
	}
	if t.TurnTime != nil {
		st.TurnTime = *t.TurnTime
	}
	if t.Board != nil {
		st.Board = t.Board.Clone()
	}
	if t.PlayerColors != nil {
		st.PlayerColors = make(map[string]string, len(t.PlayerColors))
		for k, v := range t.PlayerColors {
			st.PlayerColors[k] = v
		}
	}
	s.clock.Observe(st.Turn, st.TurnTime)
}

func (s *Session) onGameEvents(m protocol.GameEvents) {
	if m.Board != nil {
		s.state.Board = m.Board.Clone()
	}
	if m.GameOver != nil {
		s.state.GameEnded = true
		s.state.Winner = m.GameOver.Winner
	}
	if len(m.Events) == 0 {
		s.gate.Release("empty batch")
		return
	}
	s.seq.Enqueue(m.Events)
}

func (s *Session) onGameEnded(m protocol.GameEnded) {
	st := &s.state
	st.GameEnded = true
	st.GameStarted = false
	st.Winner = m.Winner
	st.CanRestart = m.CanRestart
	st.EndReason = m.Reason
	st.TotalSum = m.TotalSum
	if m.Board != nil {
		st.Board = m.Board.Clone()
	}
	if m.PlayerColors != nil {
		st.PlayerColors = m.PlayerColors
	}
	s.seq.Reset()
	s.gate.Release("game_ended")
	s.clock.Stop()

	switch {
	case m.Winner != "":
		s.log.Infof("Game ended, winner %s", m.Winner)
	case m.Reason != "":
		s.log.Infof("Game ended: %s", m.Reason)
	default:
		s.log.Info("Game ended")
	}
}

func (s *Session) record(data []byte, msg protocol.Message) {
	if s.opts.Journal == nil {
		return
	}
	typ := "malformed"
	if msg != nil {
		typ = string(msg.MessageType())
	}
	s.opts.Journal.Record(journal.Entry{
		SessionID: s.id,
		Seq:       s.frames,
		Room:      s.state.RoomCode,
		User:      s.state.Username,
		Type:      typ,
		Payload:   append([]byte(nil), data...),
		Timestamp: s.opts.Scheduler.Now().UnixMilli(),
	})
}
