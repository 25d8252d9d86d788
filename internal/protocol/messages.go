// internal/protocol/messages.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the "type" discriminant carried by every frame.
type Type string

// Inbound message types pushed by the game server.
const (
	TypeRoomState    Type = "room_state"
	TypePlayerJoined Type = "player_joined"
	TypePlayerLeft   Type = "player_left"
	TypeGameStarted  Type = "game_started"
	TypeNextTurn     Type = "next_turn"
	TypeGameEvents   Type = "game_events"
	TypeAddBall      Type = "add_ball"
	TypeExplosion    Type = "explosion"
	TypeSpread       Type = "spread"
	TypeGameOver     Type = "game_over"
	TypeAutoChoice   Type = "auto_choice"
	TypeGameEnded    Type = "game_ended"
	TypeError        Type = "error"
)

// ErrMalformed is returned by Decode for frames that are not a JSON object
// with a string "type", or whose body does not fit the declared type.
var ErrMalformed = errors.New("malformed frame")

// Message is the closed set of inbound frames. Only types in this package
// implement it; anything the decoder does not recognise becomes Unknown.
type Message interface {
	MessageType() Type
	isMessage()
}

// RoomInfo is the room snapshot inside room_state.
type RoomInfo struct {
	Code        string   `json:"code"`
	Creator     string   `json:"creator"`
	GameType    string   `json:"game_type"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count,omitempty"`
	MaxPlayers  int      `json:"max_players,omitempty"`
	GameStarted bool     `json:"game_started"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// EndedInfo is sent with room_state when the client joins a finished match.
type EndedInfo struct {
	Winner     string `json:"winner"`
	CanRestart bool   `json:"can_restart"`
	TotalSum   *int   `json:"total_sum,omitempty"`
}

type RoomState struct {
	Room      RoomInfo   `json:"room"`
	GameEnded *EndedInfo `json:"game_ended,omitempty"`
}

type PlayerJoined struct {
	Username    string   `json:"username"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count,omitempty"`
}

type PlayerLeft struct {
	Username string   `json:"username"`
	Players  []string `json:"players"`
	Creator  string   `json:"creator"`
}

// TurnInfo is the common body of game_started and next_turn.
type TurnInfo struct {
	CurrentPlayer string            `json:"current_player"`
	Choices       Choices           `json:"choices,omitempty"`
	Turn          int               `json:"turn"`
	Round         int               `json:"round"`
	MaxTurns      *int              `json:"max_turns,omitempty"`
	TurnTime      *int              `json:"turn_time,omitempty"`
	Board         Board             `json:"board,omitempty"`
	PlayerColors  map[string]string `json:"player_colors,omitempty"`
	Explosions    json.RawMessage   `json:"explosions,omitempty"`
}

type GameStarted struct {
	TurnInfo
	Players []string `json:"players,omitempty"`
}

type NextTurn struct {
	TurnInfo
}

// GameEvents carries one animation batch. A game_over entry inside the batch
// is lifted into GameOver rather than played.
type GameEvents struct {
	Events   []AnimationEvent
	Board    Board
	GameOver *GameOver
}

func (m *GameEvents) UnmarshalJSON(data []byte) error {
	var body struct {
		Events []json.RawMessage `json:"events"`
		Board  Board             `json:"board"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	events, over, err := decodeBatch(body.Events)
	if err != nil {
		return err
	}
	m.Events = events
	m.Board = body.Board
	m.GameOver = over
	return nil
}

// AddBallMsg is a standalone add_ball frame. It is not time-sequenced.
type AddBallMsg struct {
	AddBall
	Board Board `json:"board,omitempty"`
}

// ExplosionMsg is a standalone explosion outside any batch.
type ExplosionMsg struct {
	Explosion
}

// SpreadMsg is a standalone spread outside any batch.
type SpreadMsg struct {
	Spread
}

type GameOver struct {
	Winner string `json:"winner"`
}

// AutoChoice reports a move the server made for a player whose turn timed out.
type AutoChoice struct {
	Player string
	Action Move
}

func (m *AutoChoice) UnmarshalJSON(data []byte) error {
	var body struct {
		Player string          `json:"player"`
		Action json.RawMessage `json:"action"`
		Choice json.RawMessage `json:"choice"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	raw := body.Action
	if len(raw) == 0 {
		raw = body.Choice
	}
	m.Player = body.Player
	m.Action = nil
	if len(raw) > 0 && string(raw) != "null" {
		mv, err := DecodeMove(raw)
		if err != nil {
			return err
		}
		m.Action = mv
	}
	return nil
}

type GameEnded struct {
	Winner       string            `json:"winner"`
	CanRestart   bool              `json:"can_restart"`
	Reason       string            `json:"reason,omitempty"`
	TotalSum     *int              `json:"total_sum,omitempty"`
	Board        Board             `json:"board,omitempty"`
	PlayerColors map[string]string `json:"player_colors,omitempty"`
}

// ServerError is the server's "error" frame, e.g. an illegal move.
type ServerError struct {
	Message string `json:"message"`
}

// Unknown is any frame with a type this client does not know. Keeping it as
// an explicit variant lets the dispatcher ignore it on purpose.
type Unknown struct {
	Type Type
	Raw  json.RawMessage
}

func (RoomState) MessageType() Type    { return TypeRoomState }
func (PlayerJoined) MessageType() Type { return TypePlayerJoined }
func (PlayerLeft) MessageType() Type   { return TypePlayerLeft }
func (GameStarted) MessageType() Type  { return TypeGameStarted }
func (NextTurn) MessageType() Type     { return TypeNextTurn }
func (GameEvents) MessageType() Type   { return TypeGameEvents }
func (AddBallMsg) MessageType() Type   { return TypeAddBall }
func (ExplosionMsg) MessageType() Type { return TypeExplosion }
func (SpreadMsg) MessageType() Type    { return TypeSpread }
func (GameOver) MessageType() Type     { return TypeGameOver }
func (AutoChoice) MessageType() Type   { return TypeAutoChoice }
func (GameEnded) MessageType() Type    { return TypeGameEnded }
func (ServerError) MessageType() Type  { return TypeError }
func (u Unknown) MessageType() Type    { return u.Type }

func (RoomState) isMessage()    {}
func (PlayerJoined) isMessage() {}
func (PlayerLeft) isMessage()   {}
func (GameStarted) isMessage()  {}
func (NextTurn) isMessage()     {}
func (GameEvents) isMessage()   {}
func (AddBallMsg) isMessage()   {}
func (ExplosionMsg) isMessage() {}
func (SpreadMsg) isMessage()    {}
func (GameOver) isMessage()     {}
func (AutoChoice) isMessage()   {}
func (GameEnded) isMessage()    {}
func (ServerError) isMessage()  {}
func (Unknown) isMessage()      {}

// Decode parses one inbound frame. Unrecognised types decode to Unknown with a
// nil error; only structurally broken frames fail, wrapping ErrMalformed.
func Decode(data []byte) (Message, error) {
	var env struct {
		Type *Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch *env.Type {
	case TypeRoomState:
		return decodeAs[RoomState](data)
	case TypePlayerJoined:
		return decodeAs[PlayerJoined](data)
	case TypePlayerLeft:
		return decodeAs[PlayerLeft](data)
	case TypeGameStarted:
		return decodeAs[GameStarted](data)
	case TypeNextTurn:
		return decodeAs[NextTurn](data)
	case TypeGameEvents:
		return decodeAs[GameEvents](data)
	case TypeAddBall:
		return decodeAs[AddBallMsg](data)
	case TypeExplosion:
		return decodeAs[ExplosionMsg](data)
	case TypeSpread:
		return decodeAs[SpreadMsg](data)
	case TypeGameOver:
		return decodeAs[GameOver](data)
	case TypeAutoChoice:
		return decodeAs[AutoChoice](data)
	case TypeGameEnded:
		return decodeAs[GameEnded](data)
	case TypeError:
		return decodeAs[ServerError](data)
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Type: *env.Type, Raw: raw}, nil
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.MessageType(), err)
	}
	return m, nil
}
