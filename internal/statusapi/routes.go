// internal/statusapi/routes.go
package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/abhijit77github/turn-game/internal/middleware"
	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Snapshotter is anything that can report the current session view.
type Snapshotter interface {
	Snapshot() (session.View, error)
}

// Routes serves a read-only view of the running session for local tools
// such as stream overlays. origins lists the allowed CORS origins; empty
// allows any http(s) origin.
func Routes(src Snapshotter, logger logrus.FieldLogger, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/state", stateHandler(src))
	return r
}

func stateHandler(src Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := src.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NewState(v))
	}
}

// Animation is the event on screen, tagged with its kind.
type Animation struct {
	Kind  protocol.EventKind      `json:"kind"`
	Index int                     `json:"index"`
	Event protocol.AnimationEvent `json:"event"`
}

// State is the JSON shape of a session.View.
type State struct {
	SessionID      string            `json:"session_id"`
	Connection     string            `json:"connection"`
	Reconnecting   bool              `json:"reconnecting"`
	RoomCode       string            `json:"room_code"`
	Username       string            `json:"username"`
	GameType       string            `json:"game_type,omitempty"`
	Players        []string          `json:"players"`
	Creator        string            `json:"creator,omitempty"`
	GameStarted    bool              `json:"game_started"`
	GameEnded      bool              `json:"game_ended"`
	Turn           int               `json:"turn"`
	Round          int               `json:"round"`
	MaxTurns       int               `json:"max_turns,omitempty"`
	CurrentPlayer  string            `json:"current_player,omitempty"`
	Choices        []string          `json:"choices,omitempty"`
	Board          protocol.Board    `json:"board,omitempty"`
	PlayerColors   map[string]string `json:"player_colors,omitempty"`
	Winner         string            `json:"winner,omitempty"`
	CanRestart     bool              `json:"can_restart"`
	EndReason      string            `json:"end_reason,omitempty"`
	IsMyTurn       bool              `json:"is_my_turn"`
	MoveInProgress bool              `json:"move_in_progress"`
	Playing        bool              `json:"playing"`
	Animation      *Animation        `json:"animation,omitempty"`
	SecondsLeft    int               `json:"seconds_left"`
	LastError      string            `json:"last_error,omitempty"`
	DroppedFrames  int               `json:"dropped_frames"`
}

func NewState(v session.View) State {
	s := State{
		SessionID:      v.SessionID.String(),
		Connection:     v.Conn.String(),
		Reconnecting:   v.Reconnecting,
		RoomCode:       v.RoomCode,
		Username:       v.Username,
		GameType:       v.GameType,
		Players:        v.Players,
		Creator:        v.Creator,
		GameStarted:    v.GameStarted,
		GameEnded:      v.GameEnded,
		Turn:           v.Turn,
		Round:          v.Round,
		MaxTurns:       v.MaxTurns,
		CurrentPlayer:  v.CurrentPlayer,
		Board:          v.Board,
		PlayerColors:   v.PlayerColors,
		Winner:         v.Winner,
		CanRestart:     v.CanRestart,
		EndReason:      v.EndReason,
		IsMyTurn:       v.IsMyTurn,
		MoveInProgress: v.MoveInProgress,
		Playing:        v.Playing,
		SecondsLeft:    v.SecondsLeft,
		LastError:      v.LastError,
		DroppedFrames:  v.DroppedFrames,
	}
	for _, c := range v.Choices {
		s.Choices = append(s.Choices, c.String())
	}
	if v.Animation != nil {
		s.Animation = &Animation{
			Kind:  v.Animation.Event.Kind(),
			Index: v.Animation.Index,
			Event: v.Animation.Event,
		}
	}
	return s
}
