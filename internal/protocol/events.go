package protocol

import (
	"encoding/json"
	"fmt"
)

// EventKind tags an entry inside a game_events batch.
type EventKind string

const (
	KindAddBall   EventKind = "add_ball"
	KindExplosion EventKind = "explosion"
	KindSpread    EventKind = "spread"
	kindGameOver  EventKind = "game_over"
)

// AnimationEvent is one step of a chain reaction, played one at a time.
type AnimationEvent interface {
	Kind() EventKind
	// Time returns the server timestamp in seconds, if the server sent one.
	Time() (float64, bool)
	isAnimationEvent()
}

// Explosion is a cell reaching critical mass and emptying.
type Explosion struct {
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Color      string   `json:"color"`
	BallCount  int      `json:"ball_count,omitempty"`
	ServerTime *float64 `json:"time,omitempty"`
}

// Spread is one ball travelling from an exploding cell to a neighbour.
type Spread struct {
	FromX      int      `json:"from_x"`
	FromY      int      `json:"from_y"`
	ToX        int      `json:"to_x"`
	ToY        int      `json:"to_y"`
	Color      string   `json:"color"`
	ServerTime *float64 `json:"time,omitempty"`
}

// AddBall is the placement that started the batch.
type AddBall struct {
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Color      string   `json:"color,omitempty"`
	BallCount  int      `json:"ball_count,omitempty"`
	ServerTime *float64 `json:"time,omitempty"`
}

func (Explosion) Kind() EventKind { return KindExplosion }
func (Spread) Kind() EventKind    { return KindSpread }
func (AddBall) Kind() EventKind   { return KindAddBall }

func (e Explosion) Time() (float64, bool) { return deref(e.ServerTime) }
func (e Spread) Time() (float64, bool)    { return deref(e.ServerTime) }
func (e AddBall) Time() (float64, bool)   { return deref(e.ServerTime) }

func (Explosion) isAnimationEvent() {}
func (Spread) isAnimationEvent()    {}
func (AddBall) isAnimationEvent()   {}

func deref(t *float64) (float64, bool) {
	if t == nil {
		return 0, false
	}
	return *t, true
}

// Seconds is a convenience for building timed events.
func Seconds(s float64) *float64 { return &s }

func decodeBatch(raws []json.RawMessage) ([]AnimationEvent, *GameOver, error) {
	events := make([]AnimationEvent, 0, len(raws))
	var over *GameOver
	for i, raw := range raws {
		var head struct {
			Type EventKind `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, nil, fmt.Errorf("event %d: %w", i, err)
		}
		var (
			ev  AnimationEvent
			err error
		)
		switch head.Type {
		case KindExplosion:
			var e Explosion
			err = json.Unmarshal(raw, &e)
			ev = e
		case KindSpread:
			var e Spread
			err = json.Unmarshal(raw, &e)
			ev = e
		case KindAddBall:
			var e AddBall
			err = json.Unmarshal(raw, &e)
			ev = e
		case kindGameOver:
			var g GameOver
			err = json.Unmarshal(raw, &g)
			over = &g
		default:
			// newer servers may add event kinds; they have nothing to draw here
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("event %d (%s): %w", i, head.Type, err)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events, over, nil
}
