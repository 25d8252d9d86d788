package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadMove is returned when a move cannot be parsed or decoded.
var ErrBadMove = errors.New("bad move")

// Move is the action of make_choice: a number, a hand sign, or a grid cell.
type Move interface {
	String() string
	isMove()
}

// Number is a numeric choice (number picker).
type Number int

// Sign is a named choice such as "rock".
type Sign string

// Coord is a grid cell; it travels as [x, y].
type Coord struct {
	X int
	Y int
}

func (n Number) String() string { return strconv.Itoa(int(n)) }
func (s Sign) String() string   { return string(s) }
func (c Coord) String() string  { return fmt.Sprintf("%d,%d", c.X, c.Y) }

func (Number) isMove() {}
func (Sign) isMove()   {}
func (Coord) isMove()  {}

func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	var xy []int
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("%w: coordinate needs 2 values, got %d", ErrBadMove, len(xy))
	}
	c.X, c.Y = xy[0], xy[1]
	return nil
}

// DecodeMove turns one JSON value into a Move.
func DecodeMove(raw json.RawMessage) (Move, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadMove)
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMove, err)
		}
		return Sign(s), nil
	case '[':
		var c Coord
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMove, err)
		}
		return c, nil
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMove, err)
		}
		return Number(int(f)), nil
	}
}

// ParseMove reads a move typed by a user: "5", "-12", "rock" or "3,4".
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadMove)
	}
	if x, y, ok := strings.Cut(s, ","); ok {
		cx, errX := strconv.Atoi(strings.TrimSpace(x))
		cy, errY := strconv.Atoi(strings.TrimSpace(y))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("%w: %q is not a coordinate", ErrBadMove, s)
		}
		return Coord{X: cx, Y: cy}, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Number(n), nil
	}
	return Sign(strings.ToLower(s)), nil
}

// Choices is the list of legal tokens for the player to move.
type Choices []Move

func (c *Choices) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Choices, 0, len(raws))
	for _, raw := range raws {
		mv, err := DecodeMove(raw)
		if err != nil {
			return err
		}
		out = append(out, mv)
	}
	*c = out
	return nil
}

// Contains reports whether m is one of the choices.
func (c Choices) Contains(m Move) bool {
	for _, x := range c {
		if x == m {
			return true
		}
	}
	return false
}
