package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoomStateWithEndedGame(t *testing.T) {
	frame := `{"type":"room_state","room":{"code":"AB12CD","creator":"alice","game_type":"number_picker",
		"players":["alice","bob"],"player_count":2,"max_players":6,"game_started":false},
		"game_ended":{"winner":"bob","can_restart":true}}`

	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	rs, ok := msg.(RoomState)
	require.True(t, ok, "expected RoomState, got %T", msg)
	assert.Equal(t, "AB12CD", rs.Room.Code)
	assert.Equal(t, []string{"alice", "bob"}, rs.Room.Players)
	assert.Equal(t, "number_picker", rs.Room.GameType)
	require.NotNil(t, rs.GameEnded)
	assert.Equal(t, "bob", rs.GameEnded.Winner)
	assert.True(t, rs.GameEnded.CanRestart)
}

func TestDecodeGameStartedChoices(t *testing.T) {
	frame := `{"type":"game_started","current_player":"alice","choices":[-2,-1,1,2],
		"turn":1,"max_turns":5,"turn_time":10}`

	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	gs, ok := msg.(GameStarted)
	require.True(t, ok)
	assert.Equal(t, "alice", gs.CurrentPlayer)
	assert.Equal(t, Choices{Number(-2), Number(-1), Number(1), Number(2)}, gs.Choices)
	require.NotNil(t, gs.MaxTurns)
	assert.Equal(t, 5, *gs.MaxTurns)
	require.NotNil(t, gs.TurnTime)
	assert.Equal(t, 10, *gs.TurnTime)
	assert.Nil(t, gs.Board)
	assert.True(t, gs.Choices.Contains(Number(2)))
	assert.False(t, gs.Choices.Contains(Number(3)))
}

func TestDecodeSignChoicesAndBoard(t *testing.T) {
	frame := `{"type":"next_turn","current_player":"bob","choices":["rock","paper","scissors"],"turn":2,"round":1,
		"board":[[{"balls":["red"],"x":0,"y":0,"critical_mass":2},{"balls":[],"x":1,"y":0,"critical_mass":3}]]}`

	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	nt, ok := msg.(NextTurn)
	require.True(t, ok)
	assert.True(t, nt.Choices.Contains(Sign("paper")))
	assert.Equal(t, 2, nt.Board.Width())
	require.Len(t, nt.Board, 1)
	assert.True(t, nt.Board.Contains(1, 0))
	assert.False(t, nt.Board.Contains(0, 1))
	cell := nt.Board[0][0]
	assert.Equal(t, []string{"red"}, cell.Balls)
	assert.Equal(t, 2, cell.CriticalMass)
	assert.Nil(t, nt.MaxTurns)
}

func TestDecodeGameEventsBatch(t *testing.T) {
	frame := `{"type":"game_events","events":[
		{"type":"add_ball","x":1,"y":2,"color":"red","ball_count":2},
		{"type":"explosion","x":1,"y":2,"color":"red","ball_count":2,"time":0},
		{"type":"spread","from_x":1,"from_y":2,"to_x":0,"to_y":2,"color":"red","time":0.5},
		{"type":"sparkle","x":9},
		{"type":"game_over","winner":"alice"}
	],"board":[]}`

	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	ge, ok := msg.(GameEvents)
	require.True(t, ok)
	require.Len(t, ge.Events, 3, "unknown event kinds are skipped, game_over is lifted")

	assert.Equal(t, KindAddBall, ge.Events[0].Kind())
	_, timed := ge.Events[0].Time()
	assert.False(t, timed)

	ex, ok := ge.Events[1].(Explosion)
	require.True(t, ok)
	assert.Equal(t, 1, ex.X)
	ts, timed := ex.Time()
	assert.True(t, timed)
	assert.Equal(t, 0.0, ts)

	sp, ok := ge.Events[2].(Spread)
	require.True(t, ok)
	assert.Equal(t, 0, sp.ToX)
	ts, _ = sp.Time()
	assert.Equal(t, 0.5, ts)

	require.NotNil(t, ge.GameOver)
	assert.Equal(t, "alice", ge.GameOver.Winner)
	assert.True(t, ge.Board.Empty())
}

func TestDecodeStandaloneAnimations(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"explosion","x":3,"y":4,"color":"blue"}`))
	require.NoError(t, err)
	ex, ok := msg.(ExplosionMsg)
	require.True(t, ok)
	assert.Equal(t, Explosion{X: 3, Y: 4, Color: "blue"}, ex.Explosion)

	msg, err = Decode([]byte(`{"type":"spread","from_x":1,"from_y":1,"to_x":1,"to_y":2,"color":"green"}`))
	require.NoError(t, err)
	sp, ok := msg.(SpreadMsg)
	require.True(t, ok)
	assert.Equal(t, 2, sp.ToY)

	msg, err = Decode([]byte(`{"type":"add_ball","board":[[{"balls":["red"],"x":0,"y":0}]]}`))
	require.NoError(t, err)
	ab, ok := msg.(AddBallMsg)
	require.True(t, ok)
	assert.Equal(t, 1, ab.Board.BallCount("red"))
}

func TestDecodeAutoChoiceVariants(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"auto_choice","player":"bob","action":[2,3]}`))
	require.NoError(t, err)
	ac := msg.(AutoChoice)
	assert.Equal(t, "bob", ac.Player)
	assert.Equal(t, Coord{X: 2, Y: 3}, ac.Action)

	msg, err = Decode([]byte(`{"type":"auto_choice","player":"bob","choice":-40}`))
	require.NoError(t, err)
	assert.Equal(t, Number(-40), msg.(AutoChoice).Action)
}

func TestDecodeGameEndedAndError(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"game_ended","reason":"Not enough players"}`))
	require.NoError(t, err)
	ge := msg.(GameEnded)
	assert.Equal(t, "", ge.Winner)
	assert.False(t, ge.CanRestart)
	assert.Equal(t, "Not enough players", ge.Reason)

	msg, err = Decode([]byte(`{"type":"error","message":"Invalid action"}`))
	require.NoError(t, err)
	assert.Equal(t, ServerError{Message: "Invalid action"}, msg)
}

func TestDecodeUnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"chat","text":"hi"}`))
	require.NoError(t, err)
	u, ok := msg.(Unknown)
	require.True(t, ok)
	assert.Equal(t, Type("chat"), u.MessageType())
	assert.JSONEq(t, `{"type":"chat","text":"hi"}`, string(u.Raw))
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{"no_type":true}`,
		`[1,2,3]`,
		`{"type":"next_turn","turn":"one"}`,
		`{"type":"game_events","events":[{"type":"explosion","x":"a"}]}`,
	}
	for _, c := range cases {
		_, err := Decode([]byte(c))
		assert.ErrorIs(t, err, ErrMalformed, c)
	}
}

func TestEncodeCommands(t *testing.T) {
	cases := []struct {
		cmd  Command
		want string
	}{
		{StartGame(), `{"type":"start_game"}`},
		{MakeChoice(Number(2)), `{"type":"make_choice","action":2}`},
		{MakeChoice(Sign("rock")), `{"type":"make_choice","action":"rock"}`},
		{MakeChoice(Coord{X: 3, Y: 7}), `{"type":"make_choice","action":[3,7]}`},
		{ExitGame(), `{"type":"exit_game"}`},
		{RestartGame(), `{"type":"restart_game"}`},
	}
	for _, c := range cases {
		data, err := Encode(c.cmd)
		require.NoError(t, err)
		assert.JSONEq(t, c.want, string(data))
	}
}

func TestParseMove(t *testing.T) {
	mv, err := ParseMove("-12")
	require.NoError(t, err)
	assert.Equal(t, Number(-12), mv)

	mv, err = ParseMove(" 3, 4 ")
	require.NoError(t, err)
	assert.Equal(t, Coord{X: 3, Y: 4}, mv)

	mv, err = ParseMove("Rock")
	require.NoError(t, err)
	assert.Equal(t, Sign("rock"), mv)

	_, err = ParseMove("a,b")
	assert.ErrorIs(t, err, ErrBadMove)
	_, err = ParseMove("  ")
	assert.ErrorIs(t, err, ErrBadMove)
}

func TestBoardCloneDoesNotAlias(t *testing.T) {
	var b Board
	require.NoError(t, json.Unmarshal([]byte(`[[{"balls":["red","red"],"x":0,"y":0}]]`), &b))
	c := b.Clone()
	c[0][0].Balls[0] = "blue"
	assert.Equal(t, "red", b[0][0].Balls[0])
	assert.False(t, b.Contains(1, 0))
	assert.Equal(t, 2, b.BallCount(""))
}
