package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a client frame")
		return ""
	}
}

// scriptedRoom plays the server side of a two player number game.
func scriptedRoom(t *testing.T, got chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/AB12CD/alice" {
			http.NotFound(w, r)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()

		ctx := r.Context()
		write := func(s string) { _ = c.Write(ctx, websocket.MessageText, []byte(s)) }
		write(`{"type":"room_state","room":{"code":"AB12CD","creator":"alice","players":["alice","bob"],"game_started":false,"game_type":"number_picker"}}`)
		write(aliceTurn)

		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			got <- string(data)
			if strings.Contains(string(data), "make_choice") {
				write(`{"type":"game_events","events":[]}`)
				write(`{"type":"next_turn","current_player":"bob","choices":[-2,-1,1,2],"turn":2,"round":1,"max_turns":5,"turn_time":10}`)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunnerOverWebSocket(t *testing.T) {
	got := make(chan string, 8)
	srv := scriptedRoom(t, got)

	logger, _ := test.NewNullLogger()
	r, err := NewRunner(Options{
		RoomCode:  "AB12CD",
		Username:  "alice",
		ServerURL: srv.URL,
		Logger:    logger,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		v, err := r.Snapshot()
		return err == nil && v.IsMyTurn
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.SubmitMove(protocol.Number(2)))
	assert.JSONEq(t, `{"type":"make_choice","action":2}`, recv(t, got))

	require.Eventually(t, func() bool {
		v, err := r.Snapshot()
		return err == nil && v.CurrentPlayer == "bob" && !v.MoveInProgress
	}, 2*time.Second, 10*time.Millisecond)

	v, err := r.Snapshot()
	require.NoError(t, err)
	assert.False(t, v.IsMyTurn)
	assert.Equal(t, 2, v.Turn)
	assert.Zero(t, v.DroppedFrames)

	require.NoError(t, r.Exit())
	assert.JSONEq(t, `{"type":"exit_game"}`, recv(t, got))

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	<-r.Done()

	_, err = r.Snapshot()
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, r.StartGame(), ErrStopped)
}

func TestNewRunnerRejectsBadRoom(t *testing.T) {
	_, err := NewRunner(Options{RoomCode: "nope", Username: "alice"}, nil)
	assert.ErrorIs(t, err, ErrBadRoomCode)
}
