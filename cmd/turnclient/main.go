// cmd/turnclient/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abhijit77github/turn-game/internal/config"
	"github.com/abhijit77github/turn-game/internal/journal"
	"github.com/abhijit77github/turn-game/internal/lobbyapi"
	"github.com/abhijit77github/turn-game/internal/protocol"
	"github.com/abhijit77github/turn-game/internal/session"
	"github.com/abhijit77github/turn-game/internal/statusapi"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

type flags struct {
	room, create   string
	user, password string
	register       bool
	listGames      bool
}

func main() {
	cfg := config.Load()

	var f flags
	flag.StringVar(&f.room, "room", "", "room code to join")
	flag.StringVar(&f.create, "create", "", "create a room for this game type instead of joining")
	flag.StringVar(&f.user, "user", cfg.Username, "username (TURN_USERNAME)")
	flag.StringVar(&f.password, "password", cfg.Password, "password (TURN_PASSWORD)")
	flag.BoolVar(&f.register, "register", false, "register the account before playing")
	flag.BoolVar(&f.listGames, "games", false, "list the server's game types and exit")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, f, logger)
	stop()
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// run returns instead of exiting so the journal and status server are always
// closed on the way out.
func run(ctx context.Context, cfg config.Config, f flags, logger *logrus.Logger) error {
	api := lobbyapi.New(cfg.ServerURL, cfg.APIPrefix, logger)

	if f.listGames {
		games, err := api.Games(ctx)
		if err != nil {
			return fmt.Errorf("list games: %w", err)
		}
		for _, g := range games {
			fmt.Printf("%-20s %s\n", g.Name, g.DisplayName)
		}
		return nil
	}

	username, err := authenticate(ctx, api, cfg.Token, f.user, f.password, f.register)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	code, err := enterRoom(ctx, api, f.room, f.create)
	if err != nil {
		return fmt.Errorf("room: %w", err)
	}
	logger.Infof("Playing as %s in room %s", username, code)

	var rec *journal.Async
	if cfg.JournalEnabled() {
		r, err := journal.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.QueueName)
		if err != nil {
			logger.Warnf("journal disabled: %v", err)
		} else {
			rec = journal.NewAsync(r, logger, 0)
			defer func() {
				if err := rec.Close(); err != nil {
					logger.Warnf("Closing journal: %v", err)
				}
			}()
			logger.Infof("Journaling frames to %s", r.Queue())
		}
	}

	runner, err := session.NewRunner(session.Options{
		RoomCode:  code,
		Username:  username,
		ServerURL: cfg.ServerURL,
		Logger:    logger,
		Journal:   rec,
		OnChange:  printer(),
	}, nil)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           statusapi.Routes(runner, logger, cfg.StatusOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Infof("Status server on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("status server: %v", err)
			}
		}()
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go readCommands(runner, logger, cancel)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// authenticate returns the username the server will see, logging in unless
// a token was supplied.
func authenticate(ctx context.Context, api *lobbyapi.Client, token, user, password string, register bool) (string, error) {
	if token == "" {
		if user == "" || password == "" {
			return "", errors.New("set -user and -password, or TURN_TOKEN")
		}
		var err error
		if register {
			token, err = api.Register(ctx, user, password)
		} else {
			token, err = api.Login(ctx, user, password)
		}
		if err != nil {
			return "", err
		}
	}
	api.SetToken(token)

	name, err := lobbyapi.Subject(token)
	if err != nil {
		if user == "" {
			return "", err
		}
		return user, nil
	}
	return name, nil
}

func enterRoom(ctx context.Context, api *lobbyapi.Client, room, gameType string) (string, error) {
	if gameType != "" {
		created, err := api.CreateRoom(ctx, gameType)
		if err != nil {
			return "", err
		}
		return created.RoomCode, nil
	}
	code, err := session.NormalizeRoomCode(room)
	if err != nil {
		return "", err
	}
	joined, err := api.JoinRoom(ctx, code)
	if err != nil {
		return "", err
	}
	return joined.RoomCode, nil
}

// printer prints one line whenever the turn headline changes.
func printer() func(session.View) {
	var last string
	return func(v session.View) {
		line := headline(v)
		if line == last {
			return
		}
		last = line
		fmt.Println(line)
	}
}

func headline(v session.View) string {
	switch {
	case v.GameEnded:
		if v.Winner != "" {
			return fmt.Sprintf("[%s] game over: %s wins (%s)", v.RoomCode, v.Winner, v.EndReason)
		}
		return fmt.Sprintf("[%s] game over (%s)", v.RoomCode, v.EndReason)
	case !v.GameStarted:
		line := fmt.Sprintf("[%s] %s, waiting: %s", v.RoomCode, v.Conn, strings.Join(v.Players, ", "))
		if v.IsCreator() {
			line += " (type start when ready)"
		}
		return line
	case v.IsMyTurn && !v.MoveInProgress:
		if color := v.ColorOf(v.Username); color != "" {
			return fmt.Sprintf("[%s] turn %d: your move as %s, place x,y", v.RoomCode, v.Turn, color)
		}
		choices := make([]string, 0, len(v.Choices))
		for _, c := range v.Choices {
			choices = append(choices, c.String())
		}
		return fmt.Sprintf("[%s] turn %d: your move %v", v.RoomCode, v.Turn, choices)
	default:
		return fmt.Sprintf("[%s] turn %d: %s to move", v.RoomCode, v.Turn, v.CurrentPlayer)
	}
}

// readCommands drives the session from stdin until EOF or exit.
func readCommands(r *session.Runner, logger logrus.FieldLogger, quit context.CancelFunc) {
	defer quit()
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch cmd := strings.ToLower(fields[0]); cmd {
		case "start":
			err = r.StartGame()
		case "restart":
			err = r.RestartGame()
		case "pick", "play", "place":
			if len(fields) < 2 {
				err = fmt.Errorf("usage: %s <move>", cmd)
				break
			}
			var m protocol.Move
			if m, err = protocol.ParseMove(strings.Join(fields[1:], "")); err == nil {
				err = r.SubmitMove(m)
			}
		case "state":
			var v session.View
			if v, err = r.Snapshot(); err == nil {
				fmt.Println(headline(v))
			}
		case "exit", "quit":
			if err := r.Exit(); err != nil {
				logger.Warnf("exit: %v", err)
			}
			return
		default:
			err = fmt.Errorf("unknown command %q (start, pick <move>, restart, state, exit)", cmd)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}
