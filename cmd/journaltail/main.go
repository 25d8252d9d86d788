// cmd/journaltail/main.go pops recorded frames off the Redis journal queue and
// prints them, optionally filtered by room, session or frame type.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abhijit77github/turn-game/internal/config"
	"github.com/abhijit77github/turn-game/internal/journal"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// popWait keeps BLPop short so cancellation is noticed.
const popWait = 3 * time.Second

func main() {
	cfg := config.Load()

	room := flag.String("room", "", "only frames from this room")
	sessionID := flag.String("session", "", "only frames from this session id")
	types := flag.String("type", "", "comma separated frame types to keep")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	filter := journal.Filter{Room: strings.ToUpper(*room)}
	if *sessionID != "" {
		id, err := uuid.Parse(*sessionID)
		if err != nil {
			logger.Fatalf("bad session id: %v", err)
		}
		filter.Session = id
	}
	for _, t := range strings.Split(*types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter.Types = append(filter.Types, t)
		}
	}

	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := journal.ConnectRedis(ctx, addr, cfg.RedisDB, cfg.QueueName)
	if err != nil {
		logger.Fatal(err)
	}
	defer r.Close()

	logger.Infof("Tailing %s on %s", r.Queue(), addr)
	for ctx.Err() == nil {
		e, ok, err := r.Pop(ctx, popWait)
		switch {
		case errors.Is(err, journal.ErrBadEntry):
			logger.Warnf("Skipping item: %v", err)
		case err != nil && ctx.Err() == nil:
			logger.Errorf("Pop: %v", err)
			time.Sleep(time.Second)
		case err == nil && ok && filter.Match(e):
			fmt.Println(format(e))
		}
	}
	logger.Info("journaltail shutting down")
}

func format(e journal.Entry) string {
	ts := time.UnixMilli(e.Timestamp).Format("15:04:05.000")
	return fmt.Sprintf("%s %s %-8s #%-4d %-14s %s", ts, e.Room, e.User, e.Seq, e.Type, e.Payload)
}
