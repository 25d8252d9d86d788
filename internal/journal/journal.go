// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list that receives recorded frames.
const DefaultQueueName = "turn_game_frames"

// recordTimeout bounds one push from the background writer.
const recordTimeout = 2 * time.Second

// Entry is one inbound frame as seen by a session.
type Entry struct {
	SessionID uuid.UUID       `json:"session_id"`
	Seq       int             `json:"seq"`
	Room      string          `json:"room"`
	User      string          `json:"user"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Recorder stores journal entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// Nop discards everything. It is the default when no Redis is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Close() error                        { return nil }

// Redis pushes entries as JSON onto a Redis list for offline replay.
type Redis struct {
	client *redis.Client
	queue  string
}

func NewRedis(client *redis.Client, queue string) *Redis {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Redis{client: client, queue: queue}
}

// ConnectRedis dials addr/db and pings it before returning.
func ConnectRedis(ctx context.Context, addr string, db int, queue string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewRedis(client, queue), nil
}

// Queue is the list name entries are pushed to.
func (r *Redis) Queue() string { return r.queue }

func (r *Redis) Record(ctx context.Context, e Entry) error {
	if !json.Valid(e.Payload) {
		// keep broken frames readable in the journal
		quoted, err := json.Marshal(string(e.Payload))
		if err != nil {
			return fmt.Errorf("failed to quote payload: %w", err)
		}
		e.Payload = quoted
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if err := r.client.RPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }

// Async feeds a Recorder from one background goroutine so the session loop
// never waits on the network. Entries keep their order; when the buffer is
// full new entries are dropped.
type Async struct {
	rec  Recorder
	log  logrus.FieldLogger
	ch   chan Entry
	done chan struct{}
}

func NewAsync(rec Recorder, log logrus.FieldLogger, buffer int) *Async {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if buffer <= 0 {
		buffer = 64
	}
	a := &Async{rec: rec, log: log, ch: make(chan Entry, buffer), done: make(chan struct{})}
	go a.run()
	return a
}

// Record queues e without blocking.
func (a *Async) Record(e Entry) {
	select {
	case a.ch <- e:
	default:
		a.log.Warnf("Journal buffer full, dropping frame %d (%s)", e.Seq, e.Type)
	}
}

// Close flushes queued entries and closes the underlying recorder.
func (a *Async) Close() error {
	close(a.ch)
	<-a.done
	return a.rec.Close()
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := a.rec.Record(ctx, e); err != nil {
			a.log.Warnf("Failed to journal frame %d: %v", e.Seq, err)
		}
		cancel()
	}
}
