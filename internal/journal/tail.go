package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBadEntry is returned by Pop for list items that are not journal entries.
// The item is consumed either way.
var ErrBadEntry = errors.New("bad journal entry")

// Pop removes the oldest entry, blocking up to wait. ok is false when the
// list stayed empty.
func (r *Redis) Pop(ctx context.Context, wait time.Duration) (e Entry, ok bool, err error) {
	res, err := r.client.BLPop(ctx, wait, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("BLPop %s: %w", r.queue, err)
	}
	// res[0] is the list name
	if len(res) < 2 {
		return Entry{}, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &e); err != nil {
		return Entry{}, true, fmt.Errorf("%w: %v", ErrBadEntry, err)
	}
	return e, true, nil
}

// Filter selects entries by room, session and frame type. Zero fields match
// everything.
type Filter struct {
	Room    string
	Session uuid.UUID
	Types   []string
}

func (f Filter) Match(e Entry) bool {
	if f.Room != "" && f.Room != e.Room {
		return false
	}
	if f.Session != uuid.Nil && f.Session != e.SessionID {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	return true
}
