package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const feedKeyPrefix = "portal:notices:"

// Variant styles a notice in the client.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a transient user-facing message (a toast).
type Notice struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Variant     Variant   `json:"variant"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Feed queues notices per browser session until the client drains them.
type Feed interface {
	Push(ctx context.Context, sessionID string, n Notice) error
	Drain(ctx context.Context, sessionID string) ([]Notice, error)
}

func prepare(n Notice) Notice {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Variant == "" {
		n.Variant = VariantDefault
	}
	return n
}

// MemoryFeed keeps notices in process memory.
type MemoryFeed struct {
	mu      sync.Mutex
	maxKeep int
	notices map[string][]Notice
}

// NewMemoryFeed keeps at most maxKeep notices per session (0 = unbounded).
func NewMemoryFeed(maxKeep int) *MemoryFeed {
	return &MemoryFeed{maxKeep: maxKeep, notices: make(map[string][]Notice)}
}

var _ Feed = (*MemoryFeed)(nil)

func (f *MemoryFeed) Push(ctx context.Context, sessionID string, n Notice) error {
	if sessionID == "" {
		return errors.New("notify: session id required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	list := append(f.notices[sessionID], prepare(n))
	if f.maxKeep > 0 && len(list) > f.maxKeep {
		list = list[len(list)-f.maxKeep:]
	}
	f.notices[sessionID] = list
	return nil
}

func (f *MemoryFeed) Drain(ctx context.Context, sessionID string) ([]Notice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.notices[sessionID]
	delete(f.notices, sessionID)
	return list, nil
}

// RedisFeed stores notices as a capped JSON list per session.
type RedisFeed struct {
	redis   *redis.Client
	tracer  trace.Tracer
	ttl     time.Duration
	maxKeep int64
}

// NewRedisFeed builds a feed on an existing client.
func NewRedisFeed(client *redis.Client, ttl time.Duration, maxKeep int) *RedisFeed {
	if client == nil {
		panic("notify: redis client required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisFeed{
		redis:   client,
		tracer:  otel.Tracer("portal.internal.notify.feed"),
		ttl:     ttl,
		maxKeep: int64(maxKeep),
	}
}

var _ Feed = (*RedisFeed)(nil)

func (f *RedisFeed) Push(ctx context.Context, sessionID string, n Notice) error {
	if sessionID == "" {
		return errors.New("notify: session id required")
	}
	data, err := json.Marshal(prepare(n))
	if err != nil {
		return fmt.Errorf("notify: marshal notice: %w", err)
	}

	ctx, span := f.tracer.Start(ctx, "notify.feed.push")
	defer span.End()

	key := feedKeyPrefix + sessionID
	pipe := f.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	if f.maxKeep > 0 {
		pipe.LTrim(ctx, key, -f.maxKeep, -1)
	}
	pipe.Expire(ctx, key, f.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: push notice: %w", err)
	}
	return nil
}

func (f *RedisFeed) Drain(ctx context.Context, sessionID string) ([]Notice, error) {
	ctx, span := f.tracer.Start(ctx, "notify.feed.drain")
	defer span.End()

	key := feedKeyPrefix + sessionID
	pipe := f.redis.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return nil, fmt.Errorf("notify: drain notices: %w", err)
	}

	raw := rangeCmd.Val()
	out := make([]Notice, 0, len(raw))
	for _, item := range raw {
		var n Notice
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
