package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/chatdesk/models"
)

const sessionKeyPrefix = "chat:session:"

// RedisSessionStore keeps each transcript as a Redis list of JSON turns.
// RPUSH is atomic on the server, so concurrent appends to one session are
// ordered by arrival and the returned length is exact. Every append refreshes
// the key's TTL.
type RedisSessionStore struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore wraps rc. A ttl <= 0 disables expiry.
func NewRedisSessionStore(rc *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rc: rc, ttl: ttl}
}

func (s *RedisSessionStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisSessionStore) Append(ctx context.Context, sessionID string, turn models.Turn) (int, error) {
	b, err := json.Marshal(turn)
	if err != nil {
		return 0, fmt.Errorf("encode turn: %w", err)
	}
	key := s.key(sessionID)
	var push *redis.IntCmd
	_, err = s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		push = pipe.RPush(ctx, key, b)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: append %s: %v", ErrUnavailable, key, err)
	}
	return int(push.Val()), nil
}

func (s *RedisSessionStore) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	raw, err := s.rc.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: history: %v", ErrUnavailable, err)
	}
	return decodeTurns(raw)
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rc.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrUnavailable, err)
	}
	return nil
}

// List walks session keys with SCAN and reads each length and tail turn in
// one pipeline. Sessions expiring mid-walk are skipped.
func (s *RedisSessionStore) List(ctx context.Context) ([]models.SessionSummary, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.rc.Scan(ctx, cursor, sessionKeyPrefix+"*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return []models.SessionSummary{}, nil
	}

	lens := make([]*redis.IntCmd, len(keys))
	tails := make([]*redis.StringCmd, len(keys))
	_, err := s.rc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			lens[i] = pipe.LLen(ctx, k)
			tails[i] = pipe.LIndex(ctx, k, -1)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}

	out := make([]models.SessionSummary, 0, len(keys))
	for i, k := range keys {
		n := int(lens[i].Val())
		if n == 0 {
			continue
		}
		var turns []models.Turn
		if raw, err := tails[i].Result(); err == nil {
			turns, _ = decodeTurns([]string{raw})
		}
		out = append(out, models.SessionSummary{
			ID:           strings.TrimPrefix(k, sessionKeyPrefix),
			MessageCount: n,
			LastMessage:  Preview(turns),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func decodeTurns(raw []string) ([]models.Turn, error) {
	turns := make([]models.Turn, 0, len(raw))
	for _, r := range raw {
		var t models.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
