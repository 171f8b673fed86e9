// Package sessionredis implements the session store on Redis. Both the
// get-or-create and the consume paths run as Lua scripts, so the
// compare-and-increment is atomic on the server and concurrent consumers
// cannot overspend a budget.
package sessionredis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"agora/internal/domain"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client}, nil
}

func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func sessionKey(participantID, dom string) string {
	return "agora:session:" + participantID + ":" + dom
}

var replaceScript = redis.NewScript(`
local exp = redis.call("HGET", KEYS[1], "expires_at")
if exp and tonumber(exp) > tonumber(ARGV[5]) then
  local vals = redis.call("HMGET", KEYS[1], "id", "queries_used", "max_queries", "created_at")
  return {vals[1], vals[2], vals[3], vals[4], exp}
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "id", ARGV[1], "queries_used", "0", "max_queries", ARGV[2], "created_at", ARGV[3], "expires_at", ARGV[4])
redis.call("PEXPIREAT", KEYS[1], tonumber(ARGV[4]))
return {ARGV[1], "0", ARGV[2], ARGV[3], ARGV[4]}
`)

var consumeScript = redis.NewScript(`
local exp = redis.call("HGET", KEYS[1], "expires_at")
if not exp or tonumber(exp) <= tonumber(ARGV[1]) then
  return {"-1"}
end
local used = tonumber(redis.call("HGET", KEYS[1], "queries_used"))
local max = tonumber(redis.call("HGET", KEYS[1], "max_queries"))
if used >= max then
  return {"-2"}
end
used = redis.call("HINCRBY", KEYS[1], "queries_used", 1)
local vals = redis.call("HMGET", KEYS[1], "id", "created_at")
return {tostring(used), tostring(max), vals[1], vals[2], exp}
`)

func (s *Store) GetActive(ctx context.Context, participantID, dom string, now time.Time) (*domain.Session, error) {
	vals, err := s.client.HMGet(ctx, sessionKey(participantID, dom),
		"id", "queries_used", "max_queries", "created_at", "expires_at").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	session, err := sessionFromValues(participantID, dom, vals)
	if err != nil {
		return nil, err
	}
	if session.Expired(now) {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (s *Store) Replace(ctx context.Context, session domain.Session) (*domain.Session, error) {
	result, err := replaceScript.Run(ctx, s.client,
		[]string{sessionKey(session.ParticipantID, session.Domain)},
		session.ID,
		strconv.Itoa(session.MaxQueries),
		strconv.FormatInt(session.CreatedAt.UnixMilli(), 10),
		strconv.FormatInt(session.ExpiresAt.UnixMilli(), 10),
		strconv.FormatInt(session.CreatedAt.UnixMilli(), 10),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	values, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected replace response", domain.ErrStorageUnavailable)
	}
	return sessionFromValues(session.ParticipantID, session.Domain, values)
}

func (s *Store) Consume(ctx context.Context, participantID, dom string, now time.Time) (*domain.Session, error) {
	result, err := consumeScript.Run(ctx, s.client,
		[]string{sessionKey(participantID, dom)},
		strconv.FormatInt(now.UnixMilli(), 10),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	values, ok := result.([]any)
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("%w: unexpected consume response", domain.ErrStorageUnavailable)
	}
	switch asString(values[0]) {
	case "-1":
		return nil, domain.ErrNotFound
	case "-2":
		return nil, domain.ErrBudgetExhausted
	}
	if len(values) < 5 {
		return nil, fmt.Errorf("%w: unexpected consume response", domain.ErrStorageUnavailable)
	}
	used, err := strconv.Atoi(asString(values[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	max, err := strconv.Atoi(asString(values[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	createdAt, err := strconv.ParseInt(asString(values[3]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	expiresAt, err := strconv.ParseInt(asString(values[4]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return &domain.Session{
		ID:            asString(values[2]),
		ParticipantID: participantID,
		Domain:        dom,
		QueriesUsed:   used,
		MaxQueries:    max,
		CreatedAt:     time.UnixMilli(createdAt),
		ExpiresAt:     time.UnixMilli(expiresAt),
	}, nil
}

// sessionFromValues decodes [id, queries_used, max_queries, created_at,
// expires_at]; any nil field means the hash is absent.
func sessionFromValues(participantID, dom string, values []any) (*domain.Session, error) {
	if len(values) < 5 {
		return nil, domain.ErrNotFound
	}
	for _, v := range values {
		if v == nil {
			return nil, domain.ErrNotFound
		}
	}
	used, err := strconv.Atoi(asString(values[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	max, err := strconv.Atoi(asString(values[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	createdAt, err := strconv.ParseInt(asString(values[3]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	expiresAt, err := strconv.ParseInt(asString(values[4]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return &domain.Session{
		ID:            asString(values[0]),
		ParticipantID: participantID,
		Domain:        dom,
		QueriesUsed:   used,
		MaxQueries:    max,
		CreatedAt:     time.UnixMilli(createdAt),
		ExpiresAt:     time.UnixMilli(expiresAt),
	}, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

var _ domain.SessionStore = (*Store)(nil)
