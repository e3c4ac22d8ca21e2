package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces refresh records in Redis.
const DefaultKeyPrefix = "refresh_token"

// DefaultTTL is the refresh token lifetime when none is configured.
const DefaultTTL = time.Hour

var (
	// ErrNotFound is returned when the token has no live record.
	ErrNotFound = errors.New("refresh token not found")
	// ErrExpired is returned when the consumed record was past its expiry.
	ErrExpired = errors.New("refresh token expired")
	// ErrRecordCorrupt is returned when the stored blob cannot be decoded.
	ErrRecordCorrupt = errors.New("refresh record corrupt")
	// ErrRedisUnavailable wraps cache backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrTokenCollision is returned when a freshly generated token already has a live record.
	ErrTokenCollision = errors.New("refresh token collision")
	// ErrMintFailed wraps a MintFunc failure during Rotate.
	ErrMintFailed = errors.New("access token mint failed")
	// ErrReissueFailed wraps an Issue failure during Rotate.
	ErrReissueFailed = errors.New("refresh token reissue failed")
)

// MintFunc signs an access token for the consumed record's subject and roles.
type MintFunc func(username string, roles []string) (string, error)

// Rotation is the result of a successful Rotate.
type Rotation struct {
	AccessToken  string
	RefreshToken string
	// Record is the consumed record the new tokens were derived from.
	Record *Record
}

// Options configures a Store. Zero values select the defaults.
type Options struct {
	KeyPrefix string
	TTL       time.Duration
	Now       func() time.Time
	NewToken  func() string
}

// Store is the Redis-backed refresh token store.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

// NewStore creates a refresh [Store] backed by the given Redis client.
func NewStore(rdb redis.UniversalClient, opts Options) *Store {
	s := &Store{
		redis:    rdb,
		prefix:   opts.KeyPrefix,
		ttl:      opts.TTL,
		now:      opts.Now,
		newToken: opts.NewToken,
	}
	if s.prefix == "" {
		s.prefix = DefaultKeyPrefix
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newToken == nil {
		s.newToken = uuid.NewString
	}
	return s
}

// TTL reports the configured refresh token lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) key(token string) string {
	return s.prefix + ":" + token
}

// Issue creates a LIVE token for username with the given roles and returns the
// opaque token string. The key is written with SET NX and a TTL matching the
// record expiry, so an existing live record is never overwritten.
//
//	Performance: 1 Redis SET.
func (s *Store) Issue(ctx context.Context, username string, roles []string) (string, error) {
	now := s.now()
	rec := &Record{
		Username:  username,
		Roles:     append([]string{}, roles...),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := Encode(rec)
	if err != nil {
		return "", err
	}

	token := s.newToken()
	ok, err := s.redis.SetNX(ctx, s.key(token), data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return "", ErrTokenCollision
	}
	return token, nil
}

// Consume fetches and deletes the record for token. The key is deleted
// before the record is validated, so a token is single-use whether or not it
// turns out to be expired or corrupt.
//
//	Performance: 2 Redis commands (GET + DEL).
func (s *Store) Consume(ctx context.Context, token string) (*Record, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	key := s.key(token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	if rec.Expired(s.now()) {
		return nil, ErrExpired
	}
	return rec, nil
}

// Rotate consumes token, mints an access token from the stored subject and
// roles, and issues a replacement refresh token. A failure after Consume
// leaves the presented token consumed; nothing is retried.
//
//	Performance: 3 Redis commands (GET + DEL + SET).
func (s *Store) Rotate(ctx context.Context, token string, mint MintFunc) (*Rotation, error) {
	rec, err := s.Consume(ctx, token)
	if err != nil {
		return nil, err
	}

	access, err := mint(rec.Username, rec.Roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintFailed, err)
	}

	next, err := s.Issue(ctx, rec.Username, rec.Roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReissueFailed, err)
	}

	return &Rotation{AccessToken: access, RefreshToken: next, Record: rec}, nil
}

// Ping checks Redis connectivity and returns the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
