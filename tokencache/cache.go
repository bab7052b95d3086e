// Package tokencache mirrors the current access credential into the tab
// store so a page reload can rehydrate without waiting on the network. The
// mirror is a continuity aid only: boot always re-derives truth from the
// identity service and overwrites whatever is cached here.
package tokencache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/EduNex-Academy/session-gateway/tabstore"
)

// recordKey is the fixed tab-store key the mirror lives under.
const recordKey = "edunex_access_token"

// Record is the persisted form of the mirror. ExpiresAtEpochMillis is
// computed once at write time; reads only compare it against "now".
type Record struct {
	AccessToken          string `json:"accessToken"`
	TokenType            string `json:"tokenType"`
	ExpiresInSeconds     int64  `json:"expiresIn"`
	ExpiresAtEpochMillis int64  `json:"expiresAt"`
}

// Token is the readable part of a still-valid record.
type Token struct {
	AccessToken string
	TokenType   string
}

// Cache is the expiry-aware token mirror. Expiry is checked lazily on read,
// and an expired or malformed record is removed by the read that finds it;
// there is no background sweep because rehydration on load and write-through
// on state change are the only consumers.
type Cache struct {
	repo    tabstore.Repo
	log     zerolog.Logger
	nowTime func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) {
		c.log = log
	}
}

// New creates a token mirror over the given tab store.
func New(repo tabstore.Repo, options ...Option) *Cache {
	c := &Cache{
		repo:    repo,
		log:     zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Set overwrites the mirror with a new credential. The cache is best-effort:
// storage failures are logged and swallowed, never surfaced to the caller.
func (c *Cache) Set(ctx context.Context, accessToken, tokenType string, expiresInSeconds int64) {
	rec := Record{
		AccessToken:          accessToken,
		TokenType:            tokenType,
		ExpiresInSeconds:     expiresInSeconds,
		ExpiresAtEpochMillis: c.nowTime().UnixMilli() + expiresInSeconds*1000,
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		c.log.Warn().Err(err).Msg("token mirror serialize failed")
		return
	}
	if err := c.repo.Set(ctx, recordKey, string(raw)); err != nil {
		c.log.Warn().Err(err).Msg("token mirror write failed")
	}
}

// Get returns the cached token, or nil when the record is absent, malformed,
// or expired. Malformed and expired records are cleared as a side effect.
func (c *Cache) Get(ctx context.Context) *Token {
	raw, ok, err := c.repo.Get(ctx, recordKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("token mirror read failed")
		return nil
	}
	if !ok {
		return nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.AccessToken == "" {
		c.Clear(ctx)
		return nil
	}
	if c.nowTime().UnixMilli() >= rec.ExpiresAtEpochMillis {
		c.Clear(ctx)
		return nil
	}

	return &Token{
		AccessToken: rec.AccessToken,
		TokenType:   rec.TokenType,
	}
}

// Clear removes the mirror record unconditionally. Idempotent.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.repo.Delete(ctx, recordKey); err != nil {
		c.log.Warn().Err(err).Msg("token mirror clear failed")
	}
}

// HasValid reports whether a non-expired record is present.
func (c *Cache) HasValid(ctx context.Context) bool {
	return c.Get(ctx) != nil
}
