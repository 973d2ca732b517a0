// Package cache provides the TTL cache shared by every resolver.
//
// Store wraps a Backend and owns staleness: an entry is served only while
// now - WrittenAt < ttl. Stale entries stay in the backend and are ignored,
// never deleted. Backend failures are logged and reported as misses so a
// broken cache can slow a resolution down but never abort it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forensics/internal/intel/metrics"
	"forensics/internal/platform/logger"
	"forensics/pkg/platform/sentinel"
	"forensics/pkg/requestcontext"
)

// Entry is the persisted layout {data, writtenAt}. A later write to the same
// key replaces the entry as a whole.
type Entry struct {
	Key       string          `json:"-"`
	Data      json.RawMessage `json:"data"`
	WrittenAt time.Time       `json:"writtenAt"`
}

// Backend stores entries by key. Read returns sentinel.ErrNotFound on a miss.
type Backend interface {
	Read(ctx context.Context, key string) (Entry, error)
	Write(ctx context.Context, entry Entry) error
}

// Store is the cache facade used by resolvers.
type Store struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a Store over backend with the given validity window.
func New(backend Backend, ttl time.Duration, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	s := &Store{
		backend: backend,
		ttl:     ttl,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the validity window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the payload stored under key, or false when the key is absent,
// stale, or the backend failed.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	kind := kindOf(key)
	entry, err := s.backend.Read(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.RecordCacheLookup(kind, "miss")
			return nil, false
		}
		s.logger.WarnContext(ctx, "cache read failed, treating as miss", "key", key, "error", err)
		s.metrics.RecordCacheLookup(kind, "error")
		return nil, false
	}
	if requestcontext.Now(ctx).Sub(entry.WrittenAt) >= s.ttl {
		s.metrics.RecordCacheLookup(kind, "stale")
		return nil, false
	}
	s.metrics.RecordCacheLookup(kind, "hit")
	return entry.Data, true
}

// Set stores payload under key. Encoding or backend failures are logged and dropped.
func (s *Store) Set(ctx context.Context, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		s.metrics.RecordCacheLookup(kindOf(key), "error")
		return
	}
	entry := Entry{Key: key, Data: data, WrittenAt: requestcontext.Now(ctx)}
	if err := s.backend.Write(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		s.metrics.RecordCacheLookup(kindOf(key), "error")
	}
}

// Lookup is Get followed by decoding into T. A payload that no longer decodes
// is treated as a miss.
func Lookup[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T
	data, ok := s.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.WarnContext(ctx, "cache decode failed, treating as miss", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// Key builders. Keys are namespaced by data kind so resolvers never contend.

func WhoisKey(domain string) string       { return "whois:" + domain }
func DNSKey(domain string) string         { return "dns:" + domain }
func ReverseDNSKey(address string) string { return "rdns:" + address }
func SSLKey(domain string) string         { return "ssl:" + domain }

func kindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
