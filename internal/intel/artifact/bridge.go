// Package artifact collects page-side artifacts (meta tags, cookies, web
// storage) for a target site. Collection runs behind an isolation boundary and
// answers with a single reply message matched to a one-shot Future.
package artifact

//go:generate mockgen -source=bridge.go -destination=mocks/mocks.go -package=mocks Collector Replier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"forensics/internal/intel/models"
	"forensics/internal/platform/logger"
)

// Request identifies one collection. Replies carry ID as their RequestID.
type Request struct {
	ID  string
	URL string
}

// Replier accepts collector replies. Deliver reports whether the reply was
// matched to a pending request.
type Replier interface {
	Deliver(msg models.ArtifactMessage) bool
}

// Collector triggers page-side collection. Implementations reply through the
// Replier, either before Collect returns or later.
type Collector interface {
	Collect(ctx context.Context, req Request, reply Replier) error
}

// Future is fulfilled exactly once, by the first matching reply or by the
// bridge giving up on the request.
type Future struct {
	id    string
	done  chan struct{}
	once  sync.Once
	timer *time.Timer
	msg   models.ArtifactMessage
	ok    bool
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

func (f *Future) ID() string { return f.id }

// Done is closed once the future is fulfilled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the future is fulfilled or ctx ends. ok is false when no
// reply arrived.
func (f *Future) Await(ctx context.Context) (models.ArtifactMessage, bool) {
	select {
	case <-f.done:
		return f.msg, f.ok
	case <-ctx.Done():
		return models.ArtifactMessage{}, false
	}
}

func (f *Future) fulfil(msg models.ArtifactMessage, ok bool) bool {
	first := false
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		f.msg, f.ok = msg, ok
		first = true
		close(f.done)
	})
	return first
}

// Bridge pairs collection requests with their replies.
type Bridge struct {
	collector Collector
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]*Future
}

type BridgeOption func(*Bridge)

func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBridge(collector Collector, timeout time.Duration, opts ...BridgeOption) (*Bridge, error) {
	if collector == nil {
		return nil, errors.New("collector is required")
	}
	if timeout <= 0 {
		return nil, errors.New("collection timeout must be positive")
	}
	b := &Bridge{
		collector: collector,
		timeout:   timeout,
		logger:    logger.Discard(),
		pending:   make(map[string]*Future),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start registers a Future for a new request and only then triggers the
// collector, so a reply can never arrive before its Future exists. An
// unanswered request is abandoned after the bridge timeout.
func (b *Bridge) Start(ctx context.Context, target string) *Future {
	f := newFuture(uuid.NewString())

	b.mu.Lock()
	b.pending[f.id] = f
	f.timer = time.AfterFunc(b.timeout, func() {
		if b.abandon(f.id) {
			b.logger.WarnContext(ctx, "artifact collection timed out", "request_id", f.id, "url", target)
		}
	})
	b.mu.Unlock()

	go func() {
		cctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		if err := b.collector.Collect(cctx, Request{ID: f.id, URL: target}, b); err != nil {
			b.logger.WarnContext(ctx, "artifact collection failed", "request_id", f.id, "url", target, "error", err)
			b.abandon(f.id)
		}
	}()
	return f
}

// Deliver fulfils the Future registered for msg.RequestID and deregisters it.
// Replies of another type, for unknown requests, or repeated replies are
// ignored.
func (b *Bridge) Deliver(msg models.ArtifactMessage) bool {
	if msg.Type != models.ArtifactMessageType {
		return false
	}
	f, ok := b.take(msg.RequestID)
	if !ok {
		b.logger.Debug("ignoring unmatched artifact reply", "request_id", msg.RequestID)
		return false
	}
	return f.fulfil(sanitizeMessage(msg), true)
}

// Pending reports how many requests still await a reply.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bridge) abandon(id string) bool {
	f, ok := b.take(id)
	if !ok {
		return false
	}
	return f.fulfil(models.ArtifactMessage{}, false)
}

func (b *Bridge) take(id string) (*Future, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	return f, ok
}
