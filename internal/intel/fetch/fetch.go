// Package fetch bounds every outbound call with a timeout and cooperative
// cancellation. Resolvers never touch net/http directly.
package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"forensics/internal/intel/metrics"
	"forensics/internal/platform/logger"
)

// DefaultUserAgent identifies this client to upstream providers.
const DefaultUserAgent = "ForensicsWHOIS/1.0"

// MaxBodyBytes is the default cap on a decoded response body.
const MaxBodyBytes = 8 << 20

// Request describes one outbound GET.
type Request struct {
	URL    string
	Header http.Header
}

// Response is a fully read 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Fetcher is the contract resolvers depend on.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// BoundedFetcher issues each request under its own deadline. When the deadline
// passes the in-flight request is cancelled through its context and Fetch
// returns a timeout Failure; the connection is not left running.
type BoundedFetcher struct {
	client     *http.Client
	timeout    time.Duration
	maxBody    int64
	publicOnly bool
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a BoundedFetcher.
type Option func(*BoundedFetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *BoundedFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRateLimit spaces out calls made through this fetcher. Waiting for a
// token counts toward the call's own timeout.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *BoundedFetcher) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithMaxBody raises or lowers the decoded body cap. Larger bodies fail with
// KindTooLarge instead of being cut short.
func WithMaxBody(n int64) Option {
	return func(f *BoundedFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(f *BoundedFetcher) {
		f.userAgent = ua
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *BoundedFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *BoundedFetcher) {
		f.metrics = m
	}
}

// New creates a fetcher whose calls each get timeout to complete, body included.
func New(timeout time.Duration, opts ...Option) (*BoundedFetcher, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got %s", timeout)
	}
	f := &BoundedFetcher{
		client:    &http.Client{},
		timeout:   timeout,
		maxBody:   MaxBodyBytes,
		userAgent: DefaultUserAgent,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.publicOnly {
		f.client = publicOnlyClient(f.client)
	}
	return f, nil
}

// MaxBody returns the decoded body cap.
func (f *BoundedFetcher) MaxBody() int64 {
	return f.maxBody
}

// Timeout returns the per-call deadline.
func (f *BoundedFetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch performs a GET bounded by the fetcher timeout. Errors are always *Failure.
func (f *BoundedFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	host := hostOf(req.URL)
	defer func() { f.metrics.ObserveFetchLatency(host, time.Since(start)) }()

	if f.limiter != nil {
		// Wait fails early when no token can arrive before the deadline.
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &Failure{Kind: KindTimeout, URL: req.URL, Err: err}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, URL: req.URL, Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			f.logger.WarnContext(ctx, "refused non-public address", "host", host)
		}
		return nil, f.failure(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		f.logger.DebugContext(ctx, "upstream returned non-2xx", "host", host, "status", resp.StatusCode)
		return nil, &Failure{Kind: KindNetwork, Status: resp.StatusCode, URL: req.URL}
	}

	reader, err := decodedBody(resp)
	if err != nil {
		return nil, &Failure{Kind: KindNetwork, URL: req.URL, Err: err}
	}
	body, err := io.ReadAll(io.LimitReader(reader, f.maxBody+1))
	if err != nil {
		return nil, f.failure(ctx, req.URL, err)
	}
	if int64(len(body)) > f.maxBody {
		f.logger.WarnContext(ctx, "upstream body over limit", "host", host, "limit_bytes", f.maxBody)
		return nil, &Failure{Kind: KindTooLarge, URL: req.URL, Err: fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBody)}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (f *BoundedFetcher) failure(ctx context.Context, rawURL string, err error) *Failure {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		f.logger.DebugContext(ctx, "upstream timed out", "host", hostOf(rawURL), "timeout", f.timeout)
		return &Failure{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Failure{Kind: KindNetwork, URL: rawURL, Err: err}
}

// decodedBody unwraps Content-Encoding layers, last applied first.
func decodedBody(resp *http.Response) (io.Reader, error) {
	contentEncoding := resp.Header.Get("Content-Encoding")
	if contentEncoding == "" {
		return resp.Body, nil
	}

	encodings := strings.Split(contentEncoding, ",")
	var reader io.Reader = resp.Body
	for i := len(encodings) - 1; i >= 0; i-- {
		switch enc := strings.TrimSpace(strings.ToLower(encodings[i])); enc {
		case "gzip":
			gz, err := gzip.NewReader(reader)
			if err != nil {
				return nil, fmt.Errorf("gzip decompression failed: %w", err)
			}
			reader = gz
		case "br":
			reader = brotli.NewReader(reader)
		case "deflate":
			reader = flate.NewReader(reader)
		case "identity", "":
		default:
			return nil, fmt.Errorf("unsupported encoding: %s", enc)
		}
	}
	return reader, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
