// Package dns resolves forward A records and reverse PTR records through a
// DNS-over-HTTPS JSON endpoint. Responses are cached verbatim.
package dns

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	miekgdns "github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"forensics/internal/intel/cache"
	"forensics/internal/intel/fetch"
	"forensics/internal/intel/metrics"
	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/internal/platform/logger"
	"forensics/pkg/domain"
	pstrings "forensics/pkg/platform/strings"
)

const DefaultEndpoint = "https://dns.google/resolve"

// client is the shared query path for both resolvers.
type client struct {
	id       string
	fetcher  fetch.Fetcher
	cache    *cache.Store
	endpoint string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*client)

func WithLogger(l *slog.Logger) Option {
	return func(c *client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *client) {
		c.metrics = m
	}
}

// WithEndpoint overrides the resolver URL.
func WithEndpoint(endpoint string) Option {
	return func(c *client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func newClient(id string, fetcher fetch.Fetcher, store *cache.Store, opts []Option) (*client, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	c := &client{
		id:       id,
		fetcher:  fetcher,
		cache:    store,
		endpoint: DefaultEndpoint,
		logger:   logger.Discard(),
		tracer:   otel.Tracer("forensics/intel/dns"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// query returns the decoded response for name/type, reading and filling the
// cache under key. Any failure is logged and reported as ok=false.
func (c *client) query(ctx context.Context, key, name string, rrType int) (*models.DNSResponse, bool) {
	ctx, span := c.tracer.Start(ctx, c.id+".query", trace.WithAttributes(
		attribute.String("dns.name", name),
		attribute.Int("dns.type", rrType),
	))
	defer span.End()

	if raw, ok := c.cache.Get(ctx, key); ok {
		var resp models.DNSResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			return &resp, true
		}
	}

	q := url.Values{}
	q.Set("name", name)
	q.Set("type", strconv.Itoa(rrType))
	res, err := c.fetcher.Fetch(ctx, fetch.Request{
		URL: c.endpoint + "?" + q.Encode(),
	})
	if err != nil {
		perr := providers.FromFetchError(c.id, err)
		c.metrics.RecordProviderOutcome(c.id, string(perr.Category))
		c.logger.WarnContext(ctx, "dns query failed", "name", name, "type", rrType, "error", perr)
		return nil, false
	}

	var resp models.DNSResponse
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		c.metrics.RecordProviderOutcome(c.id, string(providers.ErrorBadData))
		c.logger.WarnContext(ctx, "dns response did not decode", "name", name, "error", err)
		return nil, false
	}
	c.metrics.RecordProviderOutcome(c.id, providers.OutcomeSuccess.String())
	c.cache.Set(ctx, key, json.RawMessage(res.Body))
	return &resp, true
}

// Resolver looks up A records for a domain.
type Resolver struct {
	c *client
}

func New(fetcher fetch.Fetcher, store *cache.Store, opts ...Option) (*Resolver, error) {
	c, err := newClient("dns", fetcher, store, opts)
	if err != nil {
		return nil, err
	}
	return &Resolver{c: c}, nil
}

// Lookup returns the resolver response for d, type A. ok is false when no
// data could be obtained.
func (r *Resolver) Lookup(ctx context.Context, d domain.DomainName) (*models.DNSResponse, bool) {
	return r.c.query(ctx, cache.DNSKey(d.String()), d.String(), models.DNSTypeA)
}

// Addresses returns the distinct A-record addresses in answer order.
func Addresses(resp *models.DNSResponse) []string {
	return pstrings.Distinct(resp.DataOfType(models.DNSTypeA))
}

// ReverseResolver looks up PTR records for an address.
type ReverseResolver struct {
	c *client
}

func NewReverse(fetcher fetch.Fetcher, store *cache.Store, opts ...Option) (*ReverseResolver, error) {
	c, err := newClient("rdns", fetcher, store, opts)
	if err != nil {
		return nil, err
	}
	return &ReverseResolver{c: c}, nil
}

// Lookup returns the PTR response for address. Addresses that do not parse
// as IPs yield ok=false without a request.
func (r *ReverseResolver) Lookup(ctx context.Context, address string) (*models.DNSResponse, bool) {
	name, err := ReverseName(address)
	if err != nil {
		r.c.logger.WarnContext(ctx, "skipping reverse lookup", "address", address, "error", err)
		return nil, false
	}
	return r.c.query(ctx, cache.ReverseDNSKey(address), name, models.DNSTypePTR)
}

// ReverseName converts an address into its reverse-lookup name without the
// trailing root dot: "93.184.216.34" becomes "34.216.184.93.in-addr.arpa".
func ReverseName(address string) (string, error) {
	name, err := miekgdns.ReverseAddr(address)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(name, "."), nil
}
