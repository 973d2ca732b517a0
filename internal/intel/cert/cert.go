// Package cert looks up issued certificates in a certificate-transparency log.
package cert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"

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
)

const (
	ProviderID      = "crtsh"
	DefaultEndpoint = "https://crt.sh/"
	// MaxBodyBytes bounds a log answer. Busy domains return tens of
	// megabytes of JSON, well past the fetch default.
	MaxBodyBytes = 64 << 20
)

type Resolver struct {
	fetcher  fetch.Fetcher
	cache    *cache.Store
	endpoint string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Resolver)

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithEndpoint(endpoint string) Option {
	return func(r *Resolver) {
		if endpoint != "" {
			r.endpoint = endpoint
		}
	}
}

func New(fetcher fetch.Fetcher, store *cache.Store, opts ...Option) (*Resolver, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	r := &Resolver{
		fetcher:  fetcher,
		cache:    store,
		endpoint: DefaultEndpoint,
		logger:   logger.Discard(),
		tracer:   otel.Tracer("forensics/intel/cert"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Lookup returns every logged certificate for d. ok is false when the log
// could not be queried; an empty list with ok=true means nothing was logged.
func (r *Resolver) Lookup(ctx context.Context, d domain.DomainName) ([]models.CertEntry, bool) {
	ctx, span := r.tracer.Start(ctx, "cert.Lookup", trace.WithAttributes(attribute.String("cert.domain", d.String())))
	defer span.End()

	key := cache.SSLKey(d.String())
	if entries, ok := cache.Lookup[[]models.CertEntry](ctx, r.cache, key); ok {
		return entries, true
	}

	q := url.Values{}
	q.Set("q", d.String())
	q.Set("output", "json")
	res, err := r.fetcher.Fetch(ctx, fetch.Request{URL: r.endpoint + "?" + q.Encode()})
	if err != nil {
		perr := providers.FromFetchError(ProviderID, err)
		r.metrics.RecordProviderOutcome(ProviderID, string(perr.Category))
		r.logger.WarnContext(ctx, "certificate log query failed", "domain", d.String(), "error", perr)
		return nil, false
	}

	var entries []models.CertEntry
	if err := json.Unmarshal(res.Body, &entries); err != nil {
		r.metrics.RecordProviderOutcome(ProviderID, string(providers.ErrorBadData))
		r.logger.WarnContext(ctx, "certificate log response did not decode", "domain", d.String(), "error", err)
		return nil, false
	}
	r.metrics.RecordProviderOutcome(ProviderID, providers.OutcomeSuccess.String())
	r.cache.Set(ctx, key, json.RawMessage(res.Body))
	return entries, true
}

// Latest returns the most recently issued certificate for d.
func (r *Resolver) Latest(ctx context.Context, d domain.DomainName) (models.CertEntry, bool) {
	entries, ok := r.Lookup(ctx, d)
	if !ok {
		return models.CertEntry{}, false
	}
	return models.LatestCert(entries)
}
