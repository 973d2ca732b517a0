// Package intel assembles the resolution engine from configuration.
package intel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"forensics/internal/intel/artifact"
	"forensics/internal/intel/cache"
	"forensics/internal/intel/cert"
	"forensics/internal/intel/dns"
	"forensics/internal/intel/fetch"
	"forensics/internal/intel/metrics"
	"forensics/internal/intel/providers/apilayer"
	"forensics/internal/intel/providers/heuristic"
	"forensics/internal/intel/providers/rdap"
	"forensics/internal/intel/report"
	"forensics/internal/intel/whois"
	"forensics/internal/platform/config"
	"forensics/internal/platform/logger"
	"forensics/internal/platform/postgres"
	"forensics/internal/platform/redis"
	"forensics/pkg/platform/circuit"
)

// Cache backends and collector modes accepted in Config.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	CollectorStatic  = "static"
	CollectorBrowser = "browser"
	CollectorOff     = "off"
)

const redisKeyPrefix = "forensics:"

// Engine is the wired object graph. Close releases every connection it opened.
type Engine struct {
	Orchestrator *report.Orchestrator
	Whois        *whois.Resolver
	Cache        *cache.Store
	Bridge       *artifact.Bridge

	checks  []func(context.Context) error
	closers []func()
}

// Build wires the engine described by cfg. m may be nil.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*Engine, error) {
	if log == nil {
		log = logger.Discard()
	}
	e := &Engine{}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	backend, err := e.cacheBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.New(backend, cfg.CacheTTL, cache.WithLogger(log), cache.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	e.Cache = store

	newFetcher := func(rateLimited bool, extra ...fetch.Option) (*fetch.BoundedFetcher, error) {
		opts := []fetch.Option{fetch.WithLogger(log), fetch.WithMetrics(m)}
		if rateLimited {
			opts = append(opts, fetch.WithRateLimit(cfg.RatePerSecond, 1))
		}
		return fetch.New(cfg.Timeout, append(opts, extra...)...)
	}
	// One fetcher per upstream so each gets its own rate budget.
	whoisFetcher, err := newFetcher(true)
	if err != nil {
		return nil, err
	}
	rdapFetcher, err := newFetcher(true)
	if err != nil {
		return nil, err
	}
	dnsFetcher, err := newFetcher(false)
	if err != nil {
		return nil, err
	}
	certFetcher, err := newFetcher(true, fetch.WithMaxBody(cert.MaxBodyBytes))
	if err != nil {
		return nil, err
	}

	breaker := circuit.New(apilayer.ProviderID,
		circuit.WithFailureThreshold(cfg.Whois.BreakerThreshold),
		circuit.WithSuccessThreshold(3),
	)
	primary, err := apilayer.New(whoisFetcher, cfg.Whois.BaseURL, cfg.Whois.APIKey,
		apilayer.WithLogger(log), apilayer.WithBreaker(breaker))
	if err != nil {
		return nil, err
	}
	registry, err := rdap.New(rdapFetcher, rdap.WithLogger(log))
	if err != nil {
		return nil, err
	}
	resolver, err := whois.New(store, primary, registry, heuristic.New(),
		whois.WithLogger(log), whois.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	e.Whois = resolver

	certs, err := cert.New(certFetcher, store, cert.WithLogger(log), cert.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	forward, err := dns.New(dnsFetcher, store, dns.WithLogger(log), dns.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	reverse, err := dns.NewReverse(dnsFetcher, store, dns.WithLogger(log), dns.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	opts := []report.Option{report.WithLogger(log), report.WithMetrics(m)}

	collector, err := newCollector(cfg.Collector, log)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		bridge, err := artifact.NewBridge(collector, cfg.Collector.Timeout, artifact.WithLogger(log))
		if err != nil {
			return nil, err
		}
		e.Bridge = bridge
		opts = append(opts, report.WithArtifacts(bridge))
	}

	sinks := []report.Sink{report.NewLogSink(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := report.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("kafka sink: %w", err)
		}
		e.closers = append(e.closers, kafka.Close)
		sinks = append(sinks, kafka)
	}
	opts = append(opts, report.WithSinks(sinks...))

	orch, err := report.New(resolver, certs, forward, reverse, opts...)
	if err != nil {
		return nil, err
	}
	e.Orchestrator = orch

	log.InfoContext(ctx, "engine wired",
		"cache_backend", backendName(cfg.Cache.Backend),
		"collector", collectorName(cfg.Collector.Mode),
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"primary_configured", cfg.Whois.APIKey != "",
	)
	ok = true
	return e, nil
}

func (e *Engine) cacheBackend(ctx context.Context, cfg config.Config) (cache.Backend, error) {
	switch backendName(cfg.Cache.Backend) {
	case BackendMemory:
		return cache.NewMemoryBackend(), nil
	case BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis cache backend requires REDIS_URL")
		}
		e.closers = append(e.closers, func() { _ = client.Close() })
		e.checks = append(e.checks, client.Health)
		return cache.NewRedisBackend(client, redisKeyPrefix), nil
	case BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, errors.New("postgres cache backend requires DATABASE_URL")
		}
		e.closers = append(e.closers, pool.Close)
		e.checks = append(e.checks, pool.Ping)
		if err := postgres.Migrate(ctx, pool, cache.Migrations, "migrations"); err != nil {
			return nil, err
		}
		return cache.NewPostgresBackend(pool), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func newCollector(cfg config.CollectorConfig, log *slog.Logger) (artifact.Collector, error) {
	switch collectorName(cfg.Mode) {
	case CollectorOff:
		return nil, nil
	case CollectorStatic:
		// Page fetches are bounded by the bridge timeout, not the provider timeout.
		pages, err := fetch.New(cfg.Timeout, fetch.WithLogger(log), fetch.WithPublicOnly())
		if err != nil {
			return nil, err
		}
		return artifact.NewStaticCollector(pages, artifact.WithStaticLogger(log))
	case CollectorBrowser:
		return artifact.NewBrowserCollector(
			artifact.WithBrowserLogger(log),
			artifact.WithExecPath(cfg.ChromePath),
		), nil
	default:
		return nil, fmt.Errorf("unknown collector mode %q", cfg.Mode)
	}
}

func backendName(v string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v == "" {
		return BackendMemory
	}
	return v
}

func collectorName(v string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v == "" {
		return CollectorStatic
	}
	return v
}

// Health reports the first failing dependency check.
func (e *Engine) Health(ctx context.Context) error {
	for _, check := range e.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
