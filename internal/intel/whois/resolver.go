// Package whois resolves domain ownership through an ordered provider chain:
// cache, primary API, registry RDAP, then local structural analysis.
package whois

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"forensics/internal/intel/cache"
	"forensics/internal/intel/metrics"
	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/internal/intel/providers/heuristic"
	"forensics/internal/platform/logger"
	"forensics/pkg/domain"
	"forensics/pkg/platform/sanitize"
)

// State is a position in the resolution state machine.
type State string

const (
	StateCached           State = "cached"
	StateTryPrimary       State = "try_primary"
	StateTryRegistry      State = "try_registry"
	StateTryHeuristic     State = "try_heuristic"
	StateResolved         State = "resolved"
	StateValidationFailed State = "validation_failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCached || s == StateResolved || s == StateValidationFailed
}

// Attempt records one stage's outcome.
type Attempt struct {
	State    State
	Provider string
	Outcome  providers.Outcome
	Reason   string
}

// Resolution is the terminal result of Resolve.
type Resolution struct {
	State    State
	Record   models.WhoisRecord
	Attempts []Attempt
}

// ResolvedBy names the provider that produced the record, "cache", or "" for
// validation failures.
func (r Resolution) ResolvedBy() string {
	switch r.State {
	case StateCached:
		return "cache"
	case StateResolved:
		if n := len(r.Attempts); n > 0 {
			return r.Attempts[n-1].Provider
		}
	}
	return ""
}

type stage struct {
	state    State
	provider providers.WhoisProvider
}

// Resolver runs the chain. It is safe for concurrent use.
type Resolver struct {
	cache   *cache.Store
	stages  []stage
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
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

func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New builds a resolver over the three stages in priority order.
func New(store *cache.Store, primary, registry, fallback providers.WhoisProvider, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if primary == nil {
		return nil, errors.New("primary provider is required")
	}
	if registry == nil {
		return nil, errors.New("registry provider is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback provider is required")
	}
	r := &Resolver{
		cache: store,
		stages: []stage{
			{state: StateTryPrimary, provider: primary},
			{state: StateTryRegistry, provider: registry},
			{state: StateTryHeuristic, provider: fallback},
		},
		logger: logger.Discard(),
		tracer: otel.Tracer("forensics/intel/whois"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve validates input and walks the chain until a stage succeeds. It
// always returns a terminal Resolution with a fully populated record.
func (r *Resolver) Resolve(ctx context.Context, input string) Resolution {
	ctx, span := r.tracer.Start(ctx, "whois.Resolve")
	defer span.End()

	d, err := domain.ParseDomainName(input)
	if err != nil {
		reason := domain.Reason(err)
		r.logger.InfoContext(ctx, "whois input rejected", "input", input, "reason", reason)
		r.metrics.RecordWhoisResolved(string(StateValidationFailed))
		span.SetAttributes(attribute.String("whois.state", string(StateValidationFailed)))
		return Resolution{
			State:  StateValidationFailed,
			Record: models.NewValidationFailure(sanitize.String(strings.TrimSpace(input)), reason),
		}
	}
	span.SetAttributes(attribute.String("whois.domain", d.String()))

	key := cache.WhoisKey(d.String())
	if rec, ok := cache.Lookup[models.WhoisRecord](ctx, r.cache, key); ok {
		r.logger.DebugContext(ctx, "whois cache hit", "domain", d.String())
		r.metrics.RecordWhoisResolved("cache")
		span.SetAttributes(attribute.String("whois.state", string(StateCached)))
		return Resolution{State: StateCached, Record: rec}
	}

	res := r.fold(ctx, d)
	r.cache.Set(ctx, key, res.Record)
	r.metrics.RecordWhoisResolved(res.ResolvedBy())
	span.SetAttributes(
		attribute.String("whois.state", string(res.State)),
		attribute.String("whois.resolved_by", res.ResolvedBy()),
	)
	return res
}

// fold advances through the stages until one yields Success. If every stage
// declines, the record is derived locally so the chain still reaches Resolved.
func (r *Resolver) fold(ctx context.Context, d domain.DomainName) Resolution {
	res := Resolution{Attempts: make([]Attempt, 0, len(r.stages))}
	for _, st := range r.stages {
		result := r.try(ctx, st, d)
		res.Attempts = append(res.Attempts, Attempt{
			State:    st.state,
			Provider: st.provider.ID(),
			Outcome:  result.Outcome,
			Reason:   result.Reason,
		})
		if result.OK() {
			res.State = StateResolved
			res.Record = result.Record
			return res
		}
	}

	r.logger.ErrorContext(ctx, "every whois stage declined, using structural analysis", "domain", d.String())
	res.State = StateResolved
	res.Record = heuristic.Analyze(d)
	res.Attempts = append(res.Attempts, Attempt{
		State:    StateTryHeuristic,
		Provider: heuristic.ProviderID,
		Outcome:  providers.OutcomeSuccess,
	})
	return res
}

// try runs one stage in isolation. A panic inside a provider becomes that
// stage's Failure.
func (r *Resolver) try(ctx context.Context, st stage, d domain.DomainName) (result providers.Result) {
	id := st.provider.ID()
	ctx, span := r.tracer.Start(ctx, "whois."+string(st.state), trace.WithAttributes(attribute.String("whois.provider", id)))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err := providers.NewProviderError(providers.ErrorInternal, id, "provider panicked", fmt.Errorf("%v", rec))
			result = providers.Failure(err)
		}
		if result.OK() && !result.Record.Complete() {
			err := providers.NewProviderError(providers.ErrorBadData, id, "incomplete record", nil)
			result = providers.Failure(err)
		}

		r.metrics.RecordProviderOutcome(id, result.Label())
		span.SetAttributes(attribute.String("whois.outcome", result.Outcome.String()))
		switch result.Outcome {
		case providers.OutcomeSuccess:
			r.logger.InfoContext(ctx, "whois stage resolved", "domain", d.String(), "provider", id, "state", string(st.state))
		case providers.OutcomeEmpty:
			r.logger.WarnContext(ctx, "whois stage empty, advancing", "domain", d.String(), "provider", id, "reason", result.Reason)
		default:
			span.SetStatus(codes.Error, result.Reason)
			r.logger.WarnContext(ctx, "whois stage failed, advancing", "domain", d.String(), "provider", id,
				"category", string(providers.GetCategory(result.Err)), "error", result.Err)
		}
	}()

	return st.provider.Lookup(ctx, d)
}
