// Package report assembles the forensic report: it runs the resolvers, joins
// the artifact collection, renders the text export and hashes it.
package report

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"forensics/internal/intel/artifact"
	"forensics/internal/intel/dns"
	"forensics/internal/intel/metrics"
	"forensics/internal/intel/models"
	"forensics/internal/intel/whois"
	"forensics/internal/platform/logger"
	"forensics/pkg/domain"
	"forensics/pkg/requestcontext"
)

// WhoisResolver resolves ownership data for raw user input.
type WhoisResolver interface {
	Resolve(ctx context.Context, input string) whois.Resolution
}

// CertLookup returns the most recent logged certificate.
type CertLookup interface {
	Latest(ctx context.Context, d domain.DomainName) (models.CertEntry, bool)
}

// DNSLookup returns the A-record response for a domain.
type DNSLookup interface {
	Lookup(ctx context.Context, d domain.DomainName) (*models.DNSResponse, bool)
}

// ReverseLookup returns the PTR response for an address.
type ReverseLookup interface {
	Lookup(ctx context.Context, address string) (*models.DNSResponse, bool)
}

// ArtifactSource starts page-side collection for a URL.
type ArtifactSource interface {
	Start(ctx context.Context, target string) *artifact.Future
}

// Sink receives every finished report.
type Sink interface {
	Publish(ctx context.Context, r *models.Report) error
}

type Orchestrator struct {
	whois     WhoisResolver
	certs     CertLookup
	dns       DNSLookup
	reverse   ReverseLookup
	artifacts ArtifactSource
	sinks     []Sink
	sinkWait  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// DefaultSinkTimeout bounds each sink's Publish call.
const DefaultSinkTimeout = DeliveryTimeout + 2*time.Second

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithArtifacts enables the Metadata and Artifacts sections.
func WithArtifacts(src ArtifactSource) Option {
	return func(o *Orchestrator) {
		o.artifacts = src
	}
}

// WithSinks adds report sinks. Sink failures are logged, never returned.
func WithSinks(sinks ...Sink) Option {
	return func(o *Orchestrator) {
		for _, s := range sinks {
			if s != nil {
				o.sinks = append(o.sinks, s)
			}
		}
	}
}

// WithSinkTimeout overrides DefaultSinkTimeout.
func WithSinkTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sinkWait = d
		}
	}
}

func New(w WhoisResolver, certs CertLookup, forward DNSLookup, reverse ReverseLookup, opts ...Option) (*Orchestrator, error) {
	if w == nil {
		return nil, errors.New("whois resolver is required")
	}
	if certs == nil {
		return nil, errors.New("cert lookup is required")
	}
	if forward == nil {
		return nil, errors.New("dns lookup is required")
	}
	if reverse == nil {
		return nil, errors.New("reverse dns lookup is required")
	}
	o := &Orchestrator{
		whois:    w,
		certs:    certs,
		dns:      forward,
		reverse:  reverse,
		sinkWait: DefaultSinkTimeout,
		logger:   logger.Discard(),
		tracer:   otel.Tracer("forensics/intel/report"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// resolved holds the outputs of the resolver chain for one report.
type resolved struct {
	whois     whois.Resolution
	cert      models.CertEntry
	certOK    bool
	dns       *models.DNSResponse
	addresses []string
	reverse   map[string]*models.DNSResponse
}

// Generate builds the report for input. Resolver failures degrade to
// placeholder rows; only a cancelled ctx makes Generate fail.
func (o *Orchestrator) Generate(ctx context.Context, input string) (*models.Report, error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "report.Generate")
	defer span.End()

	d, parseErr := domain.ParseDomainName(input)

	// Collection starts first so it overlaps the network-bound resolvers.
	// Names that cannot be public hosts are never loaded.
	var future *artifact.Future
	if parseErr == nil && o.artifacts != nil {
		if d.IsPublicHost() {
			future = o.artifacts.Start(ctx, "https://"+d.String()+"/")
		} else {
			o.logger.InfoContext(ctx, "artifact collection skipped", "domain", d.String(), "reason", "not a public host")
		}
	}

	var (
		res     resolved
		payload *models.ArtifactPayload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res = o.resolve(gctx, input, d, parseErr == nil)
		return gctx.Err()
	})
	if future != nil {
		g.Go(func() error {
			if msg, ok := future.Await(gctx); ok {
				p := msg.Payload()
				payload = &p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &models.Report{
		ID:          uuid.NewString(),
		Domain:      res.whois.Record.DomainName,
		GeneratedAt: requestcontext.Now(ctx).UTC(),
		Sections:    assemble(res, payload),
	}
	if parseErr == nil {
		r.Domain = d.String()
	}
	r.Text = Render(r)
	r.Hash = Hash(r.Text)

	span.SetAttributes(
		attribute.String("report.domain", r.Domain),
		attribute.Int("report.sections", len(r.Sections)),
	)
	o.metrics.ObserveReportLatency(time.Since(start))
	o.logger.InfoContext(ctx, "report generated",
		"domain", r.Domain,
		"report_id", r.ID,
		"whois_state", string(res.whois.State),
		"resolved_by", res.whois.ResolvedBy(),
		"addresses", len(res.addresses),
		"artifacts", payload != nil,
		"hash", r.Hash,
	)

	o.publish(ctx, r)
	return r, nil
}

// resolve runs WHOIS, SSL, DNS and one reverse lookup per distinct address,
// in that order. Invalid input only reaches the WHOIS resolver.
func (o *Orchestrator) resolve(ctx context.Context, input string, d domain.DomainName, valid bool) resolved {
	res := resolved{reverse: make(map[string]*models.DNSResponse)}
	res.whois = o.whois.Resolve(ctx, input)
	if !valid {
		return res
	}

	res.cert, res.certOK = o.certs.Latest(ctx, d)

	if resp, ok := o.dns.Lookup(ctx, d); ok {
		res.dns = resp
		res.addresses = dns.Addresses(resp)
	}
	for _, addr := range res.addresses {
		if resp, ok := o.reverse.Lookup(ctx, addr); ok {
			res.reverse[addr] = resp
		}
	}
	return res
}

// assemble lays sections out in their fixed order regardless of which
// resolvers produced data.
func assemble(res resolved, payload *models.ArtifactPayload) []models.Section {
	sections := make([]models.Section, 0, 5+len(res.addresses))
	sections = append(sections,
		whoisSection(res.whois.Record),
		certSection(res.cert, res.certOK),
		dnsSection(res.dns),
	)
	for _, addr := range res.addresses {
		sections = append(sections, reverseSection(addr, res.reverse[addr]))
	}
	sections = append(sections,
		metadataSection(payload),
		artifactsSection(payload),
	)
	return sections
}

func (o *Orchestrator) publish(ctx context.Context, r *models.Report) {
	for _, s := range o.sinks {
		sctx, cancel := context.WithTimeout(ctx, o.sinkWait)
		err := s.Publish(sctx, r)
		cancel()
		if err != nil {
			o.logger.WarnContext(ctx, "report sink failed", "report_id", r.ID, "error", err)
		}
	}
}
