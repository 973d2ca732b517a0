// Package apilayer is the primary WHOIS stage: the commercial APILayer WHOIS API.
package apilayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"forensics/internal/intel/fetch"
	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/internal/platform/logger"
	"forensics/pkg/domain"
	"forensics/pkg/platform/circuit"
	"forensics/pkg/platform/sanitize"
	"forensics/pkg/requestcontext"
)

const (
	ProviderID = "apilayer"
	Source     = "APILayer WHOIS API"
)

var (
	errMissingKey    = errors.New("api key not configured")
	errCircuitOpen   = errors.New("circuit open")
	errMissingResult = errors.New("invalid api response format")
)

// Provider queries GET {base}?domain={domain} with the key in the apikey header.
type Provider struct {
	fetcher fetch.Fetcher
	baseURL *url.URL
	apiKey  string
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithBreaker skips the network call while the breaker refuses traffic.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Provider) {
		p.breaker = b
	}
}

// New creates the provider. An empty apiKey is allowed; lookups then fail
// without a network call so the chain moves on to the registry stage.
func New(fetcher fetch.Fetcher, baseURL, apiKey string, opts ...Option) (*Provider, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid whois api base URL %q", baseURL)
	}
	p := &Provider{
		fetcher: fetcher,
		baseURL: u,
		apiKey:  apiKey,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) ID() string { return ProviderID }

// Lookup never returns Empty: any response without a usable result is a Failure.
func (p *Provider) Lookup(ctx context.Context, d domain.DomainName) providers.Result {
	if p.apiKey == "" {
		return providers.Failure(providers.NewProviderError(providers.ErrorAuthentication, ProviderID, "lookup skipped", errMissingKey))
	}
	if p.breaker != nil && !p.breaker.Allow(requestcontext.Now(ctx)) {
		return providers.Failure(providers.NewProviderError(providers.ErrorProviderOutage, ProviderID, "lookup skipped", errCircuitOpen))
	}

	header := make(http.Header)
	header.Set("apikey", p.apiKey)
	header.Set("Accept", "application/json")
	resp, err := p.fetcher.Fetch(ctx, fetch.Request{URL: p.queryURL(d), Header: header})
	if err != nil {
		pe := providers.FromFetchError(ProviderID, err)
		p.recordFailure(ctx, pe)
		return providers.Failure(pe)
	}
	p.recordSuccess(ctx)

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return providers.Failure(providers.NewProviderError(providers.ErrorBadData, ProviderID, "decode response", err))
	}
	if msg := env.errorMessage(); msg != "" {
		return providers.Failure(providers.NewProviderError(providers.ErrorNotFound, ProviderID, "api error: "+sanitize.String(msg), nil))
	}
	if env.Result == nil {
		return providers.Failure(providers.NewProviderError(providers.ErrorBadData, ProviderID, "missing result", errMissingResult))
	}

	return providers.Success(mapResult(d, env.Result))
}

func (p *Provider) queryURL(d domain.DomainName) string {
	u := *p.baseURL
	q := u.Query()
	q.Set("domain", d.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// Only transport-level failures count against the breaker; an in-band API
// error means the service is up.
func (p *Provider) recordFailure(ctx context.Context, pe *providers.ProviderError) {
	if p.breaker == nil {
		return
	}
	if !pe.Retryable && pe.Category != providers.ErrorHTTPStatus {
		return
	}
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.WarnContext(ctx, "whois api circuit opened", "provider", ProviderID, "error", pe)
	}
}

func (p *Provider) recordSuccess(ctx context.Context) {
	if p.breaker == nil {
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "whois api circuit closed", "provider", ProviderID)
	}
}

type envelope struct {
	Result map[string]any  `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func (e envelope) errorMessage() string {
	raw := strings.TrimSpace(string(e.Error))
	if raw == "" || raw == "null" || raw == "false" || raw == `""` {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	return raw
}

// mapResult converts the provider result into the canonical record. Every
// string is sanitized; registry fields default to Unknown and contact fields
// to Private.
func mapResult(d domain.DomainName, result map[string]any) models.WhoisRecord {
	r := models.NewWhoisRecord(d.String(), Source)
	r.DomainName = orDefault(str(result, "domain_name"), d.String())
	r.Registrar = orDefault(str(result, "registrar_name"), models.Unknown)
	r.CreationDate = orDefault(str(result, "creation_date"), models.Unknown)
	r.ExpiryDate = orDefault(str(result, "expiration_date"), models.Unknown)
	r.UpdatedDate = orDefault(str(result, "updated_date"), models.Unknown)
	r.Status = orDefault(stringOrList(result["status"]), models.Unknown)
	r.NameServers = orDefault(list(result["name_servers"]), models.Unknown)
	r.RegistrantName = orDefault(str(result, "registrant_name"), models.Private)
	r.RegistrantOrganization = orDefault(str(result, "registrant_organization"), models.Private)
	r.RegistrantCountry = orDefault(str(result, "registrant_country"), models.Private)
	r.RegistrantEmail = orDefault(str(result, "registrant_email"), models.Private)
	r.AdminName = orDefault(str(result, "admin_name"), models.Private)
	r.AdminEmail = orDefault(str(result, "admin_email"), models.Private)
	r.TechName = orDefault(str(result, "tech_name"), models.Private)
	r.TechEmail = orDefault(str(result, "tech_email"), models.Private)
	return r
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return sanitize.String(strings.TrimSpace(s))
}

// stringOrList accepts a string or an array; arrays are joined with ", ".
func stringOrList(v any) string {
	if s, ok := v.(string); ok {
		return sanitize.String(strings.TrimSpace(s))
	}
	return list(v)
}

// list joins an array with ", ". Anything that is not an array yields "".
func list(v any) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		s, ok := item.(string)
		if !ok {
			s = fmt.Sprint(item)
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, sanitize.String(s))
		}
	}
	return strings.Join(parts, ", ")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
