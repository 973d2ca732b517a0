// Package rdap is the registry WHOIS stage: a direct RDAP query against the
// registry responsible for the domain's top-level label.
package rdap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"forensics/internal/intel/fetch"
	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/internal/platform/logger"
	"forensics/pkg/domain"
	"forensics/pkg/platform/sanitize"
	pstrings "forensics/pkg/platform/strings"
)

const ProviderID = "rdap"

var errMissingLDHName = errors.New("response has no ldhName")

// Provider resolves ownership data over RDAP.
type Provider struct {
	fetcher fetch.Fetcher
	lookup  func(tld string) (string, bool)
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

// WithEndpoints replaces the built-in registry table.
func WithEndpoints(table map[string]string) Option {
	table = maps.Clone(table)
	return func(p *Provider) {
		p.lookup = func(tld string) (string, bool) {
			e, ok := table[tld]
			return e, ok
		}
	}
}

func New(fetcher fetch.Fetcher, opts ...Option) (*Provider, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	p := &Provider{
		fetcher: fetcher,
		lookup:  Endpoint,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) ID() string { return ProviderID }

// Lookup returns Empty when no registry endpoint is known for the top-level label.
func (p *Provider) Lookup(ctx context.Context, d domain.DomainName) providers.Result {
	tld := d.TopLevel()
	endpoint, ok := p.lookup(tld)
	if !ok {
		return providers.Empty(fmt.Sprintf("no RDAP endpoint for .%s", tld))
	}

	resp, err := p.fetcher.Fetch(ctx, fetch.Request{
		URL:    endpoint + d.String(),
		Header: http.Header{"Accept": {"application/rdap+json"}},
	})
	if err != nil {
		return providers.Failure(providers.FromFetchError(ProviderID, err))
	}

	var body domainResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return providers.Failure(providers.NewProviderError(providers.ErrorBadData, ProviderID, "decode response", err))
	}
	if strings.TrimSpace(body.LDHName) == "" {
		return providers.Failure(providers.NewProviderError(providers.ErrorBadData, ProviderID, "unexpected response", errMissingLDHName))
	}

	return providers.Success(body.toRecord(tld))
}

type domainResponse struct {
	LDHName     string       `json:"ldhName"`
	Status      []string     `json:"status"`
	Events      []event      `json:"events"`
	Nameservers []nameserver `json:"nameservers"`
	Entities    []entity     `json:"entities"`
}

type event struct {
	EventAction string `json:"eventAction"`
	EventDate   string `json:"eventDate"`
}

type nameserver struct {
	LDHName string `json:"ldhName"`
}

type entity struct {
	Roles      []string `json:"roles"`
	VCardArray []any    `json:"vcardArray"`
}

func (r domainResponse) toRecord(tld string) models.WhoisRecord {
	source := fmt.Sprintf("RDAP (%s Registry)", strings.ToUpper(tld))
	rec := models.NewWhoisRecord(sanitize.String(r.LDHName), source)
	rec.Status = orUnknown(joinClean(r.Status))
	rec.CreationDate = orUnknown(r.eventDate("registration"))
	rec.ExpiryDate = orUnknown(r.eventDate("expiration"))
	rec.UpdatedDate = orUnknown(r.eventDate("last changed"))

	names := make([]string, 0, len(r.Nameservers))
	for _, ns := range r.Nameservers {
		names = append(names, ns.LDHName)
	}
	rec.NameServers = orUnknown(joinClean(pstrings.DistinctFold(names)))
	rec.Registrar = orUnknown(sanitize.String(r.registrarName()))
	return rec
}

func (r domainResponse) eventDate(action string) string {
	for _, e := range r.Events {
		if e.EventAction == action {
			return sanitize.String(e.EventDate)
		}
	}
	return ""
}

// registrarName finds the entity with the registrar role and returns the value
// of the "fn" property in its jCard: ["vcard", [["fn", {}, "text", NAME], ...]].
func (r domainResponse) registrarName() string {
	for _, e := range r.Entities {
		if !slices.Contains(e.Roles, "registrar") {
			continue
		}
		if len(e.VCardArray) < 2 {
			return ""
		}
		props, ok := e.VCardArray[1].([]any)
		if !ok {
			return ""
		}
		for _, prop := range props {
			fields, ok := prop.([]any)
			if !ok || len(fields) < 4 {
				continue
			}
			if name, _ := fields[0].(string); name == "fn" {
				value, _ := fields[3].(string)
				return value
			}
		}
		return ""
	}
	return ""
}

func joinClean(values []string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, sanitize.String(v))
		}
	}
	return strings.Join(out, ", ")
}

func orUnknown(v string) string {
	if v == "" {
		return models.Unknown
	}
	return v
}
