// Package heuristic is the last WHOIS stage. It derives a structural analysis
// of the name locally and never fails.
package heuristic

import (
	"context"
	"strings"

	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/pkg/domain"
	"forensics/pkg/platform/sanitize"
)

const (
	ProviderID = "heuristic"
	Source     = "Domain Structure Analysis"

	analysis       = "Enhanced domain structure analysis"
	note           = "WHOIS services temporarily unavailable - showing domain structure analysis"
	recommendation = "Try again later for full WHOIS data"
	statusComplete = "Analysis Complete"
)

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) ID() string { return ProviderID }

// Lookup always returns Success.
func (p *Provider) Lookup(_ context.Context, d domain.DomainName) providers.Result {
	return providers.Success(Analyze(d))
}

// Analyze builds the structural record for d.
func Analyze(d domain.DomainName) models.WhoisRecord {
	tld := d.TopLevel()
	info := LookupTLD(tld)
	// A single-label name has nothing left of its top-level label.
	second := models.Unknown
	if rest := d.Remainder(); rest != "" {
		second = sanitize.String(rest)
	}

	rec := models.NewWhoisRecord(sanitize.String(d.String()), Source)
	rec.Kind = models.KindStructural
	rec.Status = statusComplete
	rec.Structure = &models.StructuralAnalysis{
		SecondLevelDomain: second,
		TopLevelDomain:    sanitize.String(strings.ToUpper(tld)),
		TLDType:           info.Type,
		TLDDescription:    info.Description,
		DomainLength:      len(d.String()),
		SubdomainCount:    SubdomainCount(d),
		Analysis:          analysis,
		Note:              note,
		Recommendation:    recommendation,
	}
	return rec
}

// SubdomainCount is the number of labels left of the registrable
// second-level + top-level pair.
func SubdomainCount(d domain.DomainName) int {
	return max(0, len(d.Labels())-2)
}
