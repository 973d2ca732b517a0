package report

import (
	"maps"
	"slices"

	"forensics/internal/intel/models"
	"forensics/pkg/platform/sanitize"
)

// Section titles in report order.
const (
	TitleWhois     = "WHOIS Information"
	TitleSSL       = "SSL Certificate Information"
	TitleDNS       = "DNS Information"
	TitleMetadata  = "Metadata"
	TitleArtifacts = "Artifacts"
)

// Placeholder values for sections with no data.
const (
	NoWhois          = "No WHOIS data found. The API might be temporarily unavailable or the domain has no record."
	NoCertificate    = "No SSL certificate information found."
	NoARecords       = "No A records found."
	NoPTRRecords     = "No PTR records found."
	NoMetadata       = "No metadata found."
	NoCookies        = "No cookies found."
	NoLocalStorage   = "No local storage data."
	NoSessionStorage = "No session storage data."
	NoArtifacts      = "No artifacts found."
)

func statusRow(value string) []models.Row {
	return []models.Row{{Label: "Status", Value: value}}
}

// ReverseTitle is the title of the reverse DNS section for address.
func ReverseTitle(address string) string {
	return "Reverse DNS for " + sanitize.String(address)
}

func whoisSection(rec models.WhoisRecord) models.Section {
	if rec.DomainName == "" {
		return models.Section{Title: TitleWhois, Rows: statusRow(NoWhois)}
	}
	return models.Section{Title: TitleWhois, Rows: rec.Rows()}
}

func certSection(c models.CertEntry, ok bool) models.Section {
	if !ok {
		return models.Section{Title: TitleSSL, Rows: statusRow(NoCertificate)}
	}
	return models.Section{Title: TitleSSL, Rows: []models.Row{
		{Label: "Common Name", Value: sanitize.String(c.CommonName)},
		{Label: "Issuer", Value: sanitize.String(c.IssuerName)},
		{Label: "Not Before", Value: sanitize.String(c.NotBefore)},
		{Label: "Not After", Value: sanitize.String(c.NotAfter)},
	}}
}

func dnsSection(resp *models.DNSResponse) models.Section {
	return answerSection(TitleDNS, "Type A Record", resp.DataOfType(models.DNSTypeA), NoARecords)
}

func reverseSection(address string, resp *models.DNSResponse) models.Section {
	return answerSection(ReverseTitle(address), "Hostname", resp.DataOfType(models.DNSTypePTR), NoPTRRecords)
}

func answerSection(title, label string, data []string, placeholder string) models.Section {
	if len(data) == 0 {
		return models.Section{Title: title, Rows: statusRow(placeholder)}
	}
	rows := make([]models.Row, 0, len(data))
	for _, d := range data {
		rows = append(rows, models.Row{Label: label, Value: sanitize.String(d)})
	}
	return models.Section{Title: title, Rows: rows}
}

// metadataSection lists meta entries in key order.
func metadataSection(p *models.ArtifactPayload) models.Section {
	if p == nil || len(p.Metadata) == 0 {
		return models.Section{Title: TitleMetadata, Rows: statusRow(NoMetadata)}
	}
	return models.Section{Title: TitleMetadata, Rows: mapRows("", p.Metadata)}
}

func artifactsSection(p *models.ArtifactPayload) models.Section {
	if p == nil {
		return models.Section{Title: TitleArtifacts, Rows: statusRow(NoArtifacts)}
	}
	cookies := p.Cookies
	if cookies == "" {
		cookies = NoCookies
	}
	rows := []models.Row{{Label: "Cookies", Value: cookies}}
	rows = append(rows, storageRows("Local Storage", p.LocalStorage, NoLocalStorage)...)
	rows = append(rows, storageRows("Session Storage", p.SessionStorage, NoSessionStorage)...)
	return models.Section{Title: TitleArtifacts, Rows: rows}
}

func storageRows(label string, values map[string]string, placeholder string) []models.Row {
	if len(values) == 0 {
		return []models.Row{{Label: label, Value: placeholder}}
	}
	return mapRows(label+": ", values)
}

func mapRows(prefix string, values map[string]string) []models.Row {
	keys := slices.Sorted(maps.Keys(values))
	rows := make([]models.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, models.Row{Label: prefix + k, Value: values[k]})
	}
	return rows
}
