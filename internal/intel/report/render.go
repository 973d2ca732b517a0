package report

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"forensics/internal/intel/models"
)

// Title heads every rendered report.
const Title = "FORENSICS WHOIS REPORT"

// Render produces the plain-text export of r. The output depends only on the
// domain, generation time and sections, so equal reports render identically.
func Render(r *models.Report) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(Title)))
	b.WriteString("\n")
	b.WriteString("Domain: " + r.Domain + "\n")
	b.WriteString("Generated: " + r.GeneratedAt.UTC().Format(time.RFC3339) + "\n")

	for _, s := range r.Sections {
		b.WriteString("\n")
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(s.Title)))
		b.WriteString("\n")
		for _, row := range s.Rows {
			b.WriteString(row.Label)
			b.WriteString(": ")
			b.WriteString(row.Value)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Hash returns the hex SHA-256 of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether r.Hash matches its rendered text.
func Verify(r *models.Report) bool {
	return r.Hash == Hash(Render(r))
}
