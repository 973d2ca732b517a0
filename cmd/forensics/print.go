package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"forensics/internal/intel/models"
	"forensics/internal/intel/report"
)

// printer writes a report the way the rendered text lays it out, with color
// for terminals. Hash is always computed over the plain rendered text.
type printer struct {
	w       io.Writer
	title   *color.Color
	section *color.Color
	label   *color.Color
	errRow  *color.Color
	hash    *color.Color
}

// errorLabel marks validation failure rows.
const errorLabel = "Error"

func newPrinter(w io.Writer, colored bool) *printer {
	p := &printer{
		w:       w,
		title:   color.New(color.FgCyan, color.Bold),
		section: color.New(color.FgYellow, color.Bold),
		label:   color.New(color.FgGreen),
		errRow:  color.New(color.FgRed),
		hash:    color.New(color.FgMagenta),
	}
	for _, c := range []*color.Color{p.title, p.section, p.label, p.errRow, p.hash} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) Print(r *models.Report) error {
	var b strings.Builder
	p.title.Fprintln(&b, report.Title)
	fmt.Fprintln(&b, strings.Repeat("=", len(report.Title)))
	fmt.Fprintf(&b, "Domain: %s\n", r.Domain)
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.UTC().Format(time.RFC3339))

	for _, s := range r.Sections {
		fmt.Fprintln(&b)
		p.section.Fprintln(&b, s.Title)
		fmt.Fprintln(&b, strings.Repeat("-", len(s.Title)))
		for _, row := range s.Rows {
			if row.Label == errorLabel {
				p.errRow.Fprintf(&b, "%s: %s\n", row.Label, row.Value)
				continue
			}
			p.label.Fprintf(&b, "%s:", row.Label)
			fmt.Fprintf(&b, " %s\n", row.Value)
		}
	}
	fmt.Fprintln(&b)
	p.hash.Fprintf(&b, "SHA-256: %s\n", r.Hash)

	_, err := io.WriteString(p.w, b.String())
	return err
}
