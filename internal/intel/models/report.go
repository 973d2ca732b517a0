package models

import "time"

// Row is one label/value pair in a section.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Section is a titled, ordered list of rows.
type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Report is the canonical output handed to renderers and sinks. Sections is
// frozen once the report is built.
type Report struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	GeneratedAt time.Time `json:"generatedAt"`
	Sections    []Section `json:"sections"`
	// Text is the rendered report; Hash is the hex SHA-256 of Text.
	Text string `json:"-"`
	Hash string `json:"hash"`
}
