package handler

import (
	"time"

	"forensics/internal/intel/models"
)

// ReportResponse is the JSON body of GET /v1/reports/{domain}.
type ReportResponse struct {
	ID          string           `json:"id"`
	Domain      string           `json:"domain"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Sections    []models.Section `json:"sections"`
	Hash        string           `json:"hash"`
}

func FromReport(r *models.Report) ReportResponse {
	return ReportResponse{
		ID:          r.ID,
		Domain:      r.Domain,
		GeneratedAt: r.GeneratedAt,
		Sections:    r.Sections,
		Hash:        r.Hash,
	}
}
