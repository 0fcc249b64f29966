package http

import (
	"github.com/fyrsmithlabs/sectiond/internal/document"
	"github.com/fyrsmithlabs/sectiond/internal/engine"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SimilarRequest is the request body for POST /api/v1/similar.
type SimilarRequest struct {
	Text string `json:"text"`
}

// ProcessResponse is the response body for POST /api/v1/process.
type ProcessResponse struct {
	Metadata          engine.Metadata      `json:"metadata"`
	ExtractedSections []*document.Section  `json:"extracted_sections"`
	Warnings          []document.Warning   `json:"warnings,omitempty"`
}

// newProcessResponse shapes an engine result for the wire. Sections are
// already in importance-rank order.
func newProcessResponse(result *engine.ProcessResult) ProcessResponse {
	sections := make([]*document.Section, len(result.Sections))
	for i, s := range result.Sections {
		sections[i] = s.Section
	}
	return ProcessResponse{
		Metadata:          result.Metadata,
		ExtractedSections: sections,
		Warnings:          result.Warnings,
	}
}
