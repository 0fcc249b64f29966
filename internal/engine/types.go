package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/sectiond/internal/document"
)

var (
	// ErrInvalidQuery indicates an empty or unusable persona/job query.
	// This is fatal for the request: there is nothing to rank against.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrTimeout indicates a single document exceeded its processing
	// budget. The document is excluded; the request continues.
	ErrTimeout = errors.New("document processing timed out")

	// ErrNoCorpus indicates FindSimilar was called before any Process
	// call indexed a corpus.
	ErrNoCorpus = errors.New("no corpus indexed")
)

// Config holds the engine's resource limits.
type Config struct {
	// Workers bounds concurrent per-document processing.
	Workers int `koanf:"workers"`

	// DocumentTimeout is the per-document budget covering extraction,
	// segmentation, and section embedding. A document over budget fails
	// alone; the rest of the request proceeds.
	DocumentTimeout time.Duration `koanf:"document_timeout"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.DocumentTimeout == 0 {
		c.DocumentTimeout = 60 * time.Second
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.DocumentTimeout <= 0 {
		return fmt.Errorf("document timeout must be positive, got %v", c.DocumentTimeout)
	}
	return nil
}

// DocumentInput is one uploaded document: its original filename (the
// document identity for all cross-referencing) and raw PDF bytes.
type DocumentInput struct {
	Name string
	Data []byte
}

// Metadata describes one processed request.
type Metadata struct {
	InputDocuments []string             `json:"input_documents"`
	Persona        document.PersonaSpec `json:"persona"`
	Job            string               `json:"job_to_be_done"`
	ProcessedAt    time.Time            `json:"processing_timestamp"`
}

// ProcessResult is the outcome of one Process call: ranked sections with
// insights, plus one warning per document that failed.
type ProcessResult struct {
	Metadata Metadata
	Sections []document.ScoredSection
	Warnings []document.Warning
}
