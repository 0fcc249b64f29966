package document

import (
	"encoding/json"
	"strings"
)

// TextBlock is a single positioned run of text on a page.
//
// Coordinates use a top-left origin: Y0 is the top edge, Y1 the bottom edge,
// so Y1 > Y0 and the vertical gap between consecutive blocks is
// next.Y0 - prev.Y1. Blocks are produced once by the layout extractor and
// never mutated afterwards.
type TextBlock struct {
	// Text is the block's text content, whitespace-trimmed.
	Text string

	// Bounding box in page coordinates, top-left origin.
	X0, Y0, X1, Y1 float64

	// FontSize is the dominant font size of the block in points.
	FontSize float64

	// Page is the 0-based index of the owning page.
	Page int
}

// Height returns the block's bounding-box height.
func (b TextBlock) Height() float64 {
	return b.Y1 - b.Y0
}

// Page is one page of a document with its blocks in reading order
// (top-to-bottom, then left-to-right for same-baseline blocks).
type Page struct {
	// Index is the 0-based page index.
	Index int

	// Width and Height are the page dimensions in points, used to
	// normalize vertical gaps across documents.
	Width  float64
	Height float64

	// Blocks are the page's text blocks in reading order.
	Blocks []TextBlock
}

// Document is an ingested document: an identifier plus ordered pages.
// Immutable once produced by the layout extractor.
type Document struct {
	// Name is the original filename, used as the document identity for
	// all cross-referencing.
	Name string

	// Pages are the document's pages in order.
	Pages []Page
}

// BlockCount returns the total number of text blocks across all pages.
func (d *Document) BlockCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Blocks)
	}
	return n
}

// Section is a contiguous span of a document's text, bounded by detected
// layout gaps or heading cues.
//
// Invariant: a section's text body is a contiguous, non-overlapping slice of
// its source blocks; no two sections of the same document share a block.
type Section struct {
	// ID uniquely identifies the section within the engine's corpus index.
	ID string `json:"-"`

	// Document is the owning document's name.
	Document string `json:"document"`

	// PageIndex is the 0-based index of the section's starting page.
	PageIndex int `json:"page_number"`

	// Title is the heading text if the section starts with a detected
	// heading, otherwise a truncation of the section's leading words.
	Title string `json:"section_title"`

	// Text is the raw text body: the member blocks' text joined in order.
	Text string `json:"section_text_raw"`

	// Heading records whether Title came from a detected heading block.
	Heading bool `json:"-"`

	// ImportanceRank is assigned by the scorer, 1 = most relevant.
	// Zero until ranking has run.
	ImportanceRank int `json:"importance_rank"`

	// RefinedText is the extractive summary, filled by the insight
	// generator.
	RefinedText string `json:"refined_text,omitempty"`

	// Keywords are the section's top significant terms, deduplicated and
	// length-capped.
	Keywords []string `json:"keywords,omitempty"`
}

// PersonaSpec is the structured form of a persona description.
type PersonaSpec struct {
	Role        string `json:"role,omitempty"`
	FocusAreas  string `json:"focus_areas,omitempty"`
	Description string `json:"description,omitempty"`
}

// Query combines the persona with the job-to-be-done for one ranking
// request. It is not persisted beyond the request.
type Query struct {
	Persona PersonaSpec
	Job     string
}

// ParsePersona interprets a persona form value. A JSON object is decoded
// into the structured spec; anything else is treated as a free-text
// description.
func ParsePersona(raw string) PersonaSpec {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var spec PersonaSpec
		if err := json.Unmarshal([]byte(raw), &spec); err == nil {
			return spec
		}
	}
	return PersonaSpec{Description: raw}
}

// Empty reports whether the query carries no usable text at all.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Job) == "" &&
		strings.TrimSpace(q.Persona.Role) == "" &&
		strings.TrimSpace(q.Persona.FocusAreas) == "" &&
		strings.TrimSpace(q.Persona.Description) == ""
}

// Combined renders the query as one text span for embedding, mirroring the
// order persona details are usually read: job first, then who is asking.
func (q Query) Combined() string {
	parts := make([]string, 0, 4)
	if s := strings.TrimSpace(q.Job); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(q.Persona.Description); s != "" {
		parts = append(parts, "Persona description: "+s)
	}
	if s := strings.TrimSpace(q.Persona.Role); s != "" {
		parts = append(parts, "Role: "+s)
	}
	if s := strings.TrimSpace(q.Persona.FocusAreas); s != "" {
		parts = append(parts, "Focus areas: "+s)
	}
	return strings.Join(parts, ". ")
}

// ScoredSection pairs a section with its relevance score components.
type ScoredSection struct {
	Section *Section

	// Score is the combined relevance score in [0,1].
	Score float64

	// KeywordScore and SemanticScore are the two components, each in
	// [0,1]. Kept for tie-breaking and diagnostics.
	KeywordScore  float64
	SemanticScore float64
}

// SimilarSection is one "find similar" result.
type SimilarSection struct {
	Document  string  `json:"document"`
	PageIndex int     `json:"page_number"`
	Title     string  `json:"section_title"`
	Score     float64 `json:"score"`
}

// Warning records a per-document failure that did not abort the request.
type Warning struct {
	Document string `json:"document"`
	Reason   string `json:"reason"`
}
