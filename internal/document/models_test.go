package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersona(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want PersonaSpec
	}{
		{
			name: "json object",
			raw:  `{"role":"Investment Analyst","focus_areas":"revenue trends"}`,
			want: PersonaSpec{Role: "Investment Analyst", FocusAreas: "revenue trends"},
		},
		{
			name: "free text",
			raw:  "PhD researcher in computational biology",
			want: PersonaSpec{Description: "PhD researcher in computational biology"},
		},
		{
			name: "malformed json falls back to free text",
			raw:  `{"role": "Analyst"`,
			want: PersonaSpec{Description: `{"role": "Analyst"`},
		},
		{
			name: "surrounding whitespace",
			raw:  "  Travel planner  ",
			want: PersonaSpec{Description: "Travel planner"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePersona(tt.raw))
		})
	}
}

func TestQueryEmpty(t *testing.T) {
	assert.True(t, Query{}.Empty())
	assert.True(t, Query{Job: "   "}.Empty())
	assert.False(t, Query{Job: "plan a trip"}.Empty())
	assert.False(t, Query{Persona: PersonaSpec{Role: "Analyst"}}.Empty())
	assert.False(t, Query{Persona: PersonaSpec{Description: "HR professional"}}.Empty())
}

func TestQueryCombined(t *testing.T) {
	q := Query{
		Persona: PersonaSpec{Role: "Analyst", FocusAreas: "emissions"},
		Job:     "Summarize climate commitments",
	}
	got := q.Combined()
	assert.Contains(t, got, "Summarize climate commitments")
	assert.Contains(t, got, "Role: Analyst")
	assert.Contains(t, got, "Focus areas: emissions")

	assert.Equal(t, "just the job", Query{Job: "just the job"}.Combined())
	assert.Equal(t, "", Query{}.Combined())
}

func TestSectionJSON(t *testing.T) {
	sec := Section{
		ID:             "internal-id",
		Document:       "report.pdf",
		PageIndex:      2,
		Title:          "Results",
		Text:           "raw body",
		Heading:        true,
		ImportanceRank: 1,
		RefinedText:    "summary",
		Keywords:       []string{"results"},
	}

	data, err := json.Marshal(sec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "report.pdf", decoded["document"])
	assert.Equal(t, float64(2), decoded["page_number"])
	assert.Equal(t, "Results", decoded["section_title"])
	assert.Equal(t, "raw body", decoded["section_text_raw"])
	assert.Equal(t, float64(1), decoded["importance_rank"])
	assert.Equal(t, "summary", decoded["refined_text"])

	// Internal bookkeeping never leaves the process.
	assert.NotContains(t, decoded, "ID")
	assert.NotContains(t, decoded, "Heading")
}

func TestBlockCount(t *testing.T) {
	doc := Document{
		Name: "d.pdf",
		Pages: []Page{
			{Blocks: []TextBlock{{Text: "a"}, {Text: "b"}}},
			{Blocks: []TextBlock{{Text: "c"}}},
		},
	}
	assert.Equal(t, 3, doc.BlockCount())
	assert.Equal(t, 0, (&Document{}).BlockCount())
}

func TestTextBlockHeight(t *testing.T) {
	b := TextBlock{Y0: 100, Y1: 112}
	assert.InDelta(t, 12.0, b.Height(), 1e-12)
}
