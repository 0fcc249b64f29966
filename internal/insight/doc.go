// Package insight derives per-section summaries and keyword sets.
//
// Both are computed purely from the section's own text, with no
// cross-document context, so they are stable and cheap to recompute.
package insight
