// Package segment partitions extracted text blocks into sections.
//
// Section boundaries come from two layout signals: vertical whitespace gaps
// larger than the document's typical line spacing, and blocks set in a font
// visibly larger than the page's body text (treated as headings). Both
// thresholds are relative measures, tunable via Config; fixed pixel
// thresholds do not survive varying font sizes and page densities.
package segment
