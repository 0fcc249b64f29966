// Package layout extracts positioned text from PDF documents.
//
// The extractor turns raw PDF bytes into the ordered Page -> TextBlock
// structure the segmenter consumes, preserving reading order per page.
// Documents that are encrypted, corrupt, or carry no embedded text layer
// fail with ErrUnreadablePDF rather than being silently skipped.
package layout
