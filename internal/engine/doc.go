// Package engine orchestrates the document-intelligence pipeline.
//
// One Process call runs extraction, segmentation, and embedding per
// document in a bounded worker pool, ranks the surviving sections against
// the persona/job query, and indexes the corpus for follow-on FindSimilar
// calls. Per-document failures become warnings on the result; only an
// unusable query aborts the whole request.
package engine
