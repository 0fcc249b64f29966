// Package terms provides lexical term extraction shared by the scorer and
// the insight generator: tokenization, stop-word filtering, and stemming.
package terms
