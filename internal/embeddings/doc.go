// Package embeddings provides embedding generation via multiple providers.
//
// Supports FastEmbed (local ONNX) and TEI (external service) providers.
// Factory pattern enables provider selection at runtime with automatic
// dimension detection for common models. A content-addressed cache
// decorator gives get-or-compute semantics so identical text across
// requests reuses its vector.
package embeddings
