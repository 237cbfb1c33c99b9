// Package domain defines the core business entities for paperchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Segment: Extracted text of one page of a source document
//   - Chunk: A retrievable unit of text with provenance metadata
//   - IndexRecord / IndexResult: Ledger entries and batch outcomes
//   - RetrievedDoc / EvidenceSet: Per-query retrieval results
//   - Citation / Answer: Verifiable answers returned to callers
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
