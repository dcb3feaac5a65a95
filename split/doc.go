// Package split partitions an oversized paginated document into ordered,
// size-bounded chunks, each a self-contained valid document of the same kind.
//
// The algorithm is greedy bin packing by insertion order, not optimal
// packing: document order is preserved so the consumer can reassemble
// content positionally. Splitting is deterministic; identical input and
// threshold always yield identical chunk boundaries.
//
// The pdf subpackage provides the PDF implementation of the Document
// interface.
package split
