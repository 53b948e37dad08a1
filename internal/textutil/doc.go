// Package textutil provides the shared text normalization and string
// similarity primitives used by both the recognition matcher and the
// ingestion entity resolver. Normalization is deterministic: the matcher and
// the resolver must derive identical keys from identical input.
package textutil
