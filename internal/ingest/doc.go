// Package ingest populates the wine store from rating source files.
//
// A source adapter yields raw records lazily; the resolver collapses them
// into canonical wine entities using the same normalization the matcher
// relies on, so dedup keys never drift between ingestion and scanning.
// The runner hashes each source file and skips files it has already
// processed, making re-ingestion a no-op.
package ingest
