// Package scan runs the full shelf recognition pipeline for one image:
// perception, spatial association, tiered matching, the validation
// cascade, and ranking into the response contract.
//
// Two entry points exist: Scan blocks until the refined result is ready;
// ScanStream emits an immutable phase-1 snapshot as soon as fast-path
// matching completes, then a phase-2 snapshot that fully replaces it.
package scan
