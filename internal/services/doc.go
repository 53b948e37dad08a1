// Package services defines shared utilities consumed by the external model
// integrations and the scan pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp scan request and cascade stage identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failures from
//     the perception, LLM, and vision services classifiable.
//
// Use these helpers when wiring new service clients so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
