// Package llm provides an OpenRouter chat client for text-based wine
// identification.
//
// This package is used by the validation cascade:
//   - Batch validation: confirm or correct weak matcher results
//   - Batch rescue: a final pass over everything still unresolved,
//     cross-referencing orphan label fragments
//
// # Request Logic
//
// The client sends normalized label texts (plus any database candidates)
// to a configured LLM model with a structured prompt requesting JSON
// output. The response carries one identification per input item with a
// confidence score (0-1) and an estimated rating.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
//
// # Fallback
//
// If the LLM is unavailable or returns an error, the cascade degrades to
// its next stage rather than failing the scan.
package llm
