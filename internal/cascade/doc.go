// Package cascade resolves bottles the fast matching path could not settle.
//
// Each bottle advances through an explicit state progression:
//
//	Matched → NeedsLLM → NeedsVision → NeedsRescue → Unresolved
//
// The orchestrator drives all bottles through the stages together: a
// durable rating-cache lookup, one batched LLM validation call, a vision
// call carrying the original image, and a final batched rescue pass that
// cross-references orphan label fragments. Every stage has a sub-timeout
// inside a per-request budget, and a stage failure leaves its bottles for
// the next stage instead of failing the scan.
package cascade
