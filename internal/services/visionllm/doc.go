// Package visionllm provides a multimodal chat client that identifies wine
// bottles directly from the shelf photograph.
//
// The cascade uses it when text-based identification fails: the original
// image is sent together with per-bottle hints (position and whatever text
// was read) and the model answers with one identification per bottle it can
// recognize visually.
package visionllm
