// Package perception defines the contract with the upstream detection
// service: bottle bounding boxes and raw OCR text fragments, both with
// coordinates normalized to [0,1]. The service's internals are out of scope;
// this package owns only the request/response types and the HTTP client.
package perception
