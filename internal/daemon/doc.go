// Package daemon wires the recognition pipeline into a single long-running
// process. It owns the wine store, the match and rating caches, the model
// clients, and the HTTP API server, enforcing single-instance execution with
// a flock-based lock file in the data directory.
package daemon
