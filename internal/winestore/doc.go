// Package winestore manages the canonical wine database backed by SQLite:
// wine records with aliases and per-source ratings, an FTS5 search surface
// feeding the tiered matcher, and the ingestion run ledger used for
// idempotent re-ingestion. Canonical name uniqueness is enforced by the
// store; concurrent discovery upserts are unique-constraint safe.
package winestore
