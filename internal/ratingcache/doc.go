// Package ratingcache persists wine resolutions discovered by external
// model calls so repeat scans skip the expensive cascade stages.
//
// Entries are stored under every key form a later scan might present: the
// resolved wine name, the raw label text, and the normalized text. The
// cache is a single JSON file written atomically, with TTL expiry and a
// bounded entry count.
package ratingcache
