// Package matching scores normalized bottle text against the wine store.
//
// Matching is tiered: exact name/alias equality, then prefix search over
// the full-text index, then a weighted fuzzy score over a broader candidate
// set with a phonetic bonus. Results are memoized in a bounded LRU cache
// keyed by the normalized query.
package matching
