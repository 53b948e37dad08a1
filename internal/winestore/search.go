package winestore

import (
	"context"
	"fmt"
	"strings"
)

// SearchPrefix returns wines whose indexed text starts with the query, best
// FTS rank first. The last token is matched as a prefix so partial label
// reads still hit.
func (s *Store) SearchPrefix(ctx context.Context, normalized string, limit int) ([]*WineRecord, error) {
	query := buildPrefixQuery(normalized)
	if query == "" {
		return nil, nil
	}
	return s.searchFTS(ctx, query, limit)
}

// SearchCandidates returns wines sharing any token with the query, for the
// fuzzy matching tier. Broader than SearchPrefix: tokens are OR-joined so a
// single strong token is enough to surface a candidate.
func (s *Store) SearchCandidates(ctx context.Context, normalized string, limit int) ([]*WineRecord, error) {
	query := buildOrQuery(normalized)
	if query == "" {
		return nil, nil
	}
	return s.searchFTS(ctx, query, limit)
}

func (s *Store) searchFTS(ctx context.Context, match string, limit int) ([]*WineRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT w.id, w.canonical_name, w.normalized_name, w.rating, w.wine_type, w.region,
                w.winery, w.country, w.varietal, w.created_at, w.updated_at
         FROM wine_search ws
         JOIN wines w ON w.id = ws.wine_id
         WHERE wine_search MATCH ?
         ORDER BY rank
         LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search wines: %w", err)
	}
	defer rows.Close()

	var records []*WineRecord
	seen := make(map[int64]bool)
	for rows.Next() {
		record, err := scanWine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}

	for _, record := range records {
		if err := s.loadDetails(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// buildPrefixQuery produces an FTS5 match expression requiring every token
// in order, with the final token open-ended: `"caymus" "caber"*`.
func buildPrefixQuery(normalized string) string {
	tokens := ftsTokens(normalized)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, len(tokens))
	for i, token := range tokens {
		parts[i] = `"` + token + `"`
	}
	parts[len(parts)-1] += "*"
	return strings.Join(parts, " ")
}

// buildOrQuery produces an FTS5 match expression accepting any token:
// `"caymus" OR "cabernet"`.
func buildOrQuery(normalized string) string {
	tokens := ftsTokens(normalized)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, len(tokens))
	for i, token := range tokens {
		parts[i] = `"` + token + `"`
	}
	return strings.Join(parts, " OR ")
}

// ftsTokens splits normalized text into quotable tokens, dropping anything
// containing a double quote so user text can't break the match expression.
func ftsTokens(normalized string) []string {
	fields := strings.Fields(strings.TrimSpace(normalized))
	tokens := fields[:0]
	for _, field := range fields {
		if strings.Contains(field, `"`) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
