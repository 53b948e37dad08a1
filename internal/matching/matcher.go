package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vintner/internal/config"
	"vintner/internal/logging"
	"vintner/internal/textutil"
	"vintner/internal/winestore"
)

// Tier identifies which matching strategy produced a candidate.
type Tier string

const (
	TierExact  Tier = "exact"
	TierPrefix Tier = "prefix"
	TierFuzzy  Tier = "fuzzy"
)

// Breakdown records the individual similarity measures behind a fuzzy score.
type Breakdown struct {
	Ratio          float64 `json:"ratio"`
	PartialRatio   float64 `json:"partial_ratio"`
	TokenSortRatio float64 `json:"token_sort_ratio"`
	PhoneticBonus  float64 `json:"phonetic_bonus"`
}

// Candidate is one scored match against the wine store.
type Candidate struct {
	WineID    int64     `json:"wine_id"`
	Name      string    `json:"name"`
	Rating    *float64  `json:"rating,omitempty"`
	Breakdown Breakdown `json:"breakdown"`
	Weighted  float64   `json:"weighted"`
	Tier      Tier      `json:"tier"`
}

// Matcher resolves normalized bottle text to wine store records.
type Matcher struct {
	store  *winestore.Store
	cache  *Cache
	cfg    config.Matching
	logger *slog.Logger
}

// New builds a matcher over the given store and cache. A nil cache disables
// memoization.
func New(store *winestore.Store, cache *Cache, cfg config.Matching, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "matcher"),
	}
}

// Match resolves normalized text through the three tiers in order. Returns
// (nil, nil) when no candidate reaches the fuzzy acceptance threshold.
// Identical input against an unchanged store always yields the same result.
func (m *Matcher) Match(ctx context.Context, normalized string) (*Candidate, error) {
	return m.match(ctx, normalized, m.cfg.FuzzyThreshold)
}

// MatchStrict re-runs matching at the strict threshold. Used to verify
// names proposed by external models before trusting them as store hits.
func (m *Matcher) MatchStrict(ctx context.Context, normalized string) (*Candidate, error) {
	return m.match(ctx, normalized, m.cfg.StrictThreshold)
}

func (m *Matcher) match(ctx context.Context, normalized string, threshold float64) (*Candidate, error) {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil, nil
	}

	if m.cache != nil {
		if cached, ok := m.cache.Get(normalized); ok {
			if cached.Weighted >= threshold {
				result := cached
				return &result, nil
			}
			// Cached score below this call's threshold: fall through and
			// let the tiers decide, strict callers must not get weak hits.
		}
	}

	candidate, err := m.matchExact(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		candidate, err = m.matchPrefix(ctx, normalized)
		if err != nil {
			return nil, err
		}
	}
	if candidate == nil {
		candidate, err = m.matchFuzzy(ctx, normalized)
		if err != nil {
			return nil, err
		}
	}

	if candidate == nil || candidate.Weighted < threshold {
		return nil, nil
	}

	if m.cache != nil {
		m.cache.Put(normalized, *candidate)
	}
	m.logger.Debug("matched bottle text",
		logging.String("query", normalized),
		logging.String("tier", string(candidate.Tier)),
		logging.Float64("score", candidate.Weighted))
	return candidate, nil
}

func (m *Matcher) matchExact(ctx context.Context, normalized string) (*Candidate, error) {
	record, err := m.store.FindExact(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("exact match: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	return &Candidate{
		WineID:   record.ID,
		Name:     record.CanonicalName,
		Rating:   record.Rating,
		Weighted: 1.0,
		Tier:     TierExact,
	}, nil
}

// matchPrefix scores a small indexed candidate set by full-string
// similarity, capped below exact-tier confidence.
func (m *Matcher) matchPrefix(ctx context.Context, normalized string) (*Candidate, error) {
	records, err := m.store.SearchPrefix(ctx, normalized, m.cfg.PrefixLimit)
	if err != nil {
		return nil, fmt.Errorf("prefix match: %w", err)
	}

	var best *Candidate
	for _, record := range records {
		quality := textutil.Ratio(normalized, record.NormalizedName)
		score := quality * 0.95
		if score < m.cfg.FuzzyThreshold {
			continue
		}
		if best == nil || score > best.Weighted || (score == best.Weighted && record.ID < best.WineID) {
			best = &Candidate{
				WineID:   record.ID,
				Name:     record.CanonicalName,
				Rating:   record.Rating,
				Weighted: score,
				Tier:     TierPrefix,
			}
		}
	}
	return best, nil
}

// matchFuzzy scores a broader candidate set with the weighted similarity
// sum plus a phonetic bonus when metaphone keys agree.
func (m *Matcher) matchFuzzy(ctx context.Context, normalized string) (*Candidate, error) {
	records, err := m.store.SearchCandidates(ctx, normalized, m.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy match: %w", err)
	}

	queryKey := textutil.MetaphoneKey(normalized)

	var best *Candidate
	for _, record := range records {
		breakdown := Breakdown{
			Ratio:          textutil.Ratio(normalized, record.NormalizedName),
			PartialRatio:   textutil.PartialRatio(normalized, record.NormalizedName),
			TokenSortRatio: textutil.TokenSortRatio(normalized, record.NormalizedName),
		}
		if queryKey != "" && queryKey == textutil.MetaphoneKey(record.NormalizedName) {
			breakdown.PhoneticBonus = m.cfg.PhoneticBonus
		}
		score := m.cfg.RatioWeight*breakdown.Ratio +
			m.cfg.PartialWeight*breakdown.PartialRatio +
			m.cfg.TokenSortWeight*breakdown.TokenSortRatio +
			breakdown.PhoneticBonus
		if score > 1.0 {
			score = 1.0
		}
		if score < m.cfg.FuzzyThreshold {
			continue
		}
		if best == nil || score > best.Weighted || (score == best.Weighted && record.ID < best.WineID) {
			best = &Candidate{
				WineID:    record.ID,
				Name:      record.CanonicalName,
				Rating:    record.Rating,
				Breakdown: breakdown,
				Weighted:  score,
				Tier:      TierFuzzy,
			}
		}
	}
	return best, nil
}
