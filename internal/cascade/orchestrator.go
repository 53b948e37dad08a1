package cascade

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"vintner/internal/config"
	"vintner/internal/logging"
	"vintner/internal/matching"
	"vintner/internal/ratingcache"
	"vintner/internal/services"
	"vintner/internal/services/llm"
	"vintner/internal/services/visionllm"
	"vintner/internal/textutil"
	"vintner/internal/winestore"
)

// TextIdentifier is the batched LLM surface the cascade depends on.
type TextIdentifier interface {
	ValidateBatch(ctx context.Context, items []llm.ValidationItem) ([]llm.Identification, error)
	RescueBatch(ctx context.Context, items []llm.ValidationItem, orphanTexts []string) ([]llm.Identification, error)
	Configured() bool
}

// VisionIdentifier is the image-bearing fallback surface.
type VisionIdentifier interface {
	Identify(ctx context.Context, image []byte, hints []visionllm.BottleHint) ([]llm.Identification, error)
	Configured() bool
}

// Orchestrator advances scan items through the validation cascade.
type Orchestrator struct {
	matcher    *matching.Matcher
	store      *winestore.Store
	ratings    *ratingcache.Cache
	text       TextIdentifier
	vision     VisionIdentifier
	matchCfg   config.Matching
	cascadeCfg config.Cascade
	logger     *slog.Logger
}

// New builds an orchestrator. Either identifier may be nil or unconfigured;
// the corresponding stages then pass items straight through.
func New(
	matcher *matching.Matcher,
	store *winestore.Store,
	ratings *ratingcache.Cache,
	text TextIdentifier,
	vision VisionIdentifier,
	matchCfg config.Matching,
	cascadeCfg config.Cascade,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		matcher:    matcher,
		store:      store,
		ratings:    ratings,
		text:       text,
		vision:     vision,
		matchCfg:   matchCfg,
		cascadeCfg: cascadeCfg,
		logger:     logging.NewComponentLogger(logger, "cascade"),
	}
}

// Resolve drives every item through the cascade, mutating the items in
// place. It never returns an error for stage failures: a bottle that
// resists every stage simply ends unresolved.
func (o *Orchestrator) Resolve(ctx context.Context, req *Request) {
	o.FastResolve(req.Items)
	o.Finish(ctx, req)
}

// FastResolve runs only the local stages: fast-path matcher results and the
// durable rating cache. Cheap enough to gate a phase-1 snapshot on.
func (o *Orchestrator) FastResolve(items []*Item) {
	o.seedStates(items)
	o.stageCacheLookup(items)
}

// Finish runs the external stages over items FastResolve left pending and
// settles every item into a terminal state.
func (o *Orchestrator) Finish(ctx context.Context, req *Request) {
	budget := time.Duration(o.cascadeCfg.RequestBudgetSeconds) * time.Second
	if budget <= 0 {
		budget = 45 * time.Second
	}
	budgetCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		o.logger.Debug("finishing cascade",
			logging.String("request_id", requestID),
			logging.Int("items", len(req.Items)))
	}

	o.stageLLM(budgetCtx, req)
	o.stageVision(budgetCtx, req)
	o.stageRescue(budgetCtx, req)

	for _, item := range req.Items {
		if item.State != StateMatched {
			item.State = StateUnresolved
			if !item.Resolved() {
				item.Source = SourceNone
			}
		}
	}
}

// seedStates applies fast-path matcher results: high-confidence hits bypass
// the cascade entirely, everything else starts at the LLM stage carrying
// whatever weak resolution it already has.
func (o *Orchestrator) seedStates(items []*Item) {
	for _, item := range items {
		if item.Candidate != nil {
			item.resolve(item.Candidate.Name, item.Candidate.Rating, item.Candidate.Weighted, SourceDB)
			if item.Candidate.Weighted >= o.matchCfg.HighConfidence {
				continue
			}
		}
		item.State = StateNeedsLLM
	}
}

// stageCacheLookup short-circuits items whose text resolved in an earlier
// scan. Keys are tried raw first, then normalized, then candidate name.
func (o *Orchestrator) stageCacheLookup(items []*Item) {
	if o.ratings == nil {
		return
	}
	for _, item := range items {
		if item.State != StateNeedsLLM {
			continue
		}
		keys := []string{item.RawText, item.Normalized}
		if item.Candidate != nil {
			keys = append(keys, item.Candidate.Name)
		}
		for _, key := range keys {
			entry, ok := o.ratings.Lookup(key)
			if !ok {
				continue
			}
			item.resolve(entry.WineName, entry.Rating, entry.Confidence, entry.Source)
			o.logger.Debug("rating cache hit",
				logging.String(logging.FieldBottleID, item.BottleID),
				logging.String("wine_name", entry.WineName))
			break
		}
	}
}

func (o *Orchestrator) stageLLM(ctx context.Context, req *Request) {
	pending := make([]*Item, 0, len(req.Items))
	for _, item := range req.Items {
		if item.State == StateNeedsLLM {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return
	}
	advance := func() {
		for _, item := range pending {
			if item.State == StateNeedsLLM {
				item.State = StateNeedsVision
			}
		}
	}
	if o.text == nil || !o.text.Configured() {
		advance()
		return
	}

	stageCtx, cancel := o.stageContext(ctx, "llm")
	defer cancel()

	batch := make([]llm.ValidationItem, 0, len(pending))
	for _, item := range pending {
		validation := llm.ValidationItem{
			ID:         item.BottleID,
			RawText:    item.RawText,
			Normalized: item.Normalized,
		}
		if item.Candidate != nil {
			validation.Candidates = []llm.CandidateHint{{
				Name:   item.Candidate.Name,
				Rating: item.Candidate.Rating,
			}}
		}
		batch = append(batch, validation)
	}

	results, err := o.text.ValidateBatch(stageCtx, batch)
	if err != nil {
		impact := "bottles fall through to vision"
		if !services.Recoverable(err) {
			// A configuration or validation failure will not heal within
			// this request, so the rescue stage skips the text identifier.
			req.textUnavailable = true
			impact = "bottles fall through to vision; rescue skipped"
		}
		o.logger.Warn("llm validation stage degraded",
			logging.String(logging.FieldStage, "llm"),
			logging.Error(err),
			logging.String(logging.FieldImpact, impact))
		advance()
		return
	}

	byID := itemsByID(pending)
	for _, result := range results {
		item, ok := byID[result.ID]
		if !ok {
			continue
		}
		o.applyTextResult(ctx, item, result, SourceLLM)
	}
	advance()
}

// applyTextResult settles one LLM identification: confirm the DB candidate,
// re-match the proposed name strictly, or accept it as a capped LLM result.
func (o *Orchestrator) applyTextResult(ctx context.Context, item *Item, result llm.Identification, source string) {
	// The model confirms a forwarded candidate either explicitly or by
	// echoing its name; a confirmed candidate keeps its DB score even when
	// the model spells the name differently.
	if item.Candidate != nil && (result.IsValidMatch || strings.EqualFold(result.WineName, item.Candidate.Name)) {
		item.resolve(item.Candidate.Name, item.Candidate.Rating, item.Candidate.Weighted, SourceDB)
		o.writeCache(item)
		return
	}

	normalized := textutil.Normalize(result.WineName, o.matchCfg.Stoplist)
	strict, err := o.matcher.MatchStrict(ctx, normalized)
	if err != nil {
		o.logger.Warn("strict re-match failed",
			logging.String(logging.FieldBottleID, item.BottleID),
			logging.Error(err))
	}
	if strict != nil {
		item.resolve(strict.Name, strict.Rating, strict.Weighted, SourceDB)
		o.writeCache(item)
		return
	}

	confidence := result.Confidence
	if confidence > o.matchCfg.LLMConfidenceCap {
		confidence = o.matchCfg.LLMConfidenceCap
	}
	item.resolve(result.WineName, result.EstimatedRating, confidence, source)
	o.syncDiscovered(ctx, result.WineName, normalized, result.EstimatedRating, source)
	o.writeCache(item)
}

func (o *Orchestrator) stageVision(ctx context.Context, req *Request) {
	var eligible []*Item
	for _, item := range req.Items {
		if item.State != StateNeedsVision {
			continue
		}
		if !item.Resolved() || item.Confidence < o.matchCfg.Tappable || item.Rating == nil {
			eligible = append(eligible, item)
			continue
		}
		// Resolved well enough that vision has nothing to add.
		item.State = StateMatched
	}
	settle := func() {
		for _, item := range eligible {
			if item.State != StateNeedsVision {
				continue
			}
			if item.Resolved() {
				item.State = StateMatched
			} else {
				item.State = StateNeedsRescue
			}
		}
	}
	if len(eligible) == 0 {
		return
	}
	if o.vision == nil || !o.vision.Configured() || len(req.Image) == 0 {
		settle()
		return
	}

	stageCtx, cancel := o.stageContext(ctx, "vision")
	defer cancel()

	hints := make([]visionllm.BottleHint, 0, len(eligible))
	for _, item := range eligible {
		centerX, centerY := item.Box.Centroid()
		hints = append(hints, visionllm.BottleHint{
			ID:      item.BottleID,
			CenterX: centerX,
			CenterY: centerY,
			Text:    item.RawText,
		})
	}

	results, err := o.vision.Identify(stageCtx, req.Image, hints)
	if err != nil {
		o.logger.Warn("vision stage degraded",
			logging.String(logging.FieldStage, "vision"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "bottles fall through to rescue"))
		settle()
		return
	}

	byID := itemsByID(eligible)
	for _, result := range results {
		item, ok := byID[result.ID]
		if !ok {
			continue
		}
		confidence := o.clampVision(result.Confidence)
		normalized := textutil.Normalize(result.WineName, o.matchCfg.Stoplist)
		item.resolve(result.WineName, result.EstimatedRating, confidence, SourceVision)
		o.syncDiscovered(ctx, result.WineName, normalized, result.EstimatedRating, SourceVision)
		o.writeCache(item)
	}
	settle()
}

// clampVision boxes vision confidence so those matches are tappable but
// never eligible for top-rank emphasis.
func (o *Orchestrator) clampVision(confidence float64) float64 {
	if confidence < o.matchCfg.VisionFloor {
		return o.matchCfg.VisionFloor
	}
	if confidence > o.matchCfg.VisionCap {
		return o.matchCfg.VisionCap
	}
	return confidence
}

func (o *Orchestrator) stageRescue(ctx context.Context, req *Request) {
	var pending []*Item
	for _, item := range req.Items {
		if item.State == StateNeedsRescue {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return
	}
	if o.text == nil || !o.text.Configured() || req.textUnavailable {
		return
	}

	stageCtx, cancel := o.stageContext(ctx, "rescue")
	defer cancel()

	batch := make([]llm.ValidationItem, 0, len(pending))
	for _, item := range pending {
		batch = append(batch, llm.ValidationItem{
			ID:         item.BottleID,
			RawText:    item.RawText,
			Normalized: item.Normalized,
		})
	}

	results, err := o.text.RescueBatch(stageCtx, batch, req.OrphanTexts)
	if err != nil {
		o.logger.Warn("rescue stage degraded",
			logging.String(logging.FieldStage, "rescue"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "bottles end unresolved"))
		return
	}

	byID := itemsByID(pending)
	for _, result := range results {
		item, ok := byID[result.ID]
		if !ok {
			continue
		}
		normalized := textutil.Normalize(result.WineName, o.matchCfg.Stoplist)
		rematch, err := o.matcher.Match(ctx, normalized)
		if err != nil {
			o.logger.Warn("rescue re-match failed",
				logging.String(logging.FieldBottleID, item.BottleID),
				logging.Error(err))
		}
		if rematch != nil {
			item.resolve(rematch.Name, rematch.Rating, rematch.Weighted, SourceDB)
			o.writeCache(item)
			continue
		}
		confidence := result.Confidence
		if confidence > o.matchCfg.LLMConfidenceCap {
			confidence = o.matchCfg.LLMConfidenceCap
		}
		item.resolve(result.WineName, result.EstimatedRating, confidence, SourceLLM)
		o.syncDiscovered(ctx, result.WineName, normalized, result.EstimatedRating, SourceLLM)
		o.writeCache(item)
	}
}

// stageContext derives a sub-timeout for one stage, naturally capped by the
// remaining request budget. The stage name rides the context so service
// clients can tag their logs.
func (o *Orchestrator) stageContext(ctx context.Context, stage string) (context.Context, context.CancelFunc) {
	stageTimeout := time.Duration(o.cascadeCfg.StageTimeoutSeconds) * time.Second
	if stageTimeout <= 0 {
		stageTimeout = 15 * time.Second
	}
	return context.WithTimeout(services.WithStage(ctx, stage), stageTimeout)
}

// writeCache stores the item's resolution under all three key forms so any
// later scan of the same label short-circuits.
func (o *Orchestrator) writeCache(item *Item) {
	if o.ratings == nil || !item.Resolved() {
		return
	}
	entry := ratingcache.Entry{
		WineName:   item.WineName,
		Rating:     item.Rating,
		Confidence: item.Confidence,
		Source:     item.Source,
	}
	if err := o.ratings.Store(entry, item.RawText, item.Normalized, item.WineName); err != nil {
		o.logger.Warn("rating cache write failed",
			logging.String(logging.FieldBottleID, item.BottleID),
			logging.Error(err))
	}
}

// syncDiscovered upserts an externally identified wine into the store so
// the next scan matches it directly. Failures are logged, never fatal.
func (o *Orchestrator) syncDiscovered(ctx context.Context, name, normalized string, rating *float64, source string) {
	if o.store == nil {
		return
	}
	if _, err := o.store.UpsertDiscovered(ctx, name, normalized, rating, source); err != nil {
		o.logger.Warn("discovered wine sync failed",
			logging.String("wine_name", name),
			logging.Error(err))
	}
}

func itemsByID(items []*Item) map[string]*Item {
	byID := make(map[string]*Item, len(items))
	for _, item := range items {
		byID[item.BottleID] = item
	}
	return byID
}
