package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vintner/internal/associate"
	"vintner/internal/cascade"
	"vintner/internal/config"
	"vintner/internal/logging"
	"vintner/internal/matching"
	"vintner/internal/perception"
)

// Detector is the perception surface the scanner depends on.
type Detector interface {
	Detect(ctx context.Context, image []byte) (*perception.Observation, error)
}

// Scanner composes the full recognition pipeline.
type Scanner struct {
	detector     Detector
	matcher      *matching.Matcher
	orchestrator *cascade.Orchestrator
	cfg          config.Matching
	logger       *slog.Logger
}

// New builds a scanner.
func New(detector Detector, matcher *matching.Matcher, orchestrator *cascade.Orchestrator, cfg config.Matching, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		detector:     detector,
		matcher:      matcher,
		orchestrator: orchestrator,
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "scan"),
	}
}

// Scan runs the pipeline to completion and returns the refined response.
// Only total perception failure is an error; per-bottle failures land in
// the fallback list.
func (s *Scanner) Scan(ctx context.Context, image []byte) (*Response, error) {
	req, imageID, err := s.prepare(ctx, image)
	if err != nil {
		return nil, err
	}
	s.orchestrator.Resolve(ctx, req)
	response := render(imageID, req.Items, s.cfg)
	return &response, nil
}

// ScanStream runs the pipeline progressively. The returned channel carries
// a phase-1 snapshot once fast-path matching completes and a phase-2
// snapshot after the cascade, then closes. The cascade runs detached from
// the caller's context: a client disconnect after phase 1 does not cut off
// phase 2's cache and store writes.
func (s *Scanner) ScanStream(ctx context.Context, image []byte) (<-chan Snapshot, error) {
	req, imageID, err := s.prepare(ctx, image)
	if err != nil {
		return nil, err
	}

	snapshots := make(chan Snapshot, 2)
	go func() {
		defer close(snapshots)

		s.orchestrator.FastResolve(req.Items)
		snapshots <- Snapshot{Phase: 1, Response: render(imageID, req.Items, s.cfg)}

		s.orchestrator.Finish(context.WithoutCancel(ctx), req)
		snapshots <- Snapshot{Phase: 2, Response: render(imageID, req.Items, s.cfg)}
	}()
	return snapshots, nil
}

// prepare runs perception, association, and fast matching, producing the
// cascade request.
func (s *Scanner) prepare(ctx context.Context, image []byte) (*cascade.Request, string, error) {
	observation, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, "", fmt.Errorf("perception: %w", err)
	}

	assocCfg := associate.Config{
		ProximityThreshold: s.cfg.ProximityThreshold,
		IoUThreshold:       s.cfg.IoUThreshold,
		Stoplist:           s.cfg.Stoplist,
	}
	bottleTexts, orphans := associate.Associate(observation, assocCfg)

	texts := make([]string, len(bottleTexts))
	for i, bottle := range bottleTexts {
		texts[i] = bottle.Normalized
	}
	candidates, err := s.matcher.MatchBatch(ctx, texts)
	if err != nil {
		return nil, "", fmt.Errorf("match bottles: %w", err)
	}

	items := make([]*cascade.Item, len(bottleTexts))
	for i, bottle := range bottleTexts {
		items[i] = &cascade.Item{
			BottleID:   bottle.BottleID,
			RawText:    bottle.RawText,
			Normalized: bottle.Normalized,
			Box:        bottle.Box,
			Candidate:  candidates[i],
		}
	}

	orphanTexts := make([]string, 0, len(orphans))
	for _, orphan := range orphans {
		if trimmed := strings.TrimSpace(orphan.Normalized); trimmed != "" {
			orphanTexts = append(orphanTexts, trimmed)
		}
	}

	s.logger.Info("scan prepared",
		logging.String(logging.FieldScanID, observation.ImageID),
		logging.Int("bottle_count", len(items)),
		logging.Int("orphan_count", len(orphanTexts)))

	return &cascade.Request{
		Image:       image,
		Items:       items,
		OrphanTexts: orphanTexts,
	}, observation.ImageID, nil
}
