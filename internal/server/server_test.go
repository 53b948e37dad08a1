package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"vintner/internal/cascade"
	"vintner/internal/config"
	"vintner/internal/matching"
	"vintner/internal/perception"
	"vintner/internal/ratingcache"
	"vintner/internal/scan"
	"vintner/internal/textutil"
	"vintner/internal/winestore"
)

type fakeDetector struct {
	observation *perception.Observation
	err         error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) (*perception.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.observation, nil
}

func newTestServer(t *testing.T, detector scan.Detector) *Server {
	t.Helper()
	dir := t.TempDir()
	store, err := winestore.OpenPath(filepath.Join(dir, "wines.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rating := 4.5
	_, _, _, err = store.MergeBatch(context.Background(), []winestore.WineRecord{{
		CanonicalName:  "Caymus Cabernet Sauvignon",
		NormalizedName: textutil.Normalize("Caymus Cabernet Sauvignon", nil),
		SourceRatings: []winestore.SourceRating{
			{SourceName: "critics", Rating: rating, ScaleMin: 0, ScaleMax: 5},
		},
	}})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	cfg := config.Default().Matching
	matcher := matching.New(store, matching.NewCache(64), cfg, nil)
	ratings := ratingcache.New(filepath.Join(dir, "ratings.json"), 0, 0, nil)
	orchestrator := cascade.New(matcher, store, ratings, nil, nil,
		cfg, config.Cascade{RequestBudgetSeconds: 5, StageTimeoutSeconds: 2}, nil)
	scanner := scan.New(detector, matcher, orchestrator, cfg, nil)

	return New("127.0.0.1:0", scanner, nil, nil)
}

func shelfObservation() *perception.Observation {
	return &perception.Observation{
		ImageID: "img-9",
		Detections: []perception.Detection{
			{ID: "bottle-0", Box: perception.BoundingBox{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.3}, Confidence: 0.99},
		},
		Fragments: []perception.Fragment{
			{Text: "CAYMUS CABERNET SAUVIGNON 2021", Box: perception.BoundingBox{X: 0.45, Y: 0.45, Width: 0.1, Height: 0.05}},
		},
	}
}

func TestHandleScanContract(t *testing.T) {
	srv := newTestServer(t, &fakeDetector{observation: shelfObservation()})

	request := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte("jpeg")))
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var payload struct {
		ImageID string `json:"image_id"`
		Results []struct {
			WineName   string   `json:"wine_name"`
			Rating     *float64 `json:"rating"`
			Confidence float64  `json:"confidence"`
			Box        struct {
				X      float64 `json:"x"`
				Y      float64 `json:"y"`
				Width  float64 `json:"width"`
				Height float64 `json:"height"`
			} `json:"bbox"`
		} `json:"results"`
		Fallback []struct {
			WineName string   `json:"wine_name"`
			Rating   *float64 `json:"rating"`
		} `json:"fallback_list"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ImageID != "img-9" {
		t.Errorf("image_id = %q", payload.ImageID)
	}
	if len(payload.Results) != 1 {
		t.Fatalf("results = %+v", payload.Results)
	}
	result := payload.Results[0]
	if result.WineName != "Caymus Cabernet Sauvignon" || result.Confidence != 1.0 {
		t.Errorf("result = %+v", result)
	}
	if result.Box.Width != 0.2 {
		t.Errorf("bbox = %+v", result.Box)
	}
}

func TestHandleScanRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, &fakeDetector{observation: shelfObservation()})

	get := httptest.NewRequest(http.MethodGet, "/api/scan", nil)
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, get)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", recorder.Code)
	}

	empty := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	recorder = httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, empty)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", recorder.Code)
	}
}

func TestHandleScanPerceptionFailure(t *testing.T) {
	srv := newTestServer(t, &fakeDetector{err: errors.New("unreachable")})

	request := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader([]byte("jpeg")))
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", recorder.Code)
	}
}

func TestHandleScanStreamEvents(t *testing.T) {
	srv := newTestServer(t, &fakeDetector{observation: shelfObservation()})

	request := httptest.NewRequest(http.MethodPost, "/api/scan/stream", bytes.NewReader([]byte("jpeg")))
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	if contentType := recorder.Header().Get("Content-Type"); contentType != "text/event-stream" {
		t.Errorf("content type = %q", contentType)
	}

	body := recorder.Body.String()
	for _, event := range []string{"event: phase1", "event: phase2", "event: done"} {
		if !strings.Contains(body, event) {
			t.Errorf("stream missing %q:\n%s", event, body)
		}
	}
	if strings.Index(body, "event: phase1") > strings.Index(body, "event: phase2") {
		t.Error("phase1 must precede phase2")
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeDetector{observation: shelfObservation()})
	srv.health = map[string]HealthChecker{
		"store":      func(context.Context) error { return nil },
		"perception": func(context.Context) error { return errors.New("dial timeout") },
		"llm":        func(context.Context) error { return nil },
	}

	request := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	recorder := httptest.NewRecorder()
	srv.Handler().ServeHTTP(recorder, request)

	var payload struct {
		Status       string `json:"status"`
		Dependencies []struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload.Status != "degraded" {
		t.Errorf("status = %q, want degraded", payload.Status)
	}
	if len(payload.Dependencies) != 3 {
		t.Fatalf("dependencies = %+v", payload.Dependencies)
	}
	// Dependencies are emitted in name order so the payload is stable.
	for i, want := range []string{"llm", "perception", "store"} {
		if payload.Dependencies[i].Name != want {
			t.Errorf("dependency[%d] = %q, want %q", i, payload.Dependencies[i].Name, want)
		}
	}
}
