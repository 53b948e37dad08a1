package config

const (
	defaultDataDir              = "~/.local/share/vintner"
	defaultLogDir               = "~/.local/share/vintner/logs"
	defaultAPIBind              = "127.0.0.1:7491"
	defaultPerceptionTimeout    = 20
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds    = 30
	defaultVisionTimeoutSeconds = 45
	defaultRatingCachePath      = "~/.cache/vintner/ratings.json"
	defaultRatingTTLHours       = 24 * 30
	defaultRatingMaxEntries     = 10000
	defaultMatchCacheCapacity   = 2048
	defaultRequestBudgetSeconds = 45
	defaultStageTimeoutSeconds  = 15
	defaultIngestBatchSize      = 500
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

func defaultStoplist() []string {
	return []string{
		"reserve",
		"reserva",
		"gran reserva",
		"special edition",
		"limited edition",
		"estate bottled",
		"old vine",
		"winemaker's selection",
		"new",
		"sale",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Perception: Perception{
			TimeoutSeconds: defaultPerceptionTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Vision: Vision{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultVisionTimeoutSeconds,
		},
		Matching: Matching{
			RatioWeight:        0.45,
			PartialWeight:      0.30,
			TokenSortWeight:    0.25,
			PhoneticBonus:      0.05,
			FuzzyThreshold:     0.72,
			StrictThreshold:    0.95,
			HighConfidence:     0.85,
			Tappable:           0.65,
			Visible:            0.45,
			LLMConfidenceCap:   0.75,
			VisionFloor:        0.65,
			VisionCap:          0.70,
			ProximityThreshold: 0.25,
			IoUThreshold:       0.5,
			PrefixLimit:        5,
			CandidateLimit:     50,
			Workers:            4,
			Stoplist:           defaultStoplist(),
		},
		Cache: Cache{
			MatchCapacity:    defaultMatchCacheCapacity,
			RatingPath:       defaultRatingCachePath,
			RatingTTLHours:   defaultRatingTTLHours,
			RatingMaxEntries: defaultRatingMaxEntries,
		},
		Cascade: Cascade{
			RequestBudgetSeconds: defaultRequestBudgetSeconds,
			StageTimeoutSeconds:  defaultStageTimeoutSeconds,
		},
		Ingest: Ingest{
			BatchSize: defaultIngestBatchSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
