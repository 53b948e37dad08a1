package cascade

import (
	"vintner/internal/matching"
	"vintner/internal/perception"
)

// State is a bottle's position in the cascade progression.
type State string

const (
	StateMatched     State = "matched"
	StateNeedsLLM    State = "needs_llm"
	StateNeedsVision State = "needs_vision"
	StateNeedsRescue State = "needs_rescue"
	StateUnresolved  State = "unresolved"
)

// Source labels where a bottle's resolution came from.
const (
	SourceDB     = "db"
	SourceLLM    = "llm"
	SourceVision = "vision"
	SourceNone   = "none"
)

// Item is one bottle moving through the cascade. The fast-path matcher
// result, if any, seeds the resolution; stages may replace it.
type Item struct {
	BottleID   string
	RawText    string
	Normalized string
	Box        perception.BoundingBox

	Candidate *matching.Candidate

	State      State
	WineName   string
	Rating     *float64
	Confidence float64
	Source     string
}

// Resolved reports whether the item has any resolution at all.
func (i *Item) Resolved() bool {
	return i.WineName != ""
}

func (i *Item) resolve(name string, rating *float64, confidence float64, source string) {
	i.WineName = name
	i.Rating = rating
	i.Confidence = confidence
	i.Source = source
	i.State = StateMatched
}

// Request carries everything the cascade needs for one scan.
type Request struct {
	Image       []byte
	Items       []*Item
	OrphanTexts []string

	// textUnavailable is set when the text identifier failed in a way that
	// cannot heal within this request; the rescue stage then skips it.
	textUnavailable bool
}
