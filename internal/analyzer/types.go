package analyzer

import "time"

// Level is the risk tier assigned to a submission. The literal vocabulary is
// a stable contract: callers pattern-match on it to decide whether to raise
// clinician alerts.
type Level string

const (
	LevelGreen  Level = "GREEN"
	LevelYellow Level = "YELLOW"
	LevelRed    Level = "RED"
	LevelError  Level = "ERROR"
)

// rank orders the escalatable tiers. ERROR is terminal and non-comparable:
// a failed sub-analysis must not raise the overall tier, so it ranks below
// everything.
func (l Level) rank() int {
	switch l {
	case LevelGreen:
		return 0
	case LevelYellow:
		return 1
	case LevelRed:
		return 2
	}
	return -1
}

// Result is one classification outcome. It is produced once per submission
// and afterwards only the escalation merge may raise Level and append to
// Reason.
type Result struct {
	Level           Level          `json:"level"`
	Score           int            `json:"score"`
	Reason          string         `json:"reason"`
	Keywords        []string       `json:"keywords"`
	ContentType     string         `json:"content_type,omitempty"`
	MediaContext    string         `json:"media_context,omitempty"`
	Recommendation  string         `json:"recommendation,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	OriginalMessage string         `json:"original_message"`
	Provider        string         `json:"ai_provider"`
	RawResponse     string         `json:"raw_response,omitempty"`
	URLAnalyses     []LinkAnalysis `json:"url_analyses,omitempty"`
}

// LinkAnalysis pairs an embedded URL with the classification of its resolved
// content. Sub-results are preserved in full for audit, not just folded into
// the final level.
type LinkAnalysis struct {
	URL      string `json:"url"`
	Analysis Result `json:"analysis"`
}
