package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("```(?:json)?")

// malformedReason is the reason attached when the oracle's answer cannot be
// decoded. The tier deliberately fails toward caution: an unreadable answer
// must never resolve to "safe".
const malformedReason = "response malformed, treat as needing review"

// wireResult mirrors the JSON object the prompts request. Score tolerates the
// model answering with a float.
type wireResult struct {
	Level          string   `json:"level"`
	Score          float64  `json:"score"`
	Reason         string   `json:"reason"`
	Keywords       []string `json:"keywords"`
	ContentType    string   `json:"content_type"`
	MediaContext   string   `json:"media_context"`
	Recommendation string   `json:"recommendation"`
}

// parseResult decodes the oracle's free-text answer into a Result. Models
// habitually wrap the JSON in code fences or surround it with commentary, so
// the fences are stripped and only the span from the first '{' to the last
// '}' is decoded. Anything that still fails to decode returns the YELLOW
// safe default with the raw text preserved for audit.
func parseResult(raw string) Result {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return malformedResult(raw)
	}

	level := Level(strings.ToUpper(strings.TrimSpace(wire.Level)))
	if level.rank() < 0 {
		// A decodable object with an unknown tier is as untrustworthy as
		// no object at all.
		return malformedResult(raw)
	}

	return Result{
		Level:          level,
		Score:          clampScore(int(wire.Score + 0.5)),
		Reason:         wire.Reason,
		Keywords:       wire.Keywords,
		ContentType:    wire.ContentType,
		MediaContext:   wire.MediaContext,
		Recommendation: wire.Recommendation,
	}
}

func malformedResult(raw string) Result {
	return Result{
		Level:       LevelYellow,
		Score:       5,
		Reason:      malformedReason,
		RawResponse: raw,
	}
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
