package analyzer

import (
	"strings"
	"testing"
)

func TestParseResult_PlainJSON(t *testing.T) {
	raw := `{"level": "RED", "score": 9, "reason": "explicit suicidal ideation", "keywords": ["die"], "recommendation": "contact clinician immediately"}`

	result := parseResult(raw)

	if result.Level != LevelRed {
		t.Errorf("expected RED, got %s", result.Level)
	}
	if result.Score != 9 {
		t.Errorf("expected score 9, got %d", result.Score)
	}
	if result.Reason != "explicit suicidal ideation" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
	if len(result.Keywords) != 1 || result.Keywords[0] != "die" {
		t.Errorf("unexpected keywords %v", result.Keywords)
	}
	if result.RawResponse != "" {
		t.Errorf("raw response should be empty on success, got %q", result.RawResponse)
	}
}

func TestParseResult_FencedWithCommentary(t *testing.T) {
	plain := `{"level": "YELLOW", "score": 6, "reason": "depressive language", "keywords": []}`
	wrapped := "Here is my analysis:\n```json\n" + plain + "\n```\nLet me know if you need more detail."

	got := parseResult(wrapped)
	want := parseResult(plain)

	if got.Level != want.Level || got.Score != want.Score || got.Reason != want.Reason {
		t.Errorf("fenced parse diverged: got %+v want %+v", got, want)
	}
}

func TestParseResult_Malformed(t *testing.T) {
	for _, raw := range []string{
		"the user seems fine to me",
		`{"level": "YELLOW", "score":`,
		"",
	} {
		result := parseResult(raw)
		if result.Level != LevelYellow {
			t.Errorf("raw %q: expected YELLOW, got %s", raw, result.Level)
		}
		if result.Score != 5 {
			t.Errorf("raw %q: expected score 5, got %d", raw, result.Score)
		}
		if result.RawResponse != raw {
			t.Errorf("raw %q: raw text not preserved, got %q", raw, result.RawResponse)
		}
		if !strings.Contains(result.Reason, "malformed") {
			t.Errorf("raw %q: unexpected reason %q", raw, result.Reason)
		}
	}
}

func TestParseResult_UnknownTier(t *testing.T) {
	result := parseResult(`{"level": "PURPLE", "score": 3, "reason": "?"}`)
	if result.Level != LevelYellow || result.Score != 5 {
		t.Errorf("unknown tier should fall back to the safe default, got %s/%d", result.Level, result.Score)
	}
}

func TestParseResult_LowercaseTierAndFloatScore(t *testing.T) {
	result := parseResult(`{"level": "green", "score": 1.4, "reason": "ordinary chat"}`)
	if result.Level != LevelGreen {
		t.Errorf("expected GREEN, got %s", result.Level)
	}
	if result.Score != 1 {
		t.Errorf("expected score 1, got %d", result.Score)
	}
}

func TestParseResult_ScoreClamped(t *testing.T) {
	result := parseResult(`{"level": "RED", "score": 99, "reason": "x"}`)
	if result.Score != 10 {
		t.Errorf("expected score clamped to 10, got %d", result.Score)
	}
}
