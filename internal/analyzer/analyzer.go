// Package analyzer orchestrates risk classification: evidence gathering for
// embedded links, prompt composition per modality, the oracle round-trip,
// response repair, and escalation merging across sources.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mindsignal/triage/internal/evidence"
	"github.com/mindsignal/triage/internal/oracle"
)

const defaultOracleTimeout = 60 * time.Second

// noTranscriptNote stands in for the excerpt when no caption track exists, so
// the link prompt still explains what it is analyzing from.
const noTranscriptNote = "(no transcript or lyrics found - analyze from the title instead)"

// Analyzer runs the classification pipeline. It holds no per-request state;
// one instance serves all requests.
type Analyzer struct {
	oracle        oracle.Client
	evidence      *evidence.Gatherer
	logger        *slog.Logger
	oracleTimeout time.Duration
}

// New wires the pipeline. A nil oracle client means no credential was
// configured: the analyzer stays usable but every classification
// short-circuits to an ERROR result instead of attempting a doomed call.
func New(client oracle.Client, gatherer *evidence.Gatherer, logger *slog.Logger) *Analyzer {
	if gatherer == nil {
		gatherer = evidence.NewGatherer(&http.Client{Timeout: 15 * time.Second}, nil, logger)
	}
	return &Analyzer{
		oracle:        client,
		evidence:      gatherer,
		logger:        logger,
		oracleTimeout: defaultOracleTimeout,
	}
}

// SetOracleTimeout overrides the per-call deadline for oracle round-trips.
func (a *Analyzer) SetOracleTimeout(d time.Duration) {
	a.oracleTimeout = d
}

// Ready reports whether an oracle credential is configured. Surfaced by the
// health endpoint as ai_ready.
func (a *Analyzer) Ready() bool {
	return a.oracle != nil
}

// Provider names the configured backend, or "none".
func (a *Analyzer) Provider() string {
	if a.oracle == nil {
		return "none"
	}
	return a.oracle.Provider()
}

// AnalyzeText classifies a free-text message. Links embedded in the message
// contribute evidence (titles, transcript excerpts) to the base prompt, and
// video links are additionally analyzed as their own sub-submissions whose
// findings can escalate, never lower, the base level.
func (a *Analyzer) AnalyzeText(ctx context.Context, message string) Result {
	if a.oracle == nil {
		return a.unconfiguredResult(message)
	}

	urls := ExtractURLs(message)
	bundle := a.evidence.Gather(ctx, urls)

	base := a.classify(ctx, message, composeTextPrompt(message, bundle))
	if base.Level == LevelError {
		// A failed base classification is terminal for the submission;
		// partial merges would misattribute link findings.
		return base
	}

	var videoURLs []string
	for _, u := range urls {
		if evidence.IsVideoURL(u) {
			videoURLs = append(videoURLs, u)
		}
	}
	if len(videoURLs) == 0 {
		return base
	}

	// Link analyses are independent and read-only; run them concurrently
	// but wait for the full set before merging.
	links := make([]LinkAnalysis, len(videoURLs))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range videoURLs {
		g.Go(func() error {
			links[i] = LinkAnalysis{URL: u, Analysis: a.AnalyzeLink(gctx, u)}
			return nil
		})
	}
	_ = g.Wait() // sub-analyses report failures as ERROR results, never errors

	return mergeLinkFindings(base, links)
}

// AnalyzeLink classifies the content behind a video link: the resolved title
// plus a transcript excerpt are framed as "what the user is consuming" and
// fed through the text classification path. The synthesized description is
// not re-scanned for links, so transcript text can never trigger recursive
// fetches.
func (a *Analyzer) AnalyzeLink(ctx context.Context, url string) Result {
	if a.oracle == nil {
		return a.unconfiguredResult(url)
	}

	title := a.evidence.Title(ctx, url)

	excerpt := noTranscriptNote
	if id, ok := evidence.VideoID(url); ok {
		if transcript, err := a.evidence.Transcript(ctx, id); err == nil {
			excerpt = evidence.Truncate(transcript, evidence.LinkExcerptLimit)
		} else {
			a.logger.Debug("link transcript unavailable", "url", url, "error", err)
		}
	}

	return a.classify(ctx, url, composeLinkPrompt(title, excerpt))
}

// AnalyzeImage classifies an image against the visual risk taxonomy. A
// payload that is not a decodable image fails toward caution (YELLOW) rather
// than toward silence.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte) Result {
	if a.oracle == nil {
		return a.unconfiguredResult("")
	}

	if len(data) == 0 || !isImage(data) {
		return Result{
			Level:     LevelYellow,
			Score:     5,
			Reason:    "could not analyze the image clearly, review recommended",
			Timestamp: time.Now(),
			Provider:  a.oracle.Provider(),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.oracleTimeout)
	defer cancel()

	raw, err := a.oracle.Generate(callCtx, imagePrompt, data)
	if err != nil {
		a.logger.Error("image classification failed", "error", err)
		return a.errorResult("", err)
	}

	result := parseResult(raw)
	result.Timestamp = time.Now()
	result.Provider = a.oracle.Provider()
	return result
}

// classify runs one oracle round-trip and stamps the parsed result.
func (a *Analyzer) classify(ctx context.Context, original, prompt string) Result {
	callCtx, cancel := context.WithTimeout(ctx, a.oracleTimeout)
	defer cancel()

	raw, err := a.oracle.Generate(callCtx, prompt, nil)
	if err != nil {
		a.logger.Error("classification failed", "error", err)
		return a.errorResult(original, err)
	}

	result := parseResult(raw)
	result.Timestamp = time.Now()
	result.OriginalMessage = original
	result.Provider = a.oracle.Provider()
	return result
}

func (a *Analyzer) errorResult(original string, err error) Result {
	return Result{
		Level:           LevelError,
		Score:           0,
		Reason:          fmt.Sprintf("classification failed: %v", err),
		Timestamp:       time.Now(),
		OriginalMessage: original,
		Provider:        a.Provider(),
	}
}

func (a *Analyzer) unconfiguredResult(original string) Result {
	return Result{
		Level:           LevelError,
		Score:           0,
		Reason:          "no oracle credential configured",
		Timestamp:       time.Now(),
		OriginalMessage: original,
		Provider:        "none",
	}
}

func isImage(data []byte) bool {
	mime := http.DetectContentType(data)
	return len(mime) >= 6 && mime[:6] == "image/"
}
