// Package evidence gathers auxiliary context for links embedded in a message:
// the canonical page title and, when a caption track exists, a transcript
// excerpt. Everything here is best-effort: external fetches fail routinely
// and classification must still proceed on whatever evidence survived.
package evidence

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultCaptionBaseURL = "https://video.google.com/timedtext"

	// ExcerptLimit bounds transcript text carried into the text-analysis
	// prompt as supporting context.
	ExcerptLimit = 1000
	// LinkExcerptLimit bounds transcript text when the link itself is the
	// subject of analysis.
	LinkExcerptLimit = 1500

	unknownTitle = "Unknown Video"
)

// Bundle holds the evidence gathered for one message. URLs keeps the order
// of appearance so prompt rendering is deterministic.
type Bundle struct {
	URLs        []string
	Titles      map[string]string // url -> page title
	Transcripts map[string]string // url -> transcript excerpt
}

// Empty reports whether no evidence was gathered at all.
func (b Bundle) Empty() bool {
	return len(b.Titles) == 0 && len(b.Transcripts) == 0
}

// Gatherer fetches titles and caption tracks with bounded timeouts.
type Gatherer struct {
	client         *http.Client
	logger         *slog.Logger
	captionBaseURL string
	languages      []string
}

// NewGatherer wires an HTTP client; languages is the caption-language
// preference order, defaulting to Thai then English.
func NewGatherer(client *http.Client, languages []string, logger *slog.Logger) *Gatherer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if len(languages) == 0 {
		languages = []string{"th", "en"}
	}
	return &Gatherer{
		client:         client,
		logger:         logger,
		captionBaseURL: defaultCaptionBaseURL,
		languages:      languages,
	}
}

// SetTestCaptionURL redirects caption fetches to a test server.
func (g *Gatherer) SetTestCaptionURL(baseURL string) {
	g.captionBaseURL = baseURL
}

// IsVideoURL reports whether the URL points at a known video-sharing host.
func IsVideoURL(raw string) bool {
	return strings.Contains(raw, "youtu")
}

// VideoID extracts the content identifier from the two known URL shapes:
// the short-link form .../ID and the long form ...?v=ID. Returns false when
// neither shape matches.
func VideoID(raw string) (string, bool) {
	if _, after, ok := strings.Cut(raw, "youtu.be/"); ok {
		if i := strings.IndexAny(after, "?&/"); i >= 0 {
			after = after[:i]
		}
		if after != "" {
			return after, true
		}
	}
	if _, after, ok := strings.Cut(raw, "v="); ok {
		if i := strings.IndexAny(after, "&?/"); i >= 0 {
			after = after[:i]
		}
		if after != "" {
			return after, true
		}
	}
	return "", false
}

// Gather collects titles and transcript excerpts for every video URL in the
// list. Failures degrade to missing entries, never errors.
func (g *Gatherer) Gather(ctx context.Context, urls []string) Bundle {
	bundle := Bundle{
		Titles:      make(map[string]string),
		Transcripts: make(map[string]string),
	}

	for _, u := range urls {
		if !IsVideoURL(u) {
			continue
		}
		bundle.URLs = append(bundle.URLs, u)
		bundle.Titles[u] = g.Title(ctx, u)

		id, ok := VideoID(u)
		if !ok {
			continue
		}
		excerpt, err := g.Transcript(ctx, id)
		if err != nil {
			g.logger.Debug("transcript unavailable", "url", u, "error", err)
			continue
		}
		bundle.Transcripts[u] = Truncate(excerpt, ExcerptLimit)
	}

	return bundle
}

// Title fetches the linked page and reads its og:title meta tag. Any failure
// yields the sentinel "Unknown Video" so callers never branch on an error.
func (g *Gatherer) Title(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return unknownTitle
	}
	req.Header.Set("User-Agent", "triaged/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("title fetch failed", "url", pageURL, "error", err)
		return unknownTitle
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unknownTitle
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return unknownTitle
	}

	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && title != "" {
		return title
	}
	return unknownTitle
}

type captionTrack struct {
	XMLName xml.Name      `xml:"transcript"`
	Texts   []captionText `xml:"text"`
}

type captionText struct {
	Body string `xml:",chardata"`
}

// Transcript fetches a caption track for the video, trying each preferred
// language in order. Fragments are joined with single spaces.
func (g *Gatherer) Transcript(ctx context.Context, videoID string) (string, error) {
	var lastErr error
	for _, lang := range g.languages {
		text, err := g.fetchCaptions(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			continue
		}
		if text != "" {
			return text, nil
		}
		lastErr = fmt.Errorf("no %s captions for %s", lang, videoID)
	}
	return "", lastErr
}

func (g *Gatherer) fetchCaptions(ctx context.Context, videoID, lang string) (string, error) {
	captionURL := fmt.Sprintf("%s?lang=%s&v=%s", g.captionBaseURL, url.QueryEscape(lang), url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption service returned %s", resp.Status)
	}

	var track captionTrack
	if err := xml.NewDecoder(resp.Body).Decode(&track); err != nil {
		return "", fmt.Errorf("parse captions: %w", err)
	}

	fragments := make([]string, 0, len(track.Texts))
	for _, t := range track.Texts {
		body := strings.TrimSpace(html.UnescapeString(t.Body))
		if body != "" {
			fragments = append(fragments, body)
		}
	}
	return strings.Join(fragments, " "), nil
}

// Truncate bounds s to at most limit bytes without splitting a UTF-8 rune.
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
