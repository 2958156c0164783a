package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mindsignal/triage/internal/analyzer"
	"github.com/mindsignal/triage/internal/events"
	"github.com/mindsignal/triage/internal/store"
)

// maxImageBytes bounds uploads; the oracle providers reject larger payloads
// anyway.
const maxImageBytes = 10 << 20

type analyzeRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// analyzeResponse is the result plus the user it was recorded against.
type analyzeResponse struct {
	analyzer.Result
	UserID string `json:"user_id"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "no message provided")
		return
	}

	userID := s.optionalIdentity(r)
	if userID == "" {
		userID = req.UserID
	}
	if userID == "" {
		userID = "anonymous"
	}

	contentType := "text"
	if len(analyzer.ExtractURLs(req.Message)) > 0 {
		contentType = "link"
	}

	result := s.classifier.AnalyzeText(r.Context(), req.Message)

	s.record(r.Context(), userID, req.Message, req.Message, contentType, result)

	writeJSON(w, http.StatusOK, analyzeResponse{Result: result, UserID: userID})
}

func (s *Server) analyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no image provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image")
		return
	}

	userID := s.optionalIdentity(r)
	if userID == "" {
		userID = r.FormValue("user_id")
	}
	if userID == "" {
		userID = "anonymous"
	}

	result := s.classifier.AnalyzeImage(r.Context(), data)

	content := fmt.Sprintf("[Image Analysis] %s", header.Filename)
	s.record(r.Context(), userID, content, content, "image", result)

	writeJSON(w, http.StatusOK, analyzeResponse{Result: result, UserID: userID})
}

// record persists the analysis and fires RED-tier notifications. Persistence
// failures are logged but never fail the request: the caller already has the
// classification, and losing an audit row is preferable to losing the triage
// answer.
func (s *Server) record(ctx context.Context, userID, content, preview, contentType string, result analyzer.Result) {
	user, err := s.store.EnsureUser(ctx, userID)
	if err != nil {
		s.logger.Error("ensure user failed", "user_id", userID, "error", err)
		return
	}

	analysisID, err := s.store.WriteAnalysis(ctx, store.Analysis{
		UserID:         userID,
		Content:        content,
		Level:          string(result.Level),
		Score:          result.Score,
		Reason:         result.Reason,
		Keywords:       result.Keywords,
		Recommendation: result.Recommendation,
		Provider:       result.Provider,
	})
	if err != nil {
		s.logger.Error("write analysis failed", "user_id", userID, "error", err)
		return
	}

	if s.events != nil {
		evt := events.AnalysisEvent{
			AnalysisID: analysisID.String(),
			UserID:     userID,
			Level:      string(result.Level),
			Score:      result.Score,
			Keywords:   result.Keywords,
			Provider:   result.Provider,
			Timestamp:  result.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := s.events.Publish(events.SubjectAnalysisCompleted, evt); err != nil {
			s.logger.Warn("publish analysis event failed", "error", err)
		}
		if result.Level == analyzer.LevelRed {
			if err := s.events.Publish(events.SubjectRedAlert, evt); err != nil {
				s.logger.Warn("publish red alert failed", "error", err)
			}
		}
	}

	if result.Level != analyzer.LevelRed {
		return
	}

	msg := fmt.Sprintf("CRITICAL: High risk detected for patient %s (%s). Score: %d", user.Name, userID, result.Score)
	if _, err := s.store.CreateNotification(ctx, store.Notification{
		UserID:         userID,
		Message:        msg,
		ContentPreview: preview,
		ContentType:    contentType,
	}); err != nil {
		s.logger.Error("create notification failed", "user_id", userID, "error", err)
	}

	if s.slack != nil {
		if err := s.slack.PostAlert(ctx, userID, user.Name, result, preview); err != nil {
			s.logger.Error("slack alert failed", "user_id", userID, "error", err)
		}
	}
}
