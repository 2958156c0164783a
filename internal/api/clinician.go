package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindsignal/triage/internal/store"
)

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListUserSummaries(r.Context())
	if err != nil {
		s.logger.Error("list patients failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list patients failed")
		return
	}
	if summaries == nil {
		summaries = []store.UserSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// createPatient lets a clinician register a patient directly. The initial
// password defaults to the patient id; the patient is expected to change it.
func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if _, err := s.store.GetUser(r.Context(), req.UserID); err == nil {
		writeError(w, http.StatusBadRequest, "user_id already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "user lookup failed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.UserID), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash password")
		return
	}

	err = s.store.CreateUser(r.Context(), store.User{
		ID:                req.UserID,
		Name:              req.Name,
		Age:               req.Age,
		Gender:            req.Gender,
		MedicalHistory:    req.MedicalHistory,
		SocialMediaHandle: req.SocialMediaHandle,
		PasswordHash:      string(hash),
	})
	if err != nil {
		s.logger.Error("patient registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "patient registered successfully",
		"user_id": req.UserID,
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	analyses, err := s.store.HistoryByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("history lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	if analyses == nil {
		analyses = []store.Analysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.store.UnreadNotifications(r.Context())
	if err != nil {
		s.logger.Error("notifications lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "notifications lookup failed")
		return
	}
	if notifications == nil {
		notifications = []store.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.store.MarkNotificationRead(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		s.logger.Error("mark notification failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "mark notification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "marked as read"})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	distribution, err := s.store.RiskDistribution(r.Context())
	if err != nil {
		s.logger.Error("risk distribution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics failed")
		return
	}
	trend, err := s.store.ScoreTrend(r.Context(), 7)
	if err != nil {
		s.logger.Error("score trend failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics failed")
		return
	}
	if trend == nil {
		trend = []store.TrendPoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"risk_distribution": formatDistribution(distribution),
		"trend_data":        trend,
	})
}

// formatDistribution shapes the buckets the way the dashboard charts expect,
// with fixed display names and colors per tier.
func formatDistribution(buckets []store.RiskBucket) []map[string]any {
	counts := make(map[string]int, len(buckets))
	for _, b := range buckets {
		counts[b.Level] += b.Count
	}
	return []map[string]any{
		{"name": "High Risk (Red)", "value": counts["RED"], "color": "#EF4444"},
		{"name": "Moderate (Yellow)", "value": counts["YELLOW"], "color": "#F59E0B"},
		{"name": "Low Risk (Green)", "value": counts["GREEN"], "color": "#10B981"},
	}
}

func (s *Server) redCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.store.RedCases(r.Context())
	if err != nil {
		s.logger.Error("red case export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if cases == nil {
		cases = []store.RedCase{}
	}
	writeJSON(w, http.StatusOK, cases)
}
