package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindsignal/triage/internal/store"
)

type contextKey string

const userIDKey contextKey = "user_id"

type registerRequest struct {
	UserID            string `json:"user_id"`
	Password          string `json:"password"`
	Name              string `json:"name"`
	Age               int    `json:"age"`
	Gender            string `json:"gender"`
	MedicalHistory    string `json:"medical_history"`
	SocialMediaHandle string `json:"social_media_handle"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "user_id and password are required")
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

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
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
		s.logger.Error("user registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "user registered successfully"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	u, err := s.store.GetUser(r.Context(), req.UserID)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user": map[string]any{
			"id":     u.ID,
			"name":   u.Name,
			"age":    u.Age,
			"gender": u.Gender,
		},
	})
}

func (s *Server) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// verifyToken returns the subject of a valid bearer token.
func (s *Server) verifyToken(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("missing subject claim")
	}
	return claims.Subject, nil
}

// requireAuth guards clinician-facing endpoints.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.verifyToken(bearerToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// optionalIdentity returns the authenticated user id when a valid token is
// present, or "" for anonymous submissions.
func (s *Server) optionalIdentity(r *http.Request) string {
	token := bearerToken(r)
	if token == "" {
		return ""
	}
	userID, err := s.verifyToken(token)
	if err != nil {
		return ""
	}
	return userID
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
