package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindsignal/triage/internal/analyzer"
	"github.com/mindsignal/triage/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store so handlers can be exercised without a
// database.
type fakeStore struct {
	users         map[string]store.User
	analyses      []store.Analysis
	notifications []store.Notification
	pingErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]store.User)}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) CreateUser(ctx context.Context, u store.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (store.User, error) {
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) EnsureUser(ctx context.Context, id string) (store.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	guest := store.User{ID: id, Name: "Guest " + id}
	f.users[id] = guest
	return guest, nil
}

func (f *fakeStore) ListUserSummaries(ctx context.Context) ([]store.UserSummary, error) {
	var out []store.UserSummary
	for _, u := range f.users {
		out = append(out, store.UserSummary{ID: u.ID, Name: u.Name, Status: "UNKNOWN"})
	}
	return out, nil
}

func (f *fakeStore) WriteAnalysis(ctx context.Context, a store.Analysis) (uuid.UUID, error) {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	f.analyses = append(f.analyses, a)
	return a.ID, nil
}

func (f *fakeStore) HistoryByUser(ctx context.Context, userID string) ([]store.Analysis, error) {
	var out []store.Analysis
	for _, a := range f.analyses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) RedCases(ctx context.Context) ([]store.RedCase, error) { return nil, nil }

func (f *fakeStore) CreateNotification(ctx context.Context, n store.Notification) (uuid.UUID, error) {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, n)
	return n.ID, nil
}

func (f *fakeStore) UnreadNotifications(ctx context.Context) ([]store.Notification, error) {
	var out []store.Notification
	for _, n := range f.notifications {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) RiskDistribution(ctx context.Context) ([]store.RiskBucket, error) {
	return []store.RiskBucket{{Level: "RED", Count: 2}, {Level: "GREEN", Count: 5}}, nil
}

func (f *fakeStore) ScoreTrend(ctx context.Context, days int) ([]store.TrendPoint, error) {
	return []store.TrendPoint{{Date: "2026-08-30", AvgScore: 3.5}}, nil
}

// fakeClassifier returns a canned result for every submission.
type fakeClassifier struct {
	result analyzer.Result
	ready  bool
}

func (f *fakeClassifier) AnalyzeText(ctx context.Context, message string) analyzer.Result {
	r := f.result
	r.OriginalMessage = message
	return r
}

func (f *fakeClassifier) AnalyzeImage(ctx context.Context, data []byte) analyzer.Result {
	return f.result
}

func (f *fakeClassifier) Ready() bool { return f.ready }

func greenClassifier() *fakeClassifier {
	return &fakeClassifier{
		ready:  true,
		result: analyzer.Result{Level: analyzer.LevelGreen, Score: 1, Reason: "ordinary chat", Timestamp: time.Now()},
	}
}

func redClassifier() *fakeClassifier {
	return &fakeClassifier{
		ready:  true,
		result: analyzer.Result{Level: analyzer.LevelRed, Score: 9, Reason: "explicit ideation", Timestamp: time.Now()},
	}
}

func newTestServer(st Store, c Classifier) *Server {
	return NewServer(0, Deps{
		Store:      st,
		Classifier: c,
		JWTSecret:  []byte("test-secret"),
		TokenTTL:   time.Hour,
		Logger:     discardLogger(),
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(newFakeStore(), greenClassifier())

	rec := doJSON(t, s, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status  string `json:"status"`
		AIReady bool   `json:"ai_ready"`
		DB      string `json:"db"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || !resp.AIReady || resp.DB != "connected" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	st := newFakeStore()
	st.pingErr = errors.New("connection refused")
	s := newTestServer(st, greenClassifier())

	rec := doJSON(t, s, http.MethodGet, "/api/health", nil, "")

	var resp struct {
		DB string `json:"db"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.DB != "unreachable" {
		t.Errorf("expected db unreachable, got %q", resp.DB)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, greenClassifier())

	rec := doJSON(t, s, http.MethodPost, "/api/register", map[string]string{
		"user_id": "alice", "password": "hunter2", "name": "Alice",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate id is rejected.
	rec = doJSON(t, s, http.MethodPost, "/api/register", map[string]string{
		"user_id": "alice", "password": "other",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/login", map[string]string{
		"user_id": "alice", "password": "hunter2",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("no access token issued")
	}

	// The token opens the clinician endpoints.
	rec = doJSON(t, s, http.MethodGet, "/api/notifications", nil, resp.AccessToken)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated request rejected: %d", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	st := newFakeStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	st.users["bob"] = store.User{ID: "bob", PasswordHash: string(hash)}
	s := newTestServer(st, greenClassifier())

	rec := doJSON(t, s, http.MethodPost, "/api/login", map[string]string{
		"user_id": "bob", "password": "wrong",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(newFakeStore(), greenClassifier())

	for _, path := range []string{"/api/patients", "/api/notifications", "/api/analytics", "/api/export/red-cases"} {
		rec := doJSON(t, s, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
}

func TestAnalyze_MissingMessage(t *testing.T) {
	s := newTestServer(newFakeStore(), greenClassifier())

	rec := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{}, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyze_AnonymousSubmission(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, greenClassifier())

	rec := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{
		"message": "had a rough day",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Level  string `json:"level"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Level != "GREEN" {
		t.Errorf("expected GREEN, got %q", resp.Level)
	}
	if resp.UserID != "anonymous" {
		t.Errorf("expected anonymous fallback, got %q", resp.UserID)
	}

	if len(st.analyses) != 1 || st.analyses[0].UserID != "anonymous" {
		t.Errorf("analysis not persisted for anonymous user: %+v", st.analyses)
	}
	if len(st.notifications) != 0 {
		t.Errorf("GREEN result must not create notifications")
	}
}

func TestAnalyze_TokenBindsIdentity(t *testing.T) {
	st := newFakeStore()
	st.users["carol"] = store.User{ID: "carol", Name: "Carol"}
	s := newTestServer(st, greenClassifier())

	token, err := s.issueToken("carol")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{
		"message": "hello", "user_id": "someone-else",
	}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if len(st.analyses) != 1 || st.analyses[0].UserID != "carol" {
		t.Errorf("token identity should win over payload, got %+v", st.analyses)
	}
}

func TestAnalyze_RedCreatesNotification(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, redClassifier())

	rec := doJSON(t, s, http.MethodPost, "/api/analyze", map[string]string{
		"message": "I want to die", "user_id": "dave",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if len(st.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(st.notifications))
	}
	n := st.notifications[0]
	if n.UserID != "dave" {
		t.Errorf("notification bound to wrong user %q", n.UserID)
	}
	if !strings.Contains(n.Message, "CRITICAL") || !strings.Contains(n.Message, "Score: 9") {
		t.Errorf("unexpected notification message %q", n.Message)
	}
	if n.ContentPreview != "I want to die" {
		t.Errorf("preview not carried: %q", n.ContentPreview)
	}
}

func TestAnalyzeImage(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, redClassifier())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "wound.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a})
	mw.WriteField("user_id", "erin")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(st.analyses) != 1 {
		t.Fatalf("expected one persisted analysis, got %d", len(st.analyses))
	}
	a := st.analyses[0]
	if a.UserID != "erin" {
		t.Errorf("form user_id not honored, got %q", a.UserID)
	}
	if !strings.Contains(a.Content, "wound.png") {
		t.Errorf("filename not recorded in content: %q", a.Content)
	}
	if len(st.notifications) != 1 {
		t.Errorf("RED image should create a notification")
	}
}

func TestAnalyzeImage_MissingFile(t *testing.T) {
	s := newTestServer(newFakeStore(), greenClassifier())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-image", strings.NewReader(""))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	st := newFakeStore()
	id, _ := st.CreateNotification(context.Background(), store.Notification{UserID: "dave", Message: "alert"})
	s := newTestServer(st, greenClassifier())

	token, err := s.issueToken("clinician")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/notifications/not-a-uuid/read", nil, token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/notifications/"+uuid.NewString()+"/read", nil, token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/notifications/"+id.String()+"/read", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !st.notifications[0].IsRead {
		t.Error("notification not flagged as read")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/notifications", nil, token)
	if body := rec.Body.String(); strings.Contains(body, "alert") {
		t.Errorf("read notification still listed: %s", body)
	}
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(newFakeStore(), greenClassifier())

	token, err := s.issueToken("clinician")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/analytics", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		RiskDistribution []struct {
			Name  string `json:"name"`
			Value int    `json:"value"`
		} `json:"risk_distribution"`
		TrendData []store.TrendPoint `json:"trend_data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.RiskDistribution) != 3 {
		t.Fatalf("expected 3 fixed buckets, got %d", len(resp.RiskDistribution))
	}
	if resp.RiskDistribution[0].Name != "High Risk (Red)" || resp.RiskDistribution[0].Value != 2 {
		t.Errorf("unexpected red bucket: %+v", resp.RiskDistribution[0])
	}
	if len(resp.TrendData) != 1 || resp.TrendData[0].AvgScore != 3.5 {
		t.Errorf("unexpected trend data: %+v", resp.TrendData)
	}
}
