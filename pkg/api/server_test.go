package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/mspacademy/labtrack/pkg/auth"
	"github.com/mspacademy/labtrack/pkg/observability"
	"github.com/mspacademy/labtrack/pkg/progress"
	"github.com/mspacademy/labtrack/pkg/storage"
)

type testServer struct {
	*Server
	service *auth.Service
	guard   *auth.CSRFGuard
	cleanup func()
}

func setupServerTest(t *testing.T) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	kv, err := storage.NewRedisStore(storage.Config{RedisURL: "redis://" + mr.Addr()})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis store: %v", err)
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	users := auth.NewUserStore(kv)
	sessions := auth.NewSessionStore(kv, users, time.Hour, 24*time.Hour)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	service := auth.NewService(users, sessions, hasher, nil, auth.ServiceConfig{})
	guard := auth.NewCSRFGuard(kv, time.Hour)

	server := NewServer(Options{
		AuthService: service,
		CSRFGuard:   guard,
		RateLimiter: auth.NewRateLimiter(kv, 1000, time.Minute),
		AuditLog:    auth.NewAuditRecorder(kv, logger, time.Hour),
		Progress:    progress.NewStore(kv),
		Logger:      logger,
	})

	return &testServer{
		Server:  server,
		service: service,
		guard:   guard,
		cleanup: func() {
			kv.Close()
			mr.Close()
		},
	}
}

func (ts *testServer) do(t *testing.T, method, path, sessionToken, csrfToken string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if sessionToken != "" {
		r.Header.Set("Authorization", "Bearer "+sessionToken)
	}
	if csrfToken != "" {
		r.Header.Set("X-CSRF-Token", csrfToken)
	}

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, r)
	return w
}

// csrfFor issues a token scoped to the session (global pool for anonymous).
func (ts *testServer) csrfFor(t *testing.T, sessionToken string) string {
	t.Helper()
	token, err := ts.guard.Issue(context.Background(), sessionToken)
	if err != nil {
		t.Fatalf("Issue CSRF token failed: %v", err)
	}
	return token
}

func (ts *testServer) registerUser(t *testing.T, email string) string {
	t.Helper()
	_, token, err := ts.service.Register(context.Background(), "Test User", email, "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return token
}

func (ts *testServer) createAdmin(t *testing.T) string {
	t.Helper()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("admin-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	admin, err := ts.service.Users().Create(context.Background(), "Root", "root@example.com", hash, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Create admin failed: %v", err)
	}
	token, err := ts.service.Sessions().Create(context.Background(), admin.ID, false)
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestRegisterEndpoint(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	w := ts.do(t, http.MethodPost, "/api/register", "", ts.csrfFor(t, ""), map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["token"] == "" {
		t.Error("Response missing session token")
	}
	user := body["user"].(map[string]interface{})
	if user["role"] != "user" {
		t.Errorf("Got role %v, want user", user["role"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("Password hash leaked in the response")
	}

	// Session cookie set
	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, auth.SessionCookieName+"=") {
		t.Errorf("Got Set-Cookie %q, want session cookie", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("Session cookie %q not HttpOnly", cookie)
	}
}

func TestRegisterEndpoint_Failures(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "password123"}, http.StatusBadRequest},
		{"empty name", map[string]string{"name": "", "email": "a@example.com", "password": "password123"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/register", "", ts.csrfFor(t, ""), tc.body)
			if w.Code != tc.want {
				t.Errorf("Got status %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
		})
	}

	// Duplicate email is a conflict
	ts.registerUser(t, "taken@example.com")
	w := ts.do(t, http.MethodPost, "/api/register", "", ts.csrfFor(t, ""), map[string]string{
		"name": "B", "email": "TAKEN@example.com", "password": "password123",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("Got status %d for duplicate email, want 409", w.Code)
	}

	// Missing CSRF token
	w = ts.do(t, http.MethodPost, "/api/register", "", "", map[string]string{
		"name": "C", "email": "c@example.com", "password": "password123",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Got status %d without CSRF token, want 403", w.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	ts.registerUser(t, "alice@example.com")

	w := ts.do(t, http.MethodPost, "/api/login", "", ts.csrfFor(t, ""), map[string]interface{}{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["token"] == "" {
		t.Error("Response missing session token")
	}

	// Wrong password and unknown email give identical responses
	wWrong := ts.do(t, http.MethodPost, "/api/login", "", ts.csrfFor(t, ""), map[string]interface{}{
		"email": "alice@example.com", "password": "wrong-password",
	})
	wUnknown := ts.do(t, http.MethodPost, "/api/login", "", ts.csrfFor(t, ""), map[string]interface{}{
		"email": "nobody@example.com", "password": "password123",
	})
	if wWrong.Code != http.StatusUnauthorized || wUnknown.Code != http.StatusUnauthorized {
		t.Errorf("Got statuses %d and %d, want 401 for both", wWrong.Code, wUnknown.Code)
	}
	if wWrong.Body.String() != wUnknown.Body.String() {
		t.Errorf("Failure bodies distinguishable: %q vs %q", wWrong.Body.String(), wUnknown.Body.String())
	}
}

// A browser with a live session sends its cookie on every request, so the
// token endpoint issues a session-scoped token. Logging in again with that
// cookie attached must validate against the same scope.
func TestLoginEndpoint_WithLiveSessionCookie(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	sessionToken := ts.registerUser(t, "relogin@example.com")
	cookie := &http.Cookie{Name: auth.SessionCookieName, Value: sessionToken}

	r := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("CSRF token fetch got status %d: %s", w.Code, w.Body.String())
	}
	csrfToken, _ := decodeBody(t, w)["csrf_token"].(string)
	if csrfToken == "" {
		t.Fatal("Response missing csrf_token")
	}

	body, err := json.Marshal(map[string]interface{}{
		"email": "relogin@example.com", "password": "password123",
	})
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	r = httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-CSRF-Token", csrfToken)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	ts.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Re-login with live session cookie got status %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["token"] == "" {
		t.Error("Response missing session token")
	}
}

func TestLogoutEndpoint(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	token := ts.registerUser(t, "alice@example.com")

	w := ts.do(t, http.MethodPost, "/api/logout", token, ts.csrfFor(t, token), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}

	// Cookie cleared
	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "Max-Age=0") {
		t.Errorf("Got Set-Cookie %q, want expired cookie", cookie)
	}

	// The session is dead
	w = ts.do(t, http.MethodGet, "/api/session", token, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Got status %d after logout, want 401", w.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	token := ts.registerUser(t, "alice@example.com")

	w := ts.do(t, http.MethodGet, "/api/session", token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["user_email"] != "alice@example.com" {
		t.Errorf("Got %v, want session for alice", body)
	}

	w = ts.do(t, http.MethodGet, "/api/session", "", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Got status %d without a session, want 401", w.Code)
	}
}

func TestCSRFTokenEndpoint(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	// Anonymous issuance feeds the registration flow
	w := ts.do(t, http.MethodGet, "/api/csrf-token", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	issued := decodeBody(t, w)["csrf_token"].(string)
	if issued == "" {
		t.Fatal("Empty CSRF token issued")
	}

	w = ts.do(t, http.MethodPost, "/api/register", "", issued, map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Errorf("Got status %d using the issued token: %s", w.Code, w.Body.String())
	}

	// Authenticated issuance is session-scoped
	token := ts.registerUser(t, "bob@example.com")
	w = ts.do(t, http.MethodGet, "/api/csrf-token", token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	scoped := decodeBody(t, w)["csrf_token"].(string)

	w = ts.do(t, http.MethodPost, "/api/logout", token, scoped, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Got status %d using the scoped token: %s", w.Code, w.Body.String())
	}
}

func TestProgressEndpoints(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	token := ts.registerUser(t, "alice@example.com")

	// Fresh trainee has an empty record
	w := ts.do(t, http.MethodGet, "/api/progress", token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	if pct := decodeBody(t, w)["completion_percent"].(float64); pct != 0 {
		t.Errorf("Got %v%%, want 0", pct)
	}

	// Start then complete a lab
	w = ts.do(t, http.MethodPut, "/api/progress", token, ts.csrfFor(t, token), map[string]interface{}{
		"lab_id": "lab-01", "status": "in_progress",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodPut, "/api/progress", token, ts.csrfFor(t, token), map[string]interface{}{
		"lab_id": "lab-01", "status": "completed", "score": 95,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	if pct := decodeBody(t, w)["completion_percent"].(float64); pct != 100 {
		t.Errorf("Got %v%%, want 100", pct)
	}

	// Validation failures
	for _, body := range []map[string]interface{}{
		{"lab_id": "", "status": "completed"},
		{"lab_id": "lab-02", "status": "abandoned"},
		{"lab_id": "lab-02", "status": "completed", "score": 101},
	} {
		w = ts.do(t, http.MethodPut, "/api/progress", token, ts.csrfFor(t, token), body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Got status %d for %v, want 400", w.Code, body)
		}
	}

	// History records both transitions
	w = ts.do(t, http.MethodGet, "/api/labs/history", token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	history := decodeBody(t, w)["history"].([]interface{})
	if len(history) != 2 {
		t.Errorf("Got %d history entries, want 2", len(history))
	}

	// Mutation without a CSRF token is rejected
	w = ts.do(t, http.MethodPut, "/api/progress", token, "", map[string]interface{}{
		"lab_id": "lab-03", "status": "in_progress",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Got status %d without CSRF token, want 403", w.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	userToken := ts.registerUser(t, "alice@example.com")
	adminToken := ts.createAdmin(t)

	// Regular users are forbidden
	for _, path := range []string{"/api/admin/users", "/api/admin/export", "/api/admin/audit"} {
		w := ts.do(t, http.MethodGet, path, userToken, "", nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: got status %d for a non-admin, want 403", path, w.Code)
		}
		w = ts.do(t, http.MethodGet, path, "", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: got status %d anonymously, want 401", path, w.Code)
		}
	}

	w := ts.do(t, http.MethodGet, "/api/admin/users", adminToken, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["count"].(float64) != 2 {
		t.Errorf("Got %v users, want 2", body["count"])
	}
	// Password hashes never leave the server
	if strings.Contains(w.Body.String(), "password_hash") {
		t.Error("User listing leaks password hashes")
	}
}

func TestAdminExport(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	aliceToken := ts.registerUser(t, "alice@example.com")
	adminToken := ts.createAdmin(t)

	w := ts.do(t, http.MethodPut, "/api/progress", aliceToken, ts.csrfFor(t, aliceToken), map[string]interface{}{
		"lab_id": "lab-01", "status": "completed", "score": 90,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/admin/export", adminToken, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Got Content-Type %q, want application/json", ct)
	}

	w = ts.do(t, http.MethodGet, "/api/admin/export?format=csv", adminToken, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Got Content-Type %q, want text/csv", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "user_id,labs_tracked,labs_completed,completion_percent") {
		t.Errorf("CSV missing header: %s", w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/admin/export?format=xml", adminToken, "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Got status %d for an unknown format, want 400", w.Code)
	}
}

func TestAdminAudit(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	// A failed login leaves an audit trail
	w := ts.do(t, http.MethodPost, "/api/login", "", ts.csrfFor(t, ""), map[string]interface{}{
		"email": "nobody@example.com", "password": "password123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Got status %d, want 401", w.Code)
	}

	adminToken := ts.createAdmin(t)
	w = ts.do(t, http.MethodGet, "/api/admin/audit", adminToken, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Got status %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), auth.ActionLoginFailure) {
		t.Errorf("Audit listing missing the login failure: %s", w.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	w := ts.do(t, http.MethodGet, "/api/csrf-token", "", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Response missing X-Request-ID")
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	ts := setupServerTest(t)
	defer ts.cleanup()

	w := ts.do(t, http.MethodPost, "/api/register", "", ts.csrfFor(t, ""), map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "password123", "role": "admin",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Got status %d for an unknown field, want 400: %s", w.Code, w.Body.String())
	}
}
