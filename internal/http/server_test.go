package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/atelierdevis/devis-gateway/internal/config"
	"github.com/atelierdevis/devis-gateway/internal/model"
)

const adminPassword = "correct-horse"

// ---- fakes ----

type fakeStorage struct {
	mu      sync.Mutex
	failFor map[string]bool
}

func (f *fakeStorage) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name := range f.failFor {
		if strings.HasSuffix(key, "-"+name) {
			return "", errors.New("bucket unavailable")
		}
	}
	return "https://cdn.example.com/orders/" + key, nil
}

type fakeRepo struct {
	insertErr error
	inserted  []model.Order
}

func (f *fakeRepo) Insert(_ context.Context, o model.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, o)
	return nil
}

type fakeNotifier struct{ sendErr error }

func (f *fakeNotifier) SendOrderNotification(context.Context, model.Submission, string, []string, []string) error {
	return f.sendErr
}

type fakeEvents struct{}

func (fakeEvents) Publish(context.Context, model.OrderEvent) error { return nil }

// ---- harness ----

type harness struct {
	srv     *Server
	repo    *fakeRepo
	storage *fakeStorage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	t.Cleanup(mr.Close)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rds.Close() })

	cfg := config.Config{
		Admin: config.AdminConfig{
			Password:    adminPassword,
			JWTSecret:   "test-secret",
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			TokenTTL:    time.Hour,
		},
		StatusCache: config.StatusCacheConfig{TTL: 5 * time.Minute},
	}

	repo := &fakeRepo{}
	storage := &fakeStorage{}
	srv := NewServer(cfg, repo, rds, storage, &fakeNotifier{}, fakeEvents{})
	return &harness{srv: srv, repo: repo, storage: storage}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	rec := h.do(t, jsonReq(http.MethodPost, "/jwt-login", `{"password":"`+adminPassword+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatalf("login: no token in %v", body)
	}
	return tok
}

// ---- admin endpoints ----

func TestJWTLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, jsonReq(http.MethodPost, "/jwt-login", `{"password":"`+adminPassword+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if body["expiresIn"] != float64(3600) {
		t.Fatalf("expected expiresIn 3600, got %v", body["expiresIn"])
	}
}

func TestJWTLoginWrongPassword(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, jsonReq(http.MethodPost, "/jwt-login", `{"password":"nope"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Mot de passe incorrect" {
		t.Fatalf("unexpected error message: %v", body)
	}
}

func TestJWTLoginRateLimited(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 5; i++ {
		rec := h.do(t, jsonReq(http.MethodPost, "/jwt-login", `{"password":"nope"}`))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	// sixth attempt is blocked even with the right password
	rec := h.do(t, jsonReq(http.MethodPost, "/jwt-login", `{"password":"`+adminPassword+`"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Trop de tentatives. Réessayez dans 15 minutes." {
		t.Fatalf("unexpected error message: %v", body)
	}

	// a different client is unaffected
	other := jsonReq(http.MethodPost, "/jwt-login", `{"password":"`+adminPassword+`"}`)
	other.Header.Set("X-Forwarded-For", "5.6.7.8")
	if rec := h.do(t, other); rec.Code != http.StatusOK {
		t.Fatalf("expected other client to log in, got %d", rec.Code)
	}
}

func TestAdminAuthLegacyEndpoint(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, jsonReq(http.MethodPost, "/admin-auth", `{"password":"`+adminPassword+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if _, ok := body["token"]; ok {
		t.Fatal("legacy endpoint must not return a token")
	}

	rec = h.do(t, jsonReq(http.MethodPost, "/admin-auth", `{"password":"nope"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminAuthSharesTheLimiter(t *testing.T) {
	h := newHarness(t)

	// failures on the legacy endpoint count against the same window
	for i := 0; i < 5; i++ {
		h.do(t, jsonReq(http.MethodPost, "/admin-auth", `{"password":"nope"}`))
	}
	rec := h.do(t, jsonReq(http.MethodPost, "/jwt-login", `{"password":"`+adminPassword+`"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected shared limiter to block, got %d", rec.Code)
	}
}

// ---- status & toggle ----

func TestGetStatusDefaultsClosed(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/get-status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Fatalf("expected cache header, got %q", got)
	}
	if body := decode(t, rec); body["isOpen"] != false {
		t.Fatalf("expected closed by default, got %v", body)
	}
}

func TestToggleRequiresToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, jsonReq(http.MethodPost, "/toggle-status", `{"isOpen":true}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Token manquant" {
		t.Fatalf("unexpected error message: %v", body)
	}

	req := jsonReq(http.MethodPost, "/toggle-status", `{"isOpen":true}`)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = h.do(t, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Token invalide" {
		t.Fatalf("unexpected error message: %v", body)
	}
}

func TestToggleLastWriteWins(t *testing.T) {
	h := newHarness(t)
	tok := h.login(t)

	for _, want := range []bool{true, false} {
		req := jsonReq(http.MethodPost, "/toggle-status", fmt.Sprintf(`{"isOpen":%v}`, want))
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := h.do(t, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %v: expected 200, got %d", want, rec.Code)
		}
		if body := decode(t, rec); body["isOpen"] != want {
			t.Fatalf("toggle %v: unexpected body %v", want, body)
		}

		status := h.do(t, httptest.NewRequest(http.MethodGet, "/get-status", nil))
		if body := decode(t, status); body["isOpen"] != want {
			t.Fatalf("expected status %v after toggle, got %v", want, body)
		}
	}
}

// ---- send-mail ----

func multipartReq(t *testing.T, fields map[string]string, files []model.File) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		_ = w.WriteField(name, value)
	}
	for _, f := range files {
		fw, err := w.CreateFormFile("files", f.Filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(f.Content)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/send-mail", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

var quoteFields = map[string]string{
	"name":    "Jean Dupont",
	"email":   "jean@example.com",
	"city":    "Lyon",
	"message": "Bonjour",
}

func TestSendMailSuccessNoFiles(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, multipartReq(t, quoteFields, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok, got %v", body)
	}
	if body["orderId"] == nil || body["orderId"] == "" {
		t.Fatalf("expected an order id, got %v", body["orderId"])
	}
	if files, ok := body["uploadedFiles"].([]any); !ok || len(files) != 0 {
		t.Fatalf("expected empty uploadedFiles array, got %v", body["uploadedFiles"])
	}
	if _, ok := body["warnings"]; ok {
		t.Fatalf("expected no warnings key, got %v", body["warnings"])
	}
	if body["message"] != "Devis soumis avec succès" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	if len(h.repo.inserted) != 1 || h.repo.inserted[0].Attachements != nil {
		t.Fatalf("expected one row with NULL attachements, got %+v", h.repo.inserted)
	}
}

func TestSendMailPartialSuccess(t *testing.T) {
	h := newHarness(t)
	h.storage.failFor = map[string]bool{"b.jpg": true, "d.jpg": true}

	files := make([]model.File, 5)
	for i := range files {
		files[i] = model.File{Filename: fmt.Sprintf("%c.jpg", 'a'+i), Content: []byte("img")}
	}
	rec := h.do(t, multipartReq(t, quoteFields, files))
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok despite warnings, got %v", body)
	}
	if files, _ := body["uploadedFiles"].([]any); len(files) != 3 {
		t.Fatalf("expected 3 uploaded files, got %v", body["uploadedFiles"])
	}
	if warnings, _ := body["warnings"].([]any); len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", body["warnings"])
	}
	if body["filesCount"] != float64(5) {
		t.Fatalf("expected filesCount 5, got %v", body["filesCount"])
	}
	if body["message"] != "Devis soumis avec des avertissements" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestSendMailMissingContentType(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/send-mail", nil)
	rec := h.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	// fatal before any step: no row was written
	if len(h.repo.inserted) != 0 {
		t.Fatalf("expected no inserts, got %d", len(h.repo.inserted))
	}
}

func TestSendMailMissingBody(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/send-mail", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := h.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendMailWrongMethod(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/send-mail", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
