package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fdg312/incident-hub/internal/auth"
	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/drafts"
	"github.com/fdg312/incident-hub/internal/reports"
)

func testServerConfig() *config.Config {
	return &config.Config{
		Port:                   8080,
		JWTSecret:              "test-secret-key-for-testing-only",
		JWTIssuer:              "incident-hub-test",
		JWTTTLMinutes:          60,
		DraftTitleMax:          100,
		DraftDescriptionMax:    1000,
		MockLatitude:           37.7749,
		MockLongitude:          -122.4194,
		MockAddress:            "123 Main Street, San Francisco, CA 94102, USA",
		LocationTimeoutSeconds: 1,
		CaptureEXIFProbability: 0.7,
	}
}

func TestHealthz(t *testing.T) {
	srv := New(testServerConfig())
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
	if resp["storage"] != "memory" {
		t.Errorf("expected storage=memory, got %s", resp["storage"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := New(testServerConfig())
	defer srv.Close()

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestSQLiteStorageSelected(t *testing.T) {
	cfg := testServerConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "incidents.db")
	srv := New(cfg)
	defer srv.Close()

	if srv.StorageKind() != "sqlite" {
		t.Fatalf("expected sqlite storage, got %s", srv.StorageKind())
	}
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func TestReportFlow(t *testing.T) {
	cfg := testServerConfig()
	cfg.AuthRequired = true
	cfg.SeedDemoAccount = true
	srv := New(cfg)
	defer srv.Close()

	client := &apiClient{t: t, handler: srv.Handler()}

	if w := client.do("GET", "/v1/onboarding", nil); w.Code != http.StatusOK {
		t.Fatalf("onboarding must be public, got %d", w.Code)
	}
	if w := client.do("GET", "/v1/draft", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w := client.do("POST", "/v1/auth/signin", auth.SignInRequest{Email: auth.DemoEmail, Password: auth.DemoPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("sign in failed: %d %s", w.Code, w.Body.String())
	}
	var signIn auth.AuthResponse
	json.NewDecoder(w.Body).Decode(&signIn)
	client.token = signIn.AccessToken

	if w := client.do("GET", "/v1/auth/me", nil); w.Code != http.StatusOK {
		t.Fatalf("me failed: %d", w.Code)
	}

	client.do("PUT", "/v1/draft/title", drafts.TextRequest{Text: "Broken hydrant"})
	client.do("PUT", "/v1/draft/description", drafts.TextRequest{Text: "Water running down 3rd street"})
	if w := client.do("POST", "/v1/draft/photos/capture", drafts.CaptureRequest{Source: drafts.SourceCamera}); w.Code != http.StatusOK {
		t.Fatalf("capture failed: %d %s", w.Code, w.Body.String())
	}
	if w := client.do("DELETE", "/v1/draft/photos/5", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing photo, got %d", w.Code)
	}

	w = client.do("POST", "/v1/draft/submit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
	}
	var submitted drafts.SubmitResponse
	json.NewDecoder(w.Body).Decode(&submitted)
	if submitted.ID == "" || submitted.PhotoCount != 1 {
		t.Fatalf("unexpected submit response %+v", submitted)
	}

	w = client.do("GET", "/v1/reports", nil)
	var list reports.ReportsResponse
	json.NewDecoder(w.Body).Decode(&list)
	if len(list.Reports) != 1 || list.Reports[0].ID != submitted.ID {
		t.Fatalf("unexpected reports %+v", list.Reports)
	}

	w = client.do("GET", "/v1/reports/"+submitted.ID+"/receipt", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Fatalf("expected PDF receipt, got %d", w.Code)
	}

	w = client.do("GET", "/v1/draft", nil)
	var draft drafts.DraftDTO
	json.NewDecoder(w.Body).Decode(&draft)
	if draft.Title != "" || draft.PhotoCount != 0 {
		t.Fatalf("expected reset draft, got %+v", draft)
	}
	if draft.LocationText != cfg.MockAddress {
		t.Fatalf("expected refreshed location, got %q", draft.LocationText)
	}
}
