package drafts

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/incident-hub/internal/userctx"
)

func doRequest(t *testing.T, handler http.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(userctx.WithUserID(req.Context(), "alice"))
	if i := strings.LastIndex(path, "/photos/"); i >= 0 {
		req.SetPathValue("index", path[i+len("/photos/"):])
	}

	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var errResp map[string]map[string]any
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	code, _ := errResp["error"]["code"].(string)
	return code
}

func TestHandleGet(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)

	doRequest(t, h.HandleSetTitle, "PUT", "/v1/draft/title", TextRequest{Text: "Leak"})
	doRequest(t, h.HandleCapture, "POST", "/v1/draft/photos/capture", CaptureRequest{Source: SourceCamera})

	w := doRequest(t, h.HandleGet, "GET", "/v1/draft", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var dto DraftDTO
	if err := json.NewDecoder(w.Body).Decode(&dto); err != nil {
		t.Fatal(err)
	}
	if dto.Title != "Leak" || dto.TitleLength != 4 || dto.TitleMax != 100 || dto.DescriptionMax != 1000 {
		t.Errorf("unexpected text fields %+v", dto)
	}
	if dto.PhotoCount != 1 || dto.Photos[0].SizeText != "1.95 MB" || dto.Photos[0].Index != 0 {
		t.Errorf("unexpected photos %+v", dto.Photos)
	}
	if dto.LocationText != "40.712800, -74.006000" {
		t.Errorf("unexpected location text %q", dto.LocationText)
	}
}

func TestHandleSetTitleTooLong(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)

	w := doRequest(t, h.HandleSetTitle, "PUT", "/v1/draft/title", TextRequest{Text: strings.Repeat("a", 101)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "field_too_long" {
		t.Errorf("expected field_too_long, got %s", code)
	}
}

func TestHandleCapture(t *testing.T) {
	t.Run("Cancelled", func(t *testing.T) {
		env := newTestEnv(t, Limits{})
		h := NewHandlers(env.service)
		env.source.CancelNext()

		w := doRequest(t, h.HandleCapture, "POST", "/v1/draft/photos/capture", CaptureRequest{Source: SourceGallery})
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var resp DraftResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if !resp.Cancelled || resp.Draft.PhotoCount != 0 {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("Failed", func(t *testing.T) {
		env := newTestEnv(t, Limits{})
		h := NewHandlers(env.service)
		env.source.FailNext(errors.New("no camera"))

		w := doRequest(t, h.HandleCapture, "POST", "/v1/draft/photos/capture", CaptureRequest{Source: SourceCamera})
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected status 502, got %d", w.Code)
		}
		if code := errorCode(t, w); code != "capture_failed" {
			t.Errorf("expected capture_failed, got %s", code)
		}
	})

	t.Run("UnknownSource", func(t *testing.T) {
		env := newTestEnv(t, Limits{})
		h := NewHandlers(env.service)

		w := doRequest(t, h.HandleCapture, "POST", "/v1/draft/photos/capture", CaptureRequest{Source: "scanner"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("BadQuality", func(t *testing.T) {
		env := newTestEnv(t, Limits{})
		h := NewHandlers(env.service)
		q := 1.5

		w := doRequest(t, h.HandleCapture, "POST", "/v1/draft/photos/capture", CaptureRequest{Source: SourceCamera, CompressQuality: &q})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandleRemovePhotoNotFound(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)

	w := doRequest(t, h.HandleRemovePhoto, "DELETE", "/v1/draft/photos/3", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "photo_not_found" {
		t.Errorf("expected photo_not_found, got %s", code)
	}

	w = doRequest(t, h.HandleRemovePhoto, "DELETE", "/v1/draft/photos/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHandleRefreshLocationWarning(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)
	env.location.SetFailures(true, false)

	w := doRequest(t, h.HandleRefreshLocation, "POST", "/v1/draft/location/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp DraftResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.LocationWarning == "" {
		t.Fatal("expected location_warning")
	}
	if resp.Draft.Location != nil {
		t.Fatalf("expected no location, got %+v", resp.Draft.Location)
	}
}

func TestHandleSetLocationClears(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)

	doRequest(t, h.HandleCapture, "POST", "/v1/draft/photos/capture", CaptureRequest{Source: SourceCamera})

	w := doRequest(t, h.HandleSetLocation, "PUT", "/v1/draft/location", map[string]any{"location": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var dto DraftDTO
	json.NewDecoder(w.Body).Decode(&dto)
	if dto.Location != nil || dto.LocationText != "" {
		t.Fatalf("expected cleared location, got %+v", dto.Location)
	}

	w = doRequest(t, h.HandleSetLocation, "PUT", "/v1/draft/location", map[string]any{
		"location": map[string]any{"latitude": 91, "longitude": 0},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestHandleSubmit(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)

	w := doRequest(t, h.HandleSubmit, "POST", "/v1/draft/submit", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", w.Code)
	}
	var errResp struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&errResp)
	if errResp.Error.Code != "validation_failed" || len(errResp.Error.Fields) != 3 {
		t.Fatalf("unexpected error response %+v", errResp)
	}

	w = doRequest(t, h.HandleValidate, "GET", "/v1/draft/validate", nil)
	var vr ValidateResponse
	json.NewDecoder(w.Body).Decode(&vr)
	if vr.Valid || vr.Errors["title"] != "Title is required" {
		t.Fatalf("unexpected validate response %+v", vr)
	}

	fillDraft(t, env, "alice")

	w = doRequest(t, h.HandleSubmit, "POST", "/v1/draft/submit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp SubmitResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ID != "report-1" || resp.PhotoCount != 1 || resp.Status != "submitted" {
		t.Fatalf("unexpected submit response %+v", resp)
	}
	if resp.ReceiptURL != "http://example.com/v1/reports/report-1/receipt" {
		t.Errorf("unexpected receipt url %q", resp.ReceiptURL)
	}

	w = doRequest(t, h.HandleGet, "GET", "/v1/draft", nil)
	var dto DraftDTO
	json.NewDecoder(w.Body).Decode(&dto)
	if dto.Title != "" || dto.PhotoCount != 0 || len(dto.Errors) != 0 {
		t.Fatalf("expected a fresh draft after submit, got %+v", dto)
	}
}

func TestHandleReset(t *testing.T) {
	env := newTestEnv(t, Limits{})
	h := NewHandlers(env.service)

	doRequest(t, h.HandleSetTitle, "PUT", "/v1/draft/title", TextRequest{Text: "Leak"})
	w := doRequest(t, h.HandleReset, "DELETE", "/v1/draft", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var dto DraftDTO
	json.NewDecoder(w.Body).Decode(&dto)
	if dto.Title != "" {
		t.Fatalf("expected empty title, got %q", dto.Title)
	}
}

func TestHandleSubmitStoreFailure(t *testing.T) {
	env, _, logs := newFlakyEnv(t, 1)
	h := NewHandlers(env.service)
	fillDraft(t, env, "alice")

	w := doRequest(t, h.HandleSubmit, "POST", "/v1/draft/submit", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "storage down") {
		t.Fatalf("internal cause leaked to client: %s", w.Body.String())
	}
	var errResp map[string]map[string]string
	json.NewDecoder(w.Body).Decode(&errResp)
	if errResp["error"]["code"] != "internal_error" || errResp["error"]["message"] != "Failed to submit report. Please try again." {
		t.Fatalf("unexpected error response %v", errResp)
	}
	if !logs.contains("submit_failed err=failed to submit report: storage down") {
		t.Errorf("expected cause to be logged, got %v", logs.lines)
	}

	w = doRequest(t, h.HandleGet, "GET", "/v1/draft", nil)
	var dto DraftDTO
	json.NewDecoder(w.Body).Decode(&dto)
	if dto.Title != "Water leak" || dto.PhotoCount != 1 || dto.Submitting {
		t.Fatalf("expected draft kept for retry, got %+v", dto)
	}

	w = doRequest(t, h.HandleSubmit, "POST", "/v1/draft/submit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected retry to succeed, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRespondHidesUnexpectedErrors(t *testing.T) {
	env, _, logs := newFlakyEnv(t, 0)
	h := NewHandlers(env.service)

	w := httptest.NewRecorder()
	h.respond(w, Snapshot{}, errors.New("disk quota exceeded"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "disk quota") {
		t.Fatalf("internal cause leaked to client: %s", w.Body.String())
	}
	if !logs.contains("disk quota exceeded") {
		t.Errorf("expected cause to be logged, got %v", logs.lines)
	}
}
