package onboarding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleGet(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/onboarding", nil)
	w := httptest.NewRecorder()

	HandleGet(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SplashDurationMS != 3000 {
		t.Errorf("expected splash 3000ms, got %d", resp.SplashDurationMS)
	}
	if len(resp.Slides) != 4 {
		t.Fatalf("expected 4 slides, got %d", len(resp.Slides))
	}
	for i, s := range resp.Slides {
		if s.ID != i+1 {
			t.Errorf("slide %d: expected id %d, got %d", i, i+1, s.ID)
		}
	}
	if resp.Slides[3].Title != "Get Started" {
		t.Errorf("unexpected last slide %q", resp.Slides[3].Title)
	}
}

func TestSlidesReturnsCopy(t *testing.T) {
	s := Slides()
	s[0].Title = "changed"
	if Slides()[0].Title != "Snap and Upload" {
		t.Fatal("Slides must not expose the package slice")
	}
}
