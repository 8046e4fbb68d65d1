package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase  = "http://localhost:8080"
	defaultEmail    = "demo@example.com"
	defaultPassword = "password123"
)

var (
	apiBase  string
	token    string
	email    string
	password string
	client   = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	createdIDs = make(map[string]string) // ids created along the way
)

func main() {
	fmt.Println("=== Incident Hub E2E Smoke Test ===")
	fmt.Println()

	// Load config from env
	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	token = getEnv("SMOKE_TOKEN", "")
	email = getEnv("SMOKE_EMAIL", defaultEmail)
	password = getEnv("SMOKE_PASSWORD", defaultPassword)

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Printf("Email: %s\n", email)
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Onboarding", testOnboarding},
		{"Sign In", testSignIn},
		{"Reset Draft", testResetDraft},
		{"Submit Empty Draft (expect 422)", testSubmitEmptyDraft},
		{"Fill Draft", testFillDraft},
		{"Capture Photo", testCapturePhoto},
		{"Refresh Location", testRefreshLocation},
		{"Submit Draft", testSubmitDraft},
		{"List Reports", testListReports},
		{"Download Receipt", testDownloadReceipt},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	_, err := doJSON("GET", "/healthz", nil, http.StatusOK, nil)
	return err
}

func testOnboarding() error {
	var result struct {
		Slides []struct {
			Title string `json:"title"`
		} `json:"slides"`
	}
	if _, err := doJSON("GET", "/v1/onboarding", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if len(result.Slides) == 0 {
		return fmt.Errorf("no onboarding slides")
	}
	return nil
}

func testSignIn() error {
	// Token provided via env, skip
	if token != "" {
		return nil
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	payload := map[string]string{"email": email, "password": password}
	if _, err := doJSON("POST", "/v1/auth/signin", payload, http.StatusOK, &result); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	token = result.AccessToken
	return nil
}

func testResetDraft() error {
	_, err := doJSON("DELETE", "/v1/draft", nil, http.StatusOK, nil)
	return err
}

func testSubmitEmptyDraft() error {
	var result struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	if _, err := doJSON("POST", "/v1/draft/submit", nil, http.StatusUnprocessableEntity, &result); err != nil {
		return err
	}
	if len(result.Error.Fields) == 0 {
		return fmt.Errorf("expected field errors, got code=%s", result.Error.Code)
	}
	return nil
}

func testFillDraft() error {
	if _, err := doJSON("PUT", "/v1/draft/title", map[string]string{"text": "Smoke test incident"}, http.StatusOK, nil); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	if _, err := doJSON("PUT", "/v1/draft/description", map[string]string{"text": "Created by cmd/smoke at " + time.Now().Format(time.RFC3339)}, http.StatusOK, nil); err != nil {
		return fmt.Errorf("description: %w", err)
	}
	return nil
}

func testCapturePhoto() error {
	var result struct {
		PhotoCount int  `json:"photo_count"`
		Cancelled  bool `json:"cancelled"`
	}
	if _, err := doJSON("POST", "/v1/draft/photos/capture", map[string]string{"source": "camera"}, http.StatusOK, &result); err != nil {
		return err
	}
	if result.PhotoCount != 1 {
		return fmt.Errorf("expected 1 photo, got %d", result.PhotoCount)
	}
	return nil
}

func testRefreshLocation() error {
	var result struct {
		Draft struct {
			LocationText string `json:"location_text"`
		} `json:"draft"`
		LocationWarning string `json:"location_warning"`
	}
	if _, err := doJSON("POST", "/v1/draft/location/refresh", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.LocationWarning != "" {
		fmt.Printf("(warning: %s) ", result.LocationWarning)
	}
	return nil
}

func testSubmitDraft() error {
	var result struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		ReceiptURL string `json:"receipt_url"`
	}
	if _, err := doJSON("POST", "/v1/draft/submit", nil, http.StatusCreated, &result); err != nil {
		return err
	}
	if result.ID == "" || result.Status != "submitted" {
		return fmt.Errorf("unexpected submit response id=%q status=%q", result.ID, result.Status)
	}
	createdIDs["report"] = result.ID
	return nil
}

func testListReports() error {
	var result struct {
		Reports []struct {
			ID string `json:"id"`
		} `json:"reports"`
	}
	if _, err := doJSON("GET", "/v1/reports", nil, http.StatusOK, &result); err != nil {
		return err
	}

	reportID := createdIDs["report"]
	for _, r := range result.Reports {
		if r.ID == reportID {
			return nil
		}
	}
	return fmt.Errorf("report %s not found in list", reportID)
}

func testDownloadReceipt() error {
	reportID := createdIDs["report"]
	if reportID == "" {
		return fmt.Errorf("no report ID to download")
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/v1/reports/%s/receipt", apiBase, reportID), nil)
	if err != nil {
		return err
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return checkPDF(resp.Body)

	case http.StatusFound:
		// Redirect (S3 mode)
		location := resp.Header.Get("Location")
		if location == "" {
			return fmt.Errorf("redirect without Location header")
		}

		getResp, err := http.Get(location)
		if err != nil {
			return fmt.Errorf("failed to follow redirect: %w", err)
		}
		defer getResp.Body.Close()

		if getResp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(getResp.Body, 4096))
			return fmt.Errorf("redirect failed: status=%d body=%s", getResp.StatusCode, string(body))
		}
		return checkPDF(getResp.Body)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, string(body))
}

// Helper functions

func doJSON(method, path string, payload any, wantStatus int, out any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode failed: %w", err)
		}
	}
	return resp, nil
}

func checkPDF(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("receipt is not a PDF (%d bytes)", len(data))
	}
	return nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
