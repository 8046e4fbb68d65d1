package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/incident-hub/internal/blob"
	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
	"github.com/fdg312/incident-hub/internal/storage/memory"
	"github.com/fdg312/incident-hub/internal/userctx"
)

type failingBlobStore struct{ blob.MemoryStore }

func (f *failingBlobStore) PutObject(ctx context.Context, obj blob.Object) (int64, error) {
	return 0, errors.New("bucket unavailable")
}

type presignBlobStore struct{ *blob.MemoryStore }

func (p presignBlobStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://s3.example.com/%s?ttl=%d", key, int(ttl.Seconds())), nil
}

type failingReceiptStorage struct {
	storage.ReportsStorage
}

func (f failingReceiptStorage) SetReceipt(ctx context.Context, id string, receipt storage.Receipt) error {
	return errors.New("db down")
}

func testRecord(id string, at time.Time) reportdraft.Record {
	size := int64(2048000)
	name := "camera_1.jpg"
	return reportdraft.Record{
		ID:          id,
		Title:       "Leak",
		Description: "Pipe burst in the basement",
		Photos: []reportdraft.Photo{{
			URI:       "file:///mock/camera/image_1.jpg",
			Width:     1920,
			Height:    1080,
			SizeBytes: &size,
			FileName:  &name,
		}},
		Location:    &reportdraft.Location{Latitude: 37.7749, Longitude: -122.4194},
		SubmittedAt: at,
		Status:      reportdraft.StatusSubmitted,
	}
}

func setupTestService() *Service {
	return NewService(memory.NewReportsMemoryStorage(), blob.NewMemoryStore(), config.BlobModeLocal, 900, "", false)
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(userctx.WithUserID(req.Context(), userID))
}

func TestSubmitStoresReportAndReceipt(t *testing.T) {
	service := setupTestService()

	report, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if report.Receipt == nil {
		t.Fatal("expected receipt to be attached")
	}
	if report.Receipt.ObjectKey != "receipts/alice/r1.pdf" {
		t.Fatalf("unexpected receipt key %s", report.Receipt.ObjectKey)
	}

	obj, err := service.ReceiptData(context.Background(), report)
	if err != nil {
		t.Fatalf("ReceiptData failed: %v", err)
	}
	if !bytes.HasPrefix(obj.Data, []byte("%PDF-")) {
		t.Fatalf("expected PDF data, got %q", obj.Data[:min(len(obj.Data), 16)])
	}
	if obj.FileName != "incident_r1.pdf" || obj.ContentType != "application/pdf" {
		t.Fatalf("unexpected receipt object %s %s", obj.FileName, obj.ContentType)
	}
}

func TestSubmitDeletesOrphanedReceipt(t *testing.T) {
	var buf bytes.Buffer
	store := blob.NewMemoryStore()
	service := NewService(failingReceiptStorage{memory.NewReportsMemoryStorage()}, store, config.BlobModeLocal, 900, "", false).
		WithLogger(log.New(&buf, "", 0))

	report, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now()))
	if err != nil {
		t.Fatalf("receipt failure must not fail submission: %v", err)
	}
	if report.Receipt != nil {
		t.Fatalf("expected no receipt, got %+v", report.Receipt)
	}
	if store.Len() != 0 {
		t.Fatalf("expected uploaded receipt to be removed, %d objects left", store.Len())
	}
	if !strings.Contains(buf.String(), "failed to save receipt") {
		t.Fatalf("expected receipt failure log, got %q", buf.String())
	}
}

func TestSubmitRejectsInvalidRecord(t *testing.T) {
	service := setupTestService()

	if _, err := service.Submit(context.Background(), "alice", reportdraft.Record{}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestSubmitReceiptFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	service := NewService(memory.NewReportsMemoryStorage(), &failingBlobStore{}, config.BlobModeLocal, 900, "", false).
		WithLogger(log.New(&buf, "", 0))

	report, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now()))
	if err != nil {
		t.Fatalf("receipt failure must not fail submission: %v", err)
	}
	if report.Receipt != nil {
		t.Fatalf("expected no receipt, got %+v", report.Receipt)
	}
	if !strings.Contains(buf.String(), "receipt_failed report_id=r1") {
		t.Fatalf("expected receipt failure log, got %q", buf.String())
	}

	got, err := service.GetReport(context.Background(), "alice", "r1")
	if err != nil {
		t.Fatalf("report should be stored: %v", err)
	}
	if got.Record.Title != "Leak" {
		t.Fatalf("unexpected stored report %+v", got.Record)
	}
}

func TestHandleList_NewestFirstAndOwnerOnly(t *testing.T) {
	service := setupTestService()
	handler := NewHandlers(service)
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		if _, err := service.Submit(context.Background(), "alice", testRecord(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if _, err := service.Submit(context.Background(), "bob", testRecord("bobs", base)); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := asUser(httptest.NewRequest("GET", "/v1/reports", nil), "alice")
	w := httptest.NewRecorder()
	handler.HandleList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp ReportsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(resp.Reports))
	}
	if resp.Reports[0].ID != "new" || resp.Reports[2].ID != "old" {
		t.Fatalf("expected newest first, got %s..%s", resp.Reports[0].ID, resp.Reports[2].ID)
	}
	if resp.Reports[0].ReceiptURL != "http://example.com/v1/reports/new/receipt" {
		t.Errorf("unexpected receipt url %q", resp.Reports[0].ReceiptURL)
	}
	if resp.Reports[0].Photos[0].SizeText != "1.95 MB" {
		t.Errorf("unexpected size text %q", resp.Reports[0].Photos[0].SizeText)
	}
	if resp.Reports[0].LocationText != "37.774900, -122.419400" {
		t.Errorf("unexpected location text %q", resp.Reports[0].LocationText)
	}
}

func TestHandleGet_OtherOwnerGets404(t *testing.T) {
	service := setupTestService()
	handler := NewHandlers(service)

	if _, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now())); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := asUser(httptest.NewRequest("GET", "/v1/reports/r1", nil), "mallory")
	req.SetPathValue("id", "r1")
	w := httptest.NewRecorder()
	handler.HandleGet(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var errResp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&errResp)
	errorData := errResp["error"].(map[string]interface{})
	if errorData["code"] != "report_not_found" {
		t.Errorf("expected error code report_not_found, got %s", errorData["code"])
	}
}

func TestHandleGet_DefaultOwnerWithoutAuth(t *testing.T) {
	service := setupTestService()
	handler := NewHandlers(service)

	if _, err := service.Submit(context.Background(), userctx.DefaultUserID, testRecord("r1", time.Now())); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/reports/r1", nil)
	req.SetPathValue("id", "r1")
	w := httptest.NewRecorder()
	handler.HandleGet(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var dto ReportDTO
	if err := json.NewDecoder(w.Body).Decode(&dto); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if dto.ID != "r1" || dto.PhotoCount != 1 || dto.Status != reportdraft.StatusSubmitted {
		t.Fatalf("unexpected dto %+v", dto)
	}
}

func TestHandleReceipt_LocalStreamsPDF(t *testing.T) {
	service := setupTestService()
	handler := NewHandlers(service)

	if _, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now())); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := asUser(httptest.NewRequest("GET", "/v1/reports/r1/receipt", nil), "alice")
	req.SetPathValue("id", "r1")
	w := httptest.NewRecorder()
	handler.HandleReceipt(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="incident_r1.pdf"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("expected PDF body")
	}
}

func TestHandleReceipt_S3Redirects(t *testing.T) {
	store := presignBlobStore{blob.NewMemoryStore()}
	service := NewService(memory.NewReportsMemoryStorage(), store, config.BlobModeS3, 600, "", false)
	handler := NewHandlers(service)

	if _, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now())); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := asUser(httptest.NewRequest("GET", "/v1/reports/r1/receipt", nil), "alice")
	req.SetPathValue("id", "r1")
	w := httptest.NewRecorder()
	handler.HandleReceipt(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://s3.example.com/receipts/alice/r1.pdf?ttl=600" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestReceiptURL_PreferPublic(t *testing.T) {
	service := NewService(memory.NewReportsMemoryStorage(), blob.NewMemoryStore(), config.BlobModeS3, 600, "https://cdn.example.com/bucket/", true)

	report, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now()))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	url, err := service.ReceiptURL(context.Background(), report, "http://api.local")
	if err != nil {
		t.Fatalf("ReceiptURL failed: %v", err)
	}
	if url != "https://cdn.example.com/bucket/receipts/alice/r1.pdf" {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestHandleReceipt_Missing(t *testing.T) {
	service := NewService(memory.NewReportsMemoryStorage(), &failingBlobStore{}, config.BlobModeLocal, 900, "", false)
	handler := NewHandlers(service)

	if _, err := service.Submit(context.Background(), "alice", testRecord("r1", time.Now())); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := asUser(httptest.NewRequest("GET", "/v1/reports/r1/receipt", nil), "alice")
	req.SetPathValue("id", "r1")
	w := httptest.NewRecorder()
	handler.HandleReceipt(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
