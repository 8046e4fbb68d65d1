package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/incident-hub/internal/blob"
	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
)

type Logger interface {
	Printf(format string, v ...any)
}

// Service handles submitted reports and their receipts
type Service struct {
	reportsStorage  storage.ReportsStorage
	generator       *ReceiptGenerator
	blobStore       blob.Store
	presignTTL      time.Duration
	localMode       bool   // true unless receipts live in S3
	publicBaseURL   string // S3 public base URL (if prefer_public_url mode)
	preferPublicURL bool   // if true, use public URLs instead of presigned
	logger          Logger
	now             func() time.Time
}

// NewService creates a new reports service. blobMode is the mode resolved by
// blob.NewBlobStore.
func NewService(
	reportsStorage storage.ReportsStorage,
	blobStore blob.Store,
	blobMode string,
	presignTTL int,
	publicBaseURL string,
	preferPublicURL bool,
) *Service {
	if blobStore == nil {
		blobStore = blob.NewMemoryStore()
		blobMode = config.BlobModeLocal
	}

	return &Service{
		reportsStorage:  reportsStorage,
		generator:       NewReceiptGenerator(),
		blobStore:       blobStore,
		presignTTL:      time.Duration(presignTTL) * time.Second,
		localMode:       blobMode != config.BlobModeS3,
		publicBaseURL:   publicBaseURL,
		preferPublicURL: preferPublicURL,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithLogger sets the logger used for non-fatal receipt failures.
func (s *Service) WithLogger(logger Logger) *Service {
	s.logger = logger
	return s
}

// LocalMode reports whether receipts are served by this API rather than S3.
func (s *Service) LocalMode() bool {
	return s.localMode
}

// Submit persists a record for owner and attaches a PDF receipt.
// A failed receipt is logged and does not fail the submission.
func (s *Service) Submit(ctx context.Context, owner string, rec reportdraft.Record) (*Report, error) {
	if strings.TrimSpace(rec.ID) == "" || !rec.Status.Valid() {
		return nil, ErrInvalidRecord
	}

	stored := &storage.StoredReport{
		Record:      rec.Clone(),
		OwnerUserID: owner,
	}
	if err := s.reportsStorage.CreateReport(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	receipt, err := s.attachReceipt(ctx, owner, rec)
	if err != nil {
		s.logf("WARN reports: receipt_failed report_id=%s err=%v", rec.ID, err)
	} else {
		stored.Receipt = receipt
	}

	return toReport(stored), nil
}

func (s *Service) attachReceipt(ctx context.Context, owner string, rec reportdraft.Record) (*storage.Receipt, error) {
	data, err := s.generator.Render(rec)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("receipts/%s/%s.pdf", owner, rec.ID)
	size, err := s.blobStore.PutObject(ctx, blob.Object{
		Key:         objectKey,
		Data:        data,
		ContentType: receiptContentType,
		FileName:    receiptFileName(rec.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	receipt := storage.Receipt{
		ObjectKey: objectKey,
		SizeBytes: size,
		CreatedAt: s.now(),
	}
	if err := s.reportsStorage.SetReceipt(ctx, rec.ID, receipt); err != nil {
		// orphaned upload
		if delErr := s.blobStore.DeleteObject(ctx, objectKey); delErr != nil {
			s.logf("WARN reports: receipt_cleanup_failed key=%s err=%v", objectKey, delErr)
		}
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}

	return &receipt, nil
}

// GetReport retrieves a report owned by owner
func (s *Service) GetReport(ctx context.Context, owner, id string) (*Report, error) {
	stored, err := s.reportsStorage.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if stored.OwnerUserID != owner {
		return nil, ErrReportNotFound
	}

	return toReport(stored), nil
}

// ListReports lists the owner's reports, newest first
func (s *Service) ListReports(ctx context.Context, owner string, limit, offset int) ([]Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.reportsStorage.ListReports(ctx, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]Report, len(list))
	for i := range list {
		reports[i] = *toReport(&list[i])
	}

	return reports, nil
}

// ReceiptURL returns where the receipt of a report can be downloaded
func (s *Service) ReceiptURL(ctx context.Context, report *Report, baseURL string) (string, error) {
	if report.Receipt == nil {
		return "", ErrReceiptNotReady
	}

	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/%s/receipt", strings.TrimSuffix(baseURL, "/"), report.Record.ID), nil
	}

	if s.preferPublicURL && s.publicBaseURL != "" {
		return strings.TrimSuffix(s.publicBaseURL, "/") + "/" + report.Receipt.ObjectKey, nil
	}

	presignedURL, err := s.blobStore.PresignGet(ctx, report.Receipt.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedURL, nil
}

// ReceiptData returns the stored receipt PDF of a report
func (s *Service) ReceiptData(ctx context.Context, report *Report) (blob.Object, error) {
	if report.Receipt == nil {
		return blob.Object{}, ErrReceiptNotReady
	}

	obj, err := s.blobStore.GetObject(ctx, report.Receipt.ObjectKey)
	if err != nil {
		return blob.Object{}, fmt.Errorf("failed to read receipt: %w", err)
	}
	if obj.ContentType == "" {
		obj.ContentType = receiptContentType
	}
	if obj.FileName == "" {
		obj.FileName = receiptFileName(report.Record.ID)
	}
	return obj, nil
}

func receiptFileName(reportID string) string {
	return fmt.Sprintf("incident_%s.pdf", reportID)
}

func (s *Service) logf(format string, v ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, v...)
}

func toReport(stored *storage.StoredReport) *Report {
	return &Report{
		Record:      stored.Record.Clone(),
		OwnerUserID: stored.OwnerUserID,
		Receipt:     stored.Receipt,
	}
}

// Errors
var (
	ErrInvalidRecord   = errors.New("invalid report record")
	ErrReportNotFound  = errors.New("report not found")
	ErrReceiptNotReady = errors.New("receipt not available")
)
