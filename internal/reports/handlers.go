package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fdg312/incident-hub/internal/capture"
	"github.com/fdg312/incident-hub/internal/geo"
	"github.com/fdg312/incident-hub/internal/userctx"
)

// Handlers handles HTTP requests for reports
type Handlers struct {
	service *Service
}

// NewHandlers creates new handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleList handles GET /v1/reports
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	owner := userctx.OwnerOrDefault(r.Context())
	reports, err := h.service.ListReports(r.Context(), owner, limit, offset)
	if err != nil {
		h.service.logf("ERROR reports: request_failed err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	baseURL := GetBaseURL(r)
	dtos := make([]ReportDTO, len(reports))
	for i := range reports {
		dtos[i] = h.toDTO(r.Context(), &reports[i], baseURL)
	}

	writeJSON(w, http.StatusOK, ReportsResponse{Reports: dtos})
}

// HandleGet handles GET /v1/reports/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.toDTO(r.Context(), report, GetBaseURL(r)))
}

// HandleReceipt handles GET /v1/reports/{id}/receipt
func (h *Handlers) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	if report.Receipt == nil {
		writeError(w, http.StatusNotFound, "receipt_not_found", "Receipt is not available for this report")
		return
	}

	if !h.service.LocalMode() {
		// S3 mode: redirect to presigned or public URL
		url, err := h.service.ReceiptURL(r.Context(), report, GetBaseURL(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to generate download URL")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	obj, err := h.service.ReceiptData(r.Context(), report)
	if err != nil {
		h.service.logf("ERROR reports: request_failed err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Disposition", obj.ContentDisposition())
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Write(obj.Data)
}

func (h *Handlers) loadReport(w http.ResponseWriter, r *http.Request) (*Report, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid report ID")
		return nil, false
	}

	report, err := h.service.GetReport(r.Context(), userctx.OwnerOrDefault(r.Context()), id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			writeError(w, http.StatusNotFound, "report_not_found", "Report not found")
		} else {
			h.service.logf("ERROR reports: request_failed err=%v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		}
		return nil, false
	}
	return report, true
}

// ToDTO builds the response shape of a report, including the receipt URL when one exists.
func (s *Service) ToDTO(ctx context.Context, report *Report, baseURL string) ReportDTO {
	rec := report.Record

	photos := make([]PhotoDTO, len(rec.Photos))
	for i, p := range rec.Photos {
		photos[i] = PhotoDTO{Photo: p, SizeText: capture.FormatFileSize(p.SizeBytes)}
	}

	dto := ReportDTO{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		Photos:       photos,
		PhotoCount:   len(rec.Photos),
		Location:     rec.Location,
		LocationText: geo.FormatLocation(rec.Location),
		Status:       rec.Status,
		SubmittedAt:  rec.SubmittedAt,
	}
	if url, err := s.ReceiptURL(ctx, report, baseURL); err == nil {
		dto.ReceiptURL = url
	}
	return dto
}

func (h *Handlers) toDTO(ctx context.Context, report *Report, baseURL string) ReportDTO {
	return h.service.ToDTO(ctx, report, baseURL)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// GetBaseURL returns scheme://host of the incoming request.
func GetBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	host := r.Host
	return fmt.Sprintf("%s://%s", scheme, host)
}
