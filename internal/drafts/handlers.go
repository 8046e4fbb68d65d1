package drafts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/fdg312/incident-hub/internal/capture"
	"github.com/fdg312/incident-hub/internal/geo"
	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/reports"
	"github.com/fdg312/incident-hub/internal/userctx"
)

// Handlers handles HTTP requests for the report draft
type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleGet handles GET /v1/draft
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Get(r.Context(), userctx.OwnerOrDefault(r.Context()))
	writeJSON(w, http.StatusOK, h.toDTO(snap))
}

// HandleSetTitle handles PUT /v1/draft/title
func (h *Handlers) HandleSetTitle(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	snap, err := h.service.SetTitle(r.Context(), userctx.OwnerOrDefault(r.Context()), req.Text)
	h.respond(w, snap, err)
}

// HandleSetDescription handles PUT /v1/draft/description
func (h *Handlers) HandleSetDescription(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	snap, err := h.service.SetDescription(r.Context(), userctx.OwnerOrDefault(r.Context()), req.Text)
	h.respond(w, snap, err)
}

// HandleAddPhoto handles POST /v1/draft/photos
func (h *Handlers) HandleAddPhoto(w http.ResponseWriter, r *http.Request) {
	var req AddPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	snap, err := h.service.AddPhoto(r.Context(), userctx.OwnerOrDefault(r.Context()), req.Photo)
	h.respond(w, snap, err)
}

// HandleCapture handles POST /v1/draft/photos/capture
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	quality := 0.0
	if req.CompressQuality != nil {
		if *req.CompressQuality <= 0 || *req.CompressQuality > 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "compress_quality must be in (0, 1]")
			return
		}
		quality = *req.CompressQuality
	}

	snap, err := h.service.Capture(r.Context(), userctx.OwnerOrDefault(r.Context()), req.Source, quality)
	if errors.Is(err, ErrCaptureCancelled) {
		writeJSON(w, http.StatusOK, DraftResponse{Draft: h.toDTO(snap), Cancelled: true})
		return
	}
	h.respond(w, snap, err)
}

// HandleRemovePhoto handles DELETE /v1/draft/photos/{index}
func (h *Handlers) HandleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", "Invalid photo index")
		return
	}

	snap, err := h.service.RemovePhoto(r.Context(), userctx.OwnerOrDefault(r.Context()), index)
	h.respond(w, snap, err)
}

// HandleSetLocation handles PUT /v1/draft/location
func (h *Handlers) HandleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Location != nil {
		if req.Location.Latitude < -90 || req.Location.Latitude > 90 ||
			req.Location.Longitude < -180 || req.Location.Longitude > 180 {
			writeError(w, http.StatusBadRequest, "invalid_location", "Coordinates out of range")
			return
		}
	}

	snap, err := h.service.SetLocation(r.Context(), userctx.OwnerOrDefault(r.Context()), req.Location)
	h.respond(w, snap, err)
}

// HandleRefreshLocation handles POST /v1/draft/location/refresh.
// A failed lookup is reported as a warning next to the unchanged draft.
func (h *Handlers) HandleRefreshLocation(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.RefreshLocation(r.Context(), userctx.OwnerOrDefault(r.Context()))
	if errors.Is(err, geo.ErrLocationUnavailable) {
		writeJSON(w, http.StatusOK, DraftResponse{
			Draft:           h.toDTO(snap),
			LocationWarning: "Unable to get current location",
		})
		return
	}
	if err != nil {
		h.respond(w, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: h.toDTO(snap)})
}

// HandleValidate handles GET /v1/draft/validate
func (h *Handlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	errs := h.service.Validate(r.Context(), userctx.OwnerOrDefault(r.Context()))
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(errs) == 0, Errors: errs})
}

// HandleReset handles DELETE /v1/draft
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Reset(r.Context(), userctx.OwnerOrDefault(r.Context()))
	h.respond(w, snap, err)
}

// HandleSubmit handles POST /v1/draft/submit
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Submit(r.Context(), userctx.OwnerOrDefault(r.Context()))
	if err != nil {
		var verr *reportdraft.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": map[string]any{
					"code":    "validation_failed",
					"message": "Please fill in all required fields",
					"fields":  verr.Fields,
				},
			})
		case errors.Is(err, ErrSubmitInProgress):
			writeError(w, http.StatusConflict, "submit_in_progress", "Report submission already in progress")
		default:
			h.service.logf("ERROR drafts: submit_failed err=%v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to submit report. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		ID:          report.Record.ID,
		PhotoCount:  len(report.Record.Photos),
		Status:      report.Record.Status,
		SubmittedAt: report.Record.SubmittedAt,
		ReceiptURL:  h.service.ReceiptURL(r.Context(), report, reports.GetBaseURL(r)),
	})
}

func (h *Handlers) respond(w http.ResponseWriter, snap Snapshot, err error) {
	var limitErr *LimitError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.toDTO(snap))
	case errors.As(err, &limitErr):
		writeError(w, http.StatusBadRequest, "field_too_long", limitErr.Error())
	case errors.Is(err, ErrTooManyPhotos):
		writeError(w, http.StatusBadRequest, "too_many_photos", err.Error())
	case errors.Is(err, ErrInvalidPhoto):
		writeError(w, http.StatusBadRequest, "invalid_photo", "Photo uri is required")
	case errors.Is(err, ErrUnknownSource):
		writeError(w, http.StatusBadRequest, "invalid_source", "source must be camera or gallery")
	case errors.Is(err, reportdraft.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, "photo_not_found", "Photo not found")
	case errors.Is(err, capture.ErrCaptureFailed):
		writeError(w, http.StatusBadGateway, "capture_failed", "Failed to capture image")
	case errors.Is(err, ErrSubmitInProgress):
		writeError(w, http.StatusConflict, "submit_in_progress", "Report submission in progress")
	default:
		h.service.logf("ERROR drafts: request_failed err=%v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func (h *Handlers) toDTO(snap Snapshot) DraftDTO {
	limits := h.service.Limits()

	photos := make([]PhotoDTO, len(snap.Photos))
	for i, p := range snap.Photos {
		photos[i] = PhotoDTO{Index: i, Photo: p, SizeText: capture.FormatFileSize(p.SizeBytes)}
	}

	return DraftDTO{
		Title:             snap.Title,
		TitleLength:       utf8.RuneCountInString(snap.Title),
		TitleMax:          limits.TitleMax,
		Description:       snap.Description,
		DescriptionLength: utf8.RuneCountInString(snap.Description),
		DescriptionMax:    limits.DescriptionMax,
		Photos:            photos,
		PhotoCount:        len(photos),
		MaxPhotos:         limits.MaxPhotos,
		Location:          snap.Location,
		LocationText:      geo.FormatLocation(snap.Location),
		Errors:            snap.Errors,
		Submitting:        snap.Submitting,
	}
}

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
