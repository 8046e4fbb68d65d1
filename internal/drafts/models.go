package drafts

import (
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

// Capture sources accepted by POST /v1/draft/photos/capture
const (
	SourceCamera  = "camera"
	SourceGallery = "gallery"
)

// Limits bounds user input. Zero MaxPhotos means unlimited.
type Limits struct {
	TitleMax       int
	DescriptionMax int
	MaxPhotos      int
}

// DefaultLimits are the input limits of the report form.
var DefaultLimits = Limits{TitleMax: 100, DescriptionMax: 1000}

// Snapshot is a copy of one session's draft.
type Snapshot struct {
	Title       string
	Description string
	Photos      []reportdraft.Photo
	Location    *reportdraft.Location
	Errors      reportdraft.FieldErrors
	Submitting  bool
}

// TextRequest is the body of PUT /v1/draft/title and /v1/draft/description
type TextRequest struct {
	Text string `json:"text"`
}

// AddPhotoRequest is the body of POST /v1/draft/photos
type AddPhotoRequest struct {
	Photo reportdraft.Photo `json:"photo"`
}

// CaptureRequest is the body of POST /v1/draft/photos/capture
type CaptureRequest struct {
	Source          string   `json:"source"`
	CompressQuality *float64 `json:"compress_quality,omitempty"`
}

// LocationRequest is the body of PUT /v1/draft/location; a null location clears it.
type LocationRequest struct {
	Location *reportdraft.Location `json:"location"`
}

// PhotoDTO is a draft photo with its position and display size
type PhotoDTO struct {
	Index int `json:"index"`
	reportdraft.Photo
	SizeText string `json:"size_text"`
}

// DraftDTO is the response representation of a draft
type DraftDTO struct {
	Title             string                  `json:"title"`
	TitleLength       int                     `json:"title_length"`
	TitleMax          int                     `json:"title_max"`
	Description       string                  `json:"description"`
	DescriptionLength int                     `json:"description_length"`
	DescriptionMax    int                     `json:"description_max"`
	Photos            []PhotoDTO              `json:"photos"`
	PhotoCount        int                     `json:"photo_count"`
	MaxPhotos         int                     `json:"max_photos,omitempty"`
	Location          *reportdraft.Location   `json:"location,omitempty"`
	LocationText      string                  `json:"location_text,omitempty"`
	Errors            reportdraft.FieldErrors `json:"errors"`
	Submitting        bool                    `json:"submitting"`
}

// DraftResponse wraps a draft with the outcome of a capture or location refresh.
type DraftResponse struct {
	Draft           DraftDTO `json:"draft"`
	Cancelled       bool     `json:"cancelled,omitempty"`
	LocationWarning string   `json:"location_warning,omitempty"`
}

// ValidateResponse is the body of GET /v1/draft/validate
type ValidateResponse struct {
	Valid  bool                    `json:"valid"`
	Errors reportdraft.FieldErrors `json:"errors"`
}

// SubmitResponse is the body of a successful POST /v1/draft/submit
type SubmitResponse struct {
	ID          string             `json:"id"`
	PhotoCount  int                `json:"photo_count"`
	Status      reportdraft.Status `json:"status"`
	SubmittedAt time.Time          `json:"submitted_at"`
	ReceiptURL  string             `json:"receipt_url,omitempty"`
}
