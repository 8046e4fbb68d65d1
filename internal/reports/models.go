package reports

import (
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
)

// Report is a stored submission together with its owner and receipt.
type Report struct {
	Record      reportdraft.Record
	OwnerUserID string
	Receipt     *storage.Receipt
}

// PhotoDTO is a photo with its display size
type PhotoDTO struct {
	reportdraft.Photo
	SizeText string `json:"size_text"`
}

// ReportDTO is the response representation of a report
type ReportDTO struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Photos       []PhotoDTO            `json:"photos"`
	PhotoCount   int                   `json:"photo_count"`
	Location     *reportdraft.Location `json:"location,omitempty"`
	LocationText string                `json:"location_text,omitempty"`
	Status       reportdraft.Status    `json:"status"`
	SubmittedAt  time.Time             `json:"submitted_at"`
	ReceiptURL   string                `json:"receipt_url,omitempty"`
}

// ReportsResponse is the list response
type ReportsResponse struct {
	Reports []ReportDTO `json:"reports"`
}

const (
	receiptContentType = "application/pdf"
	defaultListLimit   = 20
	maxListLimit       = 100
)
