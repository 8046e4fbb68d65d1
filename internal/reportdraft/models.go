package reportdraft

import (
	"time"
)

// Location is a point captured by the device or embedded in a photo.
type Location struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// HasAddress reports whether a reverse-geocoded address is attached.
func (l Location) HasAddress() bool {
	return l.Address != ""
}

// Photo is the metadata of one attached image. URI is an opaque handle.
type Photo struct {
	URI       string    `json:"uri"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes *int64    `json:"size_bytes,omitempty"`
	FileName  *string   `json:"file_name,omitempty"`
	MimeType  *string   `json:"mime_type,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// Status of a submitted report
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known record status.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusProcessing, StatusCompleted:
		return true
	}
	return false
}

// Record is a submitted report. It is built only by Draft.Submit and never mutated afterwards.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Photos      []Photo   `json:"photos"`
	Location    *Location `json:"location,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	Status      Status    `json:"status"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Photos = clonePhotos(r.Photos)
	out.Location = cloneLocation(r.Location)
	return out
}

// Field names used in FieldErrors
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPhotos      = "photos"
)

// Validation messages
const (
	MsgTitleRequired       = "Title is required"
	MsgDescriptionRequired = "Description is required"
	MsgPhotosRequired      = "At least one photo is required"
)

// FieldErrors maps a field name to a user-facing message.
type FieldErrors map[string]string

// Clone returns an independent copy (never nil).
func (fe FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}

func clonePhoto(p Photo) Photo {
	out := p
	if p.SizeBytes != nil {
		v := *p.SizeBytes
		out.SizeBytes = &v
	}
	if p.FileName != nil {
		v := *p.FileName
		out.FileName = &v
	}
	if p.MimeType != nil {
		v := *p.MimeType
		out.MimeType = &v
	}
	out.Location = cloneLocation(p.Location)
	return out
}

func clonePhotos(photos []Photo) []Photo {
	out := make([]Photo, len(photos))
	for i, p := range photos {
		out[i] = clonePhoto(p)
	}
	return out
}

func cloneLocation(l *Location) *Location {
	if l == nil {
		return nil
	}
	v := *l
	return &v
}
