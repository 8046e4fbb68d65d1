package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

var ErrCaptureFailed = errors.New("image capture failed")

// Source produces photos from the camera or the gallery.
// A nil photo with a nil error means the user cancelled.
type Source interface {
	CaptureFromCamera(ctx context.Context) (*reportdraft.Photo, error)
	PickFromGallery(ctx context.Context) (*reportdraft.Photo, error)
}

const (
	mimeJPEG = "image/jpeg"

	cameraWidth  = 1920
	cameraHeight = 1080
	cameraSize   = 2048000

	galleryWidth  = 1600
	galleryHeight = 1200
	gallerySize   = 1536000
)

// Geocoder resolves an address for a point. geo.Provider implements it.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}

// MockSource returns fixed-size JPEG metadata. The embedded location of
// each photo comes from Locator; a nil Locator yields photos without one.
// With a Geocoder set, embedded locations get an address when one resolves.
type MockSource struct {
	Locator  Locator
	Geocoder Geocoder
	now      func() time.Time

	mu         sync.Mutex
	cancelNext bool
	failNext   error
}

func NewMockSource(locator Locator) *MockSource {
	return &MockSource{
		Locator: locator,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source used for file names.
func (s *MockSource) WithClock(now func() time.Time) *MockSource {
	s.now = now
	return s
}

// WithGeocoder sets the resolver for addresses of embedded locations.
func (s *MockSource) WithGeocoder(g Geocoder) *MockSource {
	s.Geocoder = g
	return s
}

// CancelNext makes the next capture behave as if the user dismissed the picker.
func (s *MockSource) CancelNext() {
	s.mu.Lock()
	s.cancelNext = true
	s.mu.Unlock()
}

// FailNext makes the next capture return err wrapped in ErrCaptureFailed.
func (s *MockSource) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *MockSource) CaptureFromCamera(ctx context.Context) (*reportdraft.Photo, error) {
	return s.produce(ctx, "camera", "camera", cameraWidth, cameraHeight, cameraSize)
}

func (s *MockSource) PickFromGallery(ctx context.Context) (*reportdraft.Photo, error) {
	return s.produce(ctx, "gallery", "gallery", galleryWidth, galleryHeight, gallerySize)
}

func (s *MockSource) produce(ctx context.Context, dir, prefix string, width, height int, size int64) (*reportdraft.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	s.mu.Lock()
	cancel, failErr := s.cancelNext, s.failNext
	s.cancelNext, s.failNext = false, nil
	s.mu.Unlock()

	if failErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, failErr)
	}
	if cancel {
		return nil, nil
	}

	ts := s.now().UnixMilli()
	fileName := fmt.Sprintf("%s_%d.jpg", prefix, ts)
	mime := mimeJPEG

	photo := &reportdraft.Photo{
		URI:       fmt.Sprintf("file:///mock/%s/image_%d.jpg", dir, ts),
		Width:     width,
		Height:    height,
		SizeBytes: &size,
		FileName:  &fileName,
		MimeType:  &mime,
	}
	if s.Locator != nil {
		photo.Location = s.withAddress(ctx, s.Locator.EmbeddedLocation())
	}
	return photo, nil
}

// withAddress reverse-geocodes loc best-effort; on failure the
// coordinates are kept without an address.
func (s *MockSource) withAddress(ctx context.Context, loc *reportdraft.Location) *reportdraft.Location {
	if loc == nil || loc.Address != "" || s.Geocoder == nil {
		return loc
	}
	addr, err := s.Geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil || addr == "" {
		return loc
	}
	out := *loc
	out.Address = addr
	return &out
}

// DefaultQuality is the compression quality used when none is given.
const DefaultQuality = 0.8

// Compress returns a copy of photo with its size scaled by quality.
// Quality outside (0, 1] falls back to DefaultQuality or is capped at 1.
func Compress(photo reportdraft.Photo, quality float64) reportdraft.Photo {
	if quality <= 0 {
		quality = DefaultQuality
	}
	if quality > 1 {
		quality = 1
	}

	out := photo
	if photo.SizeBytes != nil {
		size := int64(math.Floor(float64(*photo.SizeBytes) * quality))
		out.SizeBytes = &size
	}
	return out
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count like "1.95 MB".
func FormatFileSize(size *int64) string {
	if size == nil || *size <= 0 {
		return "Unknown size"
	}

	const k = 1024.0
	b := float64(*size)
	i := 0
	for b >= k && i < len(sizeUnits)-1 {
		b /= k
		i++
	}

	v := math.Round(b*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
