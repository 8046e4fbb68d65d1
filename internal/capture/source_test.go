package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

func fixedNow() time.Time {
	return time.UnixMilli(1700000000000).UTC()
}

func TestMockSourceCamera(t *testing.T) {
	loc := &reportdraft.Location{Latitude: 1, Longitude: 2}
	src := NewMockSource(LocatorFunc(func() *reportdraft.Location { return loc })).WithClock(fixedNow)

	photo, err := src.CaptureFromCamera(context.Background())
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if photo == nil {
		t.Fatal("expected a photo")
	}
	if photo.URI != "file:///mock/camera/image_1700000000000.jpg" {
		t.Errorf("unexpected uri %q", photo.URI)
	}
	if photo.Width != 1920 || photo.Height != 1080 {
		t.Errorf("unexpected dimensions %dx%d", photo.Width, photo.Height)
	}
	if photo.SizeBytes == nil || *photo.SizeBytes != 2048000 {
		t.Errorf("unexpected size %v", photo.SizeBytes)
	}
	if photo.FileName == nil || *photo.FileName != "camera_1700000000000.jpg" {
		t.Errorf("unexpected file name %v", photo.FileName)
	}
	if photo.MimeType == nil || *photo.MimeType != "image/jpeg" {
		t.Errorf("unexpected mime type %v", photo.MimeType)
	}
	if photo.Location == nil || photo.Location.Latitude != 1 {
		t.Errorf("expected embedded location, got %v", photo.Location)
	}
}

func TestMockSourceGallery(t *testing.T) {
	src := NewMockSource(nil).WithClock(fixedNow)

	photo, err := src.PickFromGallery(context.Background())
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if photo.Width != 1600 || photo.Height != 1200 || *photo.SizeBytes != 1536000 {
		t.Errorf("unexpected gallery photo %+v", photo)
	}
	if *photo.FileName != "gallery_1700000000000.jpg" {
		t.Errorf("unexpected file name %q", *photo.FileName)
	}
	if photo.Location != nil {
		t.Errorf("expected no location without a locator, got %v", photo.Location)
	}
}

type geocoderFunc func(lat, lon float64) (string, error)

func (f geocoderFunc) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	return f(latitude, longitude)
}

func TestMockSourceGeocodesEmbeddedLocation(t *testing.T) {
	embedded := &reportdraft.Location{Latitude: 37.7749, Longitude: -122.4194}
	locator := LocatorFunc(func() *reportdraft.Location { return embedded })

	t.Run("address attached", func(t *testing.T) {
		var gotLat, gotLon float64
		src := NewMockSource(locator).WithGeocoder(geocoderFunc(func(lat, lon float64) (string, error) {
			gotLat, gotLon = lat, lon
			return "1 Market St", nil
		}))

		photo, err := src.CaptureFromCamera(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if photo.Location == nil || photo.Location.Address != "1 Market St" {
			t.Fatalf("expected geocoded address, got %+v", photo.Location)
		}
		if gotLat != 37.7749 || gotLon != -122.4194 {
			t.Errorf("geocoded wrong point %v,%v", gotLat, gotLon)
		}
		if embedded.Address != "" {
			t.Error("locator's location must not be modified")
		}
	})

	t.Run("geocode failure keeps coordinates", func(t *testing.T) {
		src := NewMockSource(locator).WithGeocoder(geocoderFunc(func(lat, lon float64) (string, error) {
			return "", errors.New("offline")
		}))

		photo, err := src.PickFromGallery(context.Background())
		if err != nil {
			t.Fatalf("geocode failure must not fail the capture: %v", err)
		}
		if photo.Location == nil || photo.Location.Latitude != 37.7749 || photo.Location.HasAddress() {
			t.Fatalf("expected coordinates only, got %+v", photo.Location)
		}
	})

	t.Run("existing address kept", func(t *testing.T) {
		tagged := LocatorFunc(func() *reportdraft.Location {
			return &reportdraft.Location{Latitude: 1, Longitude: 2, Address: "EXIF street"}
		})
		src := NewMockSource(tagged).WithGeocoder(geocoderFunc(func(lat, lon float64) (string, error) {
			t.Fatal("geocoder must not be called")
			return "", nil
		}))

		photo, err := src.CaptureFromCamera(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if photo.Location.Address != "EXIF street" {
			t.Fatalf("unexpected address %q", photo.Location.Address)
		}
	})
}

func TestMockSourceCancel(t *testing.T) {
	src := NewMockSource(nil)
	src.CancelNext()

	photo, err := src.CaptureFromCamera(context.Background())
	if err != nil || photo != nil {
		t.Fatalf("expected nil, nil on cancel, got %v, %v", photo, err)
	}

	photo, err = src.CaptureFromCamera(context.Background())
	if err != nil || photo == nil {
		t.Fatalf("cancel must only apply once, got %v, %v", photo, err)
	}
}

func TestMockSourceFailure(t *testing.T) {
	src := NewMockSource(nil)
	src.FailNext(errors.New("camera busy"))

	_, err := src.PickFromGallery(context.Background())
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestMockSourceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockSource(nil).CaptureFromCamera(ctx)
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
}

func TestJitterLocator(t *testing.T) {
	t.Run("always", func(t *testing.T) {
		l := NewJitterLocator(37.7749, -122.4194, 1, 42)
		for i := 0; i < 50; i++ {
			loc := l.EmbeddedLocation()
			if loc == nil {
				t.Fatal("expected a location with probability 1")
			}
			if d := loc.Latitude - 37.7749; d > DefaultJitter || d < -DefaultJitter {
				t.Fatalf("latitude out of jitter range: %v", loc.Latitude)
			}
			if d := loc.Longitude + 122.4194; d > DefaultJitter || d < -DefaultJitter {
				t.Fatalf("longitude out of jitter range: %v", loc.Longitude)
			}
		}
	})

	t.Run("never", func(t *testing.T) {
		l := NewJitterLocator(0, 0, 0, 42)
		for i := 0; i < 50; i++ {
			if loc := l.EmbeddedLocation(); loc != nil {
				t.Fatalf("expected nil with probability 0, got %v", loc)
			}
		}
	})
}

func TestCompress(t *testing.T) {
	size := int64(2048000)
	photo := reportdraft.Photo{URI: "a", SizeBytes: &size}

	out := Compress(photo, 0)
	if *out.SizeBytes != 1638400 {
		t.Fatalf("expected default quality 0.8, got %d", *out.SizeBytes)
	}
	if *photo.SizeBytes != 2048000 {
		t.Fatal("Compress must not modify its input")
	}

	out = Compress(photo, 0.333)
	if *out.SizeBytes != 681984 {
		t.Fatalf("expected floored size 681984, got %d", *out.SizeBytes)
	}

	out = Compress(photo, 5)
	if *out.SizeBytes != 2048000 {
		t.Fatalf("quality above 1 must be capped, got %d", *out.SizeBytes)
	}

	if out := Compress(reportdraft.Photo{URI: "b"}, 0.5); out.SizeBytes != nil {
		t.Fatalf("unknown size must stay unknown, got %v", *out.SizeBytes)
	}
}

func TestFormatFileSize(t *testing.T) {
	n := func(v int64) *int64 { return &v }

	cases := map[string]*int64{
		"Unknown size": nil,
		"500 Bytes":    n(500),
		"1 KB":         n(1024),
		"1.5 KB":       n(1536),
		"1.95 MB":      n(2048000),
		"1.46 MB":      n(1536000),
		"2 GB":         n(2 * 1024 * 1024 * 1024),
	}
	for want, in := range cases {
		if got := FormatFileSize(in); got != want {
			t.Errorf("FormatFileSize(%v) = %q, want %q", in, got, want)
		}
	}

	if got := FormatFileSize(n(0)); got != "Unknown size" {
		t.Errorf("expected Unknown size for 0, got %q", got)
	}
}
