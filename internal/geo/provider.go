package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrGeocodeFailed       = errors.New("reverse geocode failed")
)

// Provider supplies the device position and a human-readable address for it.
type Provider interface {
	CurrentLocation(ctx context.Context) (reportdraft.Location, error)
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}

// DefaultTimeout bounds a Locate call when the caller passes zero.
const DefaultTimeout = 10 * time.Second

// Locate fetches the current position and then tries to attach an address.
// A failed reverse geocode leaves Address empty; only a failed position
// lookup is returned as an error (wrapping ErrLocationUnavailable).
func Locate(ctx context.Context, provider Provider, timeout time.Duration) (reportdraft.Location, error) {
	if provider == nil {
		return reportdraft.Location{}, fmt.Errorf("%w: no provider", ErrLocationUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loc, err := provider.CurrentLocation(ctx)
	if err != nil {
		if errors.Is(err, ErrLocationUnavailable) {
			return reportdraft.Location{}, err
		}
		return reportdraft.Location{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	if loc.Address == "" {
		if addr, err := provider.ReverseGeocode(ctx, loc.Latitude, loc.Longitude); err == nil {
			loc.Address = addr
		}
	}

	return loc, nil
}

// Describe returns the address for a point, or its coordinates when
// geocoding fails.
func Describe(ctx context.Context, provider Provider, latitude, longitude float64) string {
	if provider != nil {
		if addr, err := provider.ReverseGeocode(ctx, latitude, longitude); err == nil && addr != "" {
			return addr
		}
	}
	return formatCoordinates(latitude, longitude)
}

// FormatLocation renders a location for display: the address when known,
// otherwise "lat, lon" with six decimals.
func FormatLocation(loc *reportdraft.Location) string {
	if loc == nil {
		return ""
	}
	if loc.HasAddress() {
		return loc.Address
	}
	return formatCoordinates(loc.Latitude, loc.Longitude)
}

func formatCoordinates(latitude, longitude float64) string {
	return fmt.Sprintf("%.6f, %.6f", latitude, longitude)
}
