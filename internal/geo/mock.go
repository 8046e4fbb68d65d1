package geo

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

const (
	DefaultLatitude  = 37.7749
	DefaultLongitude = -122.4194
	DefaultAddress   = "123 Main Street, San Francisco, CA 94102, USA"
)

// MockConfig configures the in-process location provider.
type MockConfig struct {
	Latitude  float64
	Longitude float64
	Address   string
	// Delay simulates the time a position fix takes.
	Delay time.Duration
}

// MockProvider always reports the configured point. Failures can be forced
// for tests and demos.
type MockProvider struct {
	cfg MockConfig
	now func() time.Time

	mu          sync.Mutex
	failLocate  bool
	failGeocode bool
}

func NewMockProvider(cfg MockConfig) *MockProvider {
	if cfg.Latitude == 0 && cfg.Longitude == 0 {
		cfg.Latitude = DefaultLatitude
		cfg.Longitude = DefaultLongitude
	}
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	return &MockProvider{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source.
func (p *MockProvider) WithClock(now func() time.Time) *MockProvider {
	p.now = now
	return p
}

// SetFailures forces CurrentLocation and/or ReverseGeocode to fail.
func (p *MockProvider) SetFailures(locate, geocode bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failLocate = locate
	p.failGeocode = geocode
}

func (p *MockProvider) CurrentLocation(ctx context.Context) (reportdraft.Location, error) {
	if err := p.wait(ctx); err != nil {
		return reportdraft.Location{}, err
	}

	p.mu.Lock()
	fail := p.failLocate
	p.mu.Unlock()
	if fail {
		return reportdraft.Location{}, ErrLocationUnavailable
	}

	return reportdraft.Location{
		Latitude:   p.cfg.Latitude,
		Longitude:  p.cfg.Longitude,
		CapturedAt: p.now(),
	}, nil
}

func (p *MockProvider) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	fail := p.failGeocode
	p.mu.Unlock()
	if fail {
		return "", ErrGeocodeFailed
	}

	return p.cfg.Address, nil
}

func (p *MockProvider) wait(ctx context.Context) error {
	if p.cfg.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.cfg.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
