package capture

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

// Locator supplies the location embedded in a freshly captured photo, or nil.
type Locator interface {
	EmbeddedLocation() *reportdraft.Location
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() *reportdraft.Location

func (f LocatorFunc) EmbeddedLocation() *reportdraft.Location { return f() }

// JitterLocator simulates EXIF GPS data: with the given probability it
// returns a point within Jitter degrees of the base coordinates.
type JitterLocator struct {
	Latitude    float64
	Longitude   float64
	Jitter      float64
	Probability float64

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

const (
	DefaultJitter          = 0.005
	DefaultEXIFProbability = 0.7
)

func NewJitterLocator(latitude, longitude, probability float64, seed uint64) *JitterLocator {
	return &JitterLocator{
		Latitude:    latitude,
		Longitude:   longitude,
		Jitter:      DefaultJitter,
		Probability: probability,
		rnd:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (l *JitterLocator) EmbeddedLocation() *reportdraft.Location {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rnd.Float64() >= l.Probability {
		return nil
	}

	return &reportdraft.Location{
		Latitude:   l.Latitude + (l.rnd.Float64()-0.5)*2*l.Jitter,
		Longitude:  l.Longitude + (l.rnd.Float64()-0.5)*2*l.Jitter,
		CapturedAt: l.now(),
	}
}
