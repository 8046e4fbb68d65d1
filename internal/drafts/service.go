package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fdg312/incident-hub/internal/capture"
	"github.com/fdg312/incident-hub/internal/geo"
	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/reports"
)

var (
	ErrFieldTooLong     = errors.New("field too long")
	ErrTooManyPhotos    = errors.New("too many photos")
	ErrInvalidPhoto     = errors.New("invalid photo")
	ErrUnknownSource    = errors.New("unknown capture source")
	ErrSubmitInProgress = errors.New("submission in progress")
	ErrCaptureCancelled = errors.New("capture cancelled")
)

// LimitError reports which field exceeded its limit.
type LimitError struct {
	Field string
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s must be at most %d characters", e.Field, e.Max)
}

func (e *LimitError) Unwrap() error {
	return ErrFieldTooLong
}

type Logger interface {
	Printf(format string, v ...any)
}

// ReportSubmitter stores submitted records. *reports.Service implements it.
type ReportSubmitter interface {
	Submit(ctx context.Context, owner string, rec reportdraft.Record) (*reports.Report, error)
	ReceiptURL(ctx context.Context, report *reports.Report, baseURL string) (string, error)
}

// Options configures a Service.
type Options struct {
	Limits          Limits
	LocationTimeout time.Duration
	LocateOnStart   bool // fill the location of a new session's draft
	IDs             reportdraft.IDGenerator
	Clock           reportdraft.Clock
	Logger          Logger
	// SessionIdleTTL drops drafts untouched for longer. Defaults to 24h.
	SessionIdleTTL time.Duration
}

// DefaultSessionIdleTTL is used when Options.SessionIdleTTL is zero.
const DefaultSessionIdleTTL = 24 * time.Hour

// pruneEvery is the number of session lookups between idle sweeps.
const pruneEvery = 1000

type session struct {
	mu         sync.Mutex
	draft      *reportdraft.Draft
	submitting bool

	lastUsed time.Time // guarded by Service.mu
}

// Service keeps one draft per session. Calls for the same session are
// serialized; a pending submit blocks every other edit of that session.
type Service struct {
	reports  ReportSubmitter
	source   capture.Source
	location geo.Provider
	opts     Options

	mu       sync.Mutex
	sessions map[string]*session
	lookups  int
}

func NewService(submitter ReportSubmitter, source capture.Source, location geo.Provider, opts Options) *Service {
	if opts.Limits.TitleMax <= 0 {
		opts.Limits.TitleMax = DefaultLimits.TitleMax
	}
	if opts.Limits.DescriptionMax <= 0 {
		opts.Limits.DescriptionMax = DefaultLimits.DescriptionMax
	}
	if opts.LocationTimeout <= 0 {
		opts.LocationTimeout = geo.DefaultTimeout
	}
	if opts.IDs == nil {
		opts.IDs = reportdraft.UUIDGenerator{}
	}
	if opts.Clock == nil {
		opts.Clock = reportdraft.SystemClock{}
	}
	if opts.SessionIdleTTL <= 0 {
		opts.SessionIdleTTL = DefaultSessionIdleTTL
	}

	return &Service{
		reports:  submitter,
		source:   source,
		location: location,
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Limits returns the effective input limits.
func (s *Service) Limits() Limits {
	return s.opts.Limits
}

func (s *Service) session(ctx context.Context, owner string) *session {
	now := s.opts.Clock.Now()

	s.mu.Lock()
	sess, ok := s.sessions[owner]
	if !ok {
		sess = &session{draft: reportdraft.New()}
		s.sessions[owner] = sess
	}
	sess.lastUsed = now
	s.lookups++
	if s.lookups%pruneEvery == 0 {
		s.pruneIdle(now)
	}
	s.mu.Unlock()

	if !ok && s.opts.LocateOnStart {
		s.refreshIfEmpty(ctx, owner, sess)
	}
	return sess
}

// pruneIdle drops sessions idle for longer than SessionIdleTTL. A session
// that is locked or submitting is kept. Caller holds s.mu.
func (s *Service) pruneIdle(now time.Time) int {
	dropped := 0
	for owner, sess := range s.sessions {
		if now.Sub(sess.lastUsed) <= s.opts.SessionIdleTTL || !sess.mu.TryLock() {
			continue
		}
		if !sess.submitting {
			delete(s.sessions, owner)
			dropped++
		}
		sess.mu.Unlock()
	}
	if dropped > 0 {
		s.logf("INFO drafts: pruned idle_sessions=%d remaining=%d", dropped, len(s.sessions))
	}
	return dropped
}

// edit runs fn with the session locked, unless a submit is pending.
func (s *Service) edit(ctx context.Context, owner string, fn func(d *reportdraft.Draft) error) (Snapshot, error) {
	sess := s.session(ctx, owner)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.submitting {
		return snapshot(sess), ErrSubmitInProgress
	}
	if err := fn(sess.draft); err != nil {
		return snapshot(sess), err
	}
	return snapshot(sess), nil
}

// Get returns the owner's draft, creating an empty one on first use.
func (s *Service) Get(ctx context.Context, owner string) Snapshot {
	sess := s.session(ctx, owner)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshot(sess)
}

func (s *Service) SetTitle(ctx context.Context, owner, text string) (Snapshot, error) {
	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		if utf8.RuneCountInString(text) > s.opts.Limits.TitleMax {
			return &LimitError{Field: reportdraft.FieldTitle, Max: s.opts.Limits.TitleMax}
		}
		d.SetTitle(text)
		return nil
	})
}

func (s *Service) SetDescription(ctx context.Context, owner, text string) (Snapshot, error) {
	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		if utf8.RuneCountInString(text) > s.opts.Limits.DescriptionMax {
			return &LimitError{Field: reportdraft.FieldDescription, Max: s.opts.Limits.DescriptionMax}
		}
		d.SetDescription(text)
		return nil
	})
}

// AddPhoto appends a photo supplied by the client.
func (s *Service) AddPhoto(ctx context.Context, owner string, photo reportdraft.Photo) (Snapshot, error) {
	if strings.TrimSpace(photo.URI) == "" || photo.Width < 0 || photo.Height < 0 {
		return s.Get(ctx, owner), ErrInvalidPhoto
	}
	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		return s.addPhoto(d, photo)
	})
}

func (s *Service) addPhoto(d *reportdraft.Draft, photo reportdraft.Photo) error {
	if s.opts.Limits.MaxPhotos > 0 && d.PhotoCount() >= s.opts.Limits.MaxPhotos {
		return fmt.Errorf("%w: limit is %d", ErrTooManyPhotos, s.opts.Limits.MaxPhotos)
	}
	d.AddPhoto(photo)
	return nil
}

// Capture asks the capture source for a photo and appends it. quality <= 0
// keeps the original size. A cancelled capture returns ErrCaptureCancelled
// and leaves the draft as it was.
func (s *Service) Capture(ctx context.Context, owner, source string, quality float64) (Snapshot, error) {
	sess := s.session(ctx, owner)

	sess.mu.Lock()
	busy := sess.submitting
	sess.mu.Unlock()
	if busy {
		return s.Get(ctx, owner), ErrSubmitInProgress
	}

	var (
		photo *reportdraft.Photo
		err   error
	)
	switch source {
	case SourceCamera:
		photo, err = s.source.CaptureFromCamera(ctx)
	case SourceGallery:
		photo, err = s.source.PickFromGallery(ctx)
	default:
		return s.Get(ctx, owner), fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if err != nil {
		return s.Get(ctx, owner), err
	}
	if photo == nil {
		return s.Get(ctx, owner), ErrCaptureCancelled
	}

	p := *photo
	if quality > 0 {
		p = capture.Compress(p, quality)
	}

	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		return s.addPhoto(d, p)
	})
}

func (s *Service) RemovePhoto(ctx context.Context, owner string, index int) (Snapshot, error) {
	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		return d.RemovePhoto(index)
	})
}

func (s *Service) SetLocation(ctx context.Context, owner string, loc *reportdraft.Location) (Snapshot, error) {
	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		d.SetLocation(loc)
		return nil
	})
}

// RefreshLocation replaces the draft location with the current position.
// On failure the draft is unchanged and the error wraps geo.ErrLocationUnavailable.
func (s *Service) RefreshLocation(ctx context.Context, owner string) (Snapshot, error) {
	sess := s.session(ctx, owner)

	loc, locErr := geo.Locate(ctx, s.location, s.opts.LocationTimeout)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.submitting {
		return snapshot(sess), ErrSubmitInProgress
	}
	if locErr != nil {
		return snapshot(sess), locErr
	}
	sess.draft.SetLocation(&loc)
	return snapshot(sess), nil
}

// Validate checks the draft without recording the result.
func (s *Service) Validate(ctx context.Context, owner string) reportdraft.FieldErrors {
	sess := s.session(ctx, owner)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.draft.Validate()
}

// Reset discards the owner's draft.
func (s *Service) Reset(ctx context.Context, owner string) (Snapshot, error) {
	return s.edit(ctx, owner, func(d *reportdraft.Draft) error {
		d.Reset()
		return nil
	})
}

// Submit validates the draft and hands the record to the report store. On
// validation errors the errors are recorded on the draft and a
// *reportdraft.ValidationError is returned. After a successful submit the
// draft is reset and its location refreshed best-effort.
func (s *Service) Submit(ctx context.Context, owner string) (*reports.Report, error) {
	sess := s.session(ctx, owner)

	sess.mu.Lock()
	if sess.submitting {
		sess.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if errs := sess.draft.RecordValidation(); len(errs) > 0 {
		sess.mu.Unlock()
		return nil, &reportdraft.ValidationError{Fields: errs}
	}
	rec, err := sess.draft.Submit(s.opts.IDs, s.opts.Clock)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	sess.submitting = true
	sess.mu.Unlock()

	report, err := s.reports.Submit(ctx, owner, rec)

	sess.mu.Lock()
	sess.submitting = false
	if err != nil {
		sess.mu.Unlock()
		return nil, fmt.Errorf("failed to submit report: %w", err)
	}
	sess.draft.Reset()
	sess.mu.Unlock()

	s.logf("INFO drafts: submitted report_id=%s owner=%s photos=%d", rec.ID, owner, len(rec.Photos))
	s.refreshIfEmpty(ctx, owner, sess)

	return report, nil
}

// ReceiptURL resolves the download URL of a report returned by Submit.
func (s *Service) ReceiptURL(ctx context.Context, report *reports.Report, baseURL string) string {
	url, err := s.reports.ReceiptURL(ctx, report, baseURL)
	if err != nil {
		return ""
	}
	return url
}

func (s *Service) refreshIfEmpty(ctx context.Context, owner string, sess *session) {
	if s.location == nil {
		return
	}

	loc, err := geo.Locate(ctx, s.location, s.opts.LocationTimeout)
	if err != nil {
		s.logf("WARN drafts: location_refresh_failed owner=%s err=%v", owner, err)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.draft.Location() == nil && !sess.submitting {
		sess.draft.SetLocation(&loc)
	}
}

func (s *Service) logf(format string, v ...any) {
	if s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Printf(format, v...)
}

func snapshot(sess *session) Snapshot {
	d := sess.draft
	return Snapshot{
		Title:       d.Title(),
		Description: d.Description(),
		Photos:      d.Photos(),
		Location:    d.Location(),
		Errors:      d.Errors(),
		Submitting:  sess.submitting,
	}
}
