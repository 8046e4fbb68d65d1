package reportdraft

import (
	"fmt"
	"strings"
)

// Draft holds the in-progress report form of one editing session.
// It is not safe for concurrent use; the owner serializes access.
type Draft struct {
	title       string
	description string
	photos      []Photo
	location    *Location
	errors      FieldErrors
}

// New returns an empty draft.
func New() *Draft {
	return &Draft{errors: FieldErrors{}}
}

func (d *Draft) Title() string       { return d.title }
func (d *Draft) Description() string { return d.description }
func (d *Draft) PhotoCount() int     { return len(d.photos) }

// Photos returns a copy of the photo sequence in insertion order.
func (d *Draft) Photos() []Photo {
	return clonePhotos(d.photos)
}

// Location returns a copy of the draft location, nil when unset.
func (d *Draft) Location() *Location {
	return cloneLocation(d.location)
}

// Errors returns the validation errors recorded by the last RecordValidation,
// minus the fields edited since.
func (d *Draft) Errors() FieldErrors {
	return d.errors.Clone()
}

// SetTitle replaces the title and clears its recorded error.
func (d *Draft) SetTitle(text string) {
	d.title = text
	d.clearError(FieldTitle)
}

// SetDescription replaces the description and clears its recorded error.
func (d *Draft) SetDescription(text string) {
	d.description = text
	d.clearError(FieldDescription)
}

// AddPhoto appends a photo. The first photo carrying a location supplies the
// draft location when none is set yet.
func (d *Draft) AddPhoto(p Photo) {
	p = clonePhoto(p)
	d.photos = append(d.photos, p)

	if d.location == nil && p.Location != nil {
		d.location = cloneLocation(p.Location)
	}
}

// RemovePhoto removes the photo at index, keeping the order of the rest.
// The draft location is left as is.
func (d *Draft) RemovePhoto(index int) error {
	if index < 0 || index >= len(d.photos) {
		return fmt.Errorf("%w: index %d, have %d photos", ErrIndexOutOfRange, index, len(d.photos))
	}

	photos := make([]Photo, 0, len(d.photos)-1)
	photos = append(photos, d.photos[:index]...)
	photos = append(photos, d.photos[index+1:]...)
	d.photos = photos
	return nil
}

// SetLocation overrides the draft location; nil clears it.
func (d *Draft) SetLocation(loc *Location) {
	d.location = cloneLocation(loc)
}

// Validate checks the required fields. It has no side effects.
func (d *Draft) Validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(d.title) == "" {
		errs[FieldTitle] = MsgTitleRequired
	}
	if strings.TrimSpace(d.description) == "" {
		errs[FieldDescription] = MsgDescriptionRequired
	}
	if len(d.photos) == 0 {
		errs[FieldPhotos] = MsgPhotosRequired
	}

	return errs
}

// RecordValidation validates and keeps the result as the draft's recorded errors.
func (d *Draft) RecordValidation() FieldErrors {
	errs := d.Validate()
	d.errors = errs.Clone()
	return errs
}

// Submit turns a valid draft into a Record. On validation errors it returns a
// *ValidationError and leaves the draft untouched. The record owns copies of
// the photos and location, so later edits of the draft do not reach it.
func (d *Draft) Submit(ids IDGenerator, clock Clock) (Record, error) {
	if errs := d.Validate(); len(errs) > 0 {
		return Record{}, &ValidationError{Fields: errs}
	}

	return Record{
		ID:          ids.NewID(),
		Title:       d.title,
		Description: d.description,
		Photos:      clonePhotos(d.photos),
		Location:    cloneLocation(d.location),
		SubmittedAt: clock.Now(),
		Status:      StatusSubmitted,
	}, nil
}

// Reset empties the draft.
func (d *Draft) Reset() {
	d.title = ""
	d.description = ""
	d.photos = nil
	d.location = nil
	d.errors = FieldErrors{}
}

func (d *Draft) clearError(field string) {
	if d.errors == nil {
		d.errors = FieldErrors{}
		return
	}
	delete(d.errors, field)
}
