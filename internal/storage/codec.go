package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

// EncodeRecordJSON serializes the photo list and location of a record for
// the JSON columns of the SQL backends. A nil location encodes to nil.
func EncodeRecordJSON(rec reportdraft.Record) (photos []byte, location []byte, err error) {
	list := rec.Photos
	if list == nil {
		list = []reportdraft.Photo{}
	}
	photos, err = json.Marshal(list)
	if err != nil {
		return nil, nil, fmt.Errorf("encode photos: %w", err)
	}

	if rec.Location != nil {
		location, err = json.Marshal(rec.Location)
		if err != nil {
			return nil, nil, fmt.Errorf("encode location: %w", err)
		}
	}
	return photos, location, nil
}

// DecodeRecordJSON is the inverse of EncodeRecordJSON.
func DecodeRecordJSON(rec *reportdraft.Record, photos []byte, location []byte) error {
	rec.Photos = []reportdraft.Photo{}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &rec.Photos); err != nil {
			return fmt.Errorf("decode photos: %w", err)
		}
	}

	rec.Location = nil
	if len(location) > 0 && string(location) != "null" {
		var loc reportdraft.Location
		if err := json.Unmarshal(location, &loc); err != nil {
			return fmt.Errorf("decode location: %w", err)
		}
		rec.Location = &loc
	}
	return nil
}
