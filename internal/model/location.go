package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Location is a geolocation fix captured by the browser at clock-in or
// clock-out. It is persisted as JSON text.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
	Accuracy  float64 `json:"accuracy"`
}

var (
	ErrLocationMissing   = errors.New("location is required")
	ErrLocationFormat    = errors.New("invalid location JSON format")
	ErrLocationStructure = errors.New("invalid location data structure")
	ErrLatitude          = errors.New("invalid latitude")
	ErrLongitude         = errors.New("invalid longitude")
	ErrAccuracy          = errors.New("invalid accuracy")
	ErrLocationTimestamp = errors.New("invalid location timestamp")
)

// wireLocation uses pointers so absent fields can be told apart from zero.
type wireLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp *string  `json:"timestamp"`
	Accuracy  *float64 `json:"accuracy"`
}

// ParseLocation decodes a location payload. The payload may be the object
// itself or a JSON string holding the serialized object, which is what the
// browser client sends.
func ParseLocation(raw json.RawMessage) (Location, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Location{}, ErrLocationMissing
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Location{}, ErrLocationFormat
		}
		if s == "" {
			return Location{}, ErrLocationMissing
		}
		raw = []byte(s)
	}

	var w wireLocation
	if err := json.Unmarshal(raw, &w); err != nil {
		return Location{}, ErrLocationFormat
	}
	if w.Latitude == nil || w.Longitude == nil || w.Timestamp == nil || w.Accuracy == nil {
		return Location{}, ErrLocationStructure
	}
	loc := Location{
		Latitude:  *w.Latitude,
		Longitude: *w.Longitude,
		Timestamp: *w.Timestamp,
		Accuracy:  *w.Accuracy,
	}
	return loc, loc.Validate()
}

// Validate checks coordinate ranges, accuracy and the capture timestamp.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return ErrLatitude
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return ErrLongitude
	}
	if l.Accuracy < 0 {
		return ErrAccuracy
	}
	if _, err := time.Parse(time.RFC3339, l.Timestamp); err != nil {
		return ErrLocationTimestamp
	}
	return nil
}

// Encode serializes the location for storage.
func (l Location) Encode() string {
	b, _ := json.Marshal(l)
	return string(b)
}

// DecodeLocation reverses Encode.
func DecodeLocation(s string) (Location, error) {
	var l Location
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return Location{}, err
	}
	return l, nil
}
