package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseLocation(t *testing.T) {
	obj := `{"latitude":52.52,"longitude":13.405,"timestamp":"2025-01-01T09:00:00.000Z","accuracy":12.5}`
	str, _ := json.Marshal(obj)

	cases := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"object", obj, nil},
		{"encoded string", string(str), nil},
		{"zero coordinates", `{"latitude":0,"longitude":0,"timestamp":"2025-01-01T09:00:00Z","accuracy":0}`, nil},
		{"empty", ``, ErrLocationMissing},
		{"null", `null`, ErrLocationMissing},
		{"empty string", `""`, ErrLocationMissing},
		{"not json", `"{oops"`, ErrLocationFormat},
		{"missing accuracy", `{"latitude":1,"longitude":1,"timestamp":"2025-01-01T09:00:00Z"}`, ErrLocationStructure},
		{"latitude high", `{"latitude":90.01,"longitude":1,"timestamp":"2025-01-01T09:00:00Z","accuracy":5}`, ErrLatitude},
		{"latitude low", `{"latitude":-91,"longitude":1,"timestamp":"2025-01-01T09:00:00Z","accuracy":5}`, ErrLatitude},
		{"longitude high", `{"latitude":1,"longitude":180.5,"timestamp":"2025-01-01T09:00:00Z","accuracy":5}`, ErrLongitude},
		{"longitude low", `{"latitude":1,"longitude":-181,"timestamp":"2025-01-01T09:00:00Z","accuracy":5}`, ErrLongitude},
		{"negative accuracy", `{"latitude":1,"longitude":1,"timestamp":"2025-01-01T09:00:00Z","accuracy":-1}`, ErrAccuracy},
		{"bad timestamp", `{"latitude":1,"longitude":1,"timestamp":"yesterday","accuracy":5}`, ErrLocationTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLocation(json.RawMessage(tc.raw))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestLocationBoundsInclusive(t *testing.T) {
	for _, l := range []Location{
		{Latitude: 90, Longitude: 180, Timestamp: "2025-01-01T09:00:00Z"},
		{Latitude: -90, Longitude: -180, Timestamp: "2025-01-01T09:00:00Z"},
	} {
		if err := l.Validate(); err != nil {
			t.Fatalf("%+v rejected: %v", l, err)
		}
	}
}

func TestLocationEncodeRoundTrip(t *testing.T) {
	in := Location{Latitude: 1.5, Longitude: -2.25, Timestamp: "2025-01-01T09:00:00Z", Accuracy: 3}
	out, err := DecodeLocation(in.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}
