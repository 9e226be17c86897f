package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order when decoding a Timestamp. Upstream
// APIs are not consistent about including a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp wraps time.Time to tolerate the formats bus APIs emit for
// "last update" fields. Empty strings and null decode to the zero time.
type Timestamp time.Time

// MarshalJSON serializes the Timestamp in RFC 3339 format.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if time.Time(ts).IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(time.Time(ts).Format(time.RFC3339))
}

// UnmarshalJSON parses any of the supported layouts.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = Timestamp(t)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Time returns the underlying time.Time value of the Timestamp.
func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}
