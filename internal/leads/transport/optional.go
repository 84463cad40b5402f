package transport

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// OptionalInt64 distinguishes an absent field from an explicit null.
type OptionalInt64 struct {
	Value *int64
	Set   bool
}

func (o OptionalInt64) IsZero() bool {
	return !o.Set
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var parsed int64
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}

	o.Value = &parsed
	return nil
}

// OptionalDate distinguishes an absent date from an explicit null or "".
// Values are YYYY-MM-DD; a full RFC 3339 timestamp is accepted and
// truncated to its date.
type OptionalDate struct {
	Value *time.Time
	Set   bool
}

func (o OptionalDate) IsZero() bool {
	return !o.Set
}

func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		o.Value = nil
		return nil
	}

	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}

	o.Value = &parsed
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, raw)
		if tsErr != nil {
			return time.Time{}, err
		}
		parsed = ts
	}
	y, m, d := parsed.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
