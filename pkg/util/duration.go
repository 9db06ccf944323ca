package util

import (
	"encoding/json"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Duration is a time.Duration that is stored in configuration files as
// a string in the format accepted by time.ParseDuration() (e.g.,
// "1m30s").
type Duration struct {
	time.Duration
}

// UnmarshalJSON parses a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return status.Errorf(codes.InvalidArgument, "Duration must be a string: %s", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "Invalid duration %#v: %s", s, err)
	}
	if v < 0 {
		return status.Errorf(codes.InvalidArgument, "Duration %#v is negative", s)
	}
	d.Duration = v
	return nil
}

// MarshalJSON converts the duration back to its string format.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// GetOrDefault returns the duration, or a default value if the
// duration is zero.
func (d Duration) GetOrDefault(defaultValue time.Duration) time.Duration {
	if d.Duration == 0 {
		return defaultValue
	}
	return d.Duration
}
