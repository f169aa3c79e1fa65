// Package timestamp provides standardized epoch timestamp handling for the
// bridge wire protocol.
//
// The protocol expresses every time value (envelope timestamps, created_at,
// last_executed, execution_time) as float64 seconds since the Unix epoch,
// fractional part carrying sub-second precision. This package keeps that
// convention in one place so the rest of the codebase works with time.Time
// and converts only at the wire boundary.
//
// Zero Value Semantics:
//   - A timestamp value of 0 means "not set" or "unknown"
//   - Functions handle zero values gracefully, returning appropriate defaults
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// Now returns the current time as epoch seconds.
func Now() float64 {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to epoch seconds.
func FromTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

// ToTime converts epoch seconds to time.Time.
// Returns zero time if the timestamp is 0.
func ToTime(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(sec*float64(time.Second)))
}

// Optional converts an optional time into a JSON-ready value: nil for an
// unset time, epoch seconds otherwise. Used for fields like last_executed
// that the protocol renders as null until first set.
func Optional(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return FromTime(*t)
}

// Uptime returns the seconds elapsed since start, as the wire expects it.
// Returns 0 for a zero start time.
func Uptime(start time.Time) float64 {
	if start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

// Parse converts various timestamp representations to epoch seconds.
// Supports:
//   - float64 / int64 / int (assumed milliseconds if > 1e11, otherwise seconds)
//   - string (RFC3339 or a numeric epoch string)
//   - time.Time and *time.Time
//   - nil/zero values (returns 0)
//
// Returns 0 for invalid input or parsing errors. Snapshot decoding relies on
// this leniency: hosts serialize created_at/last_executed with whatever
// numeric type their JSON encoder picked.
func Parse(input any) float64 {
	if input == nil {
		return 0
	}

	switch v := input.(type) {
	case float64:
		if v == 0 {
			return 0
		}
		// Epoch seconds run ~1.7e9 this century; anything past 1e11 must be
		// milliseconds from a host that counts that way.
		if v > 1e11 {
			return v / 1000
		}
		return v

	case int64:
		return Parse(float64(v))

	case int:
		return Parse(float64(v))

	case int32:
		return Parse(float64(v))

	case string:
		if v == "" {
			return 0
		}

		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return FromTime(t)
		}

		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			return Parse(sec)
		}

		return 0

	case time.Time:
		return FromTime(v)

	case *time.Time:
		if v == nil {
			return 0
		}
		return FromTime(*v)

	default:
		return 0
	}
}

// IsZero checks if a timestamp is unset (zero).
func IsZero(sec float64) bool {
	return sec == 0
}

// Validate checks if a timestamp is valid (non-negative and reasonable).
// Returns an error if the timestamp is negative or unreasonably far in the
// future (past year 3000).
func Validate(sec float64) error {
	if sec < 0 {
		return fmt.Errorf("timestamp cannot be negative: %f", sec)
	}
	if sec > 32503680000 {
		return fmt.Errorf("timestamp too far in future: %f", sec)
	}
	return nil
}
