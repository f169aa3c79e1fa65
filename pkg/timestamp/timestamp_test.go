package timestamp

import (
	"math"
	"testing"
	"time"
)

// Test constants
var (
	testTime    = time.Date(2023, 1, 15, 12, 30, 45, 500000000, time.UTC)
	testTimeSec = 1673785845.5
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestNow(t *testing.T) {
	before := float64(time.Now().UnixNano()) / float64(time.Second)
	ts := Now()
	after := float64(time.Now().UnixNano()) / float64(time.Second)

	if ts < before || ts > after {
		t.Errorf("Now() = %f, expected between %f and %f", ts, before, after)
	}
}

func TestFromTime(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected float64
	}{
		{"normal time", testTime, testTimeSec},
		{"zero time", time.Time{}, 0},
		{"unix epoch", time.Unix(0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromTime(tt.input)
			if !almostEqual(result, tt.expected) {
				t.Errorf("FromTime(%v) = %f, expected %f", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToTime(t *testing.T) {
	result := ToTime(testTimeSec)
	if !result.Equal(testTime) {
		t.Errorf("ToTime(%f) = %v, expected %v", testTimeSec, result, testTime)
	}

	if !ToTime(0).IsZero() {
		t.Error("ToTime(0) should return the zero time")
	}
}

func TestRoundTrip(t *testing.T) {
	orig := time.Now()
	back := ToTime(FromTime(orig))

	// Float seconds keep microsecond precision comfortably.
	if d := orig.Sub(back); d > time.Microsecond || d < -time.Microsecond {
		t.Errorf("round trip drifted by %v", d)
	}
}

func TestOptional(t *testing.T) {
	if Optional(nil) != nil {
		t.Error("Optional(nil) should be nil")
	}

	zero := time.Time{}
	if Optional(&zero) != nil {
		t.Error("Optional of zero time should be nil")
	}

	v := Optional(&testTime)
	sec, ok := v.(float64)
	if !ok {
		t.Fatalf("Optional should return float64, got %T", v)
	}
	if !almostEqual(sec, testTimeSec) {
		t.Errorf("Optional = %f, expected %f", sec, testTimeSec)
	}
}

func TestUptime(t *testing.T) {
	if Uptime(time.Time{}) != 0 {
		t.Error("Uptime of zero time should be 0")
	}

	start := time.Now().Add(-2 * time.Second)
	up := Uptime(start)
	if up < 2 || up > 3 {
		t.Errorf("Uptime = %f, expected ~2s", up)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected float64
	}{
		{"nil", nil, 0},
		{"zero float", float64(0), 0},
		{"epoch seconds float", testTimeSec, testTimeSec},
		{"epoch milliseconds float", 1673785845500.0, testTimeSec},
		{"epoch seconds int64", int64(1673785845), 1673785845},
		{"epoch milliseconds int64", int64(1673785845500), testTimeSec},
		{"int", int(1673785845), 1673785845},
		{"rfc3339 string", "2023-01-15T12:30:45Z", 1673785845},
		{"numeric string", "1673785845.5", testTimeSec},
		{"empty string", "", 0},
		{"garbage string", "not a time", 0},
		{"time.Time", testTime, testTimeSec},
		{"unsupported type", []string{"x"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			if !almostEqual(result, tt.expected) {
				t.Errorf("Parse(%v) = %f, expected %f", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParsePointer(t *testing.T) {
	var nilTime *time.Time
	if Parse(nilTime) != 0 {
		t.Error("Parse of nil *time.Time should be 0")
	}

	if !almostEqual(Parse(&testTime), testTimeSec) {
		t.Error("Parse of *time.Time should match FromTime")
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero(0) {
		t.Error("IsZero(0) should be true")
	}
	if IsZero(testTimeSec) {
		t.Error("IsZero of a real timestamp should be false")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(testTimeSec); err != nil {
		t.Errorf("Validate of a current timestamp should pass: %v", err)
	}
	if err := Validate(-1); err == nil {
		t.Error("Validate should reject negative timestamps")
	}
	if err := Validate(4e10); err == nil {
		t.Error("Validate should reject far-future timestamps")
	}
}
