// Package mediatime provides a rational media timestamp with an explicit
// invalid sentinel, so "no time available" is never confused with time zero.
package mediatime

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"
)

// NanosecondTimescale is the timescale used by FromDuration.
const NanosecondTimescale int32 = 1_000_000_000

// Time is a media time expressed as Value/Timescale seconds.
// The zero value of Time is Invalid.
type Time struct {
	value     int64
	timescale int32
	valid     bool
}

var (
	// Invalid marks a time or duration that the producer could not supply.
	Invalid = Time{}

	// Zero is a valid time at the origin of the media timeline.
	Zero = Time{value: 0, timescale: 1, valid: true}
)

// ErrInvalidTime is returned by operations that need a valid operand.
var ErrInvalidTime = errors.New("mediatime: invalid time")

// New returns a valid time of value/timescale seconds.
// A non-positive timescale yields Invalid.
func New(value int64, timescale int32) Time {
	if timescale <= 0 {
		return Invalid
	}
	return Time{value: value, timescale: timescale, valid: true}
}

// FromDuration converts a wall-clock duration to a nanosecond-scaled time.
func FromDuration(d time.Duration) Time {
	return New(int64(d), NanosecondTimescale)
}

// IsValid reports whether t carries a meaningful value.
func (t Time) IsValid() bool { return t.valid }

// Value returns the numerator. It is 0 for Invalid.
func (t Time) Value() int64 { return t.value }

// Timescale returns the denominator. It is 0 for Invalid.
func (t Time) Timescale() int32 { return t.timescale }

// Seconds returns t in seconds and false when t is invalid.
func (t Time) Seconds() (float64, bool) {
	if !t.valid {
		return 0, false
	}
	return float64(t.value) / float64(t.timescale), true
}

// Duration converts t to a time.Duration, saturating on overflow.
func (t Time) Duration() (time.Duration, bool) {
	if !t.valid {
		return 0, false
	}
	n := new(big.Int).Mul(big.NewInt(t.value), big.NewInt(int64(time.Second)))
	n.Quo(n, big.NewInt(int64(t.timescale)))
	switch {
	case n.IsInt64():
		return time.Duration(n.Int64()), true
	case n.Sign() > 0:
		return time.Duration(math.MaxInt64), true
	default:
		return time.Duration(math.MinInt64), true
	}
}

// Equal reports whether t and u denote the same instant. Two invalid times are equal.
func (t Time) Equal(u Time) bool {
	if !t.valid || !u.valid {
		return t.valid == u.valid
	}
	return t.Compare(u) == 0
}

// Compare orders valid times by value. Invalid sorts before every valid time.
func (t Time) Compare(u Time) int {
	switch {
	case !t.valid && !u.valid:
		return 0
	case !t.valid:
		return -1
	case !u.valid:
		return 1
	}
	// cross-multiply in big.Int to avoid overflow
	l := new(big.Int).Mul(big.NewInt(t.value), big.NewInt(int64(u.timescale)))
	r := new(big.Int).Mul(big.NewInt(u.value), big.NewInt(int64(t.timescale)))
	return l.Cmp(r)
}

// Add returns t+u on the timescale of t. Adding to or from Invalid is an error.
func (t Time) Add(u Time) (Time, error) {
	if !t.valid || !u.valid {
		return Invalid, ErrInvalidTime
	}
	n := big.NewInt(u.value)
	if t.timescale != u.timescale {
		n.Mul(n, big.NewInt(int64(t.timescale)))
		n.Quo(n, big.NewInt(int64(u.timescale)))
	}
	n.Add(n, big.NewInt(t.value))
	if !n.IsInt64() {
		return Invalid, fmt.Errorf("mediatime: add overflows timescale %d", t.timescale)
	}
	return New(n.Int64(), t.timescale), nil
}

// String renders "invalid" or "value/timescale".
func (t Time) String() string {
	if !t.valid {
		return "invalid"
	}
	return fmt.Sprintf("%d/%d", t.value, t.timescale)
}

type wireTime struct {
	Value     int64 `json:"value" yaml:"value"`
	Timescale int32 `json:"timescale" yaml:"timescale"`
}

// MarshalJSON encodes Invalid as null.
func (t Time) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return []byte("null"), nil
	}
	return json.Marshal(wireTime{Value: t.value, Timescale: t.timescale})
}

// UnmarshalJSON decodes null to Invalid.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Invalid
		return nil
	}
	var w wireTime
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("mediatime: %w", err)
	}
	if w.Timescale <= 0 {
		return fmt.Errorf("mediatime: timescale must be positive, got %d", w.Timescale)
	}
	*t = New(w.Value, w.Timescale)
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (t Time) MarshalYAML() (interface{}, error) {
	if !t.valid {
		return nil, nil
	}
	return wireTime{Value: t.value, Timescale: t.timescale}, nil
}
