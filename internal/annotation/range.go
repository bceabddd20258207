// Package annotation holds the annotation data model: time ranges, the raw
// persisted document, the identity-keyed store, and the mutations applied to it.
package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Range is a marked span of video time in seconds.
type Range struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

// InvalidRangeError rejects a range that is not finite with 0 <= start < end.
type InvalidRangeError struct {
	Start  float64
	End    float64
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range [%v, %v]: %s", e.Start, e.End, e.Reason)
}

// NewRange validates start and end.
func NewRange(start, end float64) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	switch {
	case math.IsNaN(r.Start) || math.IsInf(r.Start, 0) || math.IsNaN(r.End) || math.IsInf(r.End, 0):
		return &InvalidRangeError{Start: r.Start, End: r.End, Reason: "start and end must be finite numbers"}
	case r.Start < 0:
		return &InvalidRangeError{Start: r.Start, End: r.End, Reason: "start must not be negative"}
	case r.Start >= r.End:
		return &InvalidRangeError{Start: r.Start, End: r.End, Reason: "end must be greater than start"}
	}
	return nil
}

// Equal is exact structural equality. Ranges that differ only by float
// rounding are distinct.
func (r Range) Equal(o Range) bool {
	return r.Start == o.Start && r.End == o.End
}

// Duration returns End - Start.
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// UnmarshalJSON accepts the object form and the [start, end] pair written by
// early versions of the tool.
func (r *Range) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("decode range pair: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("decode range pair: want 2 values, got %d", len(pair))
		}
		r.Start, r.End = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Start *float64 `json:"start_time"`
		End   *float64 `json:"end_time"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode range: %w", err)
	}
	if obj.Start == nil || obj.End == nil {
		return fmt.Errorf("decode range: start_time and end_time are required")
	}
	r.Start, r.End = *obj.Start, *obj.End
	return nil
}

// appendUnique appends r unless an equal range is already present.
func appendUnique(list []Range, r Range) ([]Range, bool) {
	for _, existing := range list {
		if existing.Equal(r) {
			return list, false
		}
	}
	return append(list, r), true
}

// Dedupe returns list without structural duplicates, keeping first occurrences in order.
func Dedupe(list []Range) []Range {
	out := make([]Range, 0, len(list))
	for _, r := range list {
		out, _ = appendUnique(out, r)
	}
	return out
}
