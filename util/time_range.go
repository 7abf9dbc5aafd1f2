package util

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// TimeRange is an inclusive range of unix timestamps in seconds. A nil bound
// leaves that side of the range open.
type TimeRange struct {
	From *int64 `bson:"from,omitempty" json:"from,omitempty" yaml:"from,omitempty"`
	To   *int64 `bson:"to,omitempty" json:"to,omitempty" yaml:"to,omitempty"`
}

func (t TimeRange) IsValid() bool { return t.From == nil || t.To == nil || *t.From <= *t.To }

// Check returns true if the given timestamp is within the TimeRange
// (inclusive) and false otherwise.
func (t TimeRange) Check(ts int64) bool {
	if t.From != nil && ts < *t.From {
		return false
	}
	if t.To != nil && ts > *t.To {
		return false
	}
	return true
}

// ParseTimestamp parses a base-10 unix timestamp. The empty string produces a
// nil bound.
func ParseTimestamp(in string) (*int64, error) {
	if in == "" {
		return nil, nil
	}

	ts, err := strconv.ParseInt(in, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "problem parsing timestamp '%s'", in)
	}

	return &ts, nil
}

// InvalidBoundError reports which bound of a time range could not be parsed.
type InvalidBoundError struct {
	Bound string
	Err   error
}

func (e *InvalidBoundError) Error() string {
	return fmt.Sprintf("invalid '%s' bound: %s", e.Bound, e.Err)
}

// GetTimeRange builds a time range from two optional timestamp strings. A
// parse failure resolves, via errors.Cause, to an *InvalidBoundError naming
// the bound ("from" or "to").
func GetTimeRange(from, to string) (TimeRange, error) {
	var (
		tr  TimeRange
		err error
	)

	if tr.From, err = ParseTimestamp(from); err != nil {
		return TimeRange{}, errors.WithStack(&InvalidBoundError{Bound: "from", Err: err})
	}
	if tr.To, err = ParseTimestamp(to); err != nil {
		return TimeRange{}, errors.WithStack(&InvalidBoundError{Bound: "to", Err: err})
	}

	return tr, nil
}
