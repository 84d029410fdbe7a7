package profit

import (
	"fmt"
	"iter"
	"time"

	"github.com/aristath/investlog/internal/domain"
)

// DateRange is an inclusive, ascending range of calendar dates.
// The zero value is empty.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewDateRange validates both ends. A start after end yields an empty range.
func NewDateRange(start, end string) (DateRange, error) {
	if err := domain.ValidateDate(start); err != nil {
		return DateRange{}, err
	}
	if err := domain.ValidateDate(end); err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: start, End: end}, nil
}

// Dates yields every date of the range in ascending order. The sequence is
// produced lazily and can be ranged over any number of times.
func (r DateRange) Dates() iter.Seq[string] {
	return func(yield func(string) bool) {
		start, err := domain.ParseDate(r.Start)
		if err != nil {
			return
		}
		end, err := domain.ParseDate(r.End)
		if err != nil {
			return
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(domain.FormatDate(d)) {
				return
			}
		}
	}
}

// From returns the part of the range starting at date.
func (r DateRange) From(date string) DateRange {
	if date < r.Start {
		date = r.Start
	}
	return DateRange{Start: date, End: r.End}
}

// Len returns the number of dates in the range.
func (r DateRange) Len() int {
	start, err := domain.ParseDate(r.Start)
	if err != nil {
		return 0
	}
	end, err := domain.ParseDate(r.End)
	if err != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}
