// Package charts provides chart series derived from the daily profit records
// and the price snapshots.
package charts

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  string  `json:"time"`  // YYYY-MM-DD, YYYY-W## or YYYY-MM
	Value float64 `json:"value"` // Total value or close price
}

// Grouping of a series into buckets.
const (
	GroupDay   = "day"
	GroupWeek  = "week"
	GroupMonth = "month"
)

// RecordSource provides daily profit records in ascending date order.
type RecordSource interface {
	GetRange(ctx context.Context, start, end string) ([]domain.DailyProfit, error)
}

// SnapshotSource provides the snapshots of one symbol in ascending date order.
type SnapshotSource interface {
	GetRange(ctx context.Context, symbol, start, end string) ([]domain.PriceSnapshot, error)
}

// Service provides chart data operations
type Service struct {
	records   RecordSource
	snapshots SnapshotSource
	log       zerolog.Logger
}

// NewService creates a new charts service
func NewService(records RecordSource, snapshots SnapshotSource, log zerolog.Logger) *Service {
	return &Service{
		records:   records,
		snapshots: snapshots,
		log:       log.With().Str("service", "charts").Logger(),
	}
}

// MarketValueHistory returns the portfolio total value over start..end.
// With week or month grouping each bucket keeps its last value, which is
// the value at the end of that period.
func (s *Service) MarketValueHistory(ctx context.Context, start, end, groupBy string) ([]ChartDataPoint, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	if err := validateGroup(groupBy); err != nil {
		return nil, err
	}

	records, err := s.records.GetRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily records: %w", err)
	}

	points := make([]ChartDataPoint, 0, len(records))
	for _, r := range records {
		points = append(points, ChartDataPoint{Time: r.Date, Value: r.TotalValue})
	}

	s.log.Debug().
		Str("start", start).
		Str("end", end).
		Str("group", groupBy).
		Int("points", len(points)).
		Msg("Built market value history")

	return groupLast(points, groupBy), nil
}

// SymbolPriceHistory returns the snapshot prices of symbol over start..end.
func (s *Service) SymbolPriceHistory(ctx context.Context, symbol, start, end, groupBy string) ([]ChartDataPoint, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol cannot be empty", domain.ErrInvalidInput)
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	if err := validateGroup(groupBy); err != nil {
		return nil, err
	}

	snapshots, err := s.snapshots.GetRange(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}

	points := make([]ChartDataPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, ChartDataPoint{Time: snap.Date, Value: snap.Price})
	}
	return groupLast(points, groupBy), nil
}

// groupLast collapses ascending daily points into week (ISO) or month
// buckets, keeping the last point of each bucket.
func groupLast(points []ChartDataPoint, groupBy string) []ChartDataPoint {
	if groupBy == "" || groupBy == GroupDay {
		return points
	}

	var grouped []ChartDataPoint
	for _, p := range points {
		period := bucket(p.Time, groupBy)
		if period == "" {
			continue
		}
		if n := len(grouped); n > 0 && grouped[n-1].Time == period {
			grouped[n-1].Value = p.Value
			continue
		}
		grouped = append(grouped, ChartDataPoint{Time: period, Value: p.Value})
	}
	if grouped == nil {
		grouped = []ChartDataPoint{}
	}
	return grouped
}

func bucket(date, groupBy string) string {
	if groupBy == GroupWeek {
		t, err := time.Parse(domain.DateLayout, date)
		if err != nil {
			return ""
		}
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	// Monthly: "2024-01-15" -> "2024-01"
	if len(date) < 7 {
		return ""
	}
	return date[:7]
}

func validateRange(start, end string) error {
	if err := domain.ValidateDate(start); err != nil {
		return err
	}
	if err := domain.ValidateDate(end); err != nil {
		return err
	}
	if start > end {
		return fmt.Errorf("%w: start %s is after end %s", domain.ErrInvalidInput, start, end)
	}
	return nil
}

func validateGroup(groupBy string) error {
	switch groupBy {
	case "", GroupDay, GroupWeek, GroupMonth:
		return nil
	}
	return fmt.Errorf("%w: invalid grouping %q (must be day, week or month)", domain.ErrInvalidInput, groupBy)
}

// ResolveRange converts a range string ("1M", "3M", "6M", "1Y", "5Y", "all")
// into a start date ending today. "all" and "" start at since.
func ResolveRange(rangeStr string, today time.Time, since string) (string, error) {
	var start time.Time

	switch rangeStr {
	case "all", "":
		return since, nil
	case "1M":
		start = today.AddDate(0, -1, 0)
	case "3M":
		start = today.AddDate(0, -3, 0)
	case "6M":
		start = today.AddDate(0, -6, 0)
	case "1Y":
		start = today.AddDate(-1, 0, 0)
	case "5Y":
		start = today.AddDate(-5, 0, 0)
	default:
		return "", fmt.Errorf("%w: invalid range %q", domain.ErrInvalidInput, rangeStr)
	}

	return domain.FormatDate(start), nil
}
