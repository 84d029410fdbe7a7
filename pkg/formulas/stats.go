package formulas

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation.
// Fewer than two points have no spread.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// MaxDrawdown returns the largest peak-to-trough decline of a value series
// as a positive percentage.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	peak := values[0]
	maxDD := 0.0
	for _, v := range values[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Extremes returns the indices of the minimum and maximum value.
// Both are -1 for an empty slice.
func Extremes(data []float64) (minIdx, maxIdx int) {
	if len(data) == 0 {
		return -1, -1
	}
	return floats.MinIdx(data), floats.MaxIdx(data)
}
