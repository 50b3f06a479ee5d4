package demand

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a series for display: the busiest bucket and the mean
// count per bucket.
type Summary struct {
	Peak      int     `json:"peak"`
	PeakIndex int     `json:"peak_index"`
	Mean      float64 `json:"mean"`
}

// Summarize returns the zero Summary for an empty series. Ties for the
// peak resolve to the earliest bucket.
func Summarize(s Series) Summary {
	if len(s.Counts) == 0 {
		return Summary{}
	}
	values := make([]float64, len(s.Counts))
	for i, c := range s.Counts {
		values[i] = float64(c)
	}
	idx := floats.MaxIdx(values)
	return Summary{
		Peak:      s.Counts[idx],
		PeakIndex: idx,
		Mean:      stat.Mean(values, nil),
	}
}
