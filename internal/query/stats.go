package query

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of one cohort's expression row.
type Summary struct {
	Mean float64
	SEM  float64 // NaN when fewer than two values
	N    int     // values used; missing values are dropped
}

// SEMDefined reports whether the standard error could be computed.
func (s Summary) SEMDefined() bool {
	return !math.IsNaN(s.SEM)
}

// Summarize computes the mean and standard error of the mean of the
// non-missing values. The standard error uses the unbiased sample standard
// deviation (n-1 denominator). With no values the mean is NaN; with one value
// the SEM is NaN.
func Summarize(values []float64) Summary {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}

	s := Summary{Mean: math.NaN(), SEM: math.NaN(), N: len(xs)}
	if len(xs) == 0 {
		return s
	}
	s.Mean = stat.Mean(xs, nil)
	if len(xs) < 2 {
		return s
	}
	s.SEM = stat.StdErr(stat.StdDev(xs, nil), float64(len(xs)))
	return s
}
