package core

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// tukeyK is the IQR multiplier of the Tukey fences.
const tukeyK = 1.5

// Fences is the closed interval outside which a value counts as an outlier.
type Fences struct {
	Lower float64
	Upper float64
}

// Contains reports whether f lies within the fences.
func (f Fences) Contains(v float64) bool { return v >= f.Lower && v <= f.Upper }

// TukeyFences computes [Q1-1.5·IQR, Q3+1.5·IQR] over the column's present values.
// ok is false when the column has no present values.
func TukeyFences(c *Column) (Fences, bool) {
	values := c.Floats()
	if len(values) == 0 {
		return Fences{}, false
	}
	sort.Float64s(values)
	q1 := quantileSorted(values, 0.25)
	q3 := quantileSorted(values, 0.75)
	iqr := q3 - q1
	return Fences{Lower: finite(q1 - tukeyK*iqr), Upper: finite(q3 + tukeyK*iqr)}, true
}

// finite clamps ±Inf to the largest representable magnitude so fences of
// extreme columns stay serializable.
func finite(x float64) float64 {
	switch {
	case math.IsInf(x, 1):
		return math.MaxFloat64
	case math.IsInf(x, -1):
		return -math.MaxFloat64
	}
	return x
}

// isFinite reports whether x is neither NaN nor infinite.
func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// quantileSorted returns the p-quantile of sorted data by linear interpolation
// between closest ranks: h = (n-1)p, f = h - floor h, (1-f)x[floor h] + f x[floor h + 1].
// The weighted form avoids overflowing on the difference of extreme values.
func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	f := h - float64(lo)
	if f == 0 {
		return sorted[lo]
	}
	return (1-f)*sorted[lo] + f*sorted[lo+1]
}

// countOutliers returns how many present values fall outside the column's fences.
func countOutliers(c *Column) (int, Fences) {
	fences, ok := TukeyFences(c)
	if !ok {
		return 0, fences
	}
	n := 0
	for _, v := range c.Values {
		if v.Valid && !fences.Contains(v.Num) {
			n++
		}
	}
	return n, fences
}

// columnMean is the arithmetic mean of present values. ok is false when the
// sum overflows.
func columnMean(c *Column) (float64, bool) {
	m, err := stats.Mean(c.Floats())
	if err != nil || !isFinite(m) {
		return 0, false
	}
	return m, true
}

// columnMedian is the median of present values.
func columnMedian(c *Column) (float64, bool) {
	m, err := stats.Median(c.Floats())
	if err != nil || !isFinite(m) {
		return 0, false
	}
	return m, true
}

// columnMode returns the most frequent present value. Ties resolve to the
// smallest number or the lexicographically smallest string.
func columnMode(c *Column) (Value, bool) {
	if c.IsNumeric() {
		counts := make(map[float64]int)
		for _, v := range c.Values {
			if v.Valid {
				counts[v.Num]++
			}
		}
		best, bestN := 0.0, 0
		for f, n := range counts {
			if n > bestN || (n == bestN && f < best) {
				best, bestN = f, n
			}
		}
		return Number(best), bestN > 0
	}
	counts := valueCounts(c)
	best, bestN := "", 0
	for s, n := range counts {
		if n > bestN || (n == bestN && s < best) {
			best, bestN = s, n
		}
	}
	return Text(best), bestN > 0
}

// valueCounts tallies present categorical values.
func valueCounts(c *Column) map[string]int {
	counts := make(map[string]int)
	for _, v := range c.Values {
		if v.Valid {
			counts[v.Str]++
		}
	}
	return counts
}

// rareValues returns the set of values whose share of rows is below threshold.
func rareValues(c *Column, rows int, threshold float64) map[string]bool {
	rare := make(map[string]bool)
	if rows == 0 {
		return rare
	}
	for s, n := range valueCounts(c) {
		if float64(n)/float64(rows) < threshold {
			rare[s] = true
		}
	}
	return rare
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
