// Package numerical computes mean/stddev, histograms, and clustered value
// ranges for integer/float columns.
package numerical

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/kmeans"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// MinRangeSize is the minimum fraction of retained values a k-means
// cluster must hold to be emitted as a coverage range.
const MinRangeSize = 0.10

// MaxRanges is the maximum number of clusters considered (k ≤ 3).
const MaxRanges = 3

// minPointsPerCluster gates how many clusters are even attempted: k is
// only raised above 1 once there are enough values that a cluster could
// plausibly be more than a single outlier point. Without this, a handful
// of distinct values (k == distinct count) always yields one singleton
// cluster per value, and MinRangeSize's ratio filter (10% of a tiny N)
// never rejects any of them, so small inputs fragment into up to 3
// single-point ranges instead of one range spanning all of them.
const minPointsPerCluster = 4

// pickK chooses how many clusters to request for n values: the largest
// k in [1, MaxRanges] such that each cluster could hold at least
// minPointsPerCluster values on average.
func pickK(n int) int {
	k := MaxRanges
	for k > 1 && n < k*minPointsPerCluster {
		k--
	}
	return k
}

// HistogramBins is the number of equal-width bins in the numerical
// histogram plot.
const HistogramBins = 10

// esFloatLimit matches the overflow guard applied before values enter
// Elasticsearch's float field (`-3.4e38 < e < 3.4e38`).
const esFloatLimit = 3.4e38

// FilterFinite drops values that would overflow the search backend's
// float field, keeping only values with `-3.4e38 < e < 3.4e38`.
func FilterFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > -esFloatLimit && v < esFloatLimit {
			out = append(out, v)
		}
	}
	return out
}

// MeanStdDev returns the sample mean and (Bessel-corrected) standard
// deviation of values.
func MeanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.MeanStdDev(values, nil)
}

// Histogram builds an equal-width histogram over values, matching
// numpy.histogram's edge convention: len(edges) == len(counts)+1.
func Histogram(values []float64, bins int) (counts []int, edges []float64) {
	if len(values) == 0 || bins <= 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	edges = make([]float64, bins+1)
	if lo == hi {
		// Degenerate range: numpy widens a zero-width range by 0.5 on
		// each side so a single bin can still hold every value.
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}

	counts = make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return counts, edges
}

// HistogramPlot builds the `histogram_numerical` plot block for values.
func HistogramPlot(values []float64) *schema.Plot {
	counts, edges := Histogram(values, HistogramBins)
	if counts == nil {
		return nil
	}
	bins := make([]schema.HistogramBin, len(counts))
	for i, c := range counts {
		bins[i] = schema.HistogramBin{Count: c, BinStart: edges[i], BinEnd: edges[i+1]}
	}
	return &schema.Plot{Type: "histogram_numerical", Data: bins}
}

// Ranges clusters values with 1-D k-means (k = min(pickK(len(values)),
// distinct values)), drops clusters smaller than MinRangeSize of the retained
// values, and returns the 5th/95th-percentile bounds of each survivor.
func Ranges(values []float64, seed int64) []schema.NumericalRange {
	if len(values) == 0 {
		return nil
	}

	distinct := map[float64]struct{}{}
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	k := pickK(len(values))
	if len(distinct) < k {
		k = len(distinct)
	}
	if k == 0 {
		return nil
	}

	points := make([][]float64, len(values))
	for i, v := range values {
		points[i] = []float64{v}
	}
	clusters := kmeans.Run(points, k, seed)

	var out []schema.NumericalRange
	for _, c := range clusters {
		if float64(len(c.Members))/float64(len(values)) < MinRangeSize {
			continue
		}
		members := make([]float64, len(c.Members))
		for i, idx := range c.Members {
			members[i] = values[idx]
		}
		sort.Float64s(members)
		loIdx := int(0.05 * float64(len(members)))
		hiIdx := int(0.95 * float64(len(members)))
		if hiIdx >= len(members) {
			hiIdx = len(members) - 1
		}
		out = append(out, schema.NumericalRange{Range: schema.NumRangeBounds{GTE: members[loIdx], LTE: members[hiIdx]}})
	}
	return out
}
