// Package temporal computes coverage ranges and resolution for date_time
// columns, reusing the numerical analyzer's clustering machinery over Unix
// timestamps.
package temporal

import (
	"time"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/numerical"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// ResolutionAlignmentThreshold is the fraction of values that must align
// to a granularity for it to be inferred as the column's resolution.
const ResolutionAlignmentThreshold = 0.90

// Resolution names, finest first.
const (
	Second = "second"
	Minute = "minute"
	Hour   = "hour"
	Day    = "day"
	Month  = "month"
	Year   = "year"
)

var granularities = []struct {
	name   string
	aligns func(time.Time) bool
}{
	{Second, func(t time.Time) bool { return true }},
	{Minute, func(t time.Time) bool { return t.Second() == 0 }},
	{Hour, func(t time.Time) bool { return t.Second() == 0 && t.Minute() == 0 }},
	{Day, func(t time.Time) bool { return t.Second() == 0 && t.Minute() == 0 && t.Hour() == 0 }},
	{Month, func(t time.Time) bool {
		return t.Second() == 0 && t.Minute() == 0 && t.Hour() == 0 && t.Day() == 1
	}},
	{Year, func(t time.Time) bool {
		return t.Second() == 0 && t.Minute() == 0 && t.Hour() == 0 && t.Day() == 1 && t.Month() == time.January
	}},
}

// Ranges clusters timestamps (Unix seconds) with the same 1-D k-means
// procedure the numerical analyzer uses over values.
func Ranges(timestamps []float64, seed int64) []schema.NumericalRange {
	return numerical.Ranges(timestamps, seed)
}

// InferResolution returns the finest granularity to which at least
// ResolutionAlignmentThreshold of datetimes align exactly.
func InferResolution(datetimes []time.Time) string {
	if len(datetimes) == 0 {
		return ""
	}
	best := Second
	for _, g := range granularities {
		aligned := 0
		for _, dt := range datetimes {
			if g.aligns(dt.UTC()) {
				aligned++
			}
		}
		if float64(aligned)/float64(len(datetimes)) >= ResolutionAlignmentThreshold {
			best = g.name
			continue
		}
		break
	}
	return best
}

// HistogramPlot builds the `histogram_temporal` plot block from Unix
// timestamps, with bin edges rendered as ISO-8601 UTC instants.
func HistogramPlot(timestamps []float64) *schema.Plot {
	counts, edges := numerical.Histogram(timestamps, numerical.HistogramBins)
	if counts == nil {
		return nil
	}
	bins := make([]schema.HistogramBin, len(counts))
	for i, c := range counts {
		bins[i] = schema.HistogramBin{
			Count:     c,
			DateStart: time.Unix(int64(edges[i]), 0).UTC().Format(time.RFC3339),
			DateEnd:   time.Unix(int64(edges[i+1]), 0).UTC().Format(time.RFC3339),
		}
	}
	return &schema.Plot{Type: "histogram_temporal", Data: bins}
}
