package temporal

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, layout, v string) time.Time {
	t.Helper()
	tm, err := time.Parse(layout, v)
	if err != nil {
		t.Fatalf("parse %q: %v", v, err)
	}
	return tm
}

func TestInferResolutionDay(t *testing.T) {
	dts := []time.Time{
		mustParse(t, "2006-01-02", "2020-01-01"),
		mustParse(t, "2006-01-02", "2020-01-02"),
		mustParse(t, "2006-01-02", "2020-02-15"),
		mustParse(t, "2006-01-02", "2020-03-30"),
	}
	if got, want := InferResolution(dts), Day; got != want {
		t.Fatalf("InferResolution() = %q, want %q", got, want)
	}
}

func TestInferResolutionSecond(t *testing.T) {
	dts := []time.Time{
		mustParse(t, time.RFC3339, "2020-01-01T10:00:01Z"),
		mustParse(t, time.RFC3339, "2020-01-01T10:00:37Z"),
		mustParse(t, time.RFC3339, "2020-01-01T10:01:05Z"),
	}
	if got, want := InferResolution(dts), Second; got != want {
		t.Fatalf("InferResolution() = %q, want %q", got, want)
	}
}

func TestInferResolutionYear(t *testing.T) {
	dts := []time.Time{
		mustParse(t, "2006-01-02", "2018-01-01"),
		mustParse(t, "2006-01-02", "2019-01-01"),
		mustParse(t, "2006-01-02", "2020-01-01"),
	}
	if got, want := InferResolution(dts), Year; got != want {
		t.Fatalf("InferResolution() = %q, want %q", got, want)
	}
}

func TestInferResolutionEmpty(t *testing.T) {
	if got := InferResolution(nil); got != "" {
		t.Fatalf("InferResolution(nil) = %q, want empty", got)
	}
}

func TestRangesDelegatesToNumerical(t *testing.T) {
	timestamps := []float64{1577836800, 1577836801, 1577836802, 1893456000, 1893456001}
	ranges := Ranges(timestamps, 89)
	if len(ranges) == 0 {
		t.Fatal("expected at least one temporal range")
	}
}

func TestHistogramPlotFormatsISODates(t *testing.T) {
	timestamps := make([]float64, 20)
	for i := range timestamps {
		timestamps[i] = float64(1577836800 + i*86400)
	}
	plot := HistogramPlot(timestamps)
	if plot == nil {
		t.Fatal("expected a histogram plot")
	}
	if plot.Type != "histogram_temporal" {
		t.Fatalf("plot.Type = %q, want histogram_temporal", plot.Type)
	}
	if plot.Data[0].DateStart == "" {
		t.Fatal("expected a non-empty DateStart")
	}
}
