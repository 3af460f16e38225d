package spatial

import (
	"context"
	"errors"
	"testing"

	"github.com/VIDA-NYU/datamart-profiler/internal/geocoder"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

func TestRangesSeparatesClusters(t *testing.T) {
	// Eight points give k = pickK(8) = 2, so each far-apart group of four
	// forms its own cluster.
	points := []Point{
		{Lat: 40.70, Long: -73.90},
		{Lat: 40.71, Long: -73.91},
		{Lat: 40.72, Long: -73.92},
		{Lat: 40.73, Long: -73.93},
		{Lat: 34.05, Long: -118.25},
		{Lat: 34.06, Long: -118.26},
		{Lat: 34.07, Long: -118.27},
		{Lat: 34.08, Long: -118.28},
	}
	ranges := Ranges(points, 89)
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
}

func TestRangesCapsAtThreeClusters(t *testing.T) {
	points := make([]Point, 0, 30)
	for i := 0; i < 10; i++ {
		points = append(points, Point{Lat: 40.0 + float64(i)*0.001, Long: -73.0})
		points = append(points, Point{Lat: 10.0 + float64(i)*0.001, Long: 10.0})
		points = append(points, Point{Lat: -30.0 + float64(i)*0.001, Long: 150.0})
	}
	ranges := Ranges(points, 89)
	if len(ranges) > NRanges {
		t.Fatalf("got %d ranges, want at most %d", len(ranges), NRanges)
	}
}

func TestRangesInflatesDegenerateEnvelope(t *testing.T) {
	points := []Point{{Lat: 10, Long: 10}, {Lat: 10, Long: 10}, {Lat: 10, Long: 10}}
	ranges := Ranges(points, 89)
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	env := ranges[0].Envelope()
	if env.MinLon == env.MaxLon || env.MinLat == env.MaxLat {
		t.Fatalf("degenerate envelope not inflated: %+v", env)
	}
}

func TestNormalizeColumnName(t *testing.T) {
	cases := []struct{ name, want string }{
		{"pickup_latitude", "pickup_"},
		{"Longitude", ""},
		{"y_coord", ""},
	}
	for _, c := range cases {
		tokens := latTokens
		if c.name == "Longitude" {
			tokens = lonTokens
		}
		if got := NormalizeColumnName(c.name, tokens); got != c.want {
			t.Errorf("NormalizeColumnName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestPairLatLongColumns(t *testing.T) {
	lats := []LatLongColumn{{Name: "pickup_latitude", Index: 0}, {Name: "orphan_lat", Index: 2}}
	longs := []LatLongColumn{{Name: "pickup_longitude", Index: 1}}

	pairs, missedLat, missedLong := PairLatLongColumns(lats, longs)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].Lat.Index != 0 || pairs[0].Long.Index != 1 {
		t.Fatalf("unexpected pair: %+v", pairs[0])
	}
	if len(missedLat) != 1 || missedLat[0].Name != "orphan_lat" {
		t.Fatalf("missedLat = %+v, want [orphan_lat]", missedLat)
	}
	if len(missedLong) != 0 {
		t.Fatalf("missedLong = %+v, want none", missedLong)
	}
}

func TestParseWKTPoint(t *testing.T) {
	p, ok := ParseWKTPoint("POINT (-73.98 40.75)")
	if !ok {
		t.Fatal("expected a parsed point")
	}
	if p.Long != -73.98 || p.Lat != 40.75 {
		t.Fatalf("got %+v, want lat=40.75 long=-73.98", p)
	}
}

func TestParseWKTPointRejectsOutOfRange(t *testing.T) {
	if _, ok := ParseWKTPoint("POINT (200.0 40.75)"); ok {
		t.Fatal("expected out-of-range longitude to be rejected")
	}
}

func TestParseWKTColumnDropsInvalid(t *testing.T) {
	// "POINT (0 0)" has no fractional digits, which WKTPointRE requires.
	values := []string{"POINT (-73.98 40.75)", "not a point", "POINT (0 0)"}
	points := ParseWKTColumn(values)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
}

func TestHashLocationDecodeHashRoundTrip(t *testing.T) {
	p := Point{Lat: 40.7484, Long: -73.9857}
	hash, err := HashLocation(p, 32, 8)
	if err != nil {
		t.Fatalf("HashLocation error: %v", err)
	}
	if len(hash) != 8 {
		t.Fatalf("hash length = %d, want 8", len(hash))
	}
	rect, err := DecodeHash(hash, 32)
	if err != nil {
		t.Fatalf("DecodeHash error: %v", err)
	}
	if p.Lat < rect.MinLat || p.Lat > rect.MaxLat || p.Long < rect.MinLong || p.Long > rect.MaxLong {
		t.Fatalf("decoded rect %+v does not contain original point %+v", rect, p)
	}
}

func TestHashLocationRejectsNonPowerOfTwoBase(t *testing.T) {
	if _, err := HashLocation(Point{}, 10, 5); err == nil {
		t.Fatal("expected error for non-power-of-2 base")
	}
}

func envelope(minLon, maxLat, maxLon, minLat float64) schema.Envelope {
	return schema.Envelope{MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon, MinLat: minLat}
}

func TestAggregateAdminBounds(t *testing.T) {
	bounds := []AdminBounds{
		{Name: "a", Envelope: envelope(-74.1, 40.9, -73.9, 40.6)},
		{Name: "b", Envelope: envelope(-74.3, 41.0, -74.0, 40.7)},
	}
	env, ok := AggregateAdminBounds(bounds)
	if !ok {
		t.Fatal("expected an aggregated envelope")
	}
	if env.MinLon != -74.3 || env.MaxLat != 41.0 {
		t.Fatalf("unexpected union: %+v", env)
	}
}

func TestAggregateAdminBoundsSuppressesPointLike(t *testing.T) {
	bounds := []AdminBounds{
		{Name: "a", Envelope: envelope(-74.0001, 40.0001, -74.0, 40.0)},
	}
	if _, ok := AggregateAdminBounds(bounds); ok {
		t.Fatal("expected point-like aggregate to be suppressed")
	}
}

func TestResolveAddressColumnNilClient(t *testing.T) {
	points, ok := ResolveAddressColumn(context.Background(), nil, []string{"a"})
	if ok || points != nil {
		t.Fatal("nil client should yield no resolution")
	}
}

func TestResolveAddressColumnDiscardsWhenMostlyUnresolved(t *testing.T) {
	// Verifies wiring only: a failing client should not produce
	// "resolved" output.
	errClient := errGeocoder{}
	points, ok := ResolveAddressColumn(context.Background(), errClient, []string{"a", "b"})
	if ok || points != nil {
		t.Fatalf("expected no resolution on error, got points=%v ok=%v", points, ok)
	}
}

type errGeocoder struct{}

func (errGeocoder) Query(ctx context.Context, q []string) ([]*geocoder.Point, error) {
	return nil, errors.New("boom")
}
