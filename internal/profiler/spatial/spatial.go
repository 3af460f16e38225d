// Package spatial computes bounding-box coverage and geohash indexing for
// lat/long pairs, WKT points, geocoded addresses, and administrative-area
// bounds.
package spatial

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/VIDA-NYU/datamart-profiler/internal/geocoder"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/kmeans"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/types"
)

// NRanges is the maximum number of bounding-box clusters emitted per
// point set.
const NRanges = 3

// MinRangeSize is the minimum fraction of points a cluster must hold to
// be emitted.
const MinRangeSize = 0.10

// RangeDeltaLong/RangeDeltaLat inflate degenerate (point/line) envelopes
// so downstream spatial indexes can tessellate them.
const (
	RangeDeltaLong = 0.0001
	RangeDeltaLat  = 0.0001
)

// AdminMinExtent is the minimum degrees of extent (per axis) an
// aggregated admin-area envelope must have to be emitted.
const AdminMinExtent = 0.01

// MaxUnresolvedRatio is the fraction of non-empty addresses allowed to
// remain unresolved before a column's geocoding results are discarded.
const MaxUnresolvedRatio = 0.20

// minPointsPerCluster gates how many clusters are even attempted: k is
// only raised above 1 once there are enough points that a cluster could
// plausibly be more than a single outlier. Without this, a handful of
// points (k == point count) always yields one singleton cluster per
// point, and MinRangeSize's ratio filter (10% of a tiny N) never rejects
// any of them, so small point sets fragment into up to 3 single-point
// envelopes instead of one envelope enclosing all of them.
const minPointsPerCluster = 4

// pickK chooses how many clusters to request for n points: the largest
// k in [1, NRanges] such that each cluster could hold at least
// minPointsPerCluster points on average.
func pickK(n int) int {
	k := NRanges
	for k > 1 && n < k*minPointsPerCluster {
		k--
	}
	return k
}

// Point is a (lat, long) pair.
type Point struct {
	Lat, Long float64
}

// Ranges clusters points with 2-D k-means (k = pickK(len(points))),
// drops clusters under MinRangeSize, and emits up to NRanges envelopes
// sorted ascending (matching the Python implementation's `ranges.sort()`
// over [[min_lon,max_lat],[max_lon,min_lat]] coordinate lists).
func Ranges(points []Point, seed int64) []schema.SpatialRange {
	if len(points) == 0 {
		return nil
	}
	k := pickK(len(points))

	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Long}
	}
	clusters := kmeans.Run(coords, k, seed)

	var envelopes []schema.Envelope
	for _, c := range clusters {
		if float64(len(c.Members))/float64(len(points)) < MinRangeSize {
			continue
		}
		members := make([]Point, len(c.Members))
		for i, idx := range c.Members {
			members[i] = points[idx]
		}

		sort.Slice(members, func(i, j int) bool { return members[i].Lat < members[j].Lat })
		minIdx := int(0.05 * float64(len(members)))
		maxIdx := int(0.95 * float64(len(members)))
		if maxIdx >= len(members) {
			maxIdx = len(members) - 1
		}
		minLat, maxLat := members[minIdx].Lat, members[maxIdx].Lat

		sort.Slice(members, func(i, j int) bool { return members[i].Long < members[j].Long })
		minLong, maxLong := members[minIdx].Long, members[maxIdx].Long

		envelopes = append(envelopes, schema.Envelope{
			MinLon: minLong, MaxLat: maxLat, MaxLon: maxLong, MinLat: minLat,
		})
	}

	sort.Slice(envelopes, func(i, j int) bool {
		if envelopes[i].MinLon != envelopes[j].MinLon {
			return envelopes[i].MinLon < envelopes[j].MinLon
		}
		return envelopes[i].MaxLat < envelopes[j].MaxLat
	})

	out := make([]schema.SpatialRange, len(envelopes))
	for i, e := range envelopes {
		if e.MinLon == e.MaxLon {
			e.MinLon -= RangeDeltaLong
			e.MaxLon += RangeDeltaLong
		}
		if e.MinLat == e.MaxLat {
			e.MaxLat += RangeDeltaLat
			e.MinLat -= RangeDeltaLat
		}
		out[i] = schema.NewSpatialRange(e)
	}
	return out
}

// LatLongColumn is a latitude or longitude column identified by name and
// index, carrying its numeric values.
type LatLongColumn struct {
	Name   string
	Index  int
	Values []float64
}

// Pair is a matched latitude/longitude column pair.
type Pair struct {
	Lat, Long LatLongColumn
}

var latTokens = []string{"latitude", "lat", "ycoord", "y_coord"}
var lonTokens = []string{"longitude", "long", "lon", "lng", "xcoord", "x_coord"}

// NormalizeColumnName strips the first matching lat/long token substring
// from a lowercased, trimmed column name.
func NormalizeColumnName(name string, tokens []string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, tok := range tokens {
		if idx := strings.Index(name, tok); idx >= 0 {
			return name[:idx] + name[idx+len(tok):]
		}
	}
	return name
}

// PairLatLongColumns matches latitude columns to longitude columns by
// normalized name, returning matched pairs and the columns left over on
// each side (which lose their latitude/longitude semantic type).
func PairLatLongColumns(lats, longs []LatLongColumn) (pairs []Pair, missedLat, missedLong []LatLongColumn) {
	normalizedLat := map[string]int{}
	for i, c := range lats {
		normalizedLat[NormalizeColumnName(c.Name, latTokens)] = i
	}

	used := map[int]bool{}
	for _, c := range longs {
		norm := NormalizeColumnName(c.Name, lonTokens)
		if i, ok := normalizedLat[norm]; ok && !used[i] {
			pairs = append(pairs, Pair{Lat: lats[i], Long: c})
			used[i] = true
			continue
		}
		missedLong = append(missedLong, c)
	}
	for i, c := range lats {
		if !used[i] {
			missedLat = append(missedLat, c)
		}
	}
	return pairs, missedLat, missedLong
}

// ParseWKTColumn parses WKT POINT-literal strings into lat/long pairs,
// dropping values that fail to parse or fall outside the valid range.
func ParseWKTColumn(values []string) []Point {
	var out []Point
	for _, v := range values {
		if p, ok := ParseWKTPoint(v); ok {
			out = append(out, p)
		}
	}
	return out
}

// ParseWKTPoint extracts a single lat/long pair from a WKT POINT literal
// such as "POINT (-73.98 40.75)".
func ParseWKTPoint(value string) (Point, bool) {
	m := types.WKTPointRE.FindStringSubmatch(value)
	if m == nil {
		return Point{}, false
	}
	x, errX := strconv.ParseFloat(m[1], 64)
	y, errY := strconv.ParseFloat(m[2], 64)
	if errX != nil || errY != nil {
		return Point{}, false
	}
	if x > -180.0 && x < 180.0 && y > -90.0 && y < 90.0 {
		return Point{Lat: y, Long: x}, true
	}
	return Point{}, false
}

// ResolveAddressColumn geocodes a text column's non-date-time values and
// decides whether the resulting coverage is reliable enough to keep. It
// returns the resolved points and true if the column should carry the
// `address` semantic type.
func ResolveAddressColumn(ctx context.Context, client geocoder.Client, values []string) ([]Point, bool) {
	if client == nil {
		return nil, false
	}
	resolved, nonEmpty, err := geocoder.ResolveAll(ctx, client, values)
	if err != nil || nonEmpty == 0 {
		return nil, false
	}
	unresolvedRatio := float64(nonEmpty-len(resolved)) / float64(nonEmpty)
	if unresolvedRatio > MaxUnresolvedRatio {
		return nil, false
	}
	points := make([]Point, len(resolved))
	for i, p := range resolved {
		points[i] = Point{Lat: p.Lat, Long: p.Lon}
	}
	return points, true
}

// AdminBounds is the pre-known bounding envelope of a resolved
// administrative area.
type AdminBounds struct {
	Name string
	schema.Envelope
}

// AggregateAdminBounds unions the bounds of resolved admin areas and
// returns an envelope only if its extent exceeds AdminMinExtent in each
// axis (suppressing point-like aggregates).
func AggregateAdminBounds(bounds []AdminBounds) (schema.Envelope, bool) {
	if len(bounds) == 0 {
		return schema.Envelope{}, false
	}
	env := bounds[0].Envelope
	for _, b := range bounds[1:] {
		if b.MinLon < env.MinLon {
			env.MinLon = b.MinLon
		}
		if b.MaxLon > env.MaxLon {
			env.MaxLon = b.MaxLon
		}
		if b.MinLat < env.MinLat {
			env.MinLat = b.MinLat
		}
		if b.MaxLat > env.MaxLat {
			env.MaxLat = b.MaxLat
		}
	}
	if env.MaxLon-env.MinLon <= AdminMinExtent || env.MaxLat-env.MinLat <= AdminMinExtent {
		return schema.Envelope{}, false
	}
	return env, true
}
