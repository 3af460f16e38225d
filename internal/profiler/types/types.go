// Package types classifies a column's structural type and detects its
// semantic types from sampled cell values.
package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// structuralTypeThreshold is the fraction of non-empty cells that must
// parse as a given structural type for the column to be classified as
// such. The source (`profile_types.py`) was not retrieved; this value is
// a reconstruction from spec.md's "majority rule" wording, recorded as an
// Open Question resolution in DESIGN.md.
const structuralTypeThreshold = 0.9

// categoricalRatioThreshold is the cardinality/row-count ratio below which
// a text column is considered categorical. Same reconstruction caveat as
// structuralTypeThreshold.
const categoricalRatioThreshold = 0.5

// idMaxTextLength bounds how long a text value may be to still qualify as
// a candidate unique identifier.
const idMaxTextLength = 32

// WKTPointRE matches the `(x y)` or `(x,y)` tail of a WKT POINT literal,
// e.g. "POINT (-73.98 40.75)". Exported so internal/profiler/spatial,
// which owns full WKT-to-lat/long extraction, can reuse the same pattern.
var WKTPointRE = regexp.MustCompile(
	`\((-?[0-9]{1,3}\.[0-9]{1,15})(?:,| |, )(-?[0-9]{1,3}\.[0-9]{1,15})\)$`,
)

// AdminResolver looks up administrative-area matches for a column of
// candidate place names or codes. Implemented by internal/georef.
type AdminResolver interface {
	Resolve(columnName string, values []string) (level int, areas []string, resolved int)
}

// AdminBoundsResolver looks up the pre-known bounding envelope of resolved
// administrative-area names, used by the spatial analyzer to aggregate
// admin-column coverage. Implemented by internal/georef.
type AdminBoundsResolver interface {
	Bounds(names []string) (map[string]schema.Envelope, error)
}

// Auxiliary carries data resolved while detecting types, cached by the
// orchestrator for reuse by the temporal and spatial analyzers.
type Auxiliary struct {
	Datetimes  []time.Time
	Timestamps []float64
	AdminLevel int
	AdminAreas []string
}

// Result is the full output of Detect for one column.
type Result struct {
	StructuralType string
	SemanticTypes  *schema.SemanticTypeSet
	Aux            Auxiliary
}

// Detect classifies a single column's structural and semantic types.
// resolver may be nil, in which case admin detection is skipped.
func Detect(columnName string, values []string, resolver AdminResolver, manual *schema.ManualColumnAnnotation) Result {
	res := Result{SemanticTypes: schema.NewSemanticTypeSet()}

	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}

	res.StructuralType = detectStructuralType(nonEmpty)

	if dts, ok := detectDateTime(nonEmpty); ok {
		res.SemanticTypes.Add(schema.DateTime)
		res.Aux.Datetimes = dts
		res.Aux.Timestamps = make([]float64, len(dts))
		for i, dt := range dts {
			res.Aux.Timestamps[i] = float64(dt.Unix())
		}
	}

	isCategorical := detectCategorical(nonEmpty)
	if isCategorical {
		res.SemanticTypes.Add(schema.Categorical)
	}

	isID := detectID(nonEmpty)
	if isID {
		res.SemanticTypes.Add(schema.ID)
	}

	if detectBoolean(nonEmpty) {
		res.SemanticTypes.Add(schema.Boolean)
	}

	if res.StructuralType == schema.Text && !(isCategorical || isID) {
		res.SemanticTypes.Add(schema.SemText)
	} else if res.StructuralType == schema.Text && (isCategorical != isID) {
		// Co-occurrence with exactly one of categorical/id still gets a
		// text tag: only the combination of *both* suppresses it, per
		// "not purely categorical/ID".
		res.SemanticTypes.Add(schema.SemText)
	}

	if lat, lon, ok := detectLatLong(columnName, nonEmpty); ok {
		if lat {
			res.SemanticTypes.Add(schema.Latitude)
		}
		if lon {
			res.SemanticTypes.Add(schema.Longitude)
		}
	}

	if resolver != nil && res.StructuralType == schema.Text {
		if level, areas, resolved := resolver.Resolve(columnName, nonEmpty); resolved > 0 {
			res.SemanticTypes.Add(schema.Admin)
			res.Aux.AdminLevel = level
			res.Aux.AdminAreas = areas
		}
	}

	if manual != nil {
		applyManual(&res, manual)
	}

	return res
}

func applyManual(res *Result, manual *schema.ManualColumnAnnotation) {
	if manual.StructuralType != "" {
		res.StructuralType = manual.StructuralType
	}
	if len(manual.SemanticTypes) > 0 {
		res.SemanticTypes = schema.NewSemanticTypeSet()
		for _, t := range manual.SemanticTypes {
			res.SemanticTypes.Add(t)
		}
	}
}

func detectStructuralType(values []string) string {
	if len(values) == 0 {
		return schema.Missing
	}
	counts := map[string]int{}
	for _, v := range values {
		if isInteger(v) {
			counts[schema.Integer]++
		} else if isFloat(v) {
			counts[schema.Float]++
		} else if WKTPointRE.MatchString(v) {
			counts[schema.GeoPoint]++
		}
	}
	total := float64(len(values))
	for _, t := range []string{schema.Integer, schema.Float, schema.GeoPoint} {
		if float64(counts[t])/total >= structuralTypeThreshold {
			return t
		}
	}
	return schema.Text
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	time.RFC1123,
}

func detectDateTime(values []string) ([]time.Time, bool) {
	if len(values) == 0 {
		return nil, false
	}
	parsed := make([]time.Time, 0, len(values))
	ok := 0
	for _, v := range values {
		t, found := parseDateTime(v)
		if found {
			ok++
			parsed = append(parsed, t)
		}
	}
	if float64(ok)/float64(len(values)) >= structuralTypeThreshold {
		return parsed, true
	}
	return nil, false
}

func parseDateTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func detectCategorical(values []string) bool {
	if len(values) == 0 {
		return false
	}
	distinct := map[string]struct{}{}
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	ratio := float64(len(distinct)) / float64(len(values))
	return ratio < categoricalRatioThreshold
}

func detectID(values []string) bool {
	if len(values) == 0 {
		return false
	}
	distinct := map[string]struct{}{}
	for _, v := range values {
		if len(v) > idMaxTextLength {
			return false
		}
		distinct[v] = struct{}{}
	}
	return len(distinct) == len(values)
}

func detectBoolean(values []string) bool {
	if len(values) == 0 {
		return false
	}
	distinct := map[string]struct{}{}
	for _, v := range values {
		distinct[strings.ToLower(v)] = struct{}{}
	}
	return len(distinct) == 2
}

var latTokens = []string{"latitude", "lat", "ycoord", "y_coord", "y"}
var lonTokens = []string{"longitude", "long", "lon", "lng", "xcoord", "x_coord", "x"}

func detectLatLong(columnName string, values []string) (lat bool, lon bool, ok bool) {
	if len(values) == 0 {
		return false, false, false
	}
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return false, false, false
		}
		if f < -180 || f > 180 {
			return false, false, false
		}
	}
	normalized := normalizeColumnName(columnName)
	isLat := matchesAnyToken(normalized, latTokens)
	isLon := matchesAnyToken(normalized, lonTokens)
	if !isLat && !isLon {
		return false, false, false
	}
	if isLat {
		for _, v := range values {
			f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if f < -90 || f > 90 {
				return false, false, false
			}
		}
	}
	return isLat, isLon, true
}

func matchesAnyToken(normalized string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(normalized, tok) {
			return true
		}
	}
	return false
}

func normalizeColumnName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
