// Package schema defines the dataset metadata document produced by a
// profiling run, matching the wire contract consumed by the search backend.
package schema

import "time"

// Structural types. A column carries exactly one.
const (
	Integer  = "integer"
	Float    = "float"
	Text     = "text"
	GeoPoint = "geo_point"
	Missing  = "missing"
)

// Semantic types. A column may carry any number of these.
const (
	DateTime    = "date_time"
	Categorical = "categorical"
	SemText     = "text"
	Latitude    = "latitude"
	Longitude   = "longitude"
	Admin       = "admin"
	Address     = "address"
	ID          = "id"
	Boolean     = "boolean"
)

// Dataset-level type tags, used for routing and plot recommendation.
const (
	DatasetNumerical   = "numerical"
	DatasetCategorical = "categorical"
	DatasetSpatial     = "spatial"
	DatasetTemporal    = "temporal"
)

// Spatial coverage entry kinds.
const (
	SpatialLatLong      = "latlong"
	SpatialPoint        = "point"
	SpatialPointLatLong = "point_latlong"
	SpatialAddress      = "address"
	SpatialAdmin        = "admin"
)

// Point formats for geo_point columns.
const (
	PointFormatLatLong = "lat,long"
	PointFormatLongLat = "long,lat"
)

// SemanticTypeSet is an ordered set of semantic type tags: insertion order
// is preserved (matching the original's list-based `semantic_types_dict`
// iteration order) and Add silently dedupes.
type SemanticTypeSet struct {
	order []string
	seen  map[string]bool
}

// NewSemanticTypeSet creates an empty semantic type set.
func NewSemanticTypeSet() *SemanticTypeSet {
	return &SemanticTypeSet{seen: make(map[string]bool)}
}

// Add inserts a semantic type if not already present.
func (s *SemanticTypeSet) Add(t string) {
	if s.seen[t] {
		return
	}
	s.seen[t] = true
	s.order = append(s.order, t)
}

// Remove deletes a semantic type if present.
func (s *SemanticTypeSet) Remove(t string) {
	if !s.seen[t] {
		return
	}
	delete(s.seen, t)
	for i, v := range s.order {
		if v == t {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Has reports whether t is present.
func (s *SemanticTypeSet) Has(t string) bool { return s.seen[t] }

// Slice returns the semantic types in insertion order.
func (s *SemanticTypeSet) Slice() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of semantic types.
func (s *SemanticTypeSet) Len() int { return len(s.order) }

// Lazo is the set-overlap sketch embedded in a column's metadata.
type Lazo struct {
	NPermutations int     `json:"n_permutations"`
	HashValues    []int64 `json:"hash_values"`
	Cardinality   int     `json:"cardinality"`
}

// HistogramBin is one bucket of a column's plot.
type HistogramBin struct {
	Count    int     `json:"count"`
	BinStart float64 `json:"bin_start,omitempty"`
	BinEnd   float64 `json:"bin_end,omitempty"`
	Bin      string  `json:"bin,omitempty"`
	DateStart string `json:"date_start,omitempty"`
	DateEnd   string `json:"date_end,omitempty"`
}

// Plot is a recommended histogram-style visualization for one column.
type Plot struct {
	Type string         `json:"type"`
	Data []HistogramBin `json:"data"`
}

// NumericalRange is a clustered value range, expressed in the envelope
// wire shape the search backend expects.
type NumericalRange struct {
	Range NumRangeBounds `json:"range"`
}

// NumRangeBounds carries the raw gte/lte bounds of a numerical range.
type NumRangeBounds struct {
	GTE float64 `json:"gte"`
	LTE float64 `json:"lte"`
}

// Column is one column of a profiled dataset, in input column order.
type Column struct {
	Name            string           `json:"name"`
	StructuralType  string           `json:"structural_type"`
	SemanticTypes   []string         `json:"semantic_types"`
	Mean            *float64         `json:"mean,omitempty"`
	StdDev          *float64         `json:"stddev,omitempty"`
	Coverage        []NumericalRange `json:"coverage,omitempty"`
	Plot            *Plot            `json:"plot,omitempty"`
	AdminAreaLevel  *int             `json:"admin_area_level,omitempty"`
	PointFormat     string           `json:"point_format,omitempty"`
	Lazo            *Lazo            `json:"lazo,omitempty"`
}

// Envelope is an axis-aligned bounding rectangle, expressed in the
// Elasticsearch `geo_shape` envelope coordinate order:
// [[min_lon,max_lat],[max_lon,min_lat]].
type Envelope struct {
	MinLon float64
	MaxLat float64
	MaxLon float64
	MinLat float64
}

// SpatialRange wraps one envelope in the wire "range" shape.
type SpatialRange struct {
	Range SpatialRangeShape `json:"range"`
}

// SpatialRangeShape is the geo_shape envelope body.
type SpatialRangeShape struct {
	Type        string       `json:"type"`
	Coordinates [2][2]float64 `json:"coordinates"`
}

// NewSpatialRange builds the wire shape for an Envelope.
func NewSpatialRange(e Envelope) SpatialRange {
	return SpatialRange{Range: SpatialRangeShape{
		Type: "envelope",
		Coordinates: [2][2]float64{
			{e.MinLon, e.MaxLat},
			{e.MaxLon, e.MinLat},
		},
	}}
}

// Envelope extracts the Envelope back out of the wire shape.
func (r SpatialRange) Envelope() Envelope {
	c := r.Range.Coordinates
	return Envelope{MinLon: c[0][0], MaxLat: c[0][1], MaxLon: c[1][0], MinLat: c[1][1]}
}

// SpatialCoverage is one source of spatial information (a lat/long pair, a
// WKT point column, resolved addresses, or aggregated admin-area bounds).
type SpatialCoverage struct {
	Type          string         `json:"type"`
	ColumnNames   []string       `json:"column_names"`
	ColumnIndexes []int          `json:"column_indexes"`
	Ranges        []SpatialRange `json:"ranges"`
}

// TemporalCoverage is the range and resolution of a date_time column.
type TemporalCoverage struct {
	Type               string           `json:"type"`
	ColumnNames        []string         `json:"column_names"`
	ColumnIndexes      []int            `json:"column_indexes"`
	ColumnTypes        []string         `json:"column_types"`
	Ranges             []NumericalRange `json:"ranges"`
	TemporalResolution string           `json:"temporal_resolution"`
}

// PlotRecommendation is one suggested chart derived from the typed schema.
type PlotRecommendation struct {
	NumericalColumn       string         `json:"numerical_column"`
	TemporalColumn        string         `json:"temporal_column,omitempty"`
	SpatialOrCategorical  string         `json:"spatial/categorical_column,omitempty"`
	GeneratedQuestion     string         `json:"generated_question"`
	Data                  map[string]any `json:"data"`
	Spec                  map[string]any `json:"spec"`
}

// ManualColumnAnnotation lets a caller override type detection for a column.
type ManualColumnAnnotation struct {
	Name           string   `json:"name"`
	StructuralType string   `json:"structural_type,omitempty"`
	SemanticTypes  []string `json:"semantic_types,omitempty"`
	LatLongPair    string   `json:"latlong_pair,omitempty"`
}

// ManualAnnotations is caller-supplied metadata that overrides detection.
type ManualAnnotations struct {
	Columns []ManualColumnAnnotation `json:"columns,omitempty"`
}

// Dataset is the full metadata document produced by a profiling run.
type Dataset struct {
	ID                   string                 `json:"id,omitempty"`
	Name                 string                 `json:"name,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Source               string                 `json:"source,omitempty"`
	Date                 time.Time              `json:"date"`
	Version              string                 `json:"version,omitempty"`
	Materialize          map[string]any         `json:"materialize,omitempty"`
	Size                 int64                  `json:"size,omitempty"`
	NBRows               int                    `json:"nb_rows"`
	NBProfiledRows       int                    `json:"nb_profiled_rows"`
	NBColumns            int                    `json:"nb_columns"`
	AverageRowSize       float64                `json:"average_row_size,omitempty"`
	NBSpatialColumns     int                    `json:"nb_spatial_columns,omitempty"`
	NBTemporalColumns    int                    `json:"nb_temporal_columns,omitempty"`
	NBCategoricalColumns int                    `json:"nb_categorical_columns,omitempty"`
	NBNumericalColumns   int                    `json:"nb_numerical_columns,omitempty"`
	Types                []string               `json:"types"`
	Columns              []Column               `json:"columns"`
	SpatialCoverage      []SpatialCoverage      `json:"spatial_coverage,omitempty"`
	TemporalCoverage     []TemporalCoverage     `json:"temporal_coverage,omitempty"`
	AttributeKeywords    []string               `json:"attribute_keywords,omitempty"`
	Sample               string                 `json:"sample,omitempty"`
	RecommendPlots       []PlotRecommendation   `json:"recommend_plots,omitempty"`
	ManualAnnotations    *ManualAnnotations      `json:"manual_annotations,omitempty"`

	// CustomFields carries caller-supplied metadata merged into the index
	// document verbatim; it is never produced by profiling itself, so it
	// round-trips through esdoc but has no fixed JSON shape of its own.
	CustomFields map[string]any `json:"-"`
}

// Version is the profiler's release identifier, reported on every
// produced Dataset document.
const Version = "0.8.1"
