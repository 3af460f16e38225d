// Package plot recommends visualizations for a profiled dataset: pairing
// its highest-variance numerical columns against temporal and
// categorical/spatial-admin columns, synthesizing Vega-Lite-shaped specs.
package plot

import (
	"math/rand"
	"sort"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// MaxRecommendations caps the number of plots synthesized per dataset.
const MaxRecommendations = 4

// Column is the subset of a profiled column's metadata the recommender
// needs to classify and rank it.
type Column struct {
	Name           string
	StructuralType string
	SemanticTypes  *schema.SemanticTypeSet
	Mean           *float64
	StdDev         *float64
}

// Row is one row of the dataset's retained sample, keyed by column name.
type Row map[string]string

// DatasetType buckets a column into numerical/categorical/spatial/temporal,
// or "" if it fits none (reconstructing `determine_dataset_type`: semantic
// type tags take priority over the raw structural type).
func DatasetType(col Column) string {
	if col.SemanticTypes == nil {
		return datasetTypeFromStructural(col.StructuralType)
	}
	switch {
	case col.SemanticTypes.Has(schema.DateTime):
		return schema.DatasetTemporal
	case col.SemanticTypes.Has(schema.Latitude), col.SemanticTypes.Has(schema.Longitude),
		col.SemanticTypes.Has(schema.Admin), col.SemanticTypes.Has(schema.Address):
		return schema.DatasetSpatial
	case col.SemanticTypes.Has(schema.Categorical), col.SemanticTypes.Has(schema.Boolean):
		return schema.DatasetCategorical
	default:
		return datasetTypeFromStructural(col.StructuralType)
	}
}

func datasetTypeFromStructural(structuralType string) string {
	switch structuralType {
	case schema.Integer, schema.Float:
		return schema.DatasetNumerical
	case schema.GeoPoint:
		return schema.DatasetSpatial
	default:
		return ""
	}
}

// Recommend seeds a deterministic generator so recommendations are
// reproducible across runs for the same input; use RecommendWithRand to
// supply a generator shared with the rest of a profiling run.
func Recommend(columns []Column, sample []Row, seed int64) []schema.PlotRecommendation {
	return RecommendWithRand(columns, sample, rand.New(rand.NewSource(seed)))
}

// RecommendWithRand mirrors `core.py:recommend_plots`: buckets columns by
// dataset type, ranks numerical columns by coefficient of variation
// (stddev/mean, descending), and for each numerical column (richest
// variance first) pairs it with a random temporal column (line plot) and
// a random spatial/categorical column (bar-sum plot), stopping once
// MaxRecommendations specs have been produced.
func RecommendWithRand(columns []Column, sample []Row, rng *rand.Rand) []schema.PlotRecommendation {
	var numerical []rankedColumn
	var categorical, spatial, temporal []string

	for _, col := range columns {
		deterType := DatasetType(col)
		isID := col.SemanticTypes != nil && col.SemanticTypes.Has(schema.ID)
		switch {
		case deterType == schema.DatasetNumerical && !isID:
			numerical = append(numerical, rankedColumn{name: col.Name, cv: coefficientOfVariation(col)})
		case deterType == schema.DatasetSpatial && col.SemanticTypes != nil && col.SemanticTypes.Has(schema.Admin):
			spatial = append(spatial, col.Name)
		case deterType == schema.DatasetCategorical:
			categorical = append(categorical, col.Name)
		case deterType == schema.DatasetTemporal:
			temporal = append(temporal, col.Name)
		}
	}

	sort.SliceStable(numerical, func(i, j int) bool { return numerical[i].cv > numerical[j].cv })

	var out []schema.PlotRecommendation
	for _, nc := range numerical {
		if len(temporal) > 0 {
			t := temporal[rng.Intn(len(temporal))]
			out = append(out, lineRecommendation(nc.name, t, sample))
		}

		var categoryName string
		switch {
		case len(spatial) > 0:
			categoryName = spatial[rng.Intn(len(spatial))]
		case len(categorical) > 0:
			categoryName = categorical[rng.Intn(len(categorical))]
		}
		if categoryName != "" {
			out = append(out, barRecommendation(nc.name, categoryName, sample))
		}

		if len(out) >= MaxRecommendations {
			break
		}
	}
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

type rankedColumn struct {
	name string
	cv   float64
}

func coefficientOfVariation(col Column) float64 {
	if col.Mean == nil || col.StdDev == nil || *col.Mean == 0 {
		return 0
	}
	return *col.StdDev / *col.Mean
}

func lineRecommendation(numericalName, temporalName string, sample []Row) schema.PlotRecommendation {
	values := make([]map[string]any, 0, len(sample))
	for _, row := range sample {
		values = append(values, map[string]any{
			temporalName:  row[temporalName],
			numericalName: row[numericalName],
		})
	}
	return schema.PlotRecommendation{
		NumericalColumn:   numericalName,
		TemporalColumn:    temporalName,
		GeneratedQuestion: "How does " + numericalName + " change over " + temporalName + " ?",
		Data:              map[string]any{"values": values},
		Spec: map[string]any{
			"mark": "line",
			"encoding": map[string]any{
				"x": map[string]any{"field": temporalName, "type": "temporal"},
				"y": map[string]any{"field": numericalName, "type": "quantitative"},
			},
			"data": map[string]any{"name": "values"},
		},
	}
}

func barRecommendation(numericalName, categoryName string, sample []Row) schema.PlotRecommendation {
	values := make([]map[string]any, 0, len(sample))
	for _, row := range sample {
		values = append(values, map[string]any{
			categoryName:  row[categoryName],
			numericalName: row[numericalName],
		})
	}
	return schema.PlotRecommendation{
		NumericalColumn:      numericalName,
		SpatialOrCategorical: categoryName,
		GeneratedQuestion:    "What is the distribution of " + numericalName + " over " + categoryName + " ?",
		Data:                 map[string]any{"values": values},
		Spec: map[string]any{
			"mark": "bar",
			"encoding": map[string]any{
				"x": map[string]any{"field": categoryName, "type": "nominal"},
				"y": map[string]any{"field": numericalName, "type": "quantitative", "aggregate": "sum"},
			},
			"data": map[string]any{"name": "values"},
		},
	}
}
