// Package esdoc translates a profiled schema.Dataset into the flattened
// index document shapes the search backend expects: the main `datamart`
// document plus the three supplementary `datamart_columns`,
// `datamart_spatial_coverage`, and `datamart_temporal_coverage` documents.
//
// The flattening rules (the `dataset_` field prefix, the discarded field
// lists, and the inlined gte/lte/min_lon/max_lat/max_lon/min_lat
// coordinates) are ported 1:1 from
// common.py:add_dataset_to_index/add_dataset_to_sup_index.
package esdoc

import (
	"encoding/json"
	"fmt"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// discardDatasetFields lists the Dataset fields left out of the
// `dataset_`-prefixed metadata embedded in every supplementary document,
// because they are too large to repeat per-row (columns, sample,
// materialize, the coverage slices, manual annotations). The dataset id
// is kept, as `dataset_id`.
var discardDatasetFields = map[string]bool{
	"columns":            true,
	"sample":             true,
	"materialize":        true,
	"spatial_coverage":   true,
	"temporal_coverage":  true,
	"manual_annotations": true,
}

// discardColumnFields lists the Column fields left out of a
// `datamart_columns` document; a rendered plot is too large to index.
var discardColumnFields = map[string]bool{
	"plot": true,
}

// Documents holds the four index documents produced for one dataset.
type Documents struct {
	Datamart         map[string]any
	Columns          []map[string]any
	SpatialCoverage  []map[string]any
	TemporalCoverage []map[string]any
}

// Build flattens d into the four index document shapes, merging
// d.CustomFields into each of them.
func Build(d *schema.Dataset) (Documents, error) {
	full, err := toMap(d)
	if err != nil {
		return Documents{}, fmt.Errorf("esdoc: marshaling dataset: %w", err)
	}

	common := commonMetadata(d.ID, full, d.CustomFields)

	datamart := make(map[string]any, len(full)+len(d.CustomFields)+1)
	for k, v := range full {
		datamart[k] = v
	}
	datamart["id"] = d.ID
	for k, v := range d.CustomFields {
		datamart[k] = v
	}

	columns, err := buildColumns(d, common)
	if err != nil {
		return Documents{}, err
	}
	spatial, err := buildSpatialCoverage(d, common)
	if err != nil {
		return Documents{}, err
	}
	temporal, err := buildTemporalCoverage(d, common)
	if err != nil {
		return Documents{}, err
	}

	return Documents{
		Datamart:         datamart,
		Columns:          columns,
		SpatialCoverage:  spatial,
		TemporalCoverage: temporal,
	}, nil
}

func commonMetadata(datasetID string, full map[string]any, customFields map[string]any) map[string]any {
	common := map[string]any{"dataset_id": datasetID}
	for k, v := range full {
		if discardDatasetFields[k] {
			continue
		}
		common["dataset_"+k] = v
	}
	for k, v := range customFields {
		common[k] = v
	}
	return common
}

func buildColumns(d *schema.Dataset, common map[string]any) ([]map[string]any, error) {
	docs := make([]map[string]any, 0, len(d.Columns))
	for i, col := range d.Columns {
		colMap, err := toMap(col)
		if err != nil {
			return nil, fmt.Errorf("esdoc: marshaling column %d: %w", i, err)
		}
		for field := range discardColumnFields {
			delete(colMap, field)
		}
		for k, v := range common {
			colMap[k] = v
		}
		colMap["index"] = i

		if coverage, ok := colMap["coverage"].([]any); ok {
			colMap["coverage"] = inlineNumericalRanges(coverage)
		}

		docs = append(docs, colMap)
	}
	return docs, nil
}

func buildSpatialCoverage(d *schema.Dataset, common map[string]any) ([]map[string]any, error) {
	docs := make([]map[string]any, 0, len(d.SpatialCoverage))
	for i, sc := range d.SpatialCoverage {
		scMap, err := toMap(sc)
		if err != nil {
			return nil, fmt.Errorf("esdoc: marshaling spatial_coverage %d: %w", i, err)
		}
		for k, v := range common {
			scMap[k] = v
		}

		ranges, _ := scMap["ranges"].([]any)
		inlined := make([]any, 0, len(ranges))
		for _, r := range ranges {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			rangeShape, _ := rm["range"].(map[string]any)
			coords, _ := rangeShape["coordinates"].([]any)
			if len(coords) == 2 {
				topLeft, _ := coords[0].([]any)
				bottomRight, _ := coords[1].([]any)
				if len(topLeft) == 2 && len(bottomRight) == 2 {
					rm["min_lon"] = topLeft[0]
					rm["max_lat"] = topLeft[1]
					rm["max_lon"] = bottomRight[0]
					rm["min_lat"] = bottomRight[1]
				}
			}
			inlined = append(inlined, rm)
		}
		scMap["ranges"] = inlined

		docs = append(docs, scMap)
	}
	return docs, nil
}

func buildTemporalCoverage(d *schema.Dataset, common map[string]any) ([]map[string]any, error) {
	docs := make([]map[string]any, 0, len(d.TemporalCoverage))
	for i, tc := range d.TemporalCoverage {
		tcMap, err := toMap(tc)
		if err != nil {
			return nil, fmt.Errorf("esdoc: marshaling temporal_coverage %d: %w", i, err)
		}
		for k, v := range common {
			tcMap[k] = v
		}

		if ranges, ok := tcMap["ranges"].([]any); ok {
			tcMap["ranges"] = inlineNumericalRanges(ranges)
		}

		docs = append(docs, tcMap)
	}
	return docs, nil
}

// inlineNumericalRanges copies each range's gte/lte up to the top level
// of its enclosing map, alongside the original nested `range` field.
func inlineNumericalRanges(ranges []any) []any {
	out := make([]any, 0, len(ranges))
	for _, r := range ranges {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if bounds, ok := rm["range"].(map[string]any); ok {
			rm["gte"] = bounds["gte"]
			rm["lte"] = bounds["lte"]
		}
		out = append(out, rm)
	}
	return out
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
