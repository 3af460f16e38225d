package esdoc

import (
	"testing"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
	"github.com/VIDA-NYU/datamart-profiler/internal/testutil"
)

func sampleDataset() *schema.Dataset {
	return &schema.Dataset{
		ID:     "abc123",
		Name:   "Sample dataset",
		NBRows: 10,
		Columns: []schema.Column{
			{
				Name:           "amount",
				StructuralType: schema.Float,
				SemanticTypes:  []string{},
				Coverage: []schema.NumericalRange{
					{Range: schema.NumRangeBounds{GTE: 1, LTE: 99}},
				},
				Plot: &schema.Plot{Type: "histogram_numerical"},
			},
		},
		SpatialCoverage: []schema.SpatialCoverage{
			{
				Type:        schema.SpatialLatLong,
				ColumnNames: []string{"lat", "lon"},
				Ranges: []schema.SpatialRange{
					schema.NewSpatialRange(schema.Envelope{MinLon: -74, MaxLat: 41, MaxLon: -73, MinLat: 40}),
				},
			},
		},
		TemporalCoverage: []schema.TemporalCoverage{
			{
				Type:        "datetime",
				ColumnNames: []string{"date"},
				Ranges: []schema.NumericalRange{
					{Range: schema.NumRangeBounds{GTE: 1000, LTE: 2000}},
				},
			},
		},
		CustomFields: map[string]any{"tenant": "acme"},
	}
}

func TestBuildDatamartDocumentMergesCustomFields(t *testing.T) {
	docs, err := Build(sampleDataset())
	testutil.AssertNoError(t, err)
	if docs.Datamart["id"] != "abc123" {
		t.Fatalf("expected id field, got %v", docs.Datamart["id"])
	}
	if docs.Datamart["tenant"] != "acme" {
		t.Fatalf("expected custom field merged in, got %+v", docs.Datamart)
	}
	if _, ok := docs.Datamart["columns"]; !ok {
		t.Fatal("datamart document should keep the columns field")
	}
}

func TestBuildColumnsDiscardsPlotAndAddsIndex(t *testing.T) {
	docs, err := Build(sampleDataset())
	testutil.AssertNoError(t, err)
	if len(docs.Columns) != 1 {
		t.Fatalf("expected 1 column doc, got %d", len(docs.Columns))
	}
	col := docs.Columns[0]
	if _, ok := col["plot"]; ok {
		t.Fatal("plot field should be discarded from column documents")
	}
	if col["index"] != 0 {
		t.Fatalf("expected index 0, got %v", col["index"])
	}
	if col["dataset_id"] != "abc123" {
		t.Fatalf("expected dataset_id merged in, got %v", col["dataset_id"])
	}
	if _, ok := col["dataset_columns"]; ok {
		t.Fatal("dataset_columns should be discarded from common metadata")
	}
	if col["tenant"] != "acme" {
		t.Fatalf("expected custom field merged into column doc, got %+v", col)
	}

	coverage, ok := col["coverage"].([]any)
	if !ok || len(coverage) != 1 {
		t.Fatalf("expected 1 coverage entry, got %+v", col["coverage"])
	}
	entry := coverage[0].(map[string]any)
	if entry["gte"] != float64(1) || entry["lte"] != float64(99) {
		t.Fatalf("expected inlined gte/lte, got %+v", entry)
	}
}

func TestBuildSpatialCoverageInlinesEnvelope(t *testing.T) {
	docs, err := Build(sampleDataset())
	testutil.AssertNoError(t, err)
	if len(docs.SpatialCoverage) != 1 {
		t.Fatalf("expected 1 spatial coverage doc, got %d", len(docs.SpatialCoverage))
	}
	sc := docs.SpatialCoverage[0]
	ranges := sc["ranges"].([]any)
	r := ranges[0].(map[string]any)
	if r["min_lon"] != float64(-74) || r["max_lat"] != float64(41) {
		t.Fatalf("expected inlined envelope bounds, got %+v", r)
	}
	if sc["dataset_id"] != "abc123" {
		t.Fatalf("expected dataset_id merged in, got %v", sc["dataset_id"])
	}
}

func TestBuildTemporalCoverageInlinesRanges(t *testing.T) {
	docs, err := Build(sampleDataset())
	testutil.AssertNoError(t, err)
	if len(docs.TemporalCoverage) != 1 {
		t.Fatalf("expected 1 temporal coverage doc, got %d", len(docs.TemporalCoverage))
	}
	tc := docs.TemporalCoverage[0]
	ranges := tc["ranges"].([]any)
	r := ranges[0].(map[string]any)
	if r["gte"] != float64(1000) || r["lte"] != float64(2000) {
		t.Fatalf("expected inlined gte/lte, got %+v", r)
	}
}
