package sketch

import (
	"context"
	"errors"
	"testing"

	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// fakeClient is an in-memory Client double for exercising the retry and
// path-vs-per-column branching logic without HTTP.
type fakeClient struct {
	indexPathCalls int
	indexDataCalls int
	failIndexN     int // fail this many calls before succeeding
	sketchResult   schema.Lazo
	failSketchN    int
}

func (f *fakeClient) IndexDataPath(ctx context.Context, dataPath, datasetID string, columnNames []string) error {
	f.indexPathCalls++
	if f.failIndexN > 0 {
		f.failIndexN--
		return errors.New("boom")
	}
	return nil
}

func (f *fakeClient) IndexData(ctx context.Context, values []string, datasetID, columnName string) error {
	f.indexDataCalls++
	if f.failIndexN > 0 {
		f.failIndexN--
		return errors.New("boom")
	}
	return nil
}

func (f *fakeClient) SketchFromDataPath(ctx context.Context, dataPath string, columnNames []string) ([]schema.Lazo, error) {
	if f.failSketchN > 0 {
		f.failSketchN--
		return nil, errors.New("boom")
	}
	out := make([]schema.Lazo, len(columnNames))
	for i := range out {
		out[i] = f.sketchResult
	}
	return out, nil
}

func (f *fakeClient) SketchFromData(ctx context.Context, values []string, columnName string) (schema.Lazo, error) {
	if f.failSketchN > 0 {
		f.failSketchN--
		return schema.Lazo{}, errors.New("boom")
	}
	return f.sketchResult, nil
}

func (f *fakeClient) RemoveSketches(ctx context.Context, datasetID string) error { return nil }

func TestIndexColumnsUsesPathWhenAvailable(t *testing.T) {
	fc := &fakeClient{}
	err := IndexColumns(context.Background(), fc, "/data/foo.csv", "ds1", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("IndexColumns error: %v", err)
	}
	if fc.indexPathCalls != 1 || fc.indexDataCalls != 0 {
		t.Fatalf("indexPathCalls=%d indexDataCalls=%d, want 1/0", fc.indexPathCalls, fc.indexDataCalls)
	}
}

func TestIndexColumnsPerColumnWithoutPath(t *testing.T) {
	fc := &fakeClient{}
	names := []string{"a", "b"}
	values := [][]string{{"x"}, {"y"}}
	err := IndexColumns(context.Background(), fc, "", "ds1", names, values)
	if err != nil {
		t.Fatalf("IndexColumns error: %v", err)
	}
	if fc.indexDataCalls != 2 || fc.indexPathCalls != 0 {
		t.Fatalf("indexDataCalls=%d indexPathCalls=%d, want 2/0", fc.indexDataCalls, fc.indexPathCalls)
	}
}

func TestIndexColumnsRetriesOnceThenSucceeds(t *testing.T) {
	fc := &fakeClient{failIndexN: 1}
	err := IndexColumns(context.Background(), fc, "/data/foo.csv", "ds1", []string{"a"}, nil)
	if err != nil {
		t.Fatalf("expected single retry to succeed, got error: %v", err)
	}
	if fc.indexPathCalls != 2 {
		t.Fatalf("indexPathCalls = %d, want 2 (1 failure + 1 retry)", fc.indexPathCalls)
	}
}

func TestIndexColumnsFailsAfterTwoAttempts(t *testing.T) {
	fc := &fakeClient{failIndexN: 2}
	err := IndexColumns(context.Background(), fc, "/data/foo.csv", "ds1", []string{"a"}, nil)
	if err == nil {
		t.Fatal("expected error after both attempts fail")
	}
	if fc.indexPathCalls != 2 {
		t.Fatalf("indexPathCalls = %d, want 2 (no third attempt)", fc.indexPathCalls)
	}
}

func TestSketchColumnsByPath(t *testing.T) {
	fc := &fakeClient{sketchResult: schema.Lazo{NPermutations: 128, HashValues: []int64{1, 2, 3}, Cardinality: 10}}
	sketches, err := SketchColumns(context.Background(), fc, "/data/foo.csv", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("SketchColumns error: %v", err)
	}
	if len(sketches) != 2 || sketches[0] == nil || sketches[0].Cardinality != 10 {
		t.Fatalf("unexpected sketches: %+v", sketches)
	}
}

func TestSketchColumnsPerColumnContinuesOnFailure(t *testing.T) {
	fc := &fakeClient{sketchResult: schema.Lazo{Cardinality: 5}, failSketchN: 2}
	names := []string{"a", "b"}
	values := [][]string{{"x"}, {"y"}}
	sketches, err := SketchColumns(context.Background(), fc, "", names, values)
	if err != nil {
		t.Fatalf("SketchColumns error: %v", err)
	}
	if sketches[0] != nil {
		t.Fatalf("column 0 should have failed both attempts and stayed nil, got %+v", sketches[0])
	}
	if sketches[1] == nil || sketches[1].Cardinality != 5 {
		t.Fatalf("column 1 should have retried into success, got %+v", sketches[1])
	}
}

func TestIndexColumnsNilClientNoop(t *testing.T) {
	if err := IndexColumns(context.Background(), nil, "/x", "ds", nil, nil); err != nil {
		t.Fatalf("nil client should no-op, got error: %v", err)
	}
}

func TestSketchColumnsNilClientReturnsEmptySlots(t *testing.T) {
	sketches, err := SketchColumns(context.Background(), nil, "", []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("nil client should no-op, got error: %v", err)
	}
	if len(sketches) != 2 || sketches[0] != nil || sketches[1] != nil {
		t.Fatalf("expected 2 nil slots, got %+v", sketches)
	}
}

func TestHTTPClientSketchFromDataRoundTrip(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{"n_permutations":128,"hash_values":[1,2,3],"cardinality":42}`)

	client := NewHTTPClient("http://sketch.example", mock)
	lazo, err := client.SketchFromData(context.Background(), []string{"a", "b"}, "col")
	if err != nil {
		t.Fatalf("SketchFromData error: %v", err)
	}
	if lazo.NPermutations != 128 || lazo.Cardinality != 42 || len(lazo.HashValues) != 3 {
		t.Fatalf("unexpected lazo: %+v", lazo)
	}
}

func TestHTTPClientSurfacesStatusError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(500, "")

	client := NewHTTPClient("http://sketch.example", mock)
	_, err := client.SketchFromData(context.Background(), []string{"a"}, "col")
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestHTTPClientIndexDataPathSendsExpectedBody(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, "")

	client := NewHTTPClient("http://sketch.example", mock)
	if err := client.IndexDataPath(context.Background(), "/data/foo.csv", "ds1", []string{"a", "b"}); err != nil {
		t.Fatalf("IndexDataPath error: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Fatalf("RequestCount() = %d, want 1", mock.RequestCount())
	}
}
