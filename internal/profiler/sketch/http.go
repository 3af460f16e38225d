package sketch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// HTTPClient is a Client backed by an HTTP RPC service exposing the Lazo
// index/sketch operations as JSON endpoints.
type HTTPClient struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds an HTTPClient against baseURL, using http via the
// given httputil.HTTPClient (pass nil to use the standard library client).
func NewHTTPClient(baseURL string, client httputil.HTTPClient) *HTTPClient {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPClient{BaseURL: baseURL, HTTP: client}
}

type indexDataPathRequest struct {
	DataPath    string   `json:"data_path"`
	DatasetID   string   `json:"dataset_id"`
	ColumnNames []string `json:"column_names"`
}

type indexDataRequest struct {
	Values     []string `json:"values"`
	DatasetID  string   `json:"dataset_id"`
	ColumnName string   `json:"column_name"`
}

type sketchFromDataPathRequest struct {
	DataPath    string   `json:"data_path"`
	ColumnNames []string `json:"column_names"`
}

type sketchFromDataRequest struct {
	Values     []string `json:"values"`
	ColumnName string   `json:"column_name"`
}

type removeSketchesRequest struct {
	DatasetID string `json:"dataset_id"`
}

type lazoWire struct {
	NPermutations int     `json:"n_permutations"`
	HashValues    []int64 `json:"hash_values"`
	Cardinality   int     `json:"cardinality"`
}

func (w lazoWire) toSchema() schema.Lazo {
	return schema.Lazo{NPermutations: w.NPermutations, HashValues: w.HashValues, Cardinality: w.Cardinality}
}

func (c *HTTPClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sketch: encoding request: %w", err)
	}
	resp, err := c.HTTP.Post(c.BaseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sketch: request to %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError reports a non-200 HTTP status from the sketch service.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("sketch: unexpected HTTP status %d", e.code) }

func (c *HTTPClient) IndexDataPath(ctx context.Context, dataPath, datasetID string, columnNames []string) error {
	return c.post(ctx, "/index_data_path", indexDataPathRequest{
		DataPath: dataPath, DatasetID: datasetID, ColumnNames: columnNames,
	}, nil)
}

func (c *HTTPClient) IndexData(ctx context.Context, values []string, datasetID, columnName string) error {
	return c.post(ctx, "/index_data", indexDataRequest{
		Values: values, DatasetID: datasetID, ColumnName: columnName,
	}, nil)
}

func (c *HTTPClient) SketchFromDataPath(ctx context.Context, dataPath string, columnNames []string) ([]schema.Lazo, error) {
	var wire []lazoWire
	if err := c.post(ctx, "/get_lazo_sketch_data_path", sketchFromDataPathRequest{
		DataPath: dataPath, ColumnNames: columnNames,
	}, &wire); err != nil {
		return nil, err
	}
	out := make([]schema.Lazo, len(wire))
	for i, w := range wire {
		out[i] = w.toSchema()
	}
	return out, nil
}

func (c *HTTPClient) SketchFromData(ctx context.Context, values []string, columnName string) (schema.Lazo, error) {
	var wire lazoWire
	if err := c.post(ctx, "/get_lazo_sketch_data", sketchFromDataRequest{
		Values: values, ColumnName: columnName,
	}, &wire); err != nil {
		return schema.Lazo{}, err
	}
	return wire.toSchema(), nil
}

func (c *HTTPClient) RemoveSketches(ctx context.Context, datasetID string) error {
	return c.post(ctx, "/remove_sketches", removeSketchesRequest{DatasetID: datasetID}, nil)
}
