// Package sketch talks to the Lazo-compatible sketch service: either
// indexing a dataset's textual columns (ingest time) or fetching a
// set-overlap sketch for a column (query time).
package sketch

import (
	"context"

	"github.com/VIDA-NYU/datamart-profiler/internal/metrics"
	"github.com/VIDA-NYU/datamart-profiler/internal/monitoring"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/errs"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// Client is the sketch service's RPC surface. Every method may be called
// either with a data file path (preferred, avoids re-sending the column
// values) or with in-memory values when no path is available.
type Client interface {
	IndexDataPath(ctx context.Context, dataPath, datasetID string, columnNames []string) error
	IndexData(ctx context.Context, values []string, datasetID, columnName string) error
	SketchFromDataPath(ctx context.Context, dataPath string, columnNames []string) ([]schema.Lazo, error)
	SketchFromData(ctx context.Context, values []string, columnName string) (schema.Lazo, error)
	RemoveSketches(ctx context.Context, datasetID string) error
}

// withRetry calls fn once, and again if it fails, matching the service's
// known transient-failure behavior (`_lazo_retry`). The second failure is
// returned wrapped as ErrSketchServiceFailure. mode labels the metrics
// counter ("index" or "sketch").
func withRetry(mode string, fn func() error) error {
	if err := fn(); err == nil {
		metrics.LazoRequests.WithLabelValues(mode, "ok").Inc()
		return nil
	}
	if err := fn(); err != nil {
		metrics.LazoRequests.WithLabelValues(mode, "error").Inc()
		return errs.Wrap(errs.ErrSketchServiceFailure, "sketch service call failed twice", err)
	}
	metrics.LazoRequests.WithLabelValues(mode, "ok").Inc()
	return nil
}

// IndexColumns indexes a dataset's textual columns, preferring a data
// path when available. A failure is logged and returned as a non-fatal
// ErrSketchServiceFailure; the orchestrator should not abort on it.
func IndexColumns(ctx context.Context, client Client, dataPath, datasetID string, columnNames []string, columnValues [][]string) error {
	if client == nil {
		return nil
	}
	if dataPath != "" {
		err := withRetry("index", func() error {
			return client.IndexDataPath(ctx, dataPath, datasetID, columnNames)
		})
		if err != nil {
			monitoring.Logf("sketch: indexing by path failed: %v", err)
		}
		return err
	}
	for i, name := range columnNames {
		values := columnValues[i]
		err := withRetry("index", func() error {
			return client.IndexData(ctx, values, datasetID, name)
		})
		if err != nil {
			monitoring.Logf("sketch: indexing column %q failed: %v", name, err)
			return err
		}
	}
	return nil
}

// SketchColumns fetches Lazo sketches for a dataset's textual columns, in
// the same order as columnNames. A failure leaves the corresponding
// column without a sketch rather than aborting profiling.
func SketchColumns(ctx context.Context, client Client, dataPath string, columnNames []string, columnValues [][]string) ([]*schema.Lazo, error) {
	if client == nil {
		return make([]*schema.Lazo, len(columnNames)), nil
	}
	out := make([]*schema.Lazo, len(columnNames))

	if dataPath != "" {
		var sketches []schema.Lazo
		err := withRetry("sketch", func() error {
			var err error
			sketches, err = client.SketchFromDataPath(ctx, dataPath, columnNames)
			return err
		})
		if err != nil {
			monitoring.Logf("sketch: fetching sketches by path failed: %v", err)
			return out, err
		}
		for i := range sketches {
			if i < len(out) {
				s := sketches[i]
				out[i] = &s
			}
		}
		return out, nil
	}

	for i, name := range columnNames {
		values := columnValues[i]
		var s schema.Lazo
		err := withRetry("sketch", func() error {
			var err error
			s, err = client.SketchFromData(ctx, values, name)
			return err
		})
		if err != nil {
			monitoring.Logf("sketch: fetching sketch for column %q failed: %v", name, err)
			continue
		}
		out[i] = &s
	}
	return out, nil
}
