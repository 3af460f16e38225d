// Package config holds tunable parameters for a profiling run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the canonical defaults file for profiler tuning.
// Mirrors the teacher's single-source-of-truth-file pattern.
const DefaultConfigPath = "config/profiler.defaults.json"

// Options represents the root configuration for a profiling run. Fields are
// pointers so that a partially-specified JSON document (or a caller building
// one programmatically) leaves unset fields to fall back to defaults via the
// Get* accessors below.
type Options struct {
	// LoadMaxSize is the byte budget enforced by the loader (spec ??4.1).
	LoadMaxSize *int64 `json:"load_max_size,omitempty"`
	// Seed is the fixed PRNG seed used for sub-sampling and sample-row
	// selection, for reproducibility.
	Seed *int64 `json:"seed,omitempty"`
	// SampleRows is the number of rows drawn for the `sample` field.
	SampleRows *int `json:"sample_rows,omitempty"`
	// IncludeSample controls whether a CSV sample is attached to the result.
	IncludeSample *bool `json:"include_sample,omitempty"`
	// Coverage controls whether numerical/spatial/temporal ranges are computed.
	Coverage *bool `json:"coverage,omitempty"`
	// Plots controls whether plot.histogram_* blocks are computed per column.
	Plots *bool `json:"plots,omitempty"`
	// Search marks this call as a search-time profile (sketch rather than index).
	Search *bool `json:"search,omitempty"`

	// GeocoderURL is the base URL of the Nominatim-compatible geocoder.
	// Empty disables address resolution.
	GeocoderURL *string `json:"geocoder_url,omitempty"`
	// GeoRefPath is the path to the sqlite administrative-area reference
	// database built offline by cmd/geobuild.
	GeoRefPath *string `json:"georef_path,omitempty"`

	// SketchServiceURL is the base URL of the sketch (Lazo-compatible) RPC
	// service. Empty disables sketching/indexing.
	SketchServiceURL *string `json:"sketch_service_url,omitempty"`

	// WorkerCount bounds the per-column analysis worker pool. 0 means
	// runtime.GOMAXPROCS(0).
	WorkerCount *int `json:"worker_count,omitempty"`

	// CustomFields are merged into every emitted index document (?6).
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// EmptyOptions returns an Options with all fields unset.
func EmptyOptions() *Options { return &Options{} }

// LoadOptions loads Options from a JSON file. Missing fields keep their
// zero value and fall back to defaults through the Get* accessors.
func LoadOptions(path string) (*Options, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	opts := EmptyOptions()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, nil
}

// Validate checks that set fields hold sane values.
func (o *Options) Validate() error {
	if o.LoadMaxSize != nil && *o.LoadMaxSize <= 0 {
		return fmt.Errorf("load_max_size must be positive, got %d", *o.LoadMaxSize)
	}
	if o.SampleRows != nil && *o.SampleRows < 0 {
		return fmt.Errorf("sample_rows must be non-negative, got %d", *o.SampleRows)
	}
	if o.WorkerCount != nil && *o.WorkerCount < 0 {
		return fmt.Errorf("worker_count must be non-negative, got %d", *o.WorkerCount)
	}
	return nil
}

// GetLoadMaxSize returns the configured byte budget or the 50MB default.
func (o *Options) GetLoadMaxSize() int64 {
	if o.LoadMaxSize == nil {
		return 50 * 1000 * 1000
	}
	return *o.LoadMaxSize
}

// GetSeed returns the configured PRNG seed or the fixed default (89).
func (o *Options) GetSeed() int64 {
	if o.Seed == nil {
		return 89
	}
	return *o.Seed
}

// GetSampleRows returns the configured sample row count or the default (20).
func (o *Options) GetSampleRows() int {
	if o.SampleRows == nil {
		return 20
	}
	return *o.SampleRows
}

// GetIncludeSample returns whether to attach a sample, default false.
func (o *Options) GetIncludeSample() bool {
	if o.IncludeSample == nil {
		return false
	}
	return *o.IncludeSample
}

// GetCoverage returns whether to compute coverage, default true.
func (o *Options) GetCoverage() bool {
	if o.Coverage == nil {
		return true
	}
	return *o.Coverage
}

// GetPlots returns whether to compute plots, default false.
func (o *Options) GetPlots() bool {
	if o.Plots == nil {
		return false
	}
	return *o.Plots
}

// GetSearch returns whether this call is search-time, default false.
func (o *Options) GetSearch() bool {
	if o.Search == nil {
		return false
	}
	return *o.Search
}

// GetGeocoderURL returns the configured geocoder base URL, or "" if disabled.
func (o *Options) GetGeocoderURL() string {
	if o.GeocoderURL == nil {
		return ""
	}
	return *o.GeocoderURL
}

// GetSketchServiceURL returns the configured sketch service URL, or "" if disabled.
func (o *Options) GetSketchServiceURL() string {
	if o.SketchServiceURL == nil {
		return ""
	}
	return *o.SketchServiceURL
}

// GetGeoRefPath returns the configured geo-reference database path.
func (o *Options) GetGeoRefPath() string {
	if o.GeoRefPath == nil {
		return ""
	}
	return *o.GeoRefPath
}

// GetWorkerCount returns the configured worker count, or 0 (meaning
// runtime.GOMAXPROCS(0)) if unset.
func (o *Options) GetWorkerCount() int {
	if o.WorkerCount == nil {
		return 0
	}
	return *o.WorkerCount
}

// requestTimeout bounds a single outbound geocoder/sketch HTTP call.
const requestTimeout = 30 * time.Second

// RequestTimeout returns the per-request timeout for remote collaborators.
func (o *Options) RequestTimeout() time.Duration { return requestTimeout }
