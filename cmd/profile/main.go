// Command profile runs the data-profiling core over a single CSV file
// and prints the resulting metadata document as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/VIDA-NYU/datamart-profiler/internal/config"
	"github.com/VIDA-NYU/datamart-profiler/internal/esdoc"
	"github.com/VIDA-NYU/datamart-profiler/internal/fsutil"
	"github.com/VIDA-NYU/datamart-profiler/internal/geocoder"
	"github.com/VIDA-NYU/datamart-profiler/internal/georef"
	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
	"github.com/VIDA-NYU/datamart-profiler/internal/preview"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/sketch"
)

var (
	inputPath    = flag.String("input", "", "path to the CSV file to profile (required)")
	configPath   = flag.String("config", "", "path to a JSON tuning configuration file")
	datasetID    = flag.String("dataset-id", "", "dataset identifier to embed in the document")
	datasetName  = flag.String("dataset-name", "", "dataset display name")
	georefPath   = flag.String("georef-path", "", "path to the sqlite admin-area reference database (from cmd/geobuild)")
	geocoderURL  = flag.String("geocoder-url", "", "base URL of the Nominatim-compatible geocoder")
	sketchURL    = flag.String("sketch-url", "", "base URL of the sketch (Lazo) service")
	searchMode   = flag.Bool("search", false, "profile in search (sketch-fetch) mode instead of index mode")
	includeSample = flag.Bool("sample", false, "attach a row sample to the output document")
	indexDoc     = flag.Bool("index-doc", false, "also print the flattened datamart_* index documents")
	debugPreview = flag.String("debug-preview-dir", "", "if set, render per-column histogram PNGs into this directory")
)

func main() {
	flag.Parse()
	if *inputPath == "" {
		log.Fatal("profile: -input is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := config.EmptyOptions()
	if *configPath != "" {
		loaded, err := config.LoadOptions(*configPath)
		if err != nil {
			log.Fatalf("profile: loading config: %v", err)
		}
		opts = loaded
	}
	applyFlagOverrides(opts)

	deps := buildDependencies(opts)
	if deps.AdminResolver != nil {
		if store, ok := deps.AdminResolver.(*georef.Store); ok {
			defer store.Close()
		}
	}

	ds, err := profiler.Profile(ctx, profiler.Input{
		Path: *inputPath,
		ID:   *datasetID,
		Name: *datasetName,
	}, deps, opts)
	if err != nil {
		log.Fatalf("profile: %v", err)
	}

	out, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		log.Fatalf("profile: encoding output: %v", err)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))

	if *indexDoc {
		docs, err := esdoc.Build(ds)
		if err != nil {
			log.Fatalf("profile: building index documents: %v", err)
		}
		encoded, _ := json.MarshalIndent(docs, "", "  ")
		os.Stdout.Write(encoded)
		os.Stdout.Write([]byte("\n"))
	}

	if *debugPreview != "" {
		if err := preview.RenderHistograms(ds, *debugPreview); err != nil {
			log.Fatalf("profile: rendering preview: %v", err)
		}
	}
}

func applyFlagOverrides(opts *config.Options) {
	if *includeSample {
		v := true
		opts.IncludeSample = &v
	}
	if *searchMode {
		v := true
		opts.Search = &v
	}
	if *georefPath != "" {
		opts.GeoRefPath = georefPath
	}
	if *geocoderURL != "" {
		opts.GeocoderURL = geocoderURL
	}
	if *sketchURL != "" {
		opts.SketchServiceURL = sketchURL
	}
}

func buildDependencies(opts *config.Options) profiler.Dependencies {
	deps := profiler.Dependencies{FileSystem: fsutil.OSFileSystem{}}

	httpClient := httputil.NewStandardClient(&http.Client{Timeout: opts.RequestTimeout()})

	if path := opts.GetGeoRefPath(); path != "" {
		store, err := georef.Open(path)
		if err != nil {
			log.Fatalf("profile: opening georef database: %v", err)
		}
		deps.AdminResolver = store
		deps.AdminBounds = store
	}
	if url := opts.GetGeocoderURL(); url != "" {
		deps.Geocoder = geocoder.NewHTTPClient(url, httpClient)
	}
	if url := opts.GetSketchServiceURL(); url != "" {
		deps.Sketch = sketch.NewHTTPClient(url, httpClient)
	}

	return deps
}
