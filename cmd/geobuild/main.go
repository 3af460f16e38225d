// Command geobuild populates the offline administrative-area reference
// database (internal/georef) consulted by the profiler's type identifier
// and spatial analyzer.
//
// It queries Wikidata via SPARQL for admin levels 0-2 (countries, their
// first-level subdivisions, and second-level subdivisions), resolves
// bounding boxes for levels 0 and 1 from Wikidata geoshapes, and falls
// back to the OpenStreetMap relation API for level-1 areas that have no
// geoshape. Level-2 areas are stored by name/parent only, as the upstream
// tool never resolves their bounds either.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VIDA-NYU/datamart-profiler/internal/georef"
	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

func main() {
	dbPath := flag.String("db-path", "georef.sqlite", "path to the georef sqlite database to populate")
	checkpointPath := flag.String("checkpoint", "geobuild_checkpoint.json", "resumable OSM-fallback cache")
	maxLevel := flag.Int("max-level", 2, "highest admin level to fetch (0-2)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := httputil.NewStandardClient(&http.Client{Timeout: 60 * time.Second})

	store, err := georef.Open(*dbPath)
	if err != nil {
		log.Fatalf("geobuild: opening store: %v", err)
	}
	defer store.Close()

	cp, err := loadCheckpoint(*checkpointPath)
	if err != nil {
		log.Fatalf("geobuild: loading checkpoint: %v", err)
	}

	if err := run(ctx, store, client, cp, *checkpointPath, *maxLevel); err != nil {
		log.Fatalf("geobuild: %v", err)
	}
	log.Println("geobuild: done")
}

func run(ctx context.Context, store *georef.Store, client httputil.HTTPClient, cp *checkpoint, checkpointPath string, maxLevel int) error {
	if err := store.Truncate(); err != nil {
		return err
	}
	shapeBounds0, err := FetchShapeBounds(ctx, client, 0)
	if err != nil {
		return err
	}
	if err := buildLevel(ctx, store, client, 0, shapeBounds0, nil, cp, checkpointPath); err != nil {
		return err
	}
	if maxLevel < 1 {
		return nil
	}

	shapeBounds1, err := FetchShapeBounds(ctx, client, 1)
	if err != nil {
		return err
	}
	osmIDs, err := FetchOSMRelationIDs(ctx, client)
	if err != nil {
		log.Printf("geobuild: OSM relation lookup failed, continuing without fallback: %v", err)
		osmIDs = nil
	}
	if err := buildLevel(ctx, store, client, 1, shapeBounds1, osmIDs, cp, checkpointPath); err != nil {
		return err
	}
	if maxLevel < 2 {
		return nil
	}

	return buildLevel(ctx, store, client, 2, nil, nil, cp, checkpointPath)
}

// buildLevel fetches every area at level, resolves each one's bounding
// envelope (from Wikidata geoshapes, then the OSM fallback, checkpointing
// OSM lookups as it goes), and upserts the results into store.
func buildLevel(
	ctx context.Context,
	store *georef.Store,
	client httputil.HTTPClient,
	level int,
	shapeBounds map[string]schema.Envelope,
	osmIDs map[string]string,
	cp *checkpoint,
	checkpointPath string,
) error {
	records, err := FetchAdminLevel(ctx, client, level)
	if err != nil {
		return err
	}
	log.Printf("geobuild: level %d: %d areas", level, len(records))

	areas := make([]georef.Area, 0, len(records))
	for _, rec := range records {
		area := georef.Area{Level: rec.Level, Name: rec.Label, ParentName: rec.ParentName}

		if env, ok := shapeBounds[rec.Name]; ok {
			area.Envelope = env
			areas = append(areas, area)
			continue
		}

		if osmID, ok := osmIDs[rec.Name]; ok {
			if env, ok := cp.OSMBounds[rec.Name]; ok {
				area.Envelope = env
				areas = append(areas, area)
				continue
			}
			if cp.Missing[rec.Name] {
				areas = append(areas, area)
				continue
			}
			env, found, err := FetchOSMRelationBounds(ctx, client, osmID)
			if err != nil {
				log.Printf("geobuild: OSM fallback failed for %s: %v", rec.Label, err)
				continue
			}
			if found {
				cp.OSMBounds[rec.Name] = env
				area.Envelope = env
			} else {
				cp.Missing[rec.Name] = true
			}
			if err := cp.save(checkpointPath); err != nil {
				log.Printf("geobuild: saving checkpoint: %v", err)
			}
		}

		areas = append(areas, area)
	}

	return store.Upsert(areas)
}
