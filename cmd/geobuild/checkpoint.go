package main

import (
	"encoding/json"
	"os"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// checkpoint is a resumable cache of OSM-fetched bounds, keyed by Wikidata
// QID, written to a JSON file in place of the original tool's pickle cache
// so a killed OSM-fallback pass can resume without re-querying areas it
// already resolved.
type checkpoint struct {
	OSMBounds map[string]schema.Envelope `json:"osm_bounds"`
	Missing   map[string]bool            `json:"missing"` // areas confirmed to have no OSM boundary
}

func loadCheckpoint(path string) (*checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &checkpoint{OSMBounds: map[string]schema.Envelope{}, Missing: map[string]bool{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	if cp.OSMBounds == nil {
		cp.OSMBounds = map[string]schema.Envelope{}
	}
	if cp.Missing == nil {
		cp.Missing = map[string]bool{}
	}
	return &cp, nil
}

func (c *checkpoint) save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
