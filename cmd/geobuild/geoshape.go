package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

// geoshapeQuery lists each area at level paired with its Wikidata geoshape
// URL (P3896), mirroring `geoshapes0`/`geoshapes1`.
func geoshapeQuery(level int) string {
	if level == 0 {
		return `SELECT ?area ?shape WHERE {
  ?area wdt:P31 wd:Q6256.
  ?area wdt:P3896 ?shape.
}`
	}
	return `SELECT ?area ?shape WHERE {
  ?parent wdt:P31 wd:Q6256.
  ?parent wdt:P150 ?area.
  ?area wdt:P31 [wdt:P279 wd:Q10864048].
  ?area wdt:P3896 ?shape.
}`
}

type geoJSONShape struct {
	Data struct {
		Features []struct {
			Geometry struct {
				Type        string `json:"type"`
				Coordinates []any  `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	} `json:"data"`
}

// FetchShapeBounds resolves each area's geoshape to a bounding envelope by
// downloading its Wikimedia Commons GeoJSON and taking the min/max of
// every point, mirroring `bounds0`/`bounds1`.
func FetchShapeBounds(ctx context.Context, client httputil.HTTPClient, level int) (map[string]schema.Envelope, error) {
	bindings, err := sparqlQuery(ctx, client, geoshapeQuery(level))
	if err != nil {
		return nil, err
	}
	bounds := make(map[string]schema.Envelope, len(bindings))
	for _, b := range bindings {
		area := entityID(b, "area")
		shapeURL := literal(b, "shape")
		shapeURL = strings.ReplaceAll(shapeURL, "+", "_")

		resp, err := client.Get(shapeURL)
		if err != nil {
			continue
		}
		var shape geoJSONShape
		err = json.NewDecoder(resp.Body).Decode(&shape)
		resp.Body.Close()
		if err != nil {
			continue
		}

		env, ok := envelopeFromShape(shape)
		if ok {
			bounds[area] = env
		}
	}
	return bounds, nil
}

func envelopeFromShape(shape geoJSONShape) (schema.Envelope, bool) {
	var env schema.Envelope
	found := false
	for _, feature := range shape.Data.Features {
		for _, point := range flattenPoints(feature.Geometry.Type, feature.Geometry.Coordinates) {
			if len(point) < 2 {
				continue
			}
			lon, lat := point[0], point[1]
			if !found {
				env = schema.Envelope{MinLon: lon, MaxLon: lon, MinLat: lat, MaxLat: lat}
				found = true
				continue
			}
			if lon < env.MinLon {
				env.MinLon = lon
			}
			if lon > env.MaxLon {
				env.MaxLon = lon
			}
			if lat < env.MinLat {
				env.MinLat = lat
			}
			if lat > env.MaxLat {
				env.MaxLat = lat
			}
		}
	}
	return env, found
}

// flattenPoints extracts [lon,lat] pairs from a GeoJSON Polygon or
// MultiPolygon coordinates tree, matching `get_shape_points`.
func flattenPoints(geometryType string, coords []any) [][]float64 {
	var points [][]float64
	switch geometryType {
	case "Polygon":
		for _, ring := range coords {
			points = append(points, ringPoints(ring)...)
		}
	case "MultiPolygon":
		for _, polygon := range coords {
			polyList, ok := polygon.([]any)
			if !ok {
				continue
			}
			for _, ring := range polyList {
				points = append(points, ringPoints(ring)...)
			}
		}
	}
	return points
}

func ringPoints(ring any) [][]float64 {
	list, ok := ring.([]any)
	if !ok {
		return nil
	}
	var out [][]float64
	for _, p := range list {
		coords, ok := p.([]any)
		if !ok || len(coords) < 2 {
			continue
		}
		lon, ok1 := coords[0].(float64)
		lat, ok2 := coords[1].(float64)
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, []float64{lon, lat})
	}
	return out
}

// osmRelationQuery finds the OSM relation ID (P402) for each level-1 area,
// used as a fallback when Wikidata has no geoshape.
const osmRelationQuery = `SELECT ?area ?osm WHERE {
  ?parent wdt:P31 wd:Q6256.
  ?parent wdt:P150 ?area.
  ?area wdt:P31 [wdt:P279 wd:Q10864048].
  ?area wdt:P402 ?osm.
}`

type osmElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Tags  map[string]string `json:"tags"`
	Nodes []int64           `json:"nodes"`
}

type osmResponse struct {
	Elements []osmElement `json:"elements"`
}

// FetchOSMRelationIDs maps every level-1 area that has an OpenStreetMap
// relation ID (P402) to that ID, mirroring the P402-lookup half of
// `bounds1`; buildLevel consults it only for areas without a geoshape.
func FetchOSMRelationIDs(ctx context.Context, client httputil.HTTPClient) (map[string]string, error) {
	bindings, err := sparqlQuery(ctx, client, osmRelationQuery)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(bindings))
	for _, b := range bindings {
		out[entityID(b, "area")] = literal(b, "osm")
	}
	return out, nil
}

// FetchOSMRelationBounds downloads a single OSM relation's boundary ways
// and computes their bounding envelope, mirroring the `requests.get(
// .../relation/{osm}/full)` branch of `bounds1`.
func FetchOSMRelationBounds(ctx context.Context, client httputil.HTTPClient, relationID string) (schema.Envelope, bool, error) {
	url := fmt.Sprintf("https://api.openstreetmap.org/api/0.6/relation/%s/full", relationID)
	resp, err := client.Get(url)
	if err != nil {
		return schema.Envelope{}, false, fmt.Errorf("geobuild: fetching OSM relation %s: %w", relationID, err)
	}
	defer resp.Body.Close()

	var data osmResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return schema.Envelope{}, false, fmt.Errorf("geobuild: decoding OSM relation %s: %w", relationID, err)
	}

	nodes := make(map[int64]osmElement)
	for _, el := range data.Elements {
		if el.Type == "node" {
			nodes[el.ID] = el
		}
	}

	var env schema.Envelope
	found := false
	for _, el := range data.Elements {
		if el.Type != "way" || el.Tags["boundary"] != "administrative" {
			continue
		}
		for _, nodeID := range el.Nodes {
			node, ok := nodes[nodeID]
			if !ok {
				continue
			}
			if !found {
				env = schema.Envelope{MinLon: node.Lon, MaxLon: node.Lon, MinLat: node.Lat, MaxLat: node.Lat}
				found = true
				continue
			}
			if node.Lon < env.MinLon {
				env.MinLon = node.Lon
			}
			if node.Lon > env.MaxLon {
				env.MaxLon = node.Lon
			}
			if node.Lat < env.MinLat {
				env.MinLat = node.Lat
			}
			if node.Lat > env.MaxLat {
				env.MaxLat = node.Lat
			}
		}
	}
	return env, found, nil
}
