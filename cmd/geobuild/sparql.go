package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
)

const wikidataEndpoint = "https://query.wikidata.org/sparql"

// wikidataAdminClasses maps admin level to the Wikidata subdivision class
// used to select areas at that level.
var wikidataAdminClasses = []string{
	"Q6256",     // country
	"Q10864048", // first-level administrative country subdivision
	"Q13220204", // second-level administrative country subdivision
}

type sparqlBinding map[string]struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []sparqlBinding `json:"bindings"`
	} `json:"results"`
}

// sparqlQuery executes a SPARQL query against the Wikidata endpoint and
// returns its result bindings.
func sparqlQuery(ctx context.Context, client httputil.HTTPClient, query string) ([]sparqlBinding, error) {
	u := wikidataEndpoint + "?" + url.Values{"query": {query}}.Encode()
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("geobuild: querying wikidata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("geobuild: wikidata returned status %d", resp.StatusCode)
	}
	var decoded sparqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("geobuild: decoding wikidata response: %w", err)
	}
	return decoded.Results.Bindings, nil
}

func entityID(b sparqlBinding, key string) string {
	const prefix = "http://www.wikidata.org/entity/"
	v := b[key].Value
	if len(v) > len(prefix) && v[:len(prefix)] == prefix {
		return v[len(prefix):]
	}
	return v
}

func literal(b sparqlBinding, key string) string { return b[key].Value }

// adminLevelQuery builds the SPARQL query that lists every area at level,
// mirroring `get_admin_level` in the original tool.
func adminLevelQuery(level int) string {
	switch level {
	case 0:
		return `SELECT ?country ?countryLabel WHERE {
  ?country wdt:P31 wd:Q6256.
  SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en". }
}`
	case 1:
		return `SELECT ?parent ?area ?areaLabel WHERE {
  ?parent wdt:P31 wd:Q6256.
  ?parent wdt:P150 ?area.
  ?area wdt:P31 [wdt:P279 wd:Q10864048].
  SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en". }
}`
	default:
		return fmt.Sprintf(`SELECT ?parent ?area ?areaLabel WHERE {
  ?tmp0 wdt:P31 wd:Q6256.
  ?tmp0 wdt:P150? ?parent.
  ?parent wdt:P150 ?area.
  ?area wdt:P31 [wdt:P279 wd:%s].
  SERVICE wikibase:label { bd:serviceParam wikibase:language "[AUTO_LANGUAGE],en". }
}`, wikidataAdminClasses[level])
	}
}

// AreaRecord is one administrative area discovered via SPARQL, not yet
// resolved to a bounding box.
type AreaRecord struct {
	Level      int
	Name       string // Wikidata QID, used as the join key to shapes/OSM
	Label      string
	ParentName string
}

// FetchAdminLevel lists every area at level via sparqlQuery.
func FetchAdminLevel(ctx context.Context, client httputil.HTTPClient, level int) ([]AreaRecord, error) {
	bindings, err := sparqlQuery(ctx, client, adminLevelQuery(level))
	if err != nil {
		return nil, err
	}
	out := make([]AreaRecord, 0, len(bindings))
	for _, b := range bindings {
		if level == 0 {
			out = append(out, AreaRecord{Level: 0, Name: entityID(b, "country"), Label: literal(b, "countryLabel")})
			continue
		}
		out = append(out, AreaRecord{
			Level:      level,
			Name:       entityID(b, "area"),
			Label:      literal(b, "areaLabel"),
			ParentName: entityID(b, "parent"),
		})
	}
	return out, nil
}
