// Package geocoder resolves free-text addresses to coordinates through a
// Nominatim-compatible batch geocoding service.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/VIDA-NYU/datamart-profiler/internal/httputil"
	"github.com/VIDA-NYU/datamart-profiler/internal/metrics"
	"github.com/VIDA-NYU/datamart-profiler/internal/monitoring"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/errs"
)

// MaxAddressLength bounds how long a candidate address string may be.
const MaxAddressLength = 90

// MaxRequests caps the number of unique address lookups per column.
const MaxRequests = 200

// BatchSize is the number of addresses submitted per batch request.
const BatchSize = 30

// MinSplitBatchSize is the smallest batch eligible for halving on a 500.
const MinSplitBatchSize = 6

// retryStatusCodes are transient failures retried with backoff.
var retryStatusCodes = map[int]bool{502: true, 503: true, 504: true}

const maxRetries = 5
const retryBackoff = 1 * time.Second

// Point is a resolved lat/long pair.
type Point struct {
	Lat float64
	Lon float64
}

// Client queries the geocoder for a batch of address strings.
type Client interface {
	// Query resolves each address in q, in order, to a Point or nil if
	// unresolved.
	Query(ctx context.Context, q []string) ([]*Point, error)
}

// HTTPClient implements Client against a Nominatim-compatible batch
// `/search` endpoint.
type HTTPClient struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewHTTPClient builds an HTTPClient targeting baseURL.
func NewHTTPClient(baseURL string, client httputil.HTTPClient) *HTTPClient {
	return &HTTPClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: client}
}

var _ Client = (*HTTPClient)(nil)

type batchEntry struct {
	Q string `json:"q"`
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type batchResponse struct {
	Batch [][]nominatimResult `json:"batch"`
}

// Query submits q as a single batch request, retrying the whole request on
// 502/503/504 with backoff, up to maxRetries attempts in all.
func (c *HTTPClient) Query(ctx context.Context, q []string) ([]*Point, error) {
	entries := make([]batchEntry, len(q))
	for i, s := range q {
		entries[i] = batchEntry{Q: s}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, errs.Wrap(errs.ErrGeocoderFailure, "encoding batch request", err)
	}

	values := url.Values{}
	values.Set("batch", string(payload))
	values.Set("format", "jsonv2")
	reqURL := c.BaseURL + "/search?" + values.Encode()

	var resp *http.Response
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}
		metrics.NominatimRequests.Inc()
		start := time.Now()

		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if rerr != nil {
			return nil, errs.Wrap(errs.ErrGeocoderFailure, "building request", rerr)
		}
		resp, err = c.HTTP.Do(req)
		if err != nil {
			monitoring.Logf("geocoder: request failed: %v", err)
			continue
		}
		if !retryStatusCodes[resp.StatusCode] {
			metrics.NominatimRequestSeconds.Observe(time.Since(start).Seconds())
			break
		}
		resp.Body.Close()
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrGeocoderFailure, "contacting geocoder", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &statusError{code: resp.StatusCode}
	}

	var parsed batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errs.Wrap(errs.ErrGeocoderFailure, "decoding geocoder response", err)
	}

	out := make([]*Point, len(q))
	for i, results := range parsed.Batch {
		if i >= len(out) || len(results) == 0 {
			continue
		}
		lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
		lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		out[i] = &Point{Lat: lat, Lon: lon}
	}
	return out, nil
}

// statusError carries an HTTP status code for batch-halving decisions.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("geocoder returned status %d", e.code) }

// StatusCode extracts the HTTP status code from err, if it is one raised
// by HTTPClient.Query.
func StatusCode(err error) (int, bool) {
	se, ok := err.(*statusError)
	if !ok {
		return 0, false
	}
	return se.code, true
}

// ResolveAll resolves every non-empty address in values, batching requests
// of up to BatchSize unique addresses and halving a batch that fails with
// HTTP 500 (down to MinSplitBatchSize). It stops issuing new requests once
// MaxRequests unique lookups have been attempted. Returns the resolved
// points (in no particular order) and the count of non-empty input values
// considered.
func ResolveAll(ctx context.Context, client Client, values []string) ([]Point, int, error) {
	cache := map[string]*Point{}
	var locations []Point
	nonEmpty := 0
	batch := map[string]int{}
	var batchOrder []string

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		keys := make([]string, len(batchOrder))
		copy(keys, batchOrder)
		resolved, err := resolveBatch(ctx, client, keys)
		if err != nil {
			return err
		}
		for i, key := range keys {
			count := batch[key]
			if resolved[i] != nil {
				cache[key] = resolved[i]
				for j := 0; j < count; j++ {
					locations = append(locations, *resolved[i])
				}
			} else {
				cache[key] = nil
			}
		}
		batch = map[string]int{}
		batchOrder = nil
		return nil
	}

	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		nonEmpty++

		if len(value) > MaxAddressLength {
			continue
		}
		if pt, ok := cache[value]; ok {
			if pt != nil {
				locations = append(locations, *pt)
			}
			continue
		}
		if _, ok := batch[value]; ok {
			batch[value]++
			continue
		}
		batch[value] = 1
		batchOrder = append(batchOrder, value)
		if len(batch) == BatchSize || len(cache)+len(batch) >= MaxRequests {
			if err := flush(); err != nil {
				return nil, nonEmpty, err
			}
			if len(cache) >= MaxRequests {
				return locations, nonEmpty, nil
			}
		}
	}
	if len(batch) > 0 && len(cache) < MaxRequests {
		if err := flush(); err != nil {
			return nil, nonEmpty, err
		}
	}
	return locations, nonEmpty, nil
}

// resolveBatch queries client for keys, halving on a 500 status when the
// batch is still large enough to split.
func resolveBatch(ctx context.Context, client Client, keys []string) ([]*Point, error) {
	results, err := client.Query(ctx, keys)
	if err != nil {
		if code, ok := StatusCode(err); ok && code == 500 && len(keys) >= MinSplitBatchSize {
			mid := len(keys) / 2
			left, err := resolveBatch(ctx, client, keys[:mid])
			if err != nil {
				return nil, err
			}
			right, err := resolveBatch(ctx, client, keys[mid:])
			if err != nil {
				return nil, err
			}
			return append(left, right...), nil
		}
		return nil, errs.Wrap(errs.ErrGeocoderFailure, "resolving address batch", err)
	}
	return results, nil
}
