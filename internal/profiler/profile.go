// Package profiler composes the loader, type identifier, and analyzer
// packages into Profile, the single exported entry point that turns raw
// tabular input into a schema.Dataset metadata document.
package profiler

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/VIDA-NYU/datamart-profiler/internal/config"
	"github.com/VIDA-NYU/datamart-profiler/internal/fsutil"
	"github.com/VIDA-NYU/datamart-profiler/internal/geocoder"
	"github.com/VIDA-NYU/datamart-profiler/internal/metrics"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/errs"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/load"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/numerical"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/plot"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/sketch"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/spatial"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/temporal"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/types"
)

// SampleRowMaxCellLength bounds a cell's length in the emitted `sample`
// CSV text; longer values are truncated, breaking on a space when one is
// found past the midpoint.
const SampleRowMaxCellLength = 140

// sampleSeedOffset keeps the sample-row PRNG stream independent from the
// loader's own sub-sampling stream, even when both are seeded identically.
const sampleSeedOffset = 1

// Input is one of the three shapes the loader accepts.
type Input struct {
	// Path, if set, is loaded through FileSystem.
	Path string
	// Reader, if set (and Path is empty), is loaded as a seekable stream
	// of Size bytes.
	Reader load.SeekReader
	Size   int64
	// ColumnNames and Rows, if ColumnNames is set, take precedence over
	// Path and Reader and are used directly with no sub-sampling, the Go
	// analogue of handing the profiler an already-materialized table.
	ColumnNames []string
	Rows        [][]string

	// ID, Name, Description, Source, Materialize carry discoverer-supplied
	// metadata copied verbatim into the output document.
	ID          string
	Name        string
	Description string
	Source      string
	Materialize map[string]any

	Manual *schema.ManualAnnotations
}

// Dependencies bundles the profiler's remote collaborators. Any field may
// be nil to disable the corresponding capability.
type Dependencies struct {
	FileSystem    fsutil.FileSystem
	AdminResolver types.AdminResolver
	AdminBounds   types.AdminBoundsResolver
	Geocoder      geocoder.Client
	Sketch        sketch.Client
}

type resolvedColumn struct {
	datetimes  []time.Time
	timestamps []float64
	adminLevel int
	adminAreas []string
}

// Profile runs the full pipeline over in and returns the assembled
// metadata document, or an error for a fatal condition (empty/malformed
// input, I/O failure, or invalid Options). Non-fatal collaborator
// failures (geocoder, sketch) degrade the affected column instead of
// failing the call.
func Profile(ctx context.Context, in Input, deps Dependencies, opts *config.Options) (*schema.Dataset, error) {
	if opts == nil {
		opts = config.EmptyOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "validating options", err)
	}

	start := time.Now()
	ds, err := profile(ctx, in, deps, opts)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProfileDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return ds, err
}

func profile(ctx context.Context, in Input, deps Dependencies, opts *config.Options) (*schema.Dataset, error) {
	frame, loadMeta, err := loadInput(in, deps, opts)
	if err != nil {
		return nil, err
	}

	ds := &schema.Dataset{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Source:      in.Source,
		Date:        time.Now().UTC(),
		Version:     schema.Version,
		Materialize: in.Materialize,
		Size:        loadMeta.Size,
		NBRows:      loadMeta.NBRows,
		Types:       []string{},
		Columns:     []schema.Column{},
	}

	if loadMeta.NBRows == 0 {
		return ds, nil
	}

	ds.NBProfiledRows = len(frame.Rows)
	ds.NBColumns = len(frame.ColumnNames)
	ds.AverageRowSize = loadMeta.AverageRowSize

	manualByName := manualAnnotationsByName(in.Manual)
	columns, aux := detectAndAnalyze(frame, deps.AdminResolver, manualByName, opts)
	ds.Columns = columns

	runSketchClient(ctx, deps.Sketch, in.ID, frame, ds.Columns, opts)

	pairLatLongColumns(ds.Columns)

	populateDatasetTypeCounts(ds)

	if opts.GetCoverage() {
		ds.SpatialCoverage = computeSpatialCoverage(ctx, frame, ds.Columns, aux, deps.Geocoder, deps.AdminBounds, opts)
		ds.TemporalCoverage = computeTemporalCoverage(ds.Columns, aux, opts)
	}

	ds.AttributeKeywords = attributeKeywords(frame.ColumnNames)

	if opts.GetIncludeSample() {
		ds.Sample = drawSample(frame, opts)
	}

	ds.RecommendPlots = recommendPlots(ds.Columns, frame, opts)

	if in.Manual != nil {
		ds.ManualAnnotations = in.Manual
	}

	return ds, nil
}

func loadInput(in Input, deps Dependencies, opts *config.Options) (*load.Frame, *load.Metadata, error) {
	if in.ColumnNames != nil {
		return load.FromRows(in.ColumnNames, in.Rows)
	}
	if in.Path != "" {
		fsys := deps.FileSystem
		if fsys == nil {
			fsys = fsutil.OSFileSystem{}
		}
		return load.FromPath(fsys, in.Path, opts.GetLoadMaxSize(), opts.GetSeed())
	}
	if in.Reader != nil {
		return load.FromReader(in.Reader, in.Size, opts.GetLoadMaxSize(), opts.GetSeed())
	}
	return nil, nil, errs.Wrap(errs.ErrEmptyInput, "no path, reader, or frame supplied", nil)
}

func manualAnnotationsByName(m *schema.ManualAnnotations) map[string]*schema.ManualColumnAnnotation {
	if m == nil {
		return nil
	}
	out := make(map[string]*schema.ManualColumnAnnotation, len(m.Columns))
	for i := range m.Columns {
		out[m.Columns[i].Name] = &m.Columns[i]
	}
	return out
}

// detectAndAnalyze runs the type identifier and the numerical/temporal
// analyzers for every column, over a worker pool bounded at
// Options.WorkerCount (0 meaning runtime.GOMAXPROCS(0)). Each worker owns
// one column end to end, so results are written to pre-sized slices by
// index with no further synchronization needed.
func detectAndAnalyze(
	frame *load.Frame,
	resolver types.AdminResolver,
	manual map[string]*schema.ManualColumnAnnotation,
	opts *config.Options,
) ([]schema.Column, []resolvedColumn) {
	n := len(frame.ColumnNames)
	columns := make([]schema.Column, n)
	aux := make([]resolvedColumn, n)

	workers := opts.GetWorkerCount()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int, n)
	for i := 0; i < n; i++ {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				columns[i], aux[i] = analyzeColumn(frame, i, resolver, manual, opts)
			}
		}()
	}
	wg.Wait()

	return columns, aux
}

func analyzeColumn(
	frame *load.Frame,
	index int,
	resolver types.AdminResolver,
	manual map[string]*schema.ManualColumnAnnotation,
	opts *config.Options,
) (schema.Column, resolvedColumn) {
	name := frame.ColumnNames[index]
	values := frame.Column(index)

	result := types.Detect(name, values, resolver, manual[name])
	metrics.TypesDetected.WithLabelValues(result.StructuralType).Inc()

	col := schema.Column{
		Name:           name,
		StructuralType: result.StructuralType,
		SemanticTypes:  result.SemanticTypes.Slice(),
	}
	aux := resolvedColumn{
		datetimes:  result.Aux.Datetimes,
		timestamps: result.Aux.Timestamps,
		adminLevel: result.Aux.AdminLevel,
		adminAreas: result.Aux.AdminAreas,
	}

	if result.StructuralType == schema.Integer || result.StructuralType == schema.Float {
		nums := parseFloats(values)
		nums = numerical.FilterFinite(nums)
		if len(nums) > 0 {
			mean, stddev := numerical.MeanStdDev(nums)
			col.Mean, col.StdDev = &mean, &stddev
			if opts.GetCoverage() {
				col.Coverage = numerical.Ranges(nums, opts.GetSeed())
			}
			if opts.GetPlots() {
				col.Plot = numerical.HistogramPlot(nums)
			}
		}
	}

	if result.StructuralType == schema.GeoPoint {
		col.PointFormat = schema.PointFormatLongLat
	}

	if result.SemanticTypes.Has(schema.DateTime) && opts.GetPlots() {
		col.Plot = temporal.HistogramPlot(aux.timestamps)
	}

	if result.SemanticTypes.Has(schema.Admin) {
		level := aux.adminLevel
		col.AdminAreaLevel = &level
	}

	return col, aux
}

func parseFloats(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// runSketchClient indexes (or sketches) every non-date-time text column
// through the sketch client, per Options.Search.
func runSketchClient(ctx context.Context, client sketch.Client, datasetID string, frame *load.Frame, columns []schema.Column, opts *config.Options) {
	if client == nil {
		return
	}

	var names []string
	var values [][]string
	for i, col := range columns {
		if col.StructuralType != schema.Text {
			continue
		}
		isDateTime := false
		for _, t := range col.SemanticTypes {
			if t == schema.DateTime {
				isDateTime = true
				break
			}
		}
		if isDateTime {
			continue
		}
		names = append(names, col.Name)
		values = append(values, frame.Column(i))
	}
	if len(names) == 0 {
		return
	}

	if opts.GetSearch() {
		lazos, err := sketch.SketchColumns(ctx, client, "", names, values)
		if err != nil {
			return
		}
		byName := make(map[string]*schema.Lazo, len(names))
		for i, name := range names {
			byName[name] = lazos[i]
		}
		for i, col := range columns {
			if lazo, ok := byName[col.Name]; ok && lazo != nil {
				columns[i].Lazo = lazo
			}
		}
		return
	}

	_ = sketch.IndexColumns(ctx, client, "", datasetID, names, values)
}

// pairLatLongColumns matches latitude/longitude columns by normalized
// name and strips the semantic type from every column left unpaired.
func pairLatLongColumns(columns []schema.Column) {
	var lats, lons []spatial.LatLongColumn
	for i, col := range columns {
		hasLat, hasLon := false, false
		for _, t := range col.SemanticTypes {
			if t == schema.Latitude {
				hasLat = true
			}
			if t == schema.Longitude {
				hasLon = true
			}
		}
		if hasLat {
			lats = append(lats, spatial.LatLongColumn{Name: col.Name, Index: i})
		}
		if hasLon {
			lons = append(lons, spatial.LatLongColumn{Name: col.Name, Index: i})
		}
	}

	pairs, missedLat, missedLon := spatial.PairLatLongColumns(lats, lons)
	_ = pairs
	for _, m := range missedLat {
		removeSemanticType(&columns[m.Index], schema.Latitude)
	}
	for _, m := range missedLon {
		removeSemanticType(&columns[m.Index], schema.Longitude)
	}
}

func removeSemanticType(col *schema.Column, t string) {
	out := col.SemanticTypes[:0]
	for _, v := range col.SemanticTypes {
		if v != t {
			out = append(out, v)
		}
	}
	col.SemanticTypes = out
}

func populateDatasetTypeCounts(ds *schema.Dataset) {
	types := map[string]bool{}
	for _, col := range ds.Columns {
		dt := plot.DatasetType(toPlotColumn(col))
		switch dt {
		case schema.DatasetSpatial:
			ds.NBSpatialColumns++
		case schema.DatasetTemporal:
			ds.NBTemporalColumns++
		case schema.DatasetCategorical:
			ds.NBCategoricalColumns++
		case schema.DatasetNumerical:
			ds.NBNumericalColumns++
		}
		if dt != "" {
			types[dt] = true
		}
	}
	for _, t := range []string{schema.DatasetNumerical, schema.DatasetCategorical, schema.DatasetSpatial, schema.DatasetTemporal} {
		if types[t] {
			ds.Types = append(ds.Types, t)
		}
	}
}

func toPlotColumn(col schema.Column) plot.Column {
	set := schema.NewSemanticTypeSet()
	for _, t := range col.SemanticTypes {
		set.Add(t)
	}
	return plot.Column{
		Name:           col.Name,
		StructuralType: col.StructuralType,
		SemanticTypes:  set,
		Mean:           col.Mean,
		StdDev:         col.StdDev,
	}
}

// computeSpatialCoverage assembles spatial_coverage entries in
// processing order: lat/long pairs, then WKT points, then geocoded
// addresses, then aggregated admin-area bounds.
func computeSpatialCoverage(
	ctx context.Context,
	frame *load.Frame,
	columns []schema.Column,
	aux []resolvedColumn,
	geo geocoder.Client,
	adminBounds types.AdminBoundsResolver,
	opts *config.Options,
) []schema.SpatialCoverage {
	var out []schema.SpatialCoverage

	if entry, ok := latLongCoverage(frame, columns, opts); ok {
		out = append(out, entry)
		metrics.SpatialColumnsResolved.WithLabelValues("latlong").Inc()
	}

	for i, col := range columns {
		if col.StructuralType != schema.GeoPoint {
			continue
		}
		points := spatial.ParseWKTColumn(frame.Column(i))
		if len(points) == 0 {
			continue
		}
		ranges := spatial.Ranges(points, opts.GetSeed())
		if len(ranges) == 0 {
			continue
		}
		out = append(out, schema.SpatialCoverage{
			Type:          schema.SpatialPoint,
			ColumnNames:   []string{col.Name},
			ColumnIndexes: []int{i},
			Ranges:        ranges,
		})
		metrics.SpatialColumnsResolved.WithLabelValues("wkt").Inc()
	}

	if geo != nil {
		for i, col := range columns {
			if col.StructuralType != schema.Text {
				continue
			}
			if !hasSemanticType(col, schema.SemText) || hasSemanticType(col, schema.DateTime) {
				continue
			}
			points, ok := spatial.ResolveAddressColumn(ctx, geo, frame.Column(i))
			if !ok {
				continue
			}
			columns[i].SemanticTypes = append(columns[i].SemanticTypes, schema.Address)
			ranges := spatial.Ranges(points, opts.GetSeed())
			if len(ranges) == 0 {
				continue
			}
			out = append(out, schema.SpatialCoverage{
				Type:          schema.SpatialAddress,
				ColumnNames:   []string{col.Name},
				ColumnIndexes: []int{i},
				Ranges:        ranges,
			})
			metrics.SpatialColumnsResolved.WithLabelValues("address").Inc()
		}
	}

	if adminBounds != nil {
		for i, col := range columns {
			if !hasSemanticType(col, schema.Admin) {
				continue
			}
			areas := aux[i].adminAreas
			if len(areas) == 0 {
				continue
			}
			envByName, err := adminBounds.Bounds(areas)
			if err != nil || len(envByName) == 0 {
				continue
			}
			bounds := make([]spatial.AdminBounds, 0, len(envByName))
			for _, area := range areas {
				env, ok := envByName[area]
				if !ok {
					continue
				}
				bounds = append(bounds, spatial.AdminBounds{Name: area, Envelope: env})
			}
			env, ok := spatial.AggregateAdminBounds(bounds)
			if !ok {
				continue
			}
			out = append(out, schema.SpatialCoverage{
				Type:          schema.SpatialAdmin,
				ColumnNames:   []string{col.Name},
				ColumnIndexes: []int{i},
				Ranges:        []schema.SpatialRange{schema.NewSpatialRange(env)},
			})
			metrics.SpatialColumnsResolved.WithLabelValues("admin").Inc()
		}
	}

	return out
}

func hasSemanticType(col schema.Column, t string) bool {
	for _, v := range col.SemanticTypes {
		if v == t {
			return true
		}
	}
	return false
}

func latLongCoverage(frame *load.Frame, columns []schema.Column, opts *config.Options) (schema.SpatialCoverage, bool) {
	var lats, lons []spatial.LatLongColumn
	for i, col := range columns {
		if hasSemanticType(col, schema.Latitude) {
			lats = append(lats, spatial.LatLongColumn{Name: col.Name, Index: i, Values: parseFloats(frame.Column(i))})
		}
		if hasSemanticType(col, schema.Longitude) {
			lons = append(lons, spatial.LatLongColumn{Name: col.Name, Index: i, Values: parseFloats(frame.Column(i))})
		}
	}
	pairs, _, _ := spatial.PairLatLongColumns(lats, lons)
	if len(pairs) == 0 {
		return schema.SpatialCoverage{}, false
	}

	var names []string
	var indexes []int
	var points []spatial.Point
	for _, p := range pairs {
		names = append(names, p.Lat.Name, p.Long.Name)
		indexes = append(indexes, p.Lat.Index, p.Long.Index)
		n := len(p.Lat.Values)
		if len(p.Long.Values) < n {
			n = len(p.Long.Values)
		}
		for i := 0; i < n; i++ {
			points = append(points, spatial.Point{Lat: p.Lat.Values[i], Long: p.Long.Values[i]})
		}
	}

	ranges := spatial.Ranges(points, opts.GetSeed())
	if len(ranges) == 0 {
		return schema.SpatialCoverage{}, false
	}
	return schema.SpatialCoverage{
		Type:          schema.SpatialLatLong,
		ColumnNames:   names,
		ColumnIndexes: indexes,
		Ranges:        ranges,
	}, true
}

func computeTemporalCoverage(columns []schema.Column, aux []resolvedColumn, opts *config.Options) []schema.TemporalCoverage {
	var out []schema.TemporalCoverage
	for i, col := range columns {
		if !hasSemanticType(col, schema.DateTime) {
			continue
		}
		timestamps := aux[i].timestamps
		if len(timestamps) == 0 {
			continue
		}
		ranges := temporal.Ranges(timestamps, opts.GetSeed())
		if len(ranges) == 0 {
			continue
		}
		out = append(out, schema.TemporalCoverage{
			Type:               "datetime",
			ColumnNames:        []string{col.Name},
			ColumnIndexes:      []int{i},
			ColumnTypes:        []string{col.StructuralType},
			Ranges:             ranges,
			TemporalResolution: temporal.InferResolution(aux[i].datetimes),
		})
	}
	return out
}

// attributeKeywords builds the search-index keyword list: each column
// name plus tokens split on non-alphanumerics and case/digit transitions,
// e.g. "firstName2" -> ["firstName2", "first", "Name", "2"].
func attributeKeywords(columnNames []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, name := range columnNames {
		add(name)
		for _, tok := range splitAttributeTokens(name) {
			add(tok)
		}
	}
	return out
}

func splitAttributeTokens(name string) []string {
	var tokens []string
	var cur []rune
	classOf := func(r rune) int {
		switch {
		case unicode.IsDigit(r):
			return 0
		case unicode.IsUpper(r):
			return 1
		case unicode.IsLower(r):
			return 2
		default:
			return -1
		}
	}
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = nil
		}
	}
	prevClass := -2
	for _, r := range name {
		class := classOf(r)
		if class == -1 {
			flush()
			prevClass = -2
			continue
		}
		if len(cur) > 0 && class != prevClass && !(prevClass == 1 && class == 2) {
			flush()
		}
		cur = append(cur, r)
		prevClass = class
	}
	flush()
	return tokens
}

// drawSample draws up to Options.SampleRows random rows with a PRNG
// stream independent from the loader's sub-sampling stream, truncating
// long cell values, and renders the result as CSV text.
func drawSample(frame *load.Frame, opts *config.Options) string {
	n := opts.GetSampleRows()
	if n <= 0 || len(frame.Rows) == 0 {
		return ""
	}
	if n > len(frame.Rows) {
		n = len(frame.Rows)
	}

	rng := rand.New(rand.NewSource(opts.GetSeed() + sampleSeedOffset))
	indexes := rng.Perm(len(frame.Rows))[:n]
	sort.Ints(indexes)

	var b strings.Builder
	writeCSVRow(&b, frame.ColumnNames)
	for _, idx := range indexes {
		row := make([]string, len(frame.Rows[idx]))
		for i, cell := range frame.Rows[idx] {
			row[i] = truncateCell(cell)
		}
		writeCSVRow(&b, row)
	}
	return b.String()
}

func truncateCell(cell string) string {
	if len(cell) <= SampleRowMaxCellLength {
		return cell
	}
	cut := cell[:SampleRowMaxCellLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > SampleRowMaxCellLength/2 {
		cut = cut[:idx]
	}
	return cut
}

func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if strings.ContainsAny(f, ",\"\n") {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(f, `"`, `""`))
			b.WriteByte('"')
		} else {
			b.WriteString(f)
		}
	}
	b.WriteByte('\n')
}

func recommendPlots(columns []schema.Column, frame *load.Frame, opts *config.Options) []schema.PlotRecommendation {
	plotCols := make([]plot.Column, len(columns))
	for i, col := range columns {
		plotCols[i] = toPlotColumn(col)
	}

	n := opts.GetSampleRows()
	if n > len(frame.Rows) {
		n = len(frame.Rows)
	}
	rows := make([]plot.Row, n)
	for i := 0; i < n; i++ {
		row := make(plot.Row, len(frame.ColumnNames))
		for j, name := range frame.ColumnNames {
			if j < len(frame.Rows[i]) {
				row[name] = frame.Rows[i][j]
			}
		}
		rows[i] = row
	}

	return plot.Recommend(plotCols, rows, opts.GetSeed())
}
