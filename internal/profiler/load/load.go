// Package load reads a CSV-shaped input into a sampled, in-memory frame,
// matching the sub-sampling behavior of the Python profiler this package
// was ported from: inputs larger than a configured size budget are
// Bernoulli sub-sampled with a fixed seed, for reproducibility.
package load

import (
	"encoding/csv"
	"io"
	"math/rand"

	"github.com/VIDA-NYU/datamart-profiler/internal/fsutil"
	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/errs"
)

// HeaderMaxGarbage bounds how many leading rows may be discarded as
// garbage (titles, notes) before a consistent column count is found.
const HeaderMaxGarbage = 6

// HeaderConsistentRows is how many consecutive rows with the same column
// count are required before the header is accepted.
const HeaderConsistentRows = 4

// Frame is a loaded, possibly sub-sampled table: ColumnNames followed by
// Rows, each the same width as ColumnNames.
type Frame struct {
	ColumnNames []string
	Rows        [][]string
}

// Column returns the values of the column at index, or nil if index is
// out of range.
func (f *Frame) Column(index int) []string {
	if index < 0 || index >= len(f.ColumnNames) {
		return nil
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		if index < len(row) {
			out[i] = row[index]
		}
	}
	return out
}

// Metadata carries facts discovered while loading, independent of the
// sampled content: the true row count and byte size of the full input.
type Metadata struct {
	Size           int64
	NBRows         int
	AverageRowSize float64
}

// SeekReader is satisfied by any input that can be read twice: once to
// count rows (when sub-sampling is needed) and once to parse them.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// FromPath opens path through fsys and loads it.
func FromPath(fsys fsutil.FileSystem, path string, maxSize int64, seed int64) (*Frame, *Metadata, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrIOFailure, "stat input file", err)
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrIOFailure, "open input file", err)
	}
	defer f.Close()

	sr, ok := f.(SeekReader)
	if !ok {
		// OSFileSystem.Open returns *os.File, which satisfies SeekReader;
		// other fs.File implementations (e.g. in-memory fakes) may not.
		return nil, nil, errs.Wrap(errs.ErrIOFailure, "input file does not support seeking", nil)
	}

	return load(sr, info.Size(), maxSize, seed)
}

// FromReader loads an already-open, seekable stream. size must be the
// total byte length of r (callers that don't know it up front should seek
// to the end once and report that).
func FromReader(r SeekReader, size int64, maxSize int64, seed int64) (*Frame, *Metadata, error) {
	return load(r, size, maxSize, seed)
}

// FromRows loads a pre-built frame (the Go analogue of handing the
// profiler a pandas.DataFrame directly): no sub-sampling is performed,
// matching the original's "no sampling here" path for in-memory frames.
func FromRows(columnNames []string, rows [][]string) (*Frame, *Metadata) {
	return &Frame{ColumnNames: columnNames, Rows: rows}, &Metadata{NBRows: len(rows)}
}

func load(r SeekReader, size int64, maxSize int64, seed int64) (*Frame, *Metadata, error) {
	if maxSize <= 0 {
		maxSize = 50 * 1000 * 1000
	}

	garbage, err := countGarbageRows(r)
	if err != nil {
		return nil, nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, errs.Wrap(errs.ErrIOFailure, "seek to start", err)
	}

	columnNames, err := readHeader(r, garbage)
	if err != nil {
		return nil, nil, err
	}

	meta := &Metadata{Size: size}

	if size > maxSize {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, nil, errs.Wrap(errs.ErrIOFailure, "seek to start", err)
		}
		nbRows, err := countDataRows(r, garbage+1)
		if err != nil {
			return nil, nil, err
		}
		meta.NBRows = nbRows
		if nbRows > 0 {
			meta.AverageRowSize = float64(size) / float64(nbRows)
		}

		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, nil, errs.Wrap(errs.ErrIOFailure, "seek to start", err)
		}
		ratio := float64(maxSize) / float64(size)
		rows, err := readSampledRows(r, garbage+1, ratio, seed)
		if err != nil {
			return nil, nil, err
		}
		return &Frame{ColumnNames: columnNames, Rows: rows}, meta, nil
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, errs.Wrap(errs.ErrIOFailure, "seek to start", err)
	}
	rows, err := readAllRows(r, garbage+1)
	if err != nil {
		return nil, nil, err
	}
	meta.NBRows = len(rows)
	if meta.NBRows > 0 {
		meta.AverageRowSize = float64(size) / float64(meta.NBRows)
	}
	return &Frame{ColumnNames: columnNames, Rows: rows}, meta, nil
}

// countGarbageRows finds the index of the first row in a run of
// HeaderConsistentRows consecutive rows sharing the same column count,
// within the first HeaderMaxGarbage+HeaderConsistentRows rows.
func countGarbageRows(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	runStart, runCols, runLen := 0, -1, 0
	limit := HeaderMaxGarbage + HeaderConsistentRows
	for i := 0; i < limit; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			return runStart, nil
		}
		if err != nil {
			return 0, errs.Wrap(errs.ErrMalformedInput, "reading CSV rows", err)
		}
		if len(row) == runCols {
			runLen++
			if runLen == HeaderConsistentRows {
				return runStart, nil
			}
		} else {
			runStart, runCols, runLen = i, len(row), 1
		}
	}
	return 0, errs.Wrap(errs.ErrMalformedInput, "can't find consistent CSV data in file", nil)
}

func readHeader(r io.Reader, skipRows int) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	for i := 0; i < skipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, errs.Wrap(errs.ErrMalformedInput, "skipping garbage rows", err)
		}
	}
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errs.Wrap(errs.ErrEmptyInput, "no header row", nil)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrMalformedInput, "reading header row", err)
	}
	return header, nil
}

func countDataRows(r io.Reader, skipRows int) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	for i := 0; i < skipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return 0, nil
			}
			return 0, errs.Wrap(errs.ErrMalformedInput, "skipping header rows", err)
		}
	}
	n := 0
	for {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return 0, errs.Wrap(errs.ErrMalformedInput, "counting rows", err)
		}
		n++
	}
}

func readAllRows(r io.Reader, skipRows int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	for i := 0; i < skipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, errs.Wrap(errs.ErrMalformedInput, "skipping header rows", err)
		}
	}
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrMalformedInput, "reading data rows", err)
		}
		rows = append(rows, row)
	}
}

// readSampledRows Bernoulli sub-samples rows past skipRows, keeping each
// with probability ratio, using a PRNG seeded identically across calls for
// reproducibility (the loader's own sub-sampling stream; sample-row
// selection for the final `sample` field uses an independent stream, see
// profiler.drawSample).
func readSampledRows(r io.Reader, skipRows int, ratio float64, seed int64) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	for i := 0; i < skipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, errs.Wrap(errs.ErrMalformedInput, "skipping header rows", err)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrMalformedInput, "reading data rows", err)
		}
		if rng.Float64() <= ratio {
			rows = append(rows, row)
		}
	}
}
