// Package csv reads delimited dataset files into dataset.Table values.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"aurelion/internal/config"
	"aurelion/internal/dataset"
)

// ReadTable reads an entire CSV source into a dataset.Table.
//
// Header handling:
//   - headers are trimmed; a UTF-8 BOM on the first header is stripped
//   - header_map (source header -> canonical name) is applied first
//   - unmapped headers are lowercased and spaces become underscores
//
// Options:
//   - has_header (bool, default true)
//   - comma (string, first rune, default ',')
//   - trim_space (bool, default true)
//   - lazy_quotes (bool, default false)
//   - fields_per_record (int, default variable)
//   - header_map (map source header -> canonical column)
//   - encoding ("windows-1252" | "latin1"; default UTF-8)
//
// Malformed records are reported to onErr with their 1-based line number and
// skipped; only a header read failure is fatal.
func ReadTable(
	name string,
	src io.Reader,
	opt config.Options,
	onErr func(line int, err error),
) (*dataset.Table, error) {
	hasHeader := opt.Bool("has_header", true)
	comma := opt.Rune("comma", ',')
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")
	lazy := opt.Bool("lazy_quotes", false)
	fieldsPer := opt.Int("fields_per_record", 0)

	r, err := decodeReader(src, opt.String("encoding", ""))
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = lazy
	if fieldsPer != 0 {
		cr.FieldsPerRecord = fieldsPer
	} else {
		cr.FieldsPerRecord = -1
	}

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	t := &dataset.Table{Name: name}

	if hasHeader {
		hdr, err := readRec()
		if err != nil {
			if err == io.EOF {
				return t, nil
			}
			return nil, fmt.Errorf("%s: read header: %w", name, err)
		}
		t.Columns = make([]string, len(hdr))
		for i, h := range hdr {
			h = strings.TrimSpace(h)
			if i == 0 {
				h = strings.TrimPrefix(h, "\uFEFF")
			}
			if mapped, ok := hm[h]; ok {
				h = mapped
			} else {
				h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
			}
			t.Columns[i] = h
		}
	}

	for {
		rec, err := readRec()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		if t.Columns == nil {
			// Headerless file: synthesize positional column names from the
			// first record (col_1, col_2, ...).
			t.Columns = make([]string, len(rec))
			for i := range rec {
				t.Columns[i] = fmt.Sprintf("col_%d", i+1)
			}
		}

		row := make([]string, len(t.Columns))
		for i := range t.Columns {
			if i >= len(rec) {
				break
			}
			v := rec[i]
			if trim {
				v = strings.TrimSpace(v)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
}

// decodeReader wraps src with a charset decoder when the source file is not
// UTF-8. Spreadsheet exports in this domain are frequently windows-1252.
func decodeReader(src io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return src, nil
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "latin1", "iso-8859-1":
		enc = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(src, enc.NewDecoder()), nil
}
