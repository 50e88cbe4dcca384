// Package json reads JSON dataset files into dataset.Table values.
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"aurelion/internal/config"
	"aurelion/internal/dataset"
)

// ReadTable decodes a JSON source into a dataset.Table.
//
// Accepted roots:
//   - an array of objects: each element becomes a row
//   - an object containing an array-of-objects field (envelope pattern):
//     the first such field, by lexicographic key order, is used
//   - a single object: one row
//
// Keys are normalized the same way as CSV headers: header_map first, then
// lowercase with spaces replaced by underscores. The column set is the union
// of keys across all objects, sorted for determinism. Scalar values are
// rendered to strings; the cleaner owns typed coercion.
func ReadTable(name string, src io.Reader, opt config.Options) (*dataset.Table, error) {
	dec := json.NewDecoder(src)
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return &dataset.Table{Name: name}, nil
		}
		return nil, fmt.Errorf("%s: decode json: %w", name, err)
	}

	objs, err := extractObjects(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	hm := opt.StringMap("header_map")
	normalize := func(k string) string {
		k = strings.TrimSpace(k)
		if mapped, ok := hm[k]; ok {
			return mapped
		}
		return strings.ReplaceAll(strings.ToLower(k), " ", "_")
	}

	colSet := map[string]struct{}{}
	for _, o := range objs {
		for k := range o {
			colSet[normalize(k)] = struct{}{}
		}
	}
	columns := make([]string, 0, len(colSet))
	for c := range colSet {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	colIx := make(map[string]int, len(columns))
	for i, c := range columns {
		colIx[c] = i
	}

	t := &dataset.Table{Name: name, Columns: columns}
	for _, o := range objs {
		row := make([]string, len(columns))
		for k, v := range o {
			i, ok := colIx[normalize(k)]
			if !ok {
				continue
			}
			row[i] = scalarString(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func extractObjects(root any) ([]map[string]any, error) {
	switch r := root.(type) {
	case []any:
		return objectSlice(r)

	case map[string]any:
		// Envelope: pick the first array-of-objects field deterministically.
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			arr, ok := r[k].([]any)
			if !ok || len(arr) == 0 {
				continue
			}
			if _, ok := arr[0].(map[string]any); ok {
				return objectSlice(arr)
			}
		}
		// Plain object: a single record.
		return []map[string]any{r}, nil

	default:
		return nil, fmt.Errorf("unsupported json root %T", root)
	}
}

func objectSlice(arr []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, expected object", i, el)
		}
		out = append(out, obj)
	}
	return out, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
