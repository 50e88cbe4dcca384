// Package schema validates raw tables against per-table column contracts.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"aurelion/internal/config"
	"aurelion/internal/dataset"
)

// Field declares one expected column of an input table.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required"`
}

// Contract declares the expected columns of one input table.
type Contract struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

// FromConfig builds a Contract from the config-level column lists.
func FromConfig(table string, c config.Contract) Contract {
	out := Contract{Table: table}
	for _, n := range c.Required {
		out.Fields = append(out.Fields, Field{Name: n, Required: true})
	}
	for _, n := range c.Optional {
		out.Fields = append(out.Fields, Field{Name: n})
	}
	return out
}

// SchemaError reports required columns missing from an input table.
// It is fatal: ingestion of that run must not proceed.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// Validate checks t against c.
//
// Returns the sorted list of absent optional columns (a warning signal for the
// caller, never an error) and a *SchemaError when any required column is
// missing. No side effects beyond reporting.
func Validate(t *dataset.Table, c Contract) (missingOptional []string, err error) {
	var missingRequired []string

	for _, f := range c.Fields {
		if t.HasColumn(f.Name) {
			continue
		}
		if f.Required {
			missingRequired = append(missingRequired, f.Name)
		} else {
			missingOptional = append(missingOptional, f.Name)
		}
	}

	sort.Strings(missingOptional)
	if len(missingRequired) > 0 {
		sort.Strings(missingRequired)
		return missingOptional, &SchemaError{Table: c.Table, Missing: missingRequired}
	}
	return missingOptional, nil
}
