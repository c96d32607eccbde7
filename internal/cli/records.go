package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/roach88/specatalog/internal/catalogerr"
	"github.com/roach88/specatalog/internal/schema"
	"github.com/roach88/specatalog/internal/value"
)

// parseAssignments parses "field=value" flags for entity e.
func parseAssignments(e *schema.Entity, sets []string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, catalogerr.Validation(e.Name, "", "invalid assignment %q (want field=value)", s)
		}
		f, ok := e.Field(name)
		if !ok {
			return nil, catalogerr.Validation(e.Name, name, "unknown field")
		}
		v, err := schema.Parse(e, f, raw)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// readRecordFile decodes a YAML mapping of field values for entity e.
func readRecordFile(e *schema.Entity, path string) (map[string]value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record file: %w", err)
	}

	var raw map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, catalogerr.Validation(e.Name, "", "%s: %v", path, err)
	}

	out := make(map[string]value.Value, len(raw))
	for name, x := range raw {
		f, ok := e.Field(name)
		if !ok {
			return nil, catalogerr.Validation(e.Name, name, "unknown field")
		}
		v, err := schema.FromAny(e, f, x)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// writeRecord writes one field per line in declaration order.
func writeRecord(w io.Writer, rec schema.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names, vals := rec.Ordered()
	for i, name := range names {
		fmt.Fprintf(tw, "%s:\t%s\n", name, value.Format(vals[i]))
	}
	return tw.Flush()
}

// writeTable writes records as aligned columns, one record per row.
func writeTable(w io.Writer, e *schema.Entity, recs []schema.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fields := e.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, rec := range recs {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = value.Format(rec.Get(f.Name))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// recordMaps converts records to JSON-friendly maps.
func recordMaps(recs []schema.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = rec.MarshalMap()
	}
	return out
}
