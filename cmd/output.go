package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/mcp-proxmox/internal/tools"
)

// Output formats for call and shell.
const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

// writeResult renders r to w in the requested format. JSON is exactly the
// text an MCP client receives.
func writeResult(w io.Writer, r tools.Result, format string) error {
	switch format {
	case "", outputJSON:
		_, err := fmt.Fprintln(w, r.Text())
		return err
	case outputYAML:
		data, err := resultData(r)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case outputTable:
		data, err := resultData(r)
		if err != nil {
			return err
		}
		renderTable(w, data)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (supported: %s, %s, %s)", format, outputJSON, outputYAML, outputTable)
	}
}

// resultData round-trips r through its JSON form so every format renders
// the same fields. Integral numbers stay integers.
func resultData(r tools.Result) (any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return normalizeNumbers(data), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	default:
		return v
	}
}

// renderTable prints scalar fields of an object as a field/value table and
// each list of objects as its own table.
func renderTable(w io.Writer, data any) {
	switch v := data.(type) {
	case map[string]any:
		fields := newTable(w, "")
		fields.AppendHeader(table.Row{"Field", "Value"})

		var lists []string
		for _, key := range sortedKeys(v) {
			if rows, ok := objectList(v[key]); ok && len(rows) > 0 {
				lists = append(lists, key)
				continue
			}
			fields.AppendRow(table.Row{key, cell(v[key])})
		}
		if fields.Length() > 0 {
			fields.Render()
		}
		for _, key := range lists {
			rows, _ := objectList(v[key])
			renderList(w, key, rows)
		}
	case []any:
		if rows, ok := objectList(v); ok {
			renderList(w, "", rows)
			return
		}
		_, _ = fmt.Fprintln(w, cell(v))
	default:
		_, _ = fmt.Fprintln(w, cell(v))
	}
}

func renderList(w io.Writer, title string, rows []map[string]any) {
	columns := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			columns[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(columns))
	for k := range columns {
		names = append(names, k)
	}
	sort.Strings(names)

	t := newTable(w, title)
	header := make(table.Row, 0, len(names))
	for _, name := range names {
		header = append(header, name)
	}
	t.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, 0, len(names))
		for _, name := range names {
			r = append(r, cell(row[name]))
		}
		t.AppendRow(r)
	}
	t.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// objectList reports whether v is a list whose items are all objects.
func objectList(v any) ([]map[string]any, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, m)
	}
	return rows, true
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
