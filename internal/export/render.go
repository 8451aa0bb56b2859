package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/invlite/invlite/internal/inventory"
)

// render produces the serialized body for one format. Serialization
// cannot fail for well-formed records; null fields render as
// empty/blank per format convention.
func render(records inventory.RecordSet, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return renderCSV(records)
	case FormatJSON:
		return renderJSON(records)
	case FormatTXT:
		return renderTXT(records)
	case FormatXML:
		return renderXML(records)
	case FormatHTML:
		return renderHTML(records)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// renderCSV writes one row per record with a header row covering the
// union of field names, in first-seen order. Standard CSV quoting.
func renderCSV(records inventory.RecordSet) ([]byte, error) {
	fields := records.Fields()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make([]string, len(fields))
		for i, name := range fields {
			row[i] = formatValue(rec.Value(name))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// renderJSON writes the record set as an array of objects. Record
// marshaling preserves field order and nested sub-objects.
func renderJSON(records inventory.RecordSet) ([]byte, error) {
	if records == nil {
		records = inventory.RecordSet{}
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// renderTXT writes a human-readable tabular dump.
func renderTXT(records inventory.RecordSet) ([]byte, error) {
	fields := records.Fields()

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(fields, "\t"))
	underline := make([]string, len(fields))
	for i, name := range fields {
		underline[i] = strings.Repeat("-", len(name))
	}
	fmt.Fprintln(tw, strings.Join(underline, "\t"))
	for _, rec := range records {
		row := make([]string, len(fields))
		for i, name := range fields {
			row[i] = formatValue(rec.Value(name))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderXML writes one element per record and one child element per
// field. Null fields become empty elements.
func renderXML(records inventory.RecordSet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString("<Records>\n")
	for _, rec := range records {
		buf.WriteString("  <Record>\n")
		for _, name := range rec.Fields() {
			elem := xmlName(name)
			v := rec.Value(name)
			if v == nil {
				fmt.Fprintf(&buf, "    <%s/>\n", elem)
				continue
			}
			fmt.Fprintf(&buf, "    <%s>%s</%s>\n", elem, xmlEscape(formatValue(v)), elem)
		}
		buf.WriteString("  </Record>\n")
	}
	buf.WriteString("</Records>\n")
	return buf.Bytes(), nil
}

// renderHTML writes a table with a header row and one row per record.
func renderHTML(records inventory.RecordSet) ([]byte, error) {
	fields := records.Fields()

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<body>\n<table border=\"1\">\n")
	buf.WriteString("  <tr>")
	for _, name := range fields {
		fmt.Fprintf(&buf, "<th>%s</th>", html.EscapeString(name))
	}
	buf.WriteString("</tr>\n")
	for _, rec := range records {
		buf.WriteString("  <tr>")
		for _, name := range fields {
			fmt.Fprintf(&buf, "<td>%s</td>", html.EscapeString(formatValue(rec.Value(name))))
		}
		buf.WriteString("</tr>\n")
	}
	buf.WriteString("</table>\n</body>\n</html>\n")
	return buf.Bytes(), nil
}

// formatValue renders one field value for the positional formats.
// Nil becomes an empty string; nested objects collapse to compact
// JSON so no information is dropped.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		return val.Format(time.RFC3339)
	case map[string]any, []any:
		out, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(out)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// xmlName sanitizes a field name into a legal XML element name.
func xmlName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case (r >= '0' && r <= '9' || r == '-' || r == '.') && i > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "Field"
	}
	return b.String()
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
