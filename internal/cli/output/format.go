// Package output renders command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects how a Printer renders values.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the accepted format names, for flag help.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// ParseFormat parses a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format %q (valid: table, json, yaml)", s)
}

func (f Format) String() string { return string(f) }

// Printer writes values in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer. Color only affects status lines.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Format returns the printer format.
func (p *Printer) Format() Format { return p.format }

// Print renders v. In table format v must implement TableRenderer;
// anything else falls back to JSON.
func (p *Printer) Print(v any) error {
	switch p.format {
	case FormatTable:
		if t, ok := v.(TableRenderer); ok {
			return PrintTable(p.out, t)
		}
		return PrintJSON(p.out, v)
	case FormatJSON:
		return PrintJSON(p.out, v)
	case FormatYAML:
		return PrintYAML(p.out, v)
	}
	return fmt.Errorf("unknown format: %s", p.format)
}

// Success prints msg in green.
func (p *Printer) Success(msg string) { p.status("\033[32m", msg) }

// Warning prints msg in yellow.
func (p *Printer) Warning(msg string) { p.status("\033[33m", msg) }

// Error prints msg in red.
func (p *Printer) Error(msg string) { p.status("\033[31m", msg) }

func (p *Printer) status(color, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s\033[0m\n", color, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
