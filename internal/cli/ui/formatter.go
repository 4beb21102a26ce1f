package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatPretty represents human-readable output format
	FormatPretty OutputFormat = "pretty"
	// FormatJSON represents JSON output format
	FormatJSON OutputFormat = "json"
	// FormatYAML represents YAML output format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat converts a string to OutputFormat
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "pretty", "":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Formatter is the interface for output formatting
type Formatter interface {
	// Output displays data. Structured formatters encode it, the pretty
	// formatter calls pretty instead.
	Output(data interface{}, pretty func(p *Printer)) error

	// IsStructured reports whether output is machine readable
	IsStructured() bool
}

// NewFormatter creates a formatter for format writing to w
func NewFormatter(format OutputFormat, w io.Writer) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case FormatPretty:
		return &prettyFormatter{printer: NewPrinter(w, os.Stderr)}, nil
	case FormatJSON:
		return &jsonFormatter{w: w}, nil
	case FormatYAML:
		return &yamlFormatter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

type prettyFormatter struct {
	printer *Printer
}

func (f *prettyFormatter) Output(data interface{}, pretty func(p *Printer)) error {
	if pretty != nil {
		pretty(f.printer)
		return nil
	}
	fmt.Fprintln(f.printer.out, data)
	return nil
}

func (f *prettyFormatter) IsStructured() bool { return false }

type jsonFormatter struct {
	w io.Writer
}

func (f *jsonFormatter) Output(data interface{}, _ func(p *Printer)) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *jsonFormatter) IsStructured() bool { return true }

type yamlFormatter struct {
	w io.Writer
}

func (f *yamlFormatter) Output(data interface{}, _ func(p *Printer)) error {
	enc := yaml.NewEncoder(f.w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func (f *yamlFormatter) IsStructured() bool { return true }
