// Package output renders CLI results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Format represents the output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string. An empty string picks table output on
// a terminal and JSON when stdout is piped.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return FormatTable, nil
		}
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
}

// Formatter writes command results. Quiet suppresses everything on Writer
// and warnings on ErrWriter.
type Formatter struct {
	Format    Format
	NoHeaders bool
	Quiet     bool
	Writer    io.Writer
	ErrWriter io.Writer
}

// NewFormatter creates a formatter writing to stdout and stderr
func NewFormatter(format Format, noHeaders, quiet bool) *Formatter {
	return &Formatter{
		Format:    format,
		NoHeaders: noHeaders,
		Quiet:     quiet,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// Print encodes data as YAML in yaml mode and as indented JSON otherwise
func (f *Formatter) Print(data interface{}) error {
	if f.Quiet {
		return nil
	}

	if f.Format == FormatYAML {
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// TableData is a header row plus cells
type TableData struct {
	Headers []string
	Rows    [][]string
}

// records turns rows into header-keyed maps for structured formats
func (d TableData) records() []map[string]string {
	out := make([]map[string]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		rec := make(map[string]string, len(d.Headers))
		for i, h := range d.Headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// PrintTable renders a borderless, tab-padded table. JSON and YAML modes get
// a list of header-keyed records instead.
func (f *Formatter) PrintTable(data TableData) {
	if f.Quiet {
		return
	}
	if f.Format != FormatTable {
		_ = f.Print(data.records())
		return
	}

	table := tablewriter.NewWriter(f.Writer)
	if !f.NoHeaders && len(data.Headers) > 0 {
		table.SetHeader(data.Headers)
	}
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(data.Rows)
	table.Render()
}

// PrintText writes text with trailing newlines collapsed to one
func (f *Formatter) PrintText(text string) {
	if f.Quiet {
		return
	}
	_, _ = fmt.Fprintln(f.Writer, strings.TrimRight(text, "\n"))
}

// PrintKeyValue prints "key: value", or a one-entry map in structured modes
func (f *Formatter) PrintKeyValue(key, value string) {
	if f.Quiet {
		return
	}
	if f.Format != FormatTable {
		_ = f.Print(map[string]string{key: value})
		return
	}
	_, _ = fmt.Fprintf(f.Writer, "%s: %s\n", key, value)
}

// PrintList prints one item per line, or an array in structured modes
func (f *Formatter) PrintList(items []string) {
	if f.Quiet {
		return
	}
	if f.Format != FormatTable {
		_ = f.Print(items)
		return
	}
	for _, item := range items {
		_, _ = fmt.Fprintln(f.Writer, item)
	}
}

// PrintWarning writes a warning to ErrWriter
func (f *Formatter) PrintWarning(message string) {
	if f.Quiet {
		return
	}
	_, _ = fmt.Fprintln(f.ErrWriter, "Warning:", message)
}
