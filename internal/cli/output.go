package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates an Output for cmd. Colour is used only for terminal
// output that is not JSON.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && !noColor && !color.NoColor,
	}
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as indented JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a line in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.line(color.FgGreen, format, args...)
}

// Error prints a line in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.line(color.FgRed, format, args...)
}

// Warning prints a line in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.line(color.FgYellow, format, args...)
}

// Info prints a line in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.line(color.FgCyan, format, args...)
}

// Bold prints a bold line.
func (o *Output) Bold(format string, args ...interface{}) {
	o.line(color.Bold, format, args...)
}

// Dim prints a faint line.
func (o *Output) Dim(format string, args ...interface{}) {
	o.line(color.Faint, format, args...)
}

func (o *Output) line(attr color.Attribute, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, o.paint(fmt.Sprintf(format, args...), attr))
}

// paint applies attrs to s when colour is enabled.
func (o *Output) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if o.colorEnabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (o *Output) Green(s string) string  { return o.paint(s, color.FgGreen) }
func (o *Output) Red(s string) string    { return o.paint(s, color.FgRed) }
func (o *Output) Yellow(s string) string { return o.paint(s, color.FgYellow) }
func (o *Output) Cyan(s string) string   { return o.paint(s, color.FgCyan) }
func (o *Output) DimText(s string) string {
	return o.paint(s, color.Faint)
}

// Signed colours s green for positive v and red for negative v.
func (o *Output) Signed(v float64, s string) string {
	switch {
	case v > 0:
		return o.Green(s)
	case v < 0:
		return o.Red(s)
	}
	return s
}

// Table collects rows and renders them with go-pretty.
type Table struct {
	output *Output
	writer table.Writer
}

// NewTable creates a table with the given headers. Columns listed in
// numeric are right aligned; they are 1-based.
func NewTable(output *Output, headers ...string) *Table {
	w := table.NewWriter()
	w.SetOutputMirror(output.writer)
	w.SetStyle(table.StyleLight)
	w.Style().Options.SeparateRows = false
	w.Style().Format.Header = text.FormatDefault

	row := make(table.Row, len(headers))
	for i, h := range headers {
		if output.colorEnabled {
			row[i] = output.paint(h, color.Bold)
		} else {
			row[i] = h
		}
	}
	w.AppendHeader(row)
	return &Table{output: output, writer: w}
}

// AlignRight right-aligns the given 1-based columns.
func (t *Table) AlignRight(columns ...int) *Table {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, c := range columns {
		configs = append(configs, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	t.writer.SetColumnConfigs(configs)
	return t
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	t.writer.AppendRow(row)
}

// Len returns the number of rows added.
func (t *Table) Len() int {
	return t.writer.Length()
}

// Render writes the table.
func (t *Table) Render() {
	t.writer.Render()
}
