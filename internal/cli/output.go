package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Output renders command results either as colored text or as JSON when the
// --json flag is set.
type Output struct {
	w        io.Writer
	jsonMode bool
}

// NewOutput creates an Output bound to the command's stdout.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		w:        cmd.OutOrStdout(),
		jsonMode: jsonMode,
	}
}

// Success prints a success message.
func (o *Output) Success(format string, args ...interface{}) {
	if o.jsonMode {
		o.JSON(map[string]string{"status": "ok", "message": fmt.Sprintf(format, args...)})
		return
	}
	color.New(color.FgGreen).Fprintf(o.w, "✓ "+format+"\n", args...)
}

// Error prints an error message.
func (o *Output) Error(format string, args ...interface{}) {
	if o.jsonMode {
		o.JSON(map[string]string{"status": "error", "message": fmt.Sprintf(format, args...)})
		return
	}
	color.New(color.FgRed).Fprintf(o.w, "✗ "+format+"\n", args...)
}

// Info prints a plain informational line.
func (o *Output) Info(format string, args ...interface{}) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(o.w, format+"\n", args...)
}

// JSON prints the value as indented JSON.
func (o *Output) JSON(v interface{}) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// JSONMode reports whether JSON output was requested.
func (o *Output) JSONMode() bool {
	return o.jsonMode
}

// Table creates a styled table writer bound to this output.
func (o *Output) Table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(o.w)
	t.SetStyle(table.StyleRounded)
	return t
}
