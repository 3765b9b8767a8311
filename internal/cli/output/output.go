// Package output provides mode-aware rendering for CLI commands.
//
// Commands render through a Renderer that resolves one of three concrete
// modes: text for interactive terminals, markdown for piped output, and
// json for machine consumption. The default "auto" mode picks text or
// markdown based on whether stdout is a TTY.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

// OutputMode selects how command results are rendered.
type OutputMode string

// Supported output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode converts a configuration string into an OutputMode.
// Unknown or empty values fall back to auto.
func Mode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return ModeText
	case "markdown", "md":
		return ModeMarkdown
	case "json":
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Renderer writes command output in the configured mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   OutputMode
	isTTY  bool
}

// NewRenderer creates a renderer, detecting TTY state from the out writer.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(out, errOut, detectTTY(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
// Tests use this to exercise both terminal and piped rendering.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Renderer{out: out, errOut: errOut, mode: mode, isTTY: isTTY}
}

// detectTTY reports whether w is an interactive terminal.
func detectTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// EffectiveMode resolves auto to a concrete mode: text on a TTY,
// markdown otherwise.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto && r.mode != "" {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to an interactive terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Writer returns the underlying output writer for direct rendering.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// ErrWriter returns the underlying error writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errOut
}

// Println writes a line to the output writer.
func (r *Renderer) Println(a ...interface{}) {
	fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to the output writer.
func (r *Renderer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(r.out, format, a...)
}

// colorize applies colors only for interactive text output.
func (r *Renderer) colorize(c text.Colors, s string) string {
	if r.isTTY && r.EffectiveMode() == ModeText {
		return c.Sprint(s)
	}
	return s
}

// Header writes a section heading at the given level.
func (r *Renderer) Header(level int, title string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, title))
		return
	}
	r.Println(r.colorize(text.Colors{text.Bold}, title))
}

// Success writes a success line with a leading check mark.
func (r *Renderer) Success(msg string) {
	r.Println(r.colorize(text.Colors{text.FgGreen}, "✓ "+msg))
}

// Warning writes a warning line to the error writer.
func (r *Renderer) Warning(msg string) {
	s := "⚠ " + msg
	if r.isTTY && r.EffectiveMode() == ModeText {
		s = text.Colors{text.FgYellow}.Sprint(s)
	}
	fmt.Fprintln(r.errOut, s)
}

// Error writes an error line to the error writer.
func (r *Renderer) Error(msg string) {
	s := "✗ " + msg
	if r.isTTY && r.EffectiveMode() == ModeText {
		s = text.Colors{text.FgRed}.Sprint(s)
	}
	fmt.Fprintln(r.errOut, s)
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.colorize(text.Colors{text.Faint}, msg))
}

// JSON encodes v to the output writer with two-space indentation.
func (r *Renderer) JSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders a header and rows in the effective mode: a box-drawn table
// on terminals, a pipe table when output is piped or markdown is requested.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
