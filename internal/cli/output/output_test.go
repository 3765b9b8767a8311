package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"text", ModeText},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{"auto", ModeAuto},
		{"", ModeAuto},
		{"bogus", ModeAuto},
	}
	for _, tt := range tests {
		if got := Mode(tt.in); got != tt.want {
			t.Errorf("Mode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on tty", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit markdown on tty", ModeMarkdown, true, ModeMarkdown},
		{"explicit json", ModeJSON, false, ModeJSON},
		{"empty mode piped", OutputMode(""), false, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			if got := r.EffectiveMode(); got != tt.want {
				t.Errorf("EffectiveMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuccessNoANSIWhenPiped(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)
	r.Success("scan complete")

	got := out.String()
	if ansiPattern.MatchString(got) {
		t.Errorf("piped output contains ANSI escapes: %q", got)
	}
	if !strings.Contains(got, "✓ scan complete") {
		t.Errorf("missing success mark: %q", got)
	}
}

func TestSuccessColorOnTTY(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, true, ModeText)
	r.Success("done")

	if !ansiPattern.MatchString(out.String()) {
		t.Errorf("TTY text output should be colored: %q", out.String())
	}
}

func TestWarningGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeText)
	r.Warning("two scripts produce raw.events")

	if out.Len() != 0 {
		t.Errorf("warning leaked to stdout: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "⚠ two scripts produce raw.events") {
		t.Errorf("unexpected warning output: %q", errOut.String())
	}
}

func TestHeaderMarkdown(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)
	r.Header(2, "Lineage")

	if got := strings.TrimSpace(out.String()); got != "## Lineage" {
		t.Errorf("Header() = %q, want %q", got, "## Lineage")
	}
}

func TestJSONIndented(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)
	payload := TraceRecord{Target: "mart.orders", Layers: [][]string{{"raw.orders"}}}
	if err := r.JSON(payload); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var decoded TraceRecord
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if decoded.Target != "mart.orders" {
		t.Errorf("round-trip target = %q", decoded.Target)
	}
	if !strings.Contains(out.String(), "\n  ") {
		t.Errorf("output should be indented: %q", out.String())
	}
}

func TestTableMarkdown(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)
	r.Table([]string{"Target Table", "Layer 1"}, [][]string{{"mart.orders", "raw.orders"}})

	got := out.String()
	if !strings.Contains(got, "|") {
		t.Errorf("markdown table should use pipes: %q", got)
	}
	if !strings.Contains(got, "mart.orders") {
		t.Errorf("missing row content: %q", got)
	}
	if ansiPattern.MatchString(got) {
		t.Errorf("markdown table contains ANSI escapes: %q", got)
	}
}

func TestTableText(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText)
	r.Table([]string{"Target Table", "Layer 1"}, [][]string{{"mart.orders", "raw.orders"}})

	got := out.String()
	if !strings.Contains(got, "mart.orders") || !strings.Contains(got, "raw.orders") {
		t.Errorf("missing table content: %q", got)
	}
}

func TestFormatHeader(t *testing.T) {
	if got := FormatHeader(3, "Roots"); got != "### Roots" {
		t.Errorf("FormatHeader(3) = %q", got)
	}
	if got := FormatHeader(0, "Clamped"); got != "# Clamped" {
		t.Errorf("FormatHeader(0) = %q", got)
	}
}

func TestFormatKeyValue(t *testing.T) {
	if got := FormatKeyValue("Tables", 42); got != "- **Tables:** 42" {
		t.Errorf("FormatKeyValue = %q", got)
	}
}
