// Package diag collects the line-tagged diagnostics of one compilation.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paivett/gone/pkg/config"
	"github.com/paivett/gone/pkg/token"
	"golang.org/x/term"
)

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one recorded message. Line 0 marks the end of input.
type Diagnostic struct {
	Severity  Severity
	FileIndex int
	Line      int
	Column    int
	Len       int
	Message   string
	Warning   string // -W name for warnings
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("EOF: %s", d.Message)
	}
	return fmt.Sprintf("%d: %s", d.Line, d.Message)
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

type Sink struct {
	cfg     *config.Config
	files   []SourceFileRecord
	diags   []Diagnostic
	nErrors int
}

func NewSink(cfg *config.Config, files ...SourceFileRecord) *Sink {
	return &Sink{cfg: cfg, files: files}
}

func (s *Sink) at(sev Severity, tok token.Token, msg string) Diagnostic {
	d := Diagnostic{Severity: sev, FileIndex: tok.FileIndex, Line: tok.Line, Column: tok.Column, Len: tok.Len, Message: msg}
	if tok.Type == token.EOF {
		d.Line, d.Column, d.Len = 0, 0, 0
	}
	return d
}

func (s *Sink) Errorf(tok token.Token, format string, args ...interface{}) {
	s.diags = append(s.diags, s.at(Error, tok, fmt.Sprintf(format, args...)))
	s.nErrors++
}

// Warnf records a warning if wt is enabled in the configuration.
func (s *Sink) Warnf(wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if s.cfg != nil && !s.cfg.IsWarningEnabled(wt) {
		return
	}
	d := s.at(Warning, tok, fmt.Sprintf(format, args...))
	if s.cfg != nil {
		d.Warning = s.cfg.Warnings[wt].Name
	}
	s.diags = append(s.diags, d)
}

func (s *Sink) HasErrors() bool { return s.nErrors > 0 }

func (s *Sink) ErrorCount() int { return s.nErrors }

func (s *Sink) All() []Diagnostic { return s.diags }

func (s *Sink) Errors() []Diagnostic { return s.filter(Error) }

func (s *Sink) Warnings() []Diagnostic { return s.filter(Warning) }

func (s *Sink) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Reset drops recorded diagnostics but keeps the registered files.
func (s *Sink) Reset() {
	s.diags = nil
	s.nErrors = 0
}

// Render writes every diagnostic in record order, each followed by its source
// line and a caret underline. Colours are used only when w is a terminal.
func (s *Sink) Render(w io.Writer) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	for _, d := range s.diags {
		s.render(w, d, color)
	}
}

func paint(color bool, code, text string) string {
	if !color {
		return text
	}
	return code + text + "\033[0m"
}

func (s *Sink) fileName(d Diagnostic) string {
	if d.FileIndex < 0 || d.FileIndex >= len(s.files) {
		return "unknown"
	}
	return s.files[d.FileIndex].Name
}

func (s *Sink) render(w io.Writer, d Diagnostic, color bool) {
	label := paint(color, "\033[31m", "error:")
	if d.Severity == Warning {
		label = paint(color, "\033[33m", "warning:")
	}

	if d.Line == 0 {
		fmt.Fprintf(w, "%s:EOF: %s %s", s.fileName(d), label, d.Message)
	} else {
		fmt.Fprintf(w, "%s:%d:%d: %s %s", s.fileName(d), d.Line, d.Column, label, d.Message)
	}
	if d.Warning != "" {
		fmt.Fprintf(w, " [-W%s]", d.Warning)
	}
	fmt.Fprintln(w)
	s.renderLine(w, d, color)
}

func (s *Sink) renderLine(w io.Writer, d Diagnostic, color bool) {
	if d.FileIndex < 0 || d.FileIndex >= len(s.files) || d.Line == 0 {
		return
	}

	content := s.files[d.FileIndex].Content
	lineStart, line := 0, 1
	for i, r := range content {
		if line == d.Line {
			break
		}
		if r == '\n' {
			line++
			lineStart = i + 1
		}
	}
	if line != d.Line {
		return
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))
	caret := "^"
	if d.Len > 1 {
		caret += strings.Repeat("~", d.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", max(d.Column-1, 0)), paint(color, "\033[32m", caret))
}
