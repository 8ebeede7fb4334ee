// Copyright The Janus Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package diagnostic

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	diffpkg "github.com/sourcegraph/go-diff/diff"
	"golang.org/x/term"

	"github.com/janus-lang/janus/pkg/util/source"
)

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	fixStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	spanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// ColorCapable reports whether `f` is a terminal that can render color,
// consulting both isatty and golang.org/x/term so a redirected pipe or a
// dumb terminal degrades to plain text.
func ColorCapable(f *os.File) bool {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// Render writes a human-readable rendering of `d` to w.  When color is
// false, no lipgloss styling is applied — callers pass the result of
// ColorCapable(os.Stderr) (or --no-color) to decide.
func Render(w io.Writer, d Diagnostic, color bool) {
	sev := d.Severity.String()
	header := fmt.Sprintf("%s[%s]: %s", sev, d.Code, d.Message)

	if color {
		style := errorStyle
		if d.Severity == Warning {
			style = warnStyle
		}

		header = style.Render(sev) + codeStyle.Render(fmt.Sprintf("[%s]", d.Code)) + ": " + d.Message
	}

	fmt.Fprintln(w, header)

	primary := fmt.Sprintf("  at %s", formatSpan(d.PrimarySpan))
	if color {
		primary = "  at " + spanStyle.Render(formatSpan(d.PrimarySpan))
	}

	fmt.Fprintln(w, primary)

	for _, span := range d.RelatedSpans {
		related := fmt.Sprintf("  related: %s", formatSpan(span))
		if color {
			related = "  related: " + spanStyle.Render(formatSpan(span))
		}

		fmt.Fprintln(w, related)
	}

	for _, fix := range d.Fixes {
		line := fmt.Sprintf("  fix (%.2f): %s", fix.Confidence, fix.Description)
		if color {
			line = fmt.Sprintf("  fix (%.2f): %s", fix.Confidence, fixStyle.Render(fix.Description))
		}

		fmt.Fprintln(w, line)

		if fix.Kind == FixDefineFunction {
			renderStubDiff(w, fix.Description)
		}
	}
}

// RenderWithSource is Render plus a caret-underlined excerpt of the line
// enclosing d.PrimarySpan, when the host driver has the originating source
// file at hand.
func RenderWithSource(w io.Writer, d Diagnostic, color bool, file *source.File) {
	Render(w, d, color)

	if file == nil {
		return
	}

	line := file.FindFirstEnclosingLine(d.PrimarySpan)
	lineOffset := d.PrimarySpan.Start() - line.Start()
	length := min(line.Length()-lineOffset, d.PrimarySpan.Length())

	fmt.Fprintf(w, "  %s:%d\n", file.Filename(), line.Number())
	fmt.Fprintln(w, "  "+line.String())
	fmt.Fprintln(w, "  "+strings.Repeat(" ", lineOffset)+strings.Repeat("^", max(length, 1)))
}

// formatSpan renders a source.Span as "span [start,end)".
func formatSpan(s source.Span) string {
	return fmt.Sprintf("span [%d,%d)", s.Start(), s.End())
}

// renderStubDiff prints a unified-diff preview of inserting a stub function
// at end-of-file.  This is purely presentational: the compiler never writes
// this text back to source, per §4.7's "fixes are suggestions, not
// mutations".
func renderStubDiff(w io.Writer, description string) {
	stub := fmt.Sprintf("// TODO: %s\n", description)

	hunk := &diffpkg.Hunk{
		NewLines: 1,
		Body:     []byte("+" + stub),
	}

	fd := &diffpkg.FileDiff{
		OrigName: "/dev/null",
		NewName:  "<end-of-file stub>",
		Hunks:    []*diffpkg.Hunk{hunk},
	}

	out, err := diffpkg.PrintFileDiff(fd)
	if err != nil {
		return
	}

	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		fmt.Fprintln(w, "    "+line)
	}
}
