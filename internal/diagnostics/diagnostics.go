// Package diagnostics renders human readable CLI output: leveled messages,
// route tables and startup error reports.
package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	wynkerrors "github.com/wynkjs/wynk/internal/errors"
	"github.com/wynkjs/wynk/pkg/wynk"
)

// Level represents the level of diagnostic output
type Level int

const (
	Silent Level = iota
	Error
	Warn
	Info
	Verbose
)

// System provides structured, user-friendly output
type System struct {
	level     Level
	useColors bool
	showTime  bool
	output    io.Writer
	errorOut  io.Writer
}

// New creates a diagnostic system writing to stdout and stderr
func New(level Level) *System {
	return NewWithWriters(level, os.Stdout, os.Stderr, shouldUseColors())
}

// NewWithWriters creates a diagnostic system on custom writers
func NewWithWriters(level Level, out, errOut io.Writer, useColors bool) *System {
	return &System{
		level:     level,
		useColors: useColors,
		showTime:  level >= Verbose,
		output:    out,
		errorOut:  errOut,
	}
}

func (d *System) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if d.useColors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Error outputs error messages (always shown unless silent)
func (d *System) Error(format string, args ...any) {
	if d.level >= Error {
		d.writeMessage(d.errorOut, "ERROR", color.FgRed, format, args...)
	}
}

// Warn outputs warning messages
func (d *System) Warn(format string, args ...any) {
	if d.level >= Warn {
		d.writeMessage(d.output, "WARN", color.FgYellow, format, args...)
	}
}

// Info outputs informational messages
func (d *System) Info(format string, args ...any) {
	if d.level >= Info {
		d.writeMessage(d.output, "INFO", color.FgBlue, format, args...)
	}
}

// Success outputs success messages with emphasis
func (d *System) Success(format string, args ...any) {
	if d.level >= Info {
		d.writeMessage(d.output, "SUCCESS", color.FgGreen, format, args...)
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (d *System) Verbose(format string, args ...any) {
	if d.level >= Verbose {
		d.writeMessage(d.output, "VERBOSE", color.FgHiBlack, format, args...)
	}
}

// Header outputs the main Wynk header
func (d *System) Header(message string) {
	if d.level >= Info {
		d.paint(color.FgCyan).Fprintf(d.output, "Wynk: %s\n", message)
	}
}

// RouteTable prints routes grouped by controller, sorted by path then method
func (d *System) RouteTable(routes []wynk.RouteInfo) {
	if d.level < Info {
		return
	}
	if len(routes) == 0 {
		d.Warn("no routes registered")
		return
	}

	sorted := append([]wynk.RouteInfo(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ControllerName != sorted[j].ControllerName {
			return sorted[i].ControllerName < sorted[j].ControllerName
		}
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].Method < sorted[j].Method
	})

	bold := d.paint(color.Bold)
	method := d.paint(color.FgGreen)
	tw := tabwriter.NewWriter(d.output, 0, 0, 2, ' ', 0)
	current := ""
	for _, r := range sorted {
		if r.ControllerName != current {
			current = r.ControllerName
			tw.Flush()
			bold.Fprintf(d.output, "\n[%s]\n", current)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\n", method.Sprint(r.Method), r.Path, r.HandlerName, r.StatusCode)
	}
	tw.Flush()
	fmt.Fprintf(d.output, "\n%d routes\n", len(sorted))
}

// ReportError prints err, expanding startup errors into one block per
// problem with origin and suggestions.
func (d *System) ReportError(err error) {
	if d.level < Error || err == nil {
		return
	}
	red := d.paint(color.FgRed, color.Bold)
	problems := leaves(err)
	if len(problems) == 0 {
		red.Fprint(d.errorOut, "✗ ")
		fmt.Fprintf(d.errorOut, "%s\n", err)
		return
	}

	red.Fprintf(d.errorOut, "✗ %d problem(s) found\n", len(problems))
	yellow := d.paint(color.FgYellow)
	for i, p := range problems {
		fmt.Fprintf(d.errorOut, "\n%d. [%s] %s\n", i+1, p.ErrorCode(), p.Error())
		if cause := errors.Unwrap(p); cause != nil && d.level >= Verbose {
			fmt.Fprintf(d.errorOut, "   cause: %s\n", cause)
		}
		for _, s := range p.Suggestions() {
			yellow.Fprint(d.errorOut, "   hint: ")
			fmt.Fprintf(d.errorOut, "%s\n", s)
		}
	}
}

// leaves collects the structured errors inside err
func leaves(err error) []wynkerrors.WynkError {
	var multi *wynkerrors.MultipleErrors
	if errors.As(err, &multi) {
		return multi.Errors
	}
	var single wynkerrors.WynkError
	if errors.As(err, &single) {
		return []wynkerrors.WynkError{single}
	}
	return nil
}

func (d *System) writeMessage(w io.Writer, level string, attr color.Attribute, format string, args ...any) {
	var b strings.Builder
	if d.showTime {
		b.WriteString(time.Now().Format("15:04:05 "))
	}
	b.WriteString(d.paint(attr).Sprintf("[%s]", level))
	b.WriteString(" ")
	fmt.Fprintf(&b, format, args...)
	b.WriteString("\n")
	fmt.Fprint(w, b.String())
}

// shouldUseColors determines if colors should be used
func shouldUseColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
