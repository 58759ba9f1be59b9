package output

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Formatter renders normalization reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json, csv, latex).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose enables detailed output including every diagnostic.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool
}

var constructors = map[string]func(FormatOptions) Formatter{
	"text":  func(o FormatOptions) Formatter { return NewTextFormatter(o) },
	"json":  func(o FormatOptions) Formatter { return NewJSONFormatter(o) },
	"csv":   func(o FormatOptions) Formatter { return NewCSVFormatter(o) },
	"latex": func(o FormatOptions) Formatter { return NewLaTeXFormatter(o) },
}

// New returns the formatter registered under name.
func New(name string, opts FormatOptions) (Formatter, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (must be one of %v)", name, Names())
	}
	return ctor(opts), nil
}

// Names lists the available formats.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
