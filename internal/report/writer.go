package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/pubchemscan/internal/model"
)

// ErrNilLookup is returned when a writer is given no lookup to render.
var ErrNilLookup = errors.New("report: nil lookup")

// Writer defines the interface for report output.
type Writer interface {
	// Write renders one lookup to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(lookup *model.Lookup) (int, error)
}

// Format selects an output format.
type Format string

const (
	// FormatJSON is the compact extraction result.
	FormatJSON Format = "json"
	// FormatMarkdown is a Markdown document.
	FormatMarkdown Format = "markdown"
	// FormatText is human-readable text.
	FormatText Format = "text"
)

// NewWriter returns a Writer for format that writes to output.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatJSON, "":
		return NewJSONWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatText:
		return NewSimpleWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// resultOf returns the lookup's result, or an empty one when unset.
func resultOf(lookup *model.Lookup) *model.CompoundResult {
	if lookup.Result == nil {
		return model.NewCompoundResult()
	}
	return lookup.Result
}
