package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/pubchemscan/internal/model"
)

// JSONWriter outputs the extraction result as JSON.
// Compact output is exactly CompoundResult's serialized form followed by a
// newline, so a batch produces one object per line.
type JSONWriter struct {
	baseWriter

	// indentString enables pretty-printed output when non-empty.
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON using indent for each level.
func WithIndent(indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the lookup's result.
func (w *JSONWriter) Write(lookup *model.Lookup) (int, error) {
	if lookup == nil {
		return 0, ErrNilLookup
	}

	data, err := resultOf(lookup).Marshal()
	if err != nil {
		return 0, err
	}
	return w.writeJSON(data)
}

// writeJSON indents data if configured and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(data []byte) (int, error) {
	if w.indentString != "" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", w.indentString); err != nil {
			return 0, err
		}
		data = buf.Bytes()
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a lookup with the version that produced it.
type JSONReport struct {
	// Version is the pubchemscan version that generated this report.
	Version string `json:"version"`

	// Lookup is the lookup with its metadata and result.
	Lookup *model.Lookup `json:"lookup"`
}

// FullJSONWriter outputs lookups wrapped with metadata.
type FullJSONWriter struct {
	*JSONWriter

	// version is the pubchemscan version string.
	version string
}

// NewFullJSONWriter creates a writer for lookups with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the lookup wrapped with the version.
func (w *FullJSONWriter) Write(lookup *model.Lookup) (int, error) {
	if lookup == nil {
		return 0, ErrNilLookup
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	l := *lookup
	l.Result = resultOf(lookup)
	if err := enc.Encode(JSONReport{Version: w.version, Lookup: &l}); err != nil {
		return 0, err
	}
	return w.writeJSON(bytes.TrimRight(buf.Bytes(), "\n"))
}
