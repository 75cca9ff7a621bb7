package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pubchemscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty related sections are shown.
	showEmpty bool

	// verbose prints every identifier instead of a per-group count.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with every related identifier.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the lookup in human-readable format.
func (w *SimpleWriter) Write(lookup *model.Lookup) (int, error) {
	if lookup == nil {
		return 0, ErrNilLookup
	}
	result := resultOf(lookup)

	var sb strings.Builder
	w.writeHeader(&sb, lookup)
	w.writeProperties(&sb, result)
	w.writeRelated(&sb, result.Related)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the compound banner.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, lookup *model.Lookup) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "CID %d", lookup.CID)
	if lookup.Title != "" {
		fmt.Fprintf(sb, "  %s", lookup.Title)
	}
	sb.WriteString("\n")
	if !lookup.FetchedAt.IsZero() {
		source := "PubChem"
		if lookup.Cached {
			source = "cache"
		}
		fmt.Fprintf(sb, "Fetched %s (%s)\n", lookup.FetchedAt.UTC().Format("2006-01-02 15:04:05 MST"), source)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeProperties writes the extracted scalar fields, aligned.
func (w *SimpleWriter) writeProperties(sb *strings.Builder, r *model.CompoundResult) {
	rows := []struct {
		label, value string
	}{
		{"Molecular Formula", r.MolecularFormula},
		{"IUPAC Name", r.IUPACName},
		{"InChI", r.InChI},
		{"InChIKey", r.InChIKey},
		{"Canonical SMILES", r.CanonicalSMILES},
		{"Isomeric SMILES", r.IsomericSMILES},
	}
	for _, row := range rows {
		value := row.value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(sb, "  %-18s %s\n", row.label+":", value)
	}
	sb.WriteString("\n")
}

// writeRelated writes the related identifier section.
func (w *SimpleWriter) writeRelated(sb *strings.Builder, related model.RelatedRecords) {
	empty := len(related.Parents) == 0 && len(related.RelatedIDs) == 0 && len(related.SubstanceIDs) == 0
	if empty && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RELATED RECORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(related.Parents) > 0 || w.showEmpty {
		parents := make([]string, len(related.Parents))
		for i, p := range related.Parents {
			parents[i] = fmt.Sprint(p)
		}
		fmt.Fprintf(sb, "  %-18s %s\n", "Parents:", orNone(strings.Join(parents, ", ")))
	}
	w.writeGroups(sb, "Related IDs:", related.RelatedIDs)
	w.writeGroups(sb, "Substance IDs:", related.SubstanceIDs)
	sb.WriteString("\n")
}

// writeGroups writes one line per identifier group.
func (w *SimpleWriter) writeGroups(sb *strings.Builder, label string, groups [][]string) {
	if len(groups) == 0 {
		if w.showEmpty {
			fmt.Fprintf(sb, "  %-18s none\n", label)
		}
		return
	}
	for i, g := range groups {
		if i > 0 {
			label = ""
		}
		value := fmt.Sprintf("[%d] %d identifier(s)", i+1, len(g))
		if w.verbose && len(g) > 0 {
			value = fmt.Sprintf("[%d] %s", i+1, strings.Join(g, ", "))
		}
		fmt.Fprintf(sb, "  %-18s %s\n", label, value)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
