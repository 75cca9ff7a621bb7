package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pubchemscan/internal/model"
)

// MarkdownWriter outputs lookups in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the lookup in Markdown format.
func (w *MarkdownWriter) Write(lookup *model.Lookup) (int, error) {
	if lookup == nil {
		return 0, ErrNilLookup
	}
	result := resultOf(lookup)

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, lookup, result)
	w.writeRelated(md, result)
	if err := w.writeRaw(md, result); err != nil {
		return 0, err
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the property table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, lookup *model.Lookup, result *model.CompoundResult) {
	title := "Compound CID " + strconv.Itoa(lookup.CID)
	if lookup.Title != "" {
		title = fmt.Sprintf("%s (CID %d)", lookup.Title, lookup.CID)
	}
	md.H1(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Molecular Formula", cell(result.MolecularFormula)},
			{"IUPAC Name", cell(result.IUPACName)},
			{"InChI", cell(result.InChI)},
			{"InChIKey", cell(result.InChIKey)},
			{"Canonical SMILES", cell(result.CanonicalSMILES)},
			{"Isomeric SMILES", cell(result.IsomericSMILES)},
			{"Fetched", fetchedText(lookup.FetchedAt)},
		},
	})
	md.PlainText("")

	if lookup.Cached {
		md.Note("Served from the local cache. Use --refresh to fetch from PubChem again.")
		md.PlainText("")
	}
}

// writeRelated writes parent, related and substance identifiers.
func (w *MarkdownWriter) writeRelated(md *markdown.Markdown, result *model.CompoundResult) {
	related := result.Related

	md.H2("Related Records")
	md.PlainText("")

	parents, relatedCount, substanceCount := len(related.Parents), countIDs(related.RelatedIDs), countIDs(related.SubstanceIDs)
	if parents+relatedCount+substanceCount == 0 {
		md.PlainText("No related records found.")
		md.PlainText("")
		return
	}

	md.H3("Parent Compounds")
	md.PlainText("")
	if parents == 0 {
		md.PlainText("None")
	} else {
		items := make([]string, parents)
		for i, p := range related.Parents {
			items[i] = strconv.FormatInt(p, 10)
		}
		md.BulletList(items...)
	}
	md.PlainText("")

	w.writeGroups(md, "Related Compounds", related.RelatedIDs)
	w.writeGroups(md, "Substances", related.SubstanceIDs)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Related Identifier Distribution"),
		piechart.WithShowData(true),
	)
	if parents > 0 {
		chart.LabelAndIntValue("Parents", uint64(parents))
	}
	if relatedCount > 0 {
		chart.LabelAndIntValue("Related Compounds", uint64(relatedCount))
	}
	if substanceCount > 0 {
		chart.LabelAndIntValue("Substances", uint64(substanceCount))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeGroups writes one bullet per fetched identifier group.
func (w *MarkdownWriter) writeGroups(md *markdown.Markdown, heading string, groups [][]string) {
	md.H3(heading)
	md.PlainText("")
	if len(groups) == 0 {
		md.PlainText("None")
		md.PlainText("")
		return
	}

	items := make([]string, len(groups))
	for i, g := range groups {
		if len(g) == 0 {
			items[i] = fmt.Sprintf("Group %d: (empty)", i+1)
			continue
		}
		items[i] = fmt.Sprintf("Group %d (%d): %s", i+1, len(g), truncateString(strings.Join(g, ", "), 200))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeRaw writes the compact JSON result as a code block.
func (w *MarkdownWriter) writeRaw(md *markdown.Markdown, result *model.CompoundResult) error {
	data, err := result.Marshal()
	if err != nil {
		return err
	}
	md.H2("JSON")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightJSON, string(data))
	md.PlainText("")
	return nil
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pubchemscan](https://github.com/nao1215/pubchemscan)*")
}

// cell formats a table value, escaping pipes and marking empty values.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + strings.ReplaceAll(s, "|", `\|`) + "`"
}

// fetchedText formats a fetch time for display.
func fetchedText(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

// countIDs returns the number of identifiers across groups.
func countIDs(groups [][]string) int {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	return n
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
