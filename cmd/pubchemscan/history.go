package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pubchemscan/internal/config"
	"github.com/nao1215/pubchemscan/internal/database"
	"github.com/nao1215/pubchemscan/internal/model"
)

// NewHistoryCmd creates the history command.
// This command inspects lookups stored in the local cache.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [cid]",
		Short: "Show cached compounds and compare stored lookups",
		Long: `History inspects the lookups stored in the local cache.

Without arguments it lists every cached compound. With a CID it compares
the latest lookup with the previous one and lists the fields that changed.
PubChem records are revised over time, so two lookups of the same compound
can differ.

Examples:
  # List cached compounds
  pubchemscan history

  # Compare the latest two lookups of aspirin
  pubchemscan history 2244

  # List stored lookups of aspirin
  pubchemscan history --list 2244

  # Compare with a specific stored lookup
  pubchemscan history --with-id 3 2244

  # Compare with the first lookup since a date
  pubchemscan history --since 2026-01-01 2244

  # Which cached compounds list substance 12345 in their related records?
  pubchemscan history --related 12345`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored lookups for the specified CID")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific stored lookup by ID (use --list to see IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first lookup on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().String("related", "",
		"List cached compounds whose related records contain this identifier")
	cmd.Flags().String("db-dir", "",
		"Cache directory (default: XDG data directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	related, err := cmd.Flags().GetString("related")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var cid int
	if len(args) == 1 {
		cids, err := config.ParseCIDs(args)
		if err != nil {
			return err
		}
		cid = cids[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := database.Open(cfg.DatabaseDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Debug("database opened", "path", db.Path())

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if related != "" {
		return listReferencing(ctx, out, db, related)
	}
	if cid == 0 {
		return listCachedCompounds(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listLookupHistory(ctx, out, db, cid)
	}

	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	since, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}

	comparison, err := compareHistory(ctx, db, cid, withID, since)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// listCachedCompounds lists every compound in the cache.
func listCachedCompounds(ctx context.Context, out io.Writer, db *database.CompoundDB) error {
	compounds, err := db.ListCompounds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list compounds: %w", err)
	}

	if len(compounds) == 0 {
		fmt.Fprintln(out, "No cached compounds found.")
		fmt.Fprintln(out, "\nUse 'pubchemscan lookup <cid>' to look up a compound.")
		return nil
	}

	fmt.Fprintf(out, "Cached compounds (%d):\n\n", len(compounds))
	fmt.Fprintf(out, "  %-10s  %-16s  %-8s  %-20s  %s\n", "CID", "Formula", "Lookups", "Fetched", "Title")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))
	for _, c := range compounds {
		fmt.Fprintf(out, "  %-10d  %-16s  %-8d  %-20s  %s\n",
			c.CID, c.MolecularFormula, c.Lookups, c.FetchedAt.Format("2006-01-02 15:04:05"), c.Title)
	}
	fmt.Fprintln(out, "\nUse 'pubchemscan history --list <cid>' to see stored lookups for a compound.")
	return nil
}

// listLookupHistory lists the stored lookups for one compound.
func listLookupHistory(ctx context.Context, out io.Writer, db *database.CompoundDB, cid int) error {
	history, err := db.GetLookupHistory(ctx, cid)
	if err != nil {
		return fmt.Errorf("failed to get lookup history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No lookups found for CID %d\n", cid)
		fmt.Fprintln(out, "\nUse 'pubchemscan lookup' to look up this compound.")
		return nil
	}

	fmt.Fprintf(out, "Lookup history for CID %d (%d lookups):\n\n", cid, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %s\n", "ID", "Date", "Hash")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %s\n",
			meta.ID, meta.FetchedAt.Format("2006-01-02 15:04:05"), shortHash(meta.Hash))
	}

	fmt.Fprintln(out, "\nUse 'pubchemscan history <cid>' to compare the latest two lookups.")
	return nil
}

// listReferencing lists cached compounds whose related records contain identifier.
func listReferencing(ctx context.Context, out io.Writer, db *database.CompoundDB, identifier string) error {
	if _, err := strconv.ParseUint(identifier, 10, 64); err != nil {
		return fmt.Errorf("identifier must be numeric: %q", identifier)
	}

	relations, err := db.FindReferencing(ctx, identifier, "")
	if err != nil {
		return err
	}
	if len(relations) == 0 {
		fmt.Fprintf(out, "No cached compound references %s\n", identifier)
		return nil
	}

	fmt.Fprintf(out, "Compounds referencing %s:\n\n", identifier)
	for _, r := range relations {
		fmt.Fprintf(out, "  CID %-10d  %-10s  group %d\n", r.CID, r.Type, r.Group+1)
	}
	return nil
}

// compareHistory picks two stored lookups for cid and compares them.
func compareHistory(ctx context.Context, db *database.CompoundDB, cid int, withID int64, since string) (*ComparisonResult, error) {
	history, err := db.GetLookupHistory(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to get lookup history: %w", err)
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("no lookup history found for CID %d", cid)
	}
	if len(history) < 2 && withID == 0 && since == "" {
		return nil, fmt.Errorf("at least 2 lookups are required for comparison (found %d)", len(history))
	}

	// Latest lookup is always the current one
	currentID := history[0].ID
	var previousID int64

	switch {
	case withID > 0:
		previousID = withID
	case since != "":
		parsed, err := time.Parse("2006-01-02", since)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// History is newest first; walk backwards for the oldest match.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].FetchedAt.Before(parsed) {
				previousID = history[i].ID
				break
			}
		}
		if previousID == 0 {
			return nil, fmt.Errorf("no lookups found since %s", since)
		}
		if previousID == currentID {
			return nil, fmt.Errorf("only one lookup found since %s; at least 2 lookups are required for comparison", since)
		}
	default:
		previousID = history[1].ID
	}

	current, err := db.GetLookupByID(ctx, currentID)
	if err != nil {
		return nil, err
	}
	previous, err := db.GetLookupByID(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lookup with ID %d: %w", previousID, err)
	}
	if previous == nil || current == nil {
		return nil, fmt.Errorf("lookup with ID %d not found", previousID)
	}
	if previous.CID != cid {
		return nil, fmt.Errorf("lookup ID %d belongs to CID %d, not %d", previousID, previous.CID, cid)
	}

	return compareLookups(previous, current), nil
}

// ComparisonResult holds the result of comparing two stored lookups.
type ComparisonResult struct {
	// CID is the compared compound.
	CID int `json:"cid"`

	// Previous and Current describe the compared lookups.
	Previous LookupSummary `json:"previous"`
	Current  LookupSummary `json:"current"`

	// Changed is true when the result hashes differ.
	Changed bool `json:"changed"`

	// Fields lists each changed field with both values.
	Fields []FieldChange `json:"fields,omitempty"`
}

// LookupSummary identifies one stored lookup.
type LookupSummary struct {
	ID        int64     `json:"id"`
	FetchedAt time.Time `json:"fetched_at"`
	Hash      string    `json:"hash"`
}

// FieldChange is one differing field. List fields are shown as counts.
type FieldChange struct {
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// compareLookups compares two lookups of the same compound.
func compareLookups(previous, current *model.Lookup) *ComparisonResult {
	result := &ComparisonResult{
		CID:      current.CID,
		Previous: LookupSummary{ID: previous.ID, FetchedAt: previous.FetchedAt, Hash: previous.Hash},
		Current:  LookupSummary{ID: current.ID, FetchedAt: current.FetchedAt, Hash: current.Hash},
		Changed:  previous.Hash != current.Hash,
	}

	for _, name := range model.ChangedFields(previous.Result, current.Result) {
		result.Fields = append(result.Fields, FieldChange{
			Field:    name,
			Previous: fieldValue(previous.Result, name),
			Current:  fieldValue(current.Result, name),
		})
	}
	return result
}

// fieldValue renders the named field of r for display.
func fieldValue(r *model.CompoundResult, name string) string {
	if r == nil {
		r = model.NewCompoundResult()
	}
	switch name {
	case "molecularFormula":
		return r.MolecularFormula
	case "isomericSMILES":
		return r.IsomericSMILES
	case "canonicalSMILES":
		return r.CanonicalSMILES
	case "inChIKey":
		return r.InChIKey
	case "inChI":
		return r.InChI
	case "iUpacName":
		return r.IUPACName
	case "related.parents":
		return fmt.Sprintf("%d parent(s)", len(r.Related.Parents))
	case "related.relatedids":
		return groupSummary(r.Related.RelatedIDs)
	case "related.substanceids":
		return groupSummary(r.Related.SubstanceIDs)
	default:
		return ""
	}
}

// groupSummary renders identifier groups as counts.
func groupSummary(groups [][]string) string {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	return fmt.Sprintf("%d id(s) in %d group(s)", n, len(groups))
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "# Lookup Comparison: CID %d\n\n", result.CID)
	fmt.Fprintf(out, "**Status:** %s\n\n", formatChangeStatus(result.Changed))

	fmt.Fprintln(out, "| Lookup | ID | Date | Hash |")
	fmt.Fprintln(out, "|--------|----|------|------|")
	fmt.Fprintf(out, "| Previous | %d | %s | `%s` |\n",
		result.Previous.ID, result.Previous.FetchedAt.Format("2006-01-02 15:04"), shortHash(result.Previous.Hash))
	fmt.Fprintf(out, "| Current | %d | %s | `%s` |\n",
		result.Current.ID, result.Current.FetchedAt.Format("2006-01-02 15:04"), shortHash(result.Current.Hash))

	if len(result.Fields) > 0 {
		fmt.Fprintf(out, "\n## Changed Fields (%d)\n\n", len(result.Fields))
		for _, f := range result.Fields {
			fmt.Fprintf(out, "- **%s**: `%s` -> `%s`\n", f.Field, orDash(f.Previous), orDash(f.Current))
		}
	}
	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Lookup Comparison: CID %d\n", result.CID)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatChangeStatus(result.Changed))
	fmt.Fprintf(out, "\nPrevious lookup: #%d  %s  %s\n",
		result.Previous.ID, result.Previous.FetchedAt.Format("2006-01-02 15:04:05"), shortHash(result.Previous.Hash))
	fmt.Fprintf(out, "Current lookup:  #%d  %s  %s\n",
		result.Current.ID, result.Current.FetchedAt.Format("2006-01-02 15:04:05"), shortHash(result.Current.Hash))

	if len(result.Fields) > 0 {
		fmt.Fprintf(out, "\nChanged Fields (%d):\n", len(result.Fields))
		for _, f := range result.Fields {
			fmt.Fprintf(out, "  [~] %s\n", f.Field)
			fmt.Fprintf(out, "      - %s\n", orDash(f.Previous))
			fmt.Fprintf(out, "      + %s\n", orDash(f.Current))
		}
	}
	return nil
}

// formatChangeStatus formats whether the result changed.
func formatChangeStatus(changed bool) string {
	if changed {
		return "CHANGED"
	}
	return "UNCHANGED"
}

// shortHash abbreviates a hex digest for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
