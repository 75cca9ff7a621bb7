package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pubchemscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pubchemscan",
		Short: "Extract compound summaries from PubChem",
		Long: `pubchemscan fetches PubChem compound records and extracts a fixed summary:
molecular formula, IUPAC name, InChI, InChIKey, SMILES, and the identifiers
of parent compounds, related compounds and substances.

Related-record pages are fetched one at a time with a random 5-8 second
pause between them. Results are cached locally so repeated lookups are fast.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .pubchemscan in current or home directory)")

	cmd.AddCommand(NewLookupCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
