package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator tools for the claims portal",
		Long: `portalctl inspects the portal's seed data, evaluates fraud indicators,
runs claim analyses offline and manages stored claim documents.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringP("seed", "s", "", "seed fixture file (default is the embedded fixture)")

	root.AddCommand(
		newUsersCmd(),
		newFraudCmd(),
		newSeedCmd(),
		newAnalyzeCmd(),
		newDocumentsCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
