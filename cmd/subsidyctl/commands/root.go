package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the subsidyctl command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "subsidyctl",
		Short: "Operator tooling for the subsidy decision service",
		Long: `subsidyctl validates and imports entitlement rule files,
computes image digests and runs the eligibility advisor offline.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRulesCmd())
	root.AddCommand(newDigestCmd())
	root.AddCommand(newSchemesCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
