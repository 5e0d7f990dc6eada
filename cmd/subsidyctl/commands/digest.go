package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/efarmer/subsidy/common/imagededup"
)

func newDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest FILE...",
		Short: "Print the content digest the image registry keys uploads by",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", imagededup.Digest(content), path)
			}
			return nil
		},
	}
}
