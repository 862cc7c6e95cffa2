package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Log the source-to-outputs manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := c.app.Dump(cmd.Context(), options(cmd))
			return err
		},
	}
}

func (c *CLI) newHashesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashes [tag]",
		Short: "Log the digests of the source-to-outputs files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := ""
			if len(args) == 1 {
				tag = args[0]
			}
			_, err := c.app.HashSums(cmd.Context(), options(cmd), tag)
			return err
		},
	}
}
