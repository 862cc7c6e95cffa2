package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <scope:name>",
		Short: "List the source files referencing a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.app.Lookup(cmd.Context(), options(cmd), args[0])
			return err
		},
	}
}
