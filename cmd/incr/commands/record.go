package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/app"
)

func (c *CLI) newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <file>",
		Short: "Record a successful compilation of a source file",
		Long: `Record stores the content snapshot, the referenced symbols and the outputs of a
compiled source. Outputs it no longer produces are deleted. Sources referencing a
declared symbol whose signature changed are printed, one per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputs, _ := cmd.Flags().GetStringSlice("output")
			refs, _ := cmd.Flags().GetStringSlice("ref")
			abi, _ := cmd.Flags().GetStringSlice("abi")
			metadata, _ := cmd.Flags().GetString("metadata")

			_, err := c.app.Record(cmd.Context(), options(cmd), app.RecordRequest{
				File:         args[0],
				Outputs:      outputs,
				Refs:         refs,
				ABI:          abi,
				MetadataFile: metadata,
			})
			return err
		},
	}
	cmd.Flags().StringSliceP("output", "o", nil, "Glob of produced artifacts, relative to the output directory")
	cmd.Flags().StringSliceP("ref", "r", nil, "Referenced symbol as scope:name")
	cmd.Flags().StringSliceP("abi", "a", nil, "Declared symbol as scope:name=signature")
	cmd.Flags().StringP("metadata", "m", "", "File holding the serialized module header (js platform)")
	return cmd
}
