package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/incr/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sources that changed since their last recorded compilation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Status(cmd.Context(), options(cmd))
			if err != nil {
				return err
			}
			exitCode, _ := cmd.Flags().GetBool("exit-code")
			if exitCode && !report.UpToDate() {
				return zerr.With(zerr.Wrap(domain.ErrNotUpToDate, "status"), "dirty", len(report.Changes.Dirty()))
			}
			return nil
		},
	}
	cmd.Flags().Bool("exit-code", false, "Exit with status 1 when sources need to be compiled")
	return cmd
}
