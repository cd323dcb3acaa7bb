package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the game server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			result, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}
			result.Server = cfg.ServerURL
			result.LatencyMS = time.Since(start).Milliseconds()

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
