package cli

import (
	"github.com/spf13/cobra"
)

func newLobbiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lobbies [code]",
		Short: "List public lobbies, or show one lobby by code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			if len(args) == 1 {
				lobby, err := client.Lobby(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out.Print(lobby)
				return nil
			}

			list, err := client.Lobbies(cmd.Context())
			if err != nil {
				return err
			}
			out.Print(list)
			return nil
		},
	}
}
