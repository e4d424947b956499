package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			st, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.json {
				if err := printJSON(out, st); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "status: %s (%d entries)\n", st.Status, st.Entries)
				for _, name := range sortedKeys(st.Checks) {
					fmt.Fprintf(out, "  %-14s %s\n", name, st.Checks[name])
				}
			}
			if st.Status != "ok" {
				return fmt.Errorf("server is %s", st.Status)
			}
			return nil
		},
	}
}
