package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags)
			if err != nil {
				return err
			}
			defer app.close()

			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-28s %10s %9s\n", "ID", "TITLE", "INTERVAL", "TIMEOUT")
			for _, meta := range app.reg.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-28s %10s %9s\n",
					meta.ID, meta.Title, meta.PollInterval, meta.Timeout)
			}
			return nil
		},
	}

	return cmd
}
