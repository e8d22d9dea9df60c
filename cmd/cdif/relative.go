package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coldog/cdif/pkg/resolve"
)

func newRelativeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relative <from> <to>",
		Short: "Print the specifier chunk <from> uses to load chunk <to>",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolve.Relative(args[0], args[1]))
		},
	}
}
