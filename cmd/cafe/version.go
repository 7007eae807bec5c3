package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/cafe"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cafe",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cafe version %s\n", strings.TrimSpace(cafe.Version))
		},
	}
}
