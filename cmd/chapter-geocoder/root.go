package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chapter-geocoder",
		Short: "Resolve chapter locations to map coordinates",
		Long: `
chapter-geocoder reads a table of chapters (CSV or XLSX), resolves each
City/StateRegion/Country to coordinates through Open-Meteo (and optionally
Nominatim), and writes a JSON array ready for map rendering.

Resolved coordinates are kept in a cache file so repeated runs only query
providers for rows that have not been resolved before.
`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newKeyCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}
