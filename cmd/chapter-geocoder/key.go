package main

import (
	"fmt"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	var q domain.LocationQuery

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Show the cache key and query candidates for a location",
		Long: `
key prints how a location is normalized: the cache key it is stored under,
the country code used to filter provider queries, and the ordered list of
query strings a run would try.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := domain.Normalize(q)
			w := cmd.OutOrStdout()

			key := n.CacheKey()
			if key == "" {
				key = "(none: " + domain.ErrMissingData.Error() + ")"
			}
			fmt.Fprintf(w, "key:      %s\n", key)
			fmt.Fprintf(w, "country:  %s\n", n.Country)
			fmt.Fprintf(w, "code:     %s\n", n.CountryCode)
			fmt.Fprintf(w, "region:   %s\n", n.Region)

			i := 0
			for c := range n.Candidates() {
				i++
				fmt.Fprintf(w, "%2d. %s\n", i, c)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Place, "city", "", "city or place name")
	cmd.Flags().StringVar(&q.Region, "region", "", "state, province, or region")
	cmd.Flags().StringVar(&q.Country, "country", "", "country name or alias")
	return cmd
}
