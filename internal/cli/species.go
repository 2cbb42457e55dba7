package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newSpeciesCmd(app *App) *cobra.Command {
	var (
		lat    float64
		lon    float64
		radius float64
		week   int
	)

	cmd := &cobra.Command{
		Use:   "species",
		Short: "Browse the species catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if radius > 0 {
				present := make(map[string]struct{})
				app.catalog.PresentNear(lat, lon, radius, week, present)

				ids := make([]string, 0, len(present))
				for id := range present {
					ids = append(ids, id)
				}
				sort.Strings(ids)

				for _, id := range ids {
					sp := app.catalog.ByID(id)
					fmt.Fprintf(out, "%-16s  %-24s  (%s)\n", sp.ID, sp.CommonName, sp.ScientificName)
				}
				fmt.Fprintf(out, "%d species within %.0f km in week %d\n", len(ids), radius, week)
				return nil
			}

			for _, sp := range app.catalog.All() {
				fmt.Fprintf(out, "%-16s  %-24s  %-12s  rarity %d\n", sp.ID, sp.CommonName, sp.Family, sp.Rarity)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude for presence lookup")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude for presence lookup")
	cmd.Flags().Float64Var(&radius, "radius", 0, "radius in kilometers, enables presence lookup")
	cmd.Flags().IntVar(&week, "week", 1, "ISO week for presence lookup")
	return cmd
}
