package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

func newRulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage and apply auto-population rules",
	}
	cmd.AddCommand(
		newRulesListCmd(app),
		newRulesAddCmd(app),
		newRulesRmCmd(app),
		newRulesApplyCmd(app),
	)
	return cmd
}

func newRulesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection-id>",
		Short: "List a collection's rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleList, err := app.store.Rules(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ruleList) == 0 {
				fmt.Fprintln(out, "No rules")
				return nil
			}
			for _, r := range ruleList {
				state := "active"
				if !r.Active {
					state = "inactive"
				}
				fmt.Fprintf(out, "%-36s  %-10s  prio %d  %s  %s\n",
					r.ID, r.Type, r.Priority, state, r.Params)
			}
			return nil
		},
	}
}

func newRulesAddCmd(app *App) *cobra.Command {
	var (
		ruleType   string
		priority   int
		lat        float64
		lon        float64
		radius     float64
		weeks      []int
		start      string
		end        string
		categories []string
		levels     []int
		strategies []string
		hemisphere string
	)

	cmd := &cobra.Command{
		Use:   "add <collection-id>",
		Short: "Attach a rule to a collection",
		Long: `Attach a rule to a collection. The parameter flags depend on --type:

  location:   --lat --lon --radius [--weeks]
  date_range: --start --end (YYYY-MM-DD)
  category:   --categories
  rarity:     --levels
  migration:  --strategies [--hemisphere]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params models.RuleParams
			switch models.RuleType(ruleType) {
			case models.RuleTypeLocation:
				params = models.LocationParams{Lat: lat, Lon: lon, RadiusKm: radius, ValidWeeks: weeks}
			case models.RuleTypeDateRange:
				s, err := time.Parse("2006-01-02", start)
				if err != nil {
					return fmt.Errorf("parsing --start: %w", err)
				}
				e, err := time.Parse("2006-01-02", end)
				if err != nil {
					return fmt.Errorf("parsing --end: %w", err)
				}
				params = models.DateRangeParams{Start: s, End: e}
			case models.RuleTypeCategory:
				params = models.CategoryParams{Categories: categories}
			case models.RuleTypeRarity:
				params = models.RarityParams{Levels: levels}
			case models.RuleTypeMigration:
				params = models.MigrationParams{Strategies: strategies, Hemisphere: hemisphere}
			default:
				return fmt.Errorf("unknown rule type %q", ruleType)
			}

			rule, err := app.store.CreateRule(cmd.Context(), args[0], params, priority)
			if err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintf(cmd.OutOrStdout(), "Created rule %s\n", rule.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleType, "type", "location", "rule type")
	cmd.Flags().IntVar(&priority, "priority", 0, "evaluation priority (higher first)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the rule's center point")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of the rule's center point")
	cmd.Flags().Float64Var(&radius, "radius", 0, "radius in kilometers")
	cmd.Flags().IntSliceVar(&weeks, "weeks", nil, "ISO weeks (default all)")
	cmd.Flags().StringVar(&start, "start", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "range end (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "family categories")
	cmd.Flags().IntSliceVar(&levels, "levels", nil, "rarity tiers (1-5)")
	cmd.Flags().StringSliceVar(&strategies, "strategies", nil, "migration strategies")
	cmd.Flags().StringVar(&hemisphere, "hemisphere", "", "restrict to north or south")
	return cmd
}

func newRulesRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <rule-id>",
		Short: "Remove a rule (items it added stay)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	}
}

func newRulesApplyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <collection-id>",
		Short: "Evaluate the collection's rules and add matching species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := app.engine.Apply(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d species\n", added)
			return nil
		},
	}
}
