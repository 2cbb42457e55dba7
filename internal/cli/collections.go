package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

func newCollectionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage collections",
	}
	cmd.AddCommand(
		newCollectionsListCmd(app),
		newCollectionsAddCmd(app),
		newCollectionsRmCmd(app),
	)
	return cmd
}

func newCollectionsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List visible collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := app.store.Collections(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cols) == 0 {
				fmt.Fprintln(out, "No collections yet")
				return nil
			}
			for _, c := range cols {
				marker := " "
				if c.SyncStatus.Pending() {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-36s  %-20s  %d/%d\n",
					marker, c.ID, c.Title, c.CompletedCount, c.ItemCount)
			}
			return nil
		},
	}
}

func newCollectionsAddCmd(app *App) *cobra.Command {
	var (
		kind     string
		location string
		start    string
		end      string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &models.Collection{
				Title:    args[0],
				Kind:     models.CollectionKind(kind),
				Location: location,
			}
			if start != "" {
				t, err := time.Parse("2006-01-02", start)
				if err != nil {
					return fmt.Errorf("parsing --start: %w", err)
				}
				c.StartDate = &t
			}
			if end != "" {
				t, err := time.Parse("2006-01-02", end)
				if err != nil {
					return fmt.Errorf("parsing --end: %w", err)
				}
				c.EndDate = &t
			}

			if err := app.store.CreateCollection(cmd.Context(), c); err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %s\n", c.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.KindCustom), "collection kind: personal, custom or shared")
	cmd.Flags().StringVar(&location, "location", "", "free-form place descriptor")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	return cmd
}

func newCollectionsRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a collection and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.DeleteCollection(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	}
}
