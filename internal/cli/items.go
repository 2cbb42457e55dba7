package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/lifelist/internal/models"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage tracked species",
	}
	cmd.AddCommand(
		newItemsListCmd(app),
		newItemsAddCmd(app),
		newItemsToggleCmd(app),
		newItemsRmCmd(app),
		newItemsAllCmd(app),
	)
	return cmd
}

func newItemsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection-id>",
		Short: "List a collection's items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.store.Items(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printItems(cmd, app, items)
			return nil
		},
	}
}

func newItemsAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Show the life list: every species across collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.store.AllItems(cmd.Context())
			if err != nil {
				return err
			}
			printItems(cmd, app, items)
			return nil
		},
	}
}

func printItems(cmd *cobra.Command, app *App, items []models.Item) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items")
		return
	}
	for _, item := range items {
		mark := "[ ]"
		if item.Status == models.ItemCompleted {
			mark = "[x]"
		}
		name := item.SpeciesID
		if sp := app.catalog.ByID(item.SpeciesID); sp != nil {
			name = sp.CommonName
		}
		fmt.Fprintf(out, "%s %-36s  %s\n", mark, item.ID, name)
	}
}

func newItemsAddCmd(app *App) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "add <collection-id> <species-id>",
		Short: "Track a species in a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := &models.Item{
				CollectionID: args[0],
				SpeciesID:    args[1],
				Notes:        notes,
			}
			if err := app.store.CreateItem(cmd.Context(), item); err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintf(cmd.OutOrStdout(), "Added item %s\n", item.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newItemsToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <item-id>",
		Short: "Flip an item between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := app.store.ToggleItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", item.SpeciesID, item.Status)
			return nil
		},
	}
}

func newItemsRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <item-id>",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.store.DeleteItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.agent.Kick()
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted")
			return nil
		},
	}
}
