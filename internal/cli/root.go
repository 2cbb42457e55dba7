package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/lifelist/internal/buildinfo"
	"github.com/dmitrijs2005/lifelist/internal/config"
)

// Execute builds the application and runs the requested command.
func Execute() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	app, err := NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer app.Close()

	root := newRootCmd(app)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "lifelist",
		Short: "Offline-first species life list with background sync",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	// config flags (-a, -d, -s, -c) are parsed by the config package
	// before cobra runs; register them so cobra does not reject the args
	root.PersistentFlags().StringP("server", "a", "", "base URL of the sync backend")
	root.PersistentFlags().StringP("database", "d", "", "path to the local database")
	root.PersistentFlags().StringP("sync-interval", "s", "", "sync interval (in seconds)")
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("catalog", "", "path to a species catalog file")

	root.AddCommand(
		newVersionCmd(),
		newStatusCmd(app),
		newLoginCmd(app),
		newLogoutCmd(app),
		newCollectionsCmd(app),
		newItemsCmd(app),
		newRulesCmd(app),
		newSyncCmd(app),
		newWatchCmd(app),
		newSpeciesCmd(app),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if user := app.store.ActiveUser(); user != "" {
				fmt.Fprintf(out, "Logged in as %s\n", user)
			} else {
				fmt.Fprintln(out, "Guest session (local only)")
			}

			n, err := app.store.QueueLen(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Pending sync operations: %d\n", n)
			fmt.Fprintf(out, "Species in catalog: %d\n", app.catalog.Len())
			return nil
		},
	}
}
