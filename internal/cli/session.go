package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Authenticate and adopt guest data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var email string
			if len(args) == 1 {
				email = args[0]
			} else {
				fmt.Fprint(out, "Email: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return err
				}
				email = strings.TrimSpace(line)
			}

			password, err := readPassword(out)
			if err != nil {
				return err
			}

			session, err := app.client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := app.persistSession(ctx, session); err != nil {
				return err
			}
			if err := app.store.SetActiveUser(ctx, session.UserID); err != nil {
				return err
			}

			adopted, err := app.store.AdoptGuestData(ctx, session.UserID)
			if err != nil {
				return err
			}
			if adopted > 0 {
				fmt.Fprintf(out, "Adopted %d guest collection(s), uploading in background\n", adopted)
			}

			if err := app.agent.DownloadAll(ctx, session.UserID); err != nil {
				app.log.Warn(ctx, "initial download failed", "error", err)
			}
			if err := app.agent.SyncAll(ctx); err != nil {
				app.log.Warn(ctx, "initial sync failed", "error", err)
			}

			fmt.Fprintf(out, "Logged in as %s\n", session.UserID)
			return nil
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the session and return to the guest context",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// flush what we can before the credentials go away
			if err := app.agent.SyncAll(ctx); err != nil {
				app.log.Warn(ctx, "final sync failed", "error", err)
			}

			app.client.Logout()
			if err := app.persistSession(ctx, nil); err != nil {
				return err
			}
			if err := app.store.SetActiveUser(ctx, ""); err != nil {
				return err
			}
			if err := app.store.PurgeQueue(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// readPassword prompts without echo when stdin is a terminal, and falls
// back to a plain line read otherwise (tests, pipes).
func readPassword(out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
