// Package cli implements tailorctl, a terminal client that submits tailoring
// jobs and waits for them with the same poller the dashboard uses.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resume-tailor/internal/handoff"
	"resume-tailor/internal/handoff/sqlite"
	"resume-tailor/internal/jobs"
)

type ctxKey struct{}

// env carries what every subcommand needs.
type env struct {
	settings Settings
	client   *jobs.Client
	store    *sqlite.Store
	session  *handoff.Session
	out      io.Writer
}

func (e *env) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

func fromContext(cmd *cobra.Command) *env {
	e, _ := cmd.Context().Value(ctxKey{}).(*env)
	return e
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "tailorctl",
		Short:         "Submit resume tailoring jobs and collect the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, configFile)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(settings.StatePath)
			if err != nil {
				return err
			}
			e := &env{
				settings: settings,
				client:   jobs.NewClient(settings.BackendURL, settings.HTTPTimeout, nil),
				store:    store,
				session:  handoff.For(store, settings.Session),
				out:      cmd.OutOrStdout(),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), ctxKey{}, e))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e := fromContext(cmd); e != nil {
				return e.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default ~/.tailorctl.yaml)")
	pf.String("backend-url", "", "job backend base URL")
	pf.String("session", "", "handoff session name")
	pf.String("state", "", "path of the local state database")

	root.AddCommand(newSubmitCommand(), newWaitCommand(), newStatusCommand(), newResultCommand())
	return root
}

// Execute runs tailorctl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
