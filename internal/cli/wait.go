package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resume-tailor/internal/jobs"
	"resume-tailor/internal/poller"
)

// newPoller uses the poller's fixed cadence and budget. Tests swap it for a
// faster one.
var newPoller = func(fetch poller.Fetcher, onStatus func(jobs.Status)) *poller.Poller {
	return poller.New(fetch, poller.Options{OnStatus: onStatus})
}

func newWaitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Poll the current job every 3s until it finishes or 5 minutes pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd)
			p := newPoller(e.client, func(st jobs.Status) {
				fmt.Fprintln(e.out, field("Status", string(st.Kind)))
			})

			out, err := p.Run(cmd.Context(), e.session)
			if err != nil {
				if errors.Is(err, cmd.Context().Err()) {
					return fmt.Errorf("wait interrupted; the job is still recorded, run wait again")
				}
				return err
			}

			fmt.Fprintln(e.out, field("Polls", fmt.Sprintf("%d", out.Polls)))
			fmt.Fprintln(e.out, field("Elapsed", out.Elapsed.Round(time.Second).String()))
			if out.State != poller.StateSucceeded {
				return fmt.Errorf("%s", out.Message)
			}
			fmt.Fprintln(e.out, titleStyle.Render("Job completed"), "run `tailorctl result` to see the files")
			return nil
		},
	}
}
