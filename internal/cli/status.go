package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backend status of a job once",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd)
			if jobID == "" {
				id, err := e.session.JobID(cmd.Context())
				if err != nil {
					return err
				}
				jobID = id
			}
			if jobID == "" {
				return fmt.Errorf("no job recorded for session %q; pass --job-id", e.settings.Session)
			}

			st, err := e.client.Status(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, field("Job ID", jobID))
			fmt.Fprintln(e.out, field("Status", string(st.Kind)))
			if st.Reason != "" {
				fmt.Fprintln(e.out, field("Reason", st.Reason))
			}
			if st.Result != nil {
				fmt.Fprintln(e.out, field("PDF", st.Result.PDFURL))
				fmt.Fprintln(e.out, field("LaTeX", st.Result.TexURL))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "job to query (default: the session's current job)")
	return cmd
}
