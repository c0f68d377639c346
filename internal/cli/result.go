package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"resume-tailor/internal/jobs"
)

var errNoResult = errors.New("no result found; submit the job again")

func newResultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "result",
		Short: "Show the outcome of the last job in this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd)
			out, err := e.session.ConsumeResult(cmd.Context())
			if err != nil {
				return err
			}
			if out.Error != nil {
				return fmt.Errorf("%s", out.Error.Message)
			}
			if out.Success == nil {
				return errNoResult
			}
			st, err := jobs.ParseStatus(out.Success.Payload)
			if err != nil || st.Result == nil {
				return fmt.Errorf("resume files were not generated correctly")
			}

			fmt.Fprintln(e.out, titleStyle.Render("Tailored resume"))
			fmt.Fprintln(e.out, field("PDF", st.Result.PDFURL))
			fmt.Fprintln(e.out, field("LaTeX", st.Result.TexURL))
			if out.OriginalURL != "" {
				fmt.Fprintln(e.out, field("Original", out.OriginalURL))
			}
			return nil
		},
	}
}
