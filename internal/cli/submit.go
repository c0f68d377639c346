package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newSubmitCommand() *cobra.Command {
	var pdfURL, text, textFile string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start a tailoring job for a stored resume PDF",
		Example: `  tailorctl submit --pdf-url https://files.example.com/resume.pdf --text-file posting.txt
  tailorctl wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := fromContext(cmd)
			if textFile != "" {
				raw, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("read job description: %w", err)
				}
				text = string(raw)
			}
			if strings.TrimSpace(pdfURL) == "" || strings.TrimSpace(text) == "" {
				return fmt.Errorf("--pdf-url and --text (or --text-file) are required")
			}

			jobID, err := e.client.Start(cmd.Context(), pdfURL, text)
			if err != nil {
				return fmt.Errorf("start job: %w", err)
			}
			if err := e.session.BeginJob(cmd.Context(), jobID, pdfURL); err != nil {
				return fmt.Errorf("record job: %w", err)
			}

			fmt.Fprintln(e.out, titleStyle.Render("Job submitted"))
			fmt.Fprintln(e.out, field("Job ID", jobID))
			fmt.Fprintln(e.out, field("Session", e.settings.Session))
			return nil
		},
	}
	cmd.Flags().StringVar(&pdfURL, "pdf-url", "", "public URL of the resume PDF")
	cmd.Flags().StringVar(&text, "text", "", "job description text")
	cmd.Flags().StringVar(&textFile, "text-file", "", "read the job description from a file")
	return cmd
}
