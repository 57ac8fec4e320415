package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

// QueryCmd lists submissions, optionally filtered by status.
func QueryCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:       "query [all|pending|processing|completed|error]",
		Short:     "List submissions by status",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"all", "pending", "processing", "completed", "error"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var status domain.SubmissionStatus
			if len(args) == 1 && !strings.EqualFold(args[0], "all") {
				status = domain.SubmissionStatus(strings.ToLower(args[0]))
			}

			return withServices(cmd.Context(), deps, func(svc *Services) error {
				subs, err := svc.Reader.ListSubmissions(cmd.Context(), status)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(subs) == 0 {
					fmt.Fprintln(out, "No submissions found.")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tAPPLICANT\tEMAIL\tSTATUS\tUPDATED\tERROR")
				for _, sub := range subs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						sub.ID, sub.ApplicantName, sub.ApplicantEmail, sub.Status,
						sub.UpdatedAt.Format("2006-01-02 15:04"), sub.Error)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%d submission(s)\n", len(subs))
				return nil
			})
		},
	}
}
