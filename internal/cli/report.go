package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ReportCmd groups the analytics reports.
func ReportCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show reports over graded submissions",
	}
	cmd.AddCommand(reportSummaryCmd(deps))
	cmd.AddCommand(reportCategoryCmd(deps))
	cmd.AddCommand(reportApplicantsCmd(deps))
	return cmd
}

func reportSummaryCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Submission counts and score statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), deps, func(svc *Services) error {
				report, err := svc.Reports.Summary(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				bold := color.New(color.Bold)
				bold.Fprintln(out, "Submissions")
				fmt.Fprintf(out, "  total:      %d\n", report.TotalSubmissions)
				fmt.Fprintf(out, "  pending:    %d\n", report.Pending)
				fmt.Fprintf(out, "  processing: %d\n", report.Processing)
				fmt.Fprintf(out, "  completed:  %d\n", report.Completed)
				fmt.Fprintf(out, "  error:      %d\n", report.Errors)
				bold.Fprintln(out, "Documents")
				fmt.Fprintf(out, "  total:  %d\n", report.TotalDocuments)
				fmt.Fprintf(out, "  scored: %d\n", report.ScoredDocuments)
				if report.ScoredDocuments > 0 {
					fmt.Fprintf(out, "  score avg %.2f, high %.2f, low %.2f\n", report.AverageScore, report.HighScore, report.LowScore)
				}
				return nil
			})
		},
	}
}

func reportCategoryCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "category",
		Short: "Score statistics per document category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), deps, func(svc *Services) error {
				stats, err := svc.Reports.Categories(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CATEGORY\tCOUNT\tAVG\tMIN\tMAX")
				for _, s := range stats {
					fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\n", s.Category, s.Count, s.AverageScore, s.MinScore, s.MaxScore)
				}
				return w.Flush()
			})
		},
	}
}

func reportApplicantsCmd(deps Deps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "applicants",
		Short: "Top applicants by total score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			return withServices(cmd.Context(), deps, func(svc *Services) error {
				ranking, err := svc.Reports.TopApplicants(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RANK\tAPPLICANT\tEMAIL\tSCORE\tDOCS\tSTATUS")
				for i, r := range ranking {
					fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\t%s\n", i+1, r.ApplicantName, r.ApplicantEmail, r.TotalScore, r.DocumentCount, r.Status)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of applicants to show")
	return cmd
}
