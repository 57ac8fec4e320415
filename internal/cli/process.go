package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
)

// ProcessCmd processes every submission folder, or one with --folder.
func ProcessCmd(deps Deps) *cobra.Command {
	var (
		reprocess bool
		folder    string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process submission folders",
		Long: `Discover submission folders, then classify and grade each document.

Completed and in-progress submissions are skipped unless --reprocess is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd.Context(), deps, func(svc *Services) error {
				out := cmd.OutOrStdout()
				if folder != "" {
					result, err := svc.Batch.ProcessFolder(cmd.Context(), folder, reprocess)
					if err != nil {
						return err
					}
					printResult(out, result)
					return nil
				}

				batch, err := svc.Batch.ProcessAll(cmd.Context(), reprocess)
				if err != nil {
					return err
				}
				for _, result := range batch.Results {
					printResult(out, result)
				}
				fmt.Fprintf(out, "\nDiscovered %d, processed %d, skipped %d, failed %d\n",
					batch.Discovered, batch.Processed, batch.Skipped, batch.Failed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "Reprocess completed submissions")
	cmd.Flags().StringVar(&folder, "folder", "", "Process only this folder reference")
	return cmd
}

func printResult(out io.Writer, result domain.ProcessResult) {
	label := statusLabel(result.Status)
	if result.Skipped {
		label = color.New(color.FgBlue).Sprint("skipped")
	}
	fmt.Fprintf(out, "%-10s %s  %d/%d documents", label, result.FolderRef, result.Processed, result.Total)
	if result.Error != "" {
		fmt.Fprintf(out, "  (%s)", result.Error)
	}
	fmt.Fprintln(out)
}

func statusLabel(status domain.SubmissionStatus) string {
	switch status {
	case domain.StatusCompleted:
		return color.New(color.FgGreen).Sprint(status)
	case domain.StatusError:
		return color.New(color.FgRed).Sprint(status)
	case domain.StatusProcessing:
		return color.New(color.FgYellow).Sprint(status)
	default:
		return string(status)
	}
}
