package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/scholarship-pipeline/internal/core/ports"
)

// Services are the use cases the commands drive.
type Services struct {
	Batch   ports.BatchProcessor
	Reader  ports.SubmissionReader
	Reports ports.ReportService
}

// Deps opens services lazily so that help and flag errors never touch the
// ledger or the file store.
type Deps struct {
	Open    func(ctx context.Context) (*Services, func(), error)
	Migrate func(ctx context.Context) error
}

func NewRootCmd(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "scholar",
		Short:         "Classify and grade scholarship submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ProcessCmd(deps))
	root.AddCommand(QueryCmd(deps))
	root.AddCommand(ReportCmd(deps))
	root.AddCommand(MigrateCmd(deps))
	return root
}

func withServices(ctx context.Context, deps Deps, fn func(*Services) error) error {
	svc, closeFn, err := deps.Open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}
