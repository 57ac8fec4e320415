package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/kirillkom/scholarship-pipeline/internal/bootstrap"
	"github.com/kirillkom/scholarship-pipeline/internal/cli"
	"github.com/kirillkom/scholarship-pipeline/internal/config"
	"github.com/kirillkom/scholarship-pipeline/internal/observability/logging"
)

const serviceName = "scholar-cli"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := cli.Deps{
		Open: func(ctx context.Context) (*cli.Services, func(), error) {
			cfg, err := loadConfig()
			if err != nil {
				return nil, nil, err
			}
			app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName})
			if err != nil {
				return nil, nil, err
			}
			return &cli.Services{
				Batch:   app.BatchUC,
				Reader:  app.QueryUC,
				Reports: app.ReportUC,
			}, app.Close, nil
		},
		Migrate: func(context.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ledger, err := bootstrap.OpenLedger(cfg)
			if err != nil {
				return err
			}
			return ledger.Close()
		},
	}

	if err := cli.NewRootCmd(deps).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

// loadConfig also installs the logger; CLI logs go to stderr as text unless
// LOG_FORMAT says otherwise.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}
	slog.SetDefault(logging.NewLoggerTo(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat))
	return cfg, nil
}
