// Command dashboard-migrate checks the dashboard store and creates the
// default dashboard for every project that does not have one yet.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/fusepoint/dashboard-service/internal/core/ports"
	"github.com/fusepoint/dashboard-service/internal/core/service"
	"github.com/fusepoint/dashboard-service/internal/infrastructure/backend"
	"github.com/fusepoint/dashboard-service/internal/infrastructure/queue"
	"github.com/fusepoint/dashboard-service/internal/pkg/config"
	"github.com/fusepoint/dashboard-service/pkg/logger"
)

// errIncomplete marks a run in which at least one project failed.
var errIncomplete = errors.New("some dashboards could not be created")

type options struct {
	workers int
	dryRun  bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errIncomplete) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Load()

	opts, help, err := parseFlags(args, cfg.BootstrapWorkers)
	if err != nil {
		return err
	}
	if help {
		return nil
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Output:  os.Stderr,
		Service: "dashboard-migrate",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if err := store.Prepare(ctx); err != nil {
		return err
	}

	dashboards := service.NewDashboardStore(store.Dashboards)
	if opts.dryRun {
		ids, err := dashboards.Missing(ctx)
		if err != nil {
			return err
		}
		printDryRun(os.Stdout, ids)
		return nil
	}

	svc := service.NewDashboardService(dashboards, store.Cache, queue.NewDispatcher(opts.workers, log), log)
	report, err := svc.BootstrapAll(ctx)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	if len(report.Failures) > 0 {
		return errIncomplete
	}
	return nil
}

func parseFlags(args []string, defaultWorkers int) (options, bool, error) {
	var opts options
	flagSet := pflag.NewFlagSet("dashboard-migrate", pflag.ContinueOnError)
	flagSet.IntVar(&opts.workers, "workers", defaultWorkers, "number of concurrent bootstrap workers")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "list projects without a dashboard and exit without writing")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return opts, true, nil
		}
		return opts, false, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: dashboard-migrate [flags]\n\n%s", flagSet.FlagUsages())
		return opts, true, nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, false, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.workers < 1 {
		return opts, false, fmt.Errorf("--workers must be positive, got %d", opts.workers)
	}
	return opts, false, nil
}

func printDryRun(w io.Writer, ids []int64) {
	fmt.Fprintf(w, "%d project(s) without a dashboard\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "  %d\n", id)
	}
}

func printReport(w io.Writer, report *ports.BootstrapReport) {
	fmt.Fprintf(w, "projects: %d  created: %d  existing: %d  failed: %d\n",
		report.Total, report.Created, report.Existing, len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  project %d: %v\n", f.ProjectID, f.Err)
	}
}

