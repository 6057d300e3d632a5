package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-sketch/pkg/config"
	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/parallel"
	"github.com/dd0wney/cluso-sketch/pkg/results"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

func main() {
	workers := flag.Int("workers", runtime.NumCPU(), "Number of sketches evaluated concurrently")
	reportDir := flag.String("report-dir", "", "Report directory for configs that set none")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] config.yaml|dir ...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	paths, err := collect(flag.Args())
	if err != nil || len(paths) == 0 {
		if err != nil {
			fmt.Fprintln(os.Stderr, failStyle.Render(err.Error()))
		}
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(*logLevel))
	reg := metrics.DefaultRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := batch{logger: logger, metrics: reg, reportDir: *reportDir}
	outcomes, err := b.run(ctx, *workers, paths)
	if err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render(err.Error()))
		os.Exit(1)
	}

	failed := 0
	for _, o := range outcomes {
		line := fmt.Sprintf("%-40s", paths[o.Index])
		if o.Err != nil {
			failed++
			fmt.Println(line, failStyle.Render("FAIL"), o.Err)
			continue
		}
		fmt.Println(line, okStyle.Render("ok"), o.Result.FinalCandidates, dimStyle.Render(o.Result.Duration.String()))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// collect expands directories into the YAML files directly inside them.
func collect(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			out = append(out, matches...)
		}
	}
	return out, nil
}

type batch struct {
	logger    logging.Logger
	metrics   *metrics.Registry
	reportDir string
}

// run evaluates every config and returns the reports in input order.
func (b batch) run(ctx context.Context, workers int, paths []string) ([]parallel.Outcome[*results.Report], error) {
	var pending atomic.Int64
	pending.Store(int64(len(paths)))
	b.metrics.SetBatchQueue(len(paths))
	defer b.metrics.SetBatchQueue(0)

	return parallel.Map(ctx, workers, b.logger, paths, func(ctx context.Context, path string) (*results.Report, error) {
		defer func() { b.metrics.SetBatchQueue(int(pending.Add(-1))) }()
		return b.one(ctx, path)
	})
}

func (b batch) one(ctx context.Context, path string) (*results.Report, error) {
	logger := b.logger.With(logging.Path(path))
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	sketch, err := cfg.Sketch()
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	dir := cfg.ReportDir()
	if dir == "" && cfg.Report.PostgresDSN == "" {
		dir = b.reportDir
	}
	store, err := results.Open(ctx, dir, cfg.Report.Compress, cfg.Report.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
	}

	runner := inference.Runner{Logger: logger, Metrics: b.metrics}
	logger.Info("running sketch", logging.String("sketch", sketch.Name))
	report, _, err := results.Execute(ctx, runner, sketch, store)
	if err != nil {
		return report, fmt.Errorf("%s: %w", sketch.Name, err)
	}
	return report, nil
}
