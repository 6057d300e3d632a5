package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-sketch/pkg/config"
	"github.com/dd0wney/cluso-sketch/pkg/hctl"
	"github.com/dd0wney/cluso-sketch/pkg/health"
	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
	"github.com/dd0wney/cluso-sketch/pkg/metrics"
	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/observations"
	"github.com/dd0wney/cluso-sketch/pkg/results"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns its exit status: 2 for bad input, 3 for a
// cancelled or timed out run and 1 for any other failure. Deferred cleanup has finished
// by the time it returns.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sketch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath   = fs.String("config", "", "Sketch config file (YAML)")
		modelPath    = fs.String("model", "", "Model skeleton in aeon format (without -config)")
		formulaePath = fs.String("formulae", "", "File with one HCTL formula per line (without -config)")
		dataPath     = fs.String("observations", "", "Observation file (without -config)")
		forbidExtra  = fs.Bool("forbid-extra", false, "Forbid attractors other than the observed ones")
		witnesses    = fs.Int("witnesses", 0, "Number of witness networks to print")
		summarize    = fs.Bool("summarize", false, "Summarize update functions of the candidates")
		classify     = fs.Bool("classify", false, "Count candidates by attractor class")
		goalPath     = fs.String("goal", "", "Goal network to check against the candidates")
		seed         = fs.Uint64("seed", 0, "Random seed for witness choice (0 picks deterministically)")
		dirty        = fs.Bool("dirty", false, "Evaluate formulas without validation")
		timeout      = fs.Duration("timeout", 0, "Abort the run after this duration")
		reportDir    = fs.String("report-dir", "", "Directory for run reports")
		compress     = fs.Bool("compress", false, "Snappy-compress report files")
		metricsAddr  = fs.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
		jsonOut      = fs.Bool("json", false, "Print the report as JSON instead of text")
		logLevel     = fs.String("log-level", "", "Log level: debug, info, warn, error")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		sketch *inference.Sketch
		cfg    *config.Config
		err    error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err == nil {
			sketch, err = cfg.Sketch()
		}
	} else {
		sketch, err = flagSketch(*modelPath, *formulaePath, *dataPath, *goalPath)
		if sketch != nil {
			sketch.ForbidExtraAttractors = *forbidExtra
			sketch.Witnesses = *witnesses
			sketch.Summarize = *summarize
			sketch.Classify = *classify
			sketch.Seed = *seed
			sketch.SkipValidation = *dirty
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("error: "+err.Error()))
		return 2
	}

	level := logging.InfoLevel
	if cfg != nil {
		level = cfg.Level()
	} else if s := os.Getenv(logging.LevelEnv); s != "" {
		level = logging.ParseLevel(s)
	}
	if *logLevel != "" {
		level = logging.ParseLevel(*logLevel)
	}
	logger := logging.NewJSONLogger(stderr, level)
	logging.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runTimeout := *timeout
	if runTimeout == 0 && cfg != nil {
		runTimeout = cfg.Timeout
	}
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	var store results.Store
	if cfg != nil {
		store, err = results.Open(ctx, cfg.ReportDir(), cfg.Report.Compress, cfg.Report.PostgresDSN)
	} else {
		store, err = results.Open(ctx, *reportDir, *compress, "")
	}
	if err != nil {
		logger.Error("failed to open report store", logging.Error(err))
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	reg := metrics.DefaultRegistry()
	tracker := newRunTracker(sketch)
	if *metricsAddr != "" {
		checker := health.NewChecker()
		checker.RegisterCheck("run", health.RunCheck(tracker.state))
		checker.RegisterCheck("memory", health.MemoryCheck(nil))
		if store != nil {
			checker.RegisterReadinessCheck("report_store", health.StoreCheck(store.Ping))
		}
		srv := serve(*metricsAddr, reg, checker, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	runner := inference.Runner{Progress: tracker.step, Logger: logger, Metrics: reg}
	report, res, err := results.Execute(ctx, runner, sketch, store)
	tracker.finish(err)

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		fmt.Fprint(stdout, render(report, res))
	}
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("error: "+err.Error()))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 3
		}
		return 1
	}
	return 0
}

// flagSketch assembles a sketch from individual files.
func flagSketch(modelPath, formulaePath, dataPath, goalPath string) (*inference.Sketch, error) {
	if modelPath == "" {
		return nil, errors.New("either -config or -model is required")
	}
	net, err := readNetwork(modelPath)
	if err != nil {
		return nil, err
	}
	s := &inference.Sketch{Name: strings.TrimSuffix(filepath.Base(modelPath), ".aeon"), Model: net}

	if formulaePath != "" {
		if s.Properties, err = readFormulae(formulaePath); err != nil {
			return nil, err
		}
	}
	if dataPath != "" {
		list, err := observations.Load(dataPath)
		if err != nil {
			return nil, err
		}
		s.Observations = []inference.ObservationSet{{Name: filepath.Base(dataPath), List: list}}
	}
	if goalPath != "" {
		if s.Goal, err = readNetwork(goalPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func readNetwork(path string) (*network.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	net, err := network.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// readFormulae reads one formula per line. Blank lines and lines starting with '#' are
// skipped.
func readFormulae(path string) ([]inference.Constraint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []inference.Constraint
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		formula, err := hctl.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, inference.Constraint{Name: fmt.Sprintf("line %d", line), Formula: formula})
	}
	return out, sc.Err()
}

// serve exposes metrics and health checks while the run is in progress.
func serve(addr string, reg *metrics.Registry, checker *health.Checker, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	checker.Register(mux)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.Error(err))
		}
	}()
	logger.Info("serving metrics and health", logging.String("addr", addr))
	return srv
}
