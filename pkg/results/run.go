package results

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
)

// Backend names the kind of store for metrics labels.
func Backend(s Store) string {
	switch s.(type) {
	case *PGStore:
		return "postgres"
	case *FileStore:
		return "file"
	}
	return "other"
}

// Execute runs s and, when store is not nil, saves the report. A report is produced even
// for failed runs; the run error takes precedence over a save error.
func Execute(ctx context.Context, runner inference.Runner, s *inference.Sketch, store Store) (*Report, *inference.Result, error) {
	start := time.Now()
	res, runErr := runner.Run(ctx, s)
	report := NewReport(s.Name, start, res, runErr)

	log := runner.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.With(logging.RunID(report.ID.String()))

	if store != nil {
		// Saving must survive a cancelled run context.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		err := store.Save(saveCtx, report)
		if runner.Metrics != nil {
			runner.Metrics.RecordReportSaved(Backend(store), err)
		}
		if err != nil {
			log.Error("failed to save report", logging.Error(err))
			if runErr == nil {
				return report, res, fmt.Errorf("saving report: %w", err)
			}
		} else {
			log.Info("report saved", logging.String("backend", Backend(store)))
		}
	}
	return report, res, runErr
}
