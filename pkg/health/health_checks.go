package health

import (
	"context"
	"errors"
	"runtime"
	"time"
)

// StoreCheck reports whether the report store answers ping.
func StoreCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "report_store"}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Reachable"
		}
		return check
	}
}

// RunState is a snapshot of a sketch run.
type RunState struct {
	Applied int
	Total   int
	Done    bool
	Err     error
	Elapsed time.Duration
}

// RunCheck reports the progress of a sketch run. A run that failed is unhealthy, one that
// was cancelled is degraded.
func RunCheck(state func() RunState) CheckFunc {
	return func(context.Context) Check {
		s := state()
		check := Check{
			Name: "run",
			Details: map[string]any{
				"applied":         s.Applied,
				"total":           s.Total,
				"elapsed_seconds": s.Elapsed.Seconds(),
			},
		}

		switch {
		case s.Err != nil && (errors.Is(s.Err, context.Canceled) || errors.Is(s.Err, context.DeadlineExceeded)):
			check.Status = StatusDegraded
			check.Message = s.Err.Error()
		case s.Err != nil:
			check.Status = StatusUnhealthy
			check.Message = s.Err.Error()
		case s.Done:
			check.Status = StatusHealthy
			check.Message = "Finished"
		default:
			check.Status = StatusHealthy
			check.Message = "Running"
		}
		return check
	}
}

// MemoryCheck reports heap usage. Symbolic sets can grow quickly, so a heap above 90% of
// the memory obtained from the OS is degraded.
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	if getUsage == nil {
		getUsage = func() (uint64, uint64) {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return m.HeapAlloc, m.Sys
		}
	}
	return func(context.Context) Check {
		alloc, sys := getUsage()
		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": alloc,
				"sys_bytes":   sys,
			},
		}

		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
