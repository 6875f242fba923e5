package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"strings"
	"time"
)

type failedEntry struct {
	Interval string `json:"interval"`
	Reason   string `json:"reason"`
}

// runReport is written once per invocation under the report prefix.
type runReport struct {
	InvocationID string        `json:"invocation_id"`
	Mode         Mode          `json:"mode"`
	StartedAt    string        `json:"started_at"`
	FinishedAt   string        `json:"finished_at"`
	Wiped        int           `json:"wiped,omitempty"`
	Success      []string      `json:"success"`
	Skipped      []string      `json:"skipped,omitempty"`
	Failed       []failedEntry `json:"failed,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func reportKey(prefix string, now time.Time, inv string) string {
	return path.Join(prefix, now.Format("2006/01/02"), inv+".json")
}

func buildReport(now time.Time, finished time.Time, resp Response, runErr error) runReport {
	rep := runReport{
		InvocationID: resp.InvocationID,
		Mode:         resp.Mode,
		StartedAt:    now.Format(time.RFC3339),
		FinishedAt:   finished.Format(time.RFC3339),
		Wiped:        resp.Wiped,
		Success:      []string{},
	}
	for _, ds := range resp.Datasets {
		switch {
		case ds.Error != "":
			rep.Failed = append(rep.Failed, failedEntry{Interval: ds.Interval.String(), Reason: ds.Error})
		case ds.Skipped:
			rep.Skipped = append(rep.Skipped, ds.Path)
		default:
			rep.Success = append(rep.Success, ds.Path)
		}
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	return rep
}

// report stores the run report. Failures are logged and never fail the run.
func (r *Runner) report(ctx context.Context, now time.Time, resp Response, runErr error) {
	rep := buildReport(now, r.now().UTC(), resp, runErr)
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		slog.Warn("could not encode run report", "error", err)
		return
	}
	key := reportKey(r.opts.ReportPrefix, now, resp.InvocationID)
	if err := r.store.Put(ctx, key, data, "application/json"); err != nil {
		slog.Warn("could not write run report", "key", key, "error", err)
		return
	}
	if len(rep.Failed) > 0 {
		slog.Info("run report saved", "location", r.store.Location(key), "success", len(rep.Success), "failed", len(rep.Failed), "reasons", joinFailedReasons(rep.Failed))
		return
	}
	slog.Info("run report saved", "location", r.store.Location(key), "success", len(rep.Success), "skipped", len(rep.Skipped))
}

func joinFailedReasons(failed []failedEntry) string {
	parts := make([]string, len(failed))
	for i, f := range failed {
		parts[i] = f.Interval + ": " + f.Reason
	}
	return strings.Join(parts, "; ")
}
