package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"citygrid/internal/model"
	"citygrid/internal/recorder"
	"citygrid/internal/report"
	"citygrid/internal/runner"
)

// history is the recorded archive of past and current runs.
type history interface {
	GetRuns(ctx context.Context) ([]recorder.RunRow, error)
	GetSteps(ctx context.Context, runID string, from, to time.Time) ([]model.StepRecord, error)
	GetReports(ctx context.Context, runID string, period model.Period) ([]model.Report, error)
}

type api struct {
	runner  *runner.Runner
	history history // nil without a database
}

func newMux(a *api, wsHandler, metricsHandler http.Handler, frontendDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", wsHandler)
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("GET /api/log", a.handleLog)
	mux.HandleFunc("GET /api/report", a.handleReport)
	mux.HandleFunc("GET /api/report/text", a.handleReportText)
	mux.HandleFunc("GET /api/runs", a.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}/steps", a.handleRunSteps)
	mux.HandleFunc("GET /api/runs/{id}/reports", a.handleRunReports)

	if frontendDir != "" {
		if _, err := os.Stat(frontendDir); err == nil {
			slog.Info("serving frontend", slog.String("dir", frontendDir))
			mux.Handle("/", http.FileServer(http.Dir(frontendDir)))
		}
	}
	return mux
}

func (a *api) handleState(w http.ResponseWriter, r *http.Request) {
	engine := a.runner.Engine()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   a.runner.State(),
		"config":  engine.Config(),
		"battery": engine.Battery(),
	})
}

// handleLog returns the live run's step records, optionally limited to
// [from, to).
func (a *api) handleLog(w http.ResponseWriter, r *http.Request) {
	log := a.runner.Engine().Store()
	tr, ok := log.TimeRange()
	if !ok {
		writeJSON(w, http.StatusOK, []model.StepRecord{})
		return
	}

	from, to, err := parseRange(r, tr.Start, tr.End.Add(time.Nanosecond))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records := log.InRange(from, to)
	if records == nil {
		records = []model.StepRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleReport returns the latest bucket of a period, or every bucket with
// all=true.
func (a *api) handleReport(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if r.URL.Query().Get("all") == "true" {
		reports := a.runner.Reports(period)
		if reports == nil {
			reports = []model.Report{}
		}
		writeJSON(w, http.StatusOK, reports)
		return
	}

	rep, ok := a.runner.Report(period)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no steps simulated yet"))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *api) handleReportText(w http.ResponseWriter, r *http.Request) {
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, ok := a.runner.Report(period)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no steps simulated yet"))
		return
	}

	engine := a.runner.Engine()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, report.Text(rep, engine.Config(), engine.Battery()))
}

func (a *api) handleRuns(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("recording is disabled"))
		return
	}
	runs, err := a.history.GetRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []recorder.RunRow{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleRunSteps(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("recording is disabled"))
		return
	}
	from, to, err := parseRange(r, time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	steps, err := a.history.GetSteps(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if steps == nil {
		steps = []model.StepRecord{}
	}
	writeJSON(w, http.StatusOK, steps)
}

func (a *api) handleRunReports(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("recording is disabled"))
		return
	}
	period, err := periodParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reports, err := a.history.GetReports(r.Context(), r.PathValue("id"), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func periodParam(r *http.Request) (model.Period, error) {
	p := r.URL.Query().Get("period")
	if p == "" {
		return model.PeriodDay, nil
	}
	return model.ParsePeriod(p)
}

// parseRange reads RFC3339 from and to query parameters, falling back to
// the given defaults.
func parseRange(r *http.Request, defFrom, defTo time.Time) (time.Time, time.Time, error) {
	from, to := defFrom, defTo
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return from, to, fmt.Errorf("invalid from: %w", err)
		}
		from = t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return from, to, fmt.Errorf("invalid to: %w", err)
		}
		to = t
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("to is before from")
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error writing response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
