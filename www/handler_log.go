package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/eloverblik-exporter/database"
	"github.com/angas/eloverblik-exporter/logging"
)

type logEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
}

func NewLogHandler(logger *slog.Logger, db Database, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := intOrDefault(r.URL, "page", 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)
		level := slog.LevelDebug
		if l := r.URL.Query().Get("level"); l != "" {
			level = logging.LevelFromString(l)
		}

		e, err := db.GetLogEntries(r.Context(), level, page, pageSize)
		if err != nil {
			writeError(logger, w, http.StatusInternalServerError, err)
			return
		}

		entries := make([]logEntry, len(e))
		for i, row := range e {
			entries[i] = logEntry{
				Timestamp: row.Timestamp.In(opts.Location),
				Level:     slog.Level(row.Level).String(),
				Message:   row.Message,
				Attrs:     row.Attrs,
			}
		}

		writeJSON(logger, w, http.StatusOK, struct {
			Page     int        `json:"page"`
			PageSize int        `json:"page_size"`
			Entries  []logEntry `json:"entries"`
		}{page, pageSize, entries})
	}
}

func NewRunsHandler(logger *slog.Logger, db Database, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := db.GetExportRuns(r.Context(), intOrDefault(r.URL, "limit", 10))
		if err != nil {
			writeError(logger, w, http.StatusInternalServerError, err)
			return
		}
		if runs == nil {
			runs = []database.ExportRunRow{}
		}
		for i := range runs {
			runs[i].StartedAt = runs[i].StartedAt.In(opts.Location)
			runs[i].FinishedAt = runs[i].FinishedAt.In(opts.Location)
		}
		writeJSON(logger, w, http.StatusOK, runs)
	}
}
