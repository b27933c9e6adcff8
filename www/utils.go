package www

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/angas/eloverblik-exporter/hours"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// dateOrDefault parses a YYYY-MM-DD query value as midnight UTC.
func dateOrDefault(u *url.URL, key string, defaultValue time.Time) (time.Time, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	t, err := hours.FromIsoDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response failed", slog.Any("error", err))
	}
}

func writeError(logger *slog.Logger, w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("handling request", slog.Any("error", err))
	}
	writeJSON(logger, w, status, map[string]string{"error": err.Error()})
}
