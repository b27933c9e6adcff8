package www

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/eloverblik-exporter/exporter"
	"github.com/mailgun/holster/v4/clock"
)

// NewExportHandler runs an export and answers with its summary. The window
// is either from/to or the last days, defaulting to the configured days.
// The run is not cancelled when the client goes away.
func NewExportHandler(logger *slog.Logger, ex Exporter, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to := exporter.Window(clock.Now(), intOrDefault(r.URL, "days", opts.DaysBack))

		var err error
		if from, err = dateOrDefault(r.URL, "from", from); err != nil {
			writeError(logger, w, http.StatusBadRequest, err)
			return
		}
		if to, err = dateOrDefault(r.URL, "to", to); err != nil {
			writeError(logger, w, http.StatusBadRequest, err)
			return
		}
		if !from.Before(to) {
			writeError(logger, w, http.StatusBadRequest, errors.New("from must be before to"))
			return
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Minute)
		defer cancel()

		summary, err := ex.Run(ctx, from, to)
		var upstream *exporter.UpstreamError
		switch {
		case err == nil:
			writeJSON(logger, w, http.StatusOK, summary)
		case errors.Is(err, exporter.ErrRunInProgress):
			writeError(logger, w, http.StatusConflict, err)
		case errors.As(err, &upstream):
			logger.Warn("export failed upstream", slog.String("service", upstream.Service), slog.Any("error", err))
			writeJSON(logger, w, http.StatusBadGateway, summary)
		default:
			logger.Error("export failed", slog.Any("error", err))
			writeJSON(logger, w, http.StatusInternalServerError, summary)
		}
	}
}
