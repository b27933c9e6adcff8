package www

import (
	"log/slog"
	"net/http"
	"runtime"
)

type SysInfo struct {
	Version         string `json:"version"`
	GoVersion       string `json:"go_version"`
	DatabaseVersion int    `json:"database_version"`
	Timezone        string `json:"timezone"`
	TokenState      string `json:"token_state"`
}

func NewSysInfoHandler(logger *slog.Logger, db Database, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := SysInfo{
			Version:    opts.Version,
			GoVersion:  runtime.Version(),
			Timezone:   opts.Location.String(),
			TokenState: "unknown",
		}

		v, err := db.Version(r.Context())
		if err != nil {
			writeError(logger, w, http.StatusInternalServerError, err)
			return
		}
		info.DatabaseVersion = v

		if opts.Tokens != nil {
			state, err := opts.Tokens.TokenState()
			if err != nil {
				logger.Warn("reading token state failed", slog.Any("error", err))
			} else {
				info.TokenState = state.String()
			}
		}

		writeJSON(logger, w, http.StatusOK, info)
	}
}
