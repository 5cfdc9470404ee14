package api

import (
	"log/slog"
	"net/http"
	"time"
)

func logRequest(r *http.Request, status int, elapsed time.Duration) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	} else if status >= 400 {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"duration", elapsed.Round(time.Millisecond),
	)
}
