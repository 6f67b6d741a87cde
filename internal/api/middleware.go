package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const jobIDContextKey = contextKey("jobID")

// requestLogger logs one line per request with the chi request id.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				level := slog.LevelDebug
				if ww.Status() >= 500 {
					level = slog.LevelWarn
				}
				log.Log(r.Context(), level, "HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// jobIDCtx validates the {jobID} URL parameter and stores it in the
// request context.
func jobIDCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "jobID"))
		if id == "" || strings.ContainsAny(id, "/\\") {
			RespondWithError(w, http.StatusBadRequest, "Invalid job ID")
			return
		}
		ctx := context.WithValue(r.Context(), jobIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jobIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(jobIDContextKey).(string)
	return id
}
