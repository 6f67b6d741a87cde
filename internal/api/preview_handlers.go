package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vrsandeep/cne-console/internal/backend"
	"github.com/vrsandeep/cne-console/internal/preview"
	"github.com/vrsandeep/cne-console/internal/util"
)

type previewResponse struct {
	JobID   string          `json:"job_id"`
	Page    preview.Page    `json:"page"`
	Summary preview.Summary `json:"summary"`
}

// previewSession returns the cached session for id, creating and loading
// it on first use. reload starts a fresh load on an existing session.
func (s *Server) previewSession(id string, reload bool) *preview.Session {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	if sess, ok := s.previews.Get(id); ok {
		if reload {
			sess.Load(id)
		}
		return sess
	}

	cfg := s.app.Config.Preview
	sess := preview.NewSession(preview.NewAggregator(s.app.Client, cfg.RequestSize, cfg.MaxPages))
	sess.Load(id)
	s.previews.Add(id, sess)
	return sess
}

func (s *Server) dropPreview(id string) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	s.previews.Remove(id)
}

// loadRows waits for the aggregated rows of a job. A failed load is not
// kept, so the next request retries.
func (s *Server) loadRows(ctx context.Context, id string, reload bool) (preview.Snapshot, error) {
	snap, err := s.previewSession(id, reload).Wait(ctx)
	if err != nil {
		return snap, err
	}
	if snap.Err != nil {
		s.dropPreview(id)
		return snap, snap.Err
	}
	return snap, nil
}

func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	reload := r.URL.Query().Get("reload") == "1"

	snap, err := s.loadRows(r.Context(), id, reload)
	if err != nil {
		s.respondWithPreviewError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, previewResponse{
		JobID:   id,
		Page:    preview.Paginate(snap.Rows, page, s.app.Config.Preview.PageSize),
		Summary: preview.Summarize(snap.Rows),
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	snap, err := s.loadRows(r.Context(), id, false)
	if err != nil {
		s.respondWithPreviewError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := preview.WriteXLSX(&buf, snap.Rows); err != nil {
		s.logger.Error("XLSX export failed", "job_id", id, "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="listas_%s.xlsx"`, id))
	s.writeDownload(w, id, "xlsx", buf.Bytes())
}

// handleDownloadCSV proxies the backend CSV under its resolved filename.
func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)

	var buf bytes.Buffer
	name, err := s.app.Client.DownloadCSV(r.Context(), id, &buf)
	if err != nil {
		respondWithBackendError(w, err)
		return
	}
	name = util.SanitizeFileName(name, backend.DefaultCSVName(id))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	s.writeDownload(w, id, "csv", buf.Bytes())
}

// writeDownload sends a fully built file. Headers are already out, so a
// failed write can only be logged.
func (s *Server) writeDownload(w http.ResponseWriter, id, format string, body []byte) {
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("Download write failed", "job_id", id, "format", format, "bytes", len(body), "error", err)
	}
}

func (s *Server) respondWithPreviewError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		respondWithBackendError(w, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		RespondWithError(w, http.StatusGatewayTimeout, "Preview is still loading")
	default:
		s.logger.Warn("Preview failed", "error", err)
		RespondWithError(w, http.StatusBadGateway, err.Error())
	}
}
