package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vrsandeep/cne-console/internal/assets"
	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/preview"
)

const previewWait = 20 * time.Second

var templateFuncs = template.FuncMap{
	"stateLabel": func(s models.JobState) string { return s.Label() },
	"formatDate": formatDate,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "n/a"
		}
		return t.Local().Format("02/01/2006, 15:04:05")
	},
	"deref":    deref,
	"rowKey":   preview.RowKey,
	"join":     strings.Join,
	"add":      func(a, b int) int { return a + b },
	"intOr0":   func(p *int) int { return derefInt(p) },
	"flagOf":   func(row models.PreviewRow, field string) string { return string(row.Flag(field)) },
	"kbytes":   func(n int64) string { return fmt.Sprintf("%.1f KB", float64(n)/1024) },
	"columns":  func() []string { return preview.Columns },
	"cellsOf":  preview.CellValues,
	"flagsOf":  func(row models.PreviewRow) []string { return flagList(row) },
	"safeURL":  func(s string) template.URL { return template.URL(s) },
	"pageHref": func(id string, page int) string { return fmt.Sprintf("/jobs/%s?page=%d", url.PathEscape(id), page) },
}

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(assets.WebFS, "web/*.html"))
}

// formatDate renders a backend timestamp in the pt-PT style, or returns it
// unchanged when it cannot be parsed.
func formatDate(value string) string {
	t := models.ParseTimestamp(value)
	if t.IsZero() {
		return value
	}
	return t.Local().Format("02/01/2006, 15:04:05")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// flagList returns "FIELD: FLAG" for every non-OK field, in column order.
func flagList(row models.PreviewRow) []string {
	var flags []string
	for _, col := range preview.Columns {
		if f := row.Flag(col); f != models.FlagOK {
			flags = append(flags, col+": "+string(f))
		}
	}
	return flags
}

func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Template render failed", "template", name, "error", err)
	}
}

type uploadPage struct {
	Title     string
	Error     string
	InferOnly bool
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "upload.html", uploadPage{Title: "Carregar", InferOnly: s.app.Config.Inbox.InferOnly})
}

// handleUploadForm is the non-script upload path: submit, then go to the
// result page of the new job.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	upload, err := s.submitMultipart(r)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, errNoFile) {
			msg = "Selecione um ficheiro."
		}
		s.render(w, http.StatusBadRequest, "upload.html", uploadPage{Title: "Carregar", Error: msg, InferOnly: s.app.Config.Inbox.InferOnly})
		return
	}
	http.Redirect(w, r, "/jobs/"+url.PathEscape(upload.JobID), http.StatusSeeOther)
}

type historyPage struct {
	Title  string
	Notice string
	Groups []models.StateCount
	Jobs   []models.JobRecord
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "history.html", historyPage{
		Title:  "Histórico",
		Notice: r.URL.Query().Get("notice"),
		Groups: s.app.Tracker.Grouped(),
		Jobs:   s.app.Tracker.Sorted(),
	})
}

type resultPage struct {
	Title        string
	JobID        string
	Notice       string
	Record       *models.JobRecord
	JobError     string
	Upload       *models.Upload
	Approvals    []*models.Approval
	Rows         preview.Page
	Summary      preview.Summary
	PreviewError string
	Loading      bool
}

// handleResultPage tracks the job, then renders its status and one page of
// the aggregated preview.
func (s *Server) handleResultPage(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	s.app.Tracker.Add(id)

	data := resultPage{Title: "Job " + id, JobID: id, Notice: r.URL.Query().Get("notice")}

	if status, err := s.app.Client.GetJob(r.Context(), id); err != nil {
		data.JobError = err.Error()
	} else {
		rec := models.JobRecord{JobStatus: *status}
		data.Record = &rec
	}
	if rec, ok := s.app.Tracker.Record(id); ok && data.Record == nil && rec.State != "" {
		data.Record = &rec
	}

	if upload, err := s.app.Store.GetUpload(id); err == nil {
		data.Upload = upload
	}
	if approvals, err := s.app.Store.ListApprovals(id); err == nil {
		data.Approvals = approvals
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	ctx, cancel := context.WithTimeout(r.Context(), previewWait)
	defer cancel()
	snap, err := s.loadRows(ctx, id, false)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		data.Loading = true
	case err != nil:
		data.PreviewError = err.Error()
	}
	data.Rows = preview.Paginate(snap.Rows, page, s.app.Config.Preview.PageSize)
	data.Summary = preview.Summarize(snap.Rows)

	s.render(w, http.StatusOK, "result.html", data)
}

func (s *Server) handleApproveForm(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	result, err := s.approve(r, id, r.FormValue("notes"))
	if err != nil {
		http.Redirect(w, r, "/jobs/"+url.PathEscape(id)+"?notice="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	path := deref(result.DatasetPath)
	if path == "" {
		path = "data/approved"
	}
	notice := "Job aprovado! Dados em " + path
	http.Redirect(w, r, "/jobs?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func (s *Server) handleUntrackForm(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromContext(r)
	if s.app.Tracker.Remove(id) {
		s.dropPreview(id)
	}
	http.Redirect(w, r, "/jobs", http.StatusSeeOther)
}
