package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/cne-console/internal/models"
)

// FakeBackend is an in-memory stand-in for the extraction backend's job API.
type FakeBackend struct {
	*httptest.Server

	mu           sync.Mutex
	jobs         map[string]*models.JobStatus
	rows         map[string][]models.PreviewRow
	csv          map[string]string
	submitted    []string
	previewCalls int
	approveCalls int
	approveGate  chan struct{}
	nextID       int
}

// NewFakeBackend starts a fake backend that is closed with the test.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		jobs: make(map[string]*models.JobStatus),
		rows: make(map[string][]models.PreviewRow),
		csv:  make(map[string]string),
	}

	r := chi.NewRouter()
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/jobs", f.handleSubmit)
	r.Get("/api/jobs/{id}", f.handleGet)
	r.Get("/api/jobs/{id}/preview", f.handlePreview)
	r.Post("/api/jobs/{id}/approve", f.handleApprove)
	r.Get("/api/jobs/{id}/csv", f.handleCSV)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

// SetJob adds or replaces a job.
func (f *FakeBackend) SetJob(id string, state models.JobState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	f.jobs[id] = &models.JobStatus{JobID: id, State: state, CreatedAt: now, UpdatedAt: now, InputFiles: []string{id + ".pdf"}}
}

// SetRows sets the preview rows of a job.
func (f *FakeBackend) SetRows(id string, rows []models.PreviewRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id] = rows
}

// SetCSV sets the CSV body served for a job.
func (f *FakeBackend) SetCSV(id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.csv[id] = body
}

// GateApprovals makes approve requests block until the returned channel
// is closed.
func (f *FakeBackend) GateApprovals() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveGate = make(chan struct{})
	return f.approveGate
}

func (f *FakeBackend) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

func (f *FakeBackend) ApproveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approveCalls
}

func (f *FakeBackend) PreviewCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previewCalls
}

func (f *FakeBackend) State(id string) models.JobState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		return job.State
	}
	return ""
}

func (f *FakeBackend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_file", "detail": "Missing file"})
		return
	}
	defer file.Close()
	io.Copy(io.Discard, file)

	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.submitted = append(f.submitted, header.Filename)
	now := time.Now().UTC().Format(time.RFC3339)
	f.jobs[id] = &models.JobStatus{JobID: id, State: models.StateQueued, CreatedAt: now, UpdatedAt: now, InputFiles: []string{header.Filename}}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, models.JobCreated{JobID: id, Status: models.StateQueued})
}

func (f *FakeBackend) job(w http.ResponseWriter, r *http.Request) (*models.JobStatus, bool) {
	f.mu.Lock()
	job, ok := f.jobs[chi.URLParam(r, "id")]
	f.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "detail": "Job not found"})
	}
	return job, ok
}

func (f *FakeBackend) handleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := f.job(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	copied := *job
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, copied)
}

func (f *FakeBackend) handlePreview(w http.ResponseWriter, r *http.Request) {
	job, ok := f.job(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	page, size = max(page, 1), max(size, 1)

	f.mu.Lock()
	f.previewCalls++
	rows := f.rows[job.JobID]
	f.mu.Unlock()

	start := min((page-1)*size, len(rows))
	end := min(start+size, len(rows))
	pageRows := rows[start:end]
	if pageRows == nil {
		pageRows = []models.PreviewRow{}
	}
	writeJSON(w, http.StatusOK, models.PreviewPage{JobID: job.JobID, Page: page, Size: size, Total: len(rows), Rows: pageRows})
}

func (f *FakeBackend) handleApprove(w http.ResponseWriter, r *http.Request) {
	job, ok := f.job(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	f.approveCalls++
	gate := f.approveGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	job.State = models.StateApproved
	f.mu.Unlock()

	path := "data/approved/" + job.JobID
	writeJSON(w, http.StatusOK, models.ApproveResult{JobID: job.JobID, Status: "approved", DatasetPath: &path})
}

func (f *FakeBackend) handleCSV(w http.ResponseWriter, r *http.Request) {
	job, ok := f.job(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	body := f.csv[job.JobID]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="listas_%s.csv"`, job.JobID))
	io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
