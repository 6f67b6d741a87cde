package api_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/testutil"
)

func parseHTML(t *testing.T, rr *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	require.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)
	return doc
}

func TestUploadPage(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	rr := do(t, server.Router(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(t, rr)
	form := doc.Find("form#upload-form")
	require.Equal(t, 1, form.Length())
	assert.Equal(t, "/uploads", form.AttrOr("action", ""))
	assert.Equal(t, "multipart/form-data", form.AttrOr("enctype", ""))
	assert.Equal(t, 1, form.Find(`input[name="infer_only"]`).Length())
}

func TestUploadForm(t *testing.T) {
	server, app, _ := testutil.SetupTestServer(t)
	router := server.Router()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartUpload(t, "/uploads", "listas.docx", "docx", false))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/jobs/job-1", rr.Header().Get("Location"))
	assert.True(t, app.Tracker.Tracks("job-1"))

	t.Run("error re-renders the form", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, multipartUpload(t, "/uploads", "", "", false))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		doc := parseHTML(t, rr)
		assert.Equal(t, "Selecione um ficheiro.", doc.Find("#upload-error").Text())
	})
}

func TestHistoryPage(t *testing.T) {
	server, app, backend := testutil.SetupTestServer(t)
	backend.SetJob("ready-job", models.StateReady)
	app.Tracker.Add("ready-job")
	app.Tracker.Add("ghost")
	require.Eventually(t, func() bool {
		a, okA := app.Tracker.Record("ready-job")
		b, okB := app.Tracker.Record("ghost")
		return okA && okB && !a.Loading && !b.Loading
	}, 2*time.Second, 10*time.Millisecond)

	rr := do(t, server.Router(), http.MethodGet, "/jobs?notice=ok", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(t, rr)

	assert.Equal(t, "ok", doc.Find("#notice").Text())
	assert.Equal(t, len(models.GroupOrder), doc.Find("#groups .summary-tile").Length())
	assert.Equal(t, "1", strings.TrimSpace(doc.Find(`#groups [data-state="ready"] span`).Text()))
	assert.Equal(t, "1", strings.TrimSpace(doc.Find(`#groups [data-state="queued"] span`).Text()))
	assert.Equal(t, "0", strings.TrimSpace(doc.Find(`#groups [data-state="failed"] span`).Text()), "a failed fetch is not a failed job")

	rows := doc.Find("#jobs tbody tr")
	assert.Equal(t, 2, rows.Length())
	ready := doc.Find(`#jobs tr[data-job="ready-job"]`)
	assert.Equal(t, "Pronto", ready.Find(".badge").Text())
	ghost := doc.Find(`#jobs tr[data-job="ghost"]`)
	assert.Equal(t, "Em fila", ghost.Find(".badge").Text())
	assert.Contains(t, ghost.Find(".client-error").Text(), "not_found")
}

func TestHistoryPage_Empty(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	rr := do(t, server.Router(), http.MethodGet, "/jobs", nil)
	doc := parseHTML(t, rr)
	assert.Equal(t, "Nenhum job registado.", doc.Find("#empty").Text())
}

func TestResultPage(t *testing.T) {
	server, app, backend := testutil.SetupTestServer(t)
	backend.SetJob("a", models.StateReady)
	backend.SetRows("a", candidateRows(7))

	rr := do(t, server.Router(), http.MethodGet, "/jobs/a?page=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(t, rr)

	assert.True(t, app.Tracker.Tracks("a"), "visiting the result page tracks the job")
	assert.Equal(t, "Pronto", doc.Find("#state").Text())
	assert.Equal(t, "/api/jobs/a/csv", doc.Find("#download-csv").AttrOr("href", ""))
	assert.Equal(t, "/api/jobs/a/preview.xlsx", doc.Find("#export-xlsx").AttrOr("href", ""))

	tiles := doc.Find("#summary .summary-tile h4").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	assert.Equal(t, []string{"Efetivos", "Suplentes", "Lista ABC (Efetivos)", "Lista ABC (Suplentes)"}, tiles)

	rows := doc.Find("#preview tbody tr")
	require.Equal(t, 2, rows.Length(), "rows 6 and 7 of 7 with a page size of 5")
	assert.Equal(t, "0101-AM-3-6-5", rows.First().AttrOr("data-key", ""))
	assert.Contains(t, doc.Find("#pager").Text(), "Página 2 de 2")
	_, disabled := doc.Find("#approve-form button").Attr("disabled")
	assert.False(t, disabled)
}

func TestResultPage_FlagsAndApprovedState(t *testing.T) {
	server, _, backend := testutil.SetupTestServer(t)
	backend.SetJob("a", models.StateApproved)
	backend.SetRows("a", candidateRows(2))

	rr := do(t, server.Router(), http.MethodGet, "/jobs/a", nil)
	doc := parseHTML(t, rr)

	first := doc.Find("#preview tbody tr").First()
	assert.Equal(t, 1, first.Find("td.AVISO").Length())
	assert.Contains(t, first.Text(), "SIGLA: AVISO")
	_, disabled := doc.Find("#approve-form button").Attr("disabled")
	assert.True(t, disabled)
}

func TestResultPage_UnknownJob(t *testing.T) {
	server, _, _ := testutil.SetupTestServer(t)
	rr := do(t, server.Router(), http.MethodGet, "/jobs/missing", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	doc := parseHTML(t, rr)
	assert.Contains(t, doc.Find("#job-error").Text(), "not_found")
	assert.Contains(t, doc.Find("#preview-error").Text(), "not_found")
}

func TestApproveForm(t *testing.T) {
	server, app, backend := testutil.SetupTestServer(t)
	backend.SetJob("a", models.StateReady)

	req := httptest.NewRequest(http.MethodPost, "/jobs/a/approve", strings.NewReader("notes=ok"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/jobs", loc.Path)
	assert.Equal(t, "Job aprovado! Dados em data/approved/a", loc.Query().Get("notice"))

	approvals, err := app.Store.ListApprovals("a")
	require.NoError(t, err)
	require.Len(t, approvals, 1)
	assert.Equal(t, "ok", approvals[0].Notes)
}

func TestUntrackForm(t *testing.T) {
	server, app, backend := testutil.SetupTestServer(t)
	backend.SetJob("a", models.StateReady)
	app.Tracker.Add("a")

	rr := do(t, server.Router(), http.MethodPost, "/jobs/a/untrack", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.False(t, app.Tracker.Tracks("a"))
}
