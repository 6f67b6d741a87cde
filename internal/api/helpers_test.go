package api_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/cne-console/internal/models"
)

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil && method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func multipartUpload(t *testing.T, target, fileName, content string, inferOnly bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("infer_only", fmt.Sprint(inferOnly)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func strPtr(s string) *string { return &s }

func candidateRows(n int) []models.PreviewRow {
	rows := make([]models.PreviewRow, n)
	for i := range rows {
		tipo := "2"
		if i%3 == 2 {
			tipo = "3"
		}
		rows[i] = models.PreviewRow{
			District:   "0101",
			Body:       "AM",
			ListType:   tipo,
			Acronym:    "ABC",
			ListName:   strPtr("Lista ABC"),
			Order:      i + 1,
			Candidate:  fmt.Sprintf("Candidato %02d", i+1),
			Validation: map[string]models.ValidationFlag{"NOME_CANDIDATO": models.FlagOK},
		}
	}
	rows[0].Validation["SIGLA"] = models.FlagWarning
	return rows
}
