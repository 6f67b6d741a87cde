package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var filenamePattern = regexp.MustCompile(`(?i)filename="?(.+?)"?$`)

// DefaultCSVName is the download name used when the backend does not suggest one.
func DefaultCSVName(jobID string) string {
	return fmt.Sprintf("listas_%s.csv", jobID)
}

// FilenameFromDisposition extracts the suggested filename from a
// Content-Disposition header, falling back to DefaultCSVName.
func FilenameFromDisposition(header, jobID string) string {
	if m := filenamePattern.FindStringSubmatch(strings.TrimSpace(header)); m != nil && m[1] != "" {
		return m[1]
	}
	return DefaultCSVName(jobID)
}

// DownloadCSV streams the job's CSV export into w and returns the suggested
// filename. Nothing is written to w when the backend answers with an error.
func (c *Client) DownloadCSV(ctx context.Context, jobID string, w io.Writer) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/csv", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := FilenameFromDisposition(resp.Header.Get("Content-Disposition"), jobID)
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	return name, nil
}
