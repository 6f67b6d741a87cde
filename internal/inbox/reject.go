package inbox

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/vrsandeep/cne-console/internal/backend"
	"github.com/vrsandeep/cne-console/internal/models"
)

// RejectRecorder keeps track of inbox files that could not be submitted.
type RejectRecorder interface {
	RecordRejected(path string, reason models.RejectReason, detail string, size int64) error
	DeleteRejectedByPath(path string) error
}

// Classify maps a submission error to a rejection reason. It reports false
// for errors that may go away on retry, such as network failures or backend
// 5xx answers.
func Classify(err error) (models.RejectReason, bool) {
	var apiErr *backend.APIError
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, ErrUnsupportedFile):
		return models.RejectUnsupported, true
	case errors.Is(err, ErrUnreadableFile):
		return models.RejectUnreadable, true
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
			return models.RejectBackend, true
		}
		return "", false
	case errors.As(err, &pathErr):
		return models.RejectIO, true
	}
	return "", false
}
