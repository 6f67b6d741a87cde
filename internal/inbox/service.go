package inbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vrsandeep/cne-console/internal/logger"
	"github.com/vrsandeep/cne-console/internal/models"
	"github.com/vrsandeep/cne-console/internal/util"
)

// Submitter sends a local file to the backend as a new job.
type Submitter interface {
	SubmitFile(ctx context.Context, path string, inferOnly bool) (*models.JobCreated, error)
}

// JobTracker is told about every job created through the inbox.
type JobTracker interface {
	Add(id string) bool
}

type UploadStore interface {
	SaveUpload(u *models.Upload) error
}

// Service submits local files and records what was sent.
type Service struct {
	client  Submitter
	tracker JobTracker
	store   UploadStore
	logger  *slog.Logger
}

func NewService(client Submitter, tracker JobTracker, store UploadStore, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{client: client, tracker: tracker, store: store, logger: log}
}

// SubmitFile inspects path, creates a job for it and starts tracking the
// job. The returned upload carries the new job id.
func (s *Service) SubmitFile(ctx context.Context, path string, inferOnly bool) (*models.Upload, error) {
	upload, err := Inspect(path)
	if err != nil {
		return nil, err
	}

	created, err := s.client.SubmitFile(ctx, path, inferOnly)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", upload.FileName, err)
	}
	upload.JobID = created.JobID

	s.tracker.Add(created.JobID)
	if err := s.store.SaveUpload(upload); err != nil {
		// The job exists and is tracked; only the local inspection is lost.
		s.logger.Warn("Could not record upload", "job_id", created.JobID, "error", err)
	}

	s.logger.Info("Submitted file", "file", upload.FileName, "job_id", created.JobID, "kind", upload.Kind, "infer_only", inferOnly)
	return upload, nil
}

// SubmitReader stores r under name in a scratch directory and submits it
// like SubmitFile.
func (s *Service) SubmitReader(ctx context.Context, name string, r io.Reader, inferOnly bool) (*models.Upload, error) {
	name = util.SanitizeFileName(name, "upload")
	if !IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}

	dir, err := os.MkdirTemp("", "cne-upload-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return s.SubmitFile(ctx, path, inferOnly)
}
