// Package inbox inspects local candidate-list files and submits them to the
// backend, either one at a time or by watching a drop directory.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/mholt/archives"
	"github.com/xuri/excelize/v2"

	"github.com/vrsandeep/cne-console/internal/models"
)

var (
	// ErrUnsupportedFile is returned for files the backend does not accept.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrUnreadableFile is returned when an accepted file cannot be parsed.
	ErrUnreadableFile = errors.New("unreadable file")
)

var kindsByExt = map[string]string{
	".pdf":  models.KindPDF,
	".docx": models.KindDOCX,
	".xlsx": models.KindXLSX,
	".zip":  models.KindZIP,
}

// KindOf returns the upload kind for name, or "" if it is not accepted.
func KindOf(name string) string {
	return kindsByExt[strings.ToLower(filepath.Ext(name))]
}

// IsSupported reports whether name has an accepted extension.
func IsSupported(name string) bool {
	return KindOf(name) != ""
}

// Inspect reads what it can about a file before it is submitted. The result
// has no JobID yet.
func Inspect(path string) (*models.Upload, error) {
	kind := KindOf(path)
	if kind == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFile, path)
	}

	u := &models.Upload{
		FileName:  filepath.Base(path),
		Kind:      kind,
		SizeBytes: info.Size(),
		CreatedAt: time.Now().UTC(),
	}

	switch kind {
	case models.KindPDF:
		err = inspectPDF(path, u)
	case models.KindXLSX:
		err = inspectXLSX(path, u)
	case models.KindZIP:
		err = inspectZIP(path, u)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableFile, u.FileName, err)
	}
	return u, nil
}

func inspectPDF(path string, u *models.Upload) error {
	doc, err := fitz.New(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	u.Pages = doc.NumPage()
	if u.Pages == 0 {
		return nil
	}
	img, err := doc.Image(0)
	if err != nil {
		return fmt.Errorf("render first page: %w", err)
	}
	u.Thumbnail, err = Thumbnail(img)
	return err
}

func inspectXLSX(path string, u *models.Upload) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	u.Sheets = f.GetSheetList()
	return nil
}

// inspectZIP counts the accepted documents inside a ZIP bundle.
func inspectZIP(path string, u *models.Upload) error {
	fsys, err := archives.FileSystem(context.Background(), path, nil)
	if err != nil {
		return err
	}
	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(filepath.Base(name), ".") {
			return nil
		}
		if k := KindOf(name); k != "" && k != models.KindZIP {
			u.Entries++
		}
		return nil
	})
}
