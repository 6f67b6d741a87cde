// Package preview collects the full set of preview rows for a job and
// serves it back in client-side pages.
package preview

import (
	"context"
	"errors"
	"fmt"

	"github.com/vrsandeep/cne-console/internal/models"
)

const (
	DefaultRequestSize = 500
	DefaultPageSize    = 50
	DefaultMaxPages    = 1000
)

// ErrNoProgress is returned when the backend keeps answering without the
// collected rows ever reaching the reported total.
var ErrNoProgress = errors.New("preview did not converge")

// PageFetcher fetches one server-side page of preview rows.
type PageFetcher interface {
	GetPreview(ctx context.Context, jobID string, page, size int) (*models.PreviewPage, error)
}

type Aggregator struct {
	fetcher     PageFetcher
	requestSize int
	maxPages    int
}

func NewAggregator(fetcher PageFetcher, requestSize, maxPages int) *Aggregator {
	if requestSize <= 0 {
		requestSize = DefaultRequestSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Aggregator{fetcher: fetcher, requestSize: requestSize, maxPages: maxPages}
}

// Collect fetches pages 1..n of size requestSize until the collected rows
// reach the total reported by the last response, or a page comes back empty.
// Rows are returned in server order.
func (a *Aggregator) Collect(ctx context.Context, jobID string) ([]models.PreviewRow, error) {
	rows := make([]models.PreviewRow, 0)
	total := 0
	for page := 1; ; page++ {
		if page > a.maxPages {
			return nil, fmt.Errorf("%w: job %s has %d of %d rows after %d pages", ErrNoProgress, jobID, len(rows), total, a.maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := a.fetcher.GetPreview(ctx, jobID, page, a.requestSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		rows = append(rows, resp.Rows...)
		total = resp.Total
		if len(resp.Rows) == 0 || len(rows) >= total {
			return rows, nil
		}
	}
}
