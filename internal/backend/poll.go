package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vrsandeep/cne-console/internal/models"
)

// DefaultAccept is the set of states PollUntil waits for when none is given.
var DefaultAccept = []models.JobState{models.StateReady, models.StateApproved, models.StateFailed}

// PollUntil fetches the job status at a fixed interval until its state is
// one of accept or timeout elapses. A failed fetch ends the poll with that
// error; running out of time returns an error wrapping ErrPollTimeout.
func (c *Client) PollUntil(ctx context.Context, jobID string, accept []models.JobState, timeout time.Duration) (*models.JobStatus, error) {
	if len(accept) == 0 {
		accept = DefaultAccept
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	timedOut := func() error {
		return fmt.Errorf("job %s after %s: %w", jobID, timeout, ErrPollTimeout)
	}

	for {
		status, err := c.GetJob(pollCtx, jobID)
		if err != nil {
			if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return nil, timedOut()
			}
			return nil, err
		}
		if slices.Contains(accept, status.State) {
			return status, nil
		}
		c.logger.Debug("Waiting for job", "job_id", jobID, "state", status.State)

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, timedOut()
		case <-ticker.C:
		}
	}
}
