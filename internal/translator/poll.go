package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

// Remote batch statuses.
const (
	StatusNotStarted       = "NotStarted"
	StatusRunning          = "Running"
	StatusSucceeded        = "Succeeded"
	StatusFailed           = "Failed"
	StatusValidationFailed = "ValidationFailed"
	StatusCancelled        = "Cancelled"
	StatusCancelling       = "Cancelling"
)

// Result is the outcome of polling a job.
type Result struct {
	Status   string // remote status, empty when the body carried none
	Attempts int
	Body     json.RawMessage
}

type statusBody struct {
	Status  string `json:"status"`
	Summary struct {
		Total      int `json:"total"`
		Failed     int `json:"failed"`
		Success    int `json:"success"`
		InProgress int `json:"inProgress"`
	} `json:"summary"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Poll waits PollInterval before every GET of the operation URL, up to
// MaxAttempts times. A non-200 reply fails at once. A 200 ends polling
// unless the body reports the job still in flight.
func (c *Client) Poll(ctx context.Context, job *Job) (Result, error) {
	var res Result
	if job == nil || job.Handle == "" {
		return res, common.Errorf(common.ErrJobPoll, "no operation handle")
	}
	start := time.Now()

	for res.Attempts < c.cfg.MaxAttempts {
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			job.State = constants.JobStateFailed
			c.logger.Warn("translate.poll.cancelled", "attempts", res.Attempts, "error", err)
			return res, err
		}
		res.Attempts++

		code, raw, err := c.get(ctx, string(job.Handle))
		if err != nil {
			job.State = constants.JobStateFailed
			c.logger.Error("translate.poll.send_error", "attempt", res.Attempts, "error", err)
			return res, common.Errorf(common.ErrJobPoll, "get: %v", err)
		}
		if code != http.StatusOK {
			job.State = constants.JobStateFailed
			c.logger.Error("translate.poll.status",
				"attempt", res.Attempts,
				"status", code,
				"body", truncate(string(raw), 1024),
			)
			return res, common.Errorf(common.ErrJobPoll, "status %d", code)
		}

		res.Body = raw
		var sb statusBody
		if err := json.Unmarshal(raw, &sb); err != nil {
			// A 200 still counts as done; the body just carries no status.
			c.logger.Warn("translate.poll.decode_error",
				"attempt", res.Attempts,
				"body", truncate(string(raw), 1024),
				"error", err,
			)
		}
		res.Status = sb.Status

		switch sb.Status {
		case StatusNotStarted, StatusRunning, StatusCancelling:
			c.logger.Info("translate.poll.pending",
				"attempt", res.Attempts,
				"max_attempts", c.cfg.MaxAttempts,
				"status", sb.Status,
			)
			continue
		case StatusFailed, StatusValidationFailed, StatusCancelled:
			job.State = constants.JobStateFailed
			attrs := []any{"attempt", res.Attempts, "status", sb.Status, "failed_docs", sb.Summary.Failed}
			if sb.Error != nil {
				attrs = append(attrs, "code", sb.Error.Code, "message", sb.Error.Message)
			}
			c.logger.Error("translate.poll.failed", attrs...)
			return res, common.Errorf(common.ErrJobPoll, "job %s", sb.Status)
		default:
			job.State = constants.JobStateSucceeded
			c.logger.Info("translate.poll.ok",
				"attempt", res.Attempts,
				"status", sb.Status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, nil
		}
	}

	job.State = constants.JobStateFailed
	c.logger.Error("translate.poll.exhausted", "attempts", res.Attempts, "last_status", res.Status)
	return res, common.Errorf(common.ErrJobPoll, "still %q after %d attempts", res.Status, res.Attempts)
}

func (c *Client) get(ctx context.Context, operation string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operation, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, drain(resp.Body), nil
}
