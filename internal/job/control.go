package job

import (
	"errors"
	"sync/atomic"
)

// ErrCancelled may be returned by a handler that stopped on a cancel request.
var ErrCancelled = errors.New("job cancelled")

// Control is the running job's view of cancellation and progress. Handlers
// check Cancelled between work units and report progress with Advance.
type Control struct {
	jobID     string
	cancelled atomic.Bool
	processed atomic.Int64
	total     atomic.Int64
}

func NewControl(jobID string) *Control {
	return &Control{jobID: jobID}
}

func (c *Control) JobID() string { return c.jobID }

func (c *Control) Cancel() { c.cancelled.Store(true) }

func (c *Control) Cancelled() bool { return c.cancelled.Load() }

func (c *Control) SetTotal(n int) { c.total.Store(int64(n)) }

func (c *Control) Total() int { return int(c.total.Load()) }

func (c *Control) Advance(n int) { c.processed.Add(int64(n)) }

func (c *Control) Processed() int { return int(c.processed.Load()) }
