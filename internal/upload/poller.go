package upload

import (
	"context"
	"sync"
	"time"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is the fixed delay between status checks.
const DefaultPollInterval = 2 * time.Second

// UpdateFunc receives a non-terminal observation (PENDING, PROCESSING or unknown).
type UpdateFunc func(status models.JobStatus)

// TerminalFunc receives the final observation. err is nil on COMPLETED, a
// *ProcessingError on FAILED and a *StatusCheckError when the job could not be observed.
type TerminalFunc func(status models.JobStatus, err error)

// Poller checks a job's status on a fixed interval until it reaches a terminal state.
// Each poll runs on its own goroutine and keeps at most one status request in flight;
// ticks that fire while a request is outstanding are coalesced by the ticker.
type Poller struct {
	source   StatusSource
	interval time.Duration
	retries  int
}

// NewPoller creates a poller. retries is the number of consecutive failed status
// checks tolerated before the poll ends; 0 ends it on the first failure.
func NewPoller(source StatusSource, interval time.Duration, retries int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if retries < 0 {
		retries = 0
	}
	return &Poller{source: source, interval: interval, retries: retries}
}

// Interval returns the delay between status checks.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// CancelToken stops one poll. After Cancel returns no callback of that poll runs again.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// Cancel stops the poll. It is safe to call at any time, more than once, and while a
// status request is outstanding; the in-flight response is discarded.
// It must not be called from inside the poll's own callbacks.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
	t.cancel()
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done is closed once the poll goroutine has exited.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// deliver runs fn unless the token was cancelled. Holding mu while fn runs is what
// lets Cancel wait out a callback that already started.
func (t *CancelToken) deliver(fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return false
	}
	fn()
	return true
}

// Start begins polling jobID. The first request is issued one interval after Start.
func (p *Poller) Start(ctx context.Context, jobID string, onUpdate UpdateFunc, onTerminal TerminalFunc) *CancelToken {
	ctx, cancel := context.WithCancel(ctx)
	tok := &CancelToken{cancel: cancel, done: make(chan struct{})}
	go p.run(ctx, tok, jobID, onUpdate, onTerminal)
	return tok
}

// Cancel stops the poll identified by tok.
func (p *Poller) Cancel(tok *CancelToken) {
	if tok != nil {
		tok.Cancel()
	}
}

func (p *Poller) run(ctx context.Context, tok *CancelToken, jobID string, onUpdate UpdateFunc, onTerminal TerminalFunc) {
	defer close(tok.done)
	defer tok.cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		start := time.Now()
		status, err := p.source.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				// cancelled mid-request
				return
			}
			failures++
			if failures <= p.retries {
				log.Warn().Err(err).Str("job", jobID).Int("attempt", failures).Msg("Status check failed, retrying on next tick")
				continue
			}
			log.Error().Err(err).Str("job", jobID).Msg("Status check failed")
			tok.deliver(func() { onTerminal(models.JobStatus{}, &StatusCheckError{JobID: jobID, Err: err}) })
			return
		}
		failures = 0

		log.Debug().
			Str("job", jobID).
			Str("status", string(status.Status)).
			Int("processed", status.Processed).
			Int("total", status.Total).
			Dur("duration", time.Since(start)).
			Msg("Job status")

		switch status.Status {
		case models.JobStateCompleted:
			tok.deliver(func() { onTerminal(status, nil) })
			return
		case models.JobStateFailed:
			tok.deliver(func() { onTerminal(status, &ProcessingError{JobID: jobID}) })
			return
		}
		if !status.Status.IsKnown() {
			log.Warn().Str("job", jobID).Str("status", string(status.Status)).Msg("Unknown job status")
		}
		if !tok.deliver(func() { onUpdate(status) }) {
			return
		}
	}
}
