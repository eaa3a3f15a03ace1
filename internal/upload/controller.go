package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Controller owns one UploadSession and drives it through
// idle -> validated -> uploading -> tracking -> completed | failed.
//
// All state lives behind mu. Work started by an intent (the upload request, the poll)
// carries the generation it was started under; reset bumps the generation so results
// that arrive for a superseded session are dropped instead of applied.
type Controller struct {
	mu        sync.RWMutex
	session   models.UploadSession
	gen       uint64
	validator Validator
	submitter Submitter
	poller    *Poller

	ctx          context.Context
	stop         context.CancelFunc
	cancelUpload context.CancelFunc
	token        *CancelToken

	subs    map[int]chan models.UploadSession
	nextSub int
}

// NewController wires a controller. The controller starts idle.
func NewController(validator Validator, submitter Submitter, poller *Poller) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	return &Controller{
		session:   models.UploadSession{Phase: models.PhaseIdle},
		validator: validator,
		submitter: submitter,
		poller:    poller,
		ctx:       ctx,
		stop:      stop,
		subs:      make(map[int]chan models.UploadSession),
	}
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() models.UploadSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Clone()
}

// SelectFile validates candidate and makes it the session's file.
// A rejected candidate leaves the session idle with the reason recorded.
// Selection is refused while an upload or poll is active; after a terminal
// phase it starts a fresh session.
func (c *Controller) SelectFile(candidate *models.CandidateFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Phase.IsActive() {
		return ErrSelectionLocked
	}
	if c.session.Phase.IsTerminal() {
		c.gen++
	}

	if err := c.validator.Validate(candidate); err != nil {
		c.setLocked(models.UploadSession{Phase: models.PhaseIdle, ErrorMessage: describe(err)})
		logFile(candidate).Str("reason", describe(err)).Msg("File rejected")
		return err
	}

	c.setLocked(models.UploadSession{File: candidate.Clone(), Phase: models.PhaseValidated})
	logFile(candidate).Int64("size", candidate.SizeBytes).Msg("File selected")
	return nil
}

// Start submits the selected file. It returns immediately; progress is observed
// through Snapshot, Subscribe or Wait.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.session.Phase.IsActive():
		return ErrUploadInProgress
	case c.session.File == nil:
		return ErrNoFileSelected
	case c.session.Phase != models.PhaseValidated:
		return ErrSessionFinished
	}

	uploadCtx, cancel := context.WithCancel(c.ctx)
	c.cancelUpload = cancel
	file := c.session.File.Clone()
	gen := c.gen

	next := c.session
	next.Phase = models.PhaseUploading
	next.ErrorMessage = ""
	c.setLocked(next)

	log.Info().Str("file", file.Name).Msg("Upload started")
	go c.runUpload(uploadCtx, gen, file)
	return nil
}

// Reset cancels any in-flight upload and poll and returns the session to idle.
// Once Reset returns, nothing from the previous session can reach the new one.
func (c *Controller) Reset() {
	c.mu.Lock()
	tok, cancel := c.token, c.cancelUpload
	wasIdle := c.session.Phase == models.PhaseIdle && c.session.File == nil && c.session.ErrorMessage == ""
	c.gen++
	c.token, c.cancelUpload = nil, nil
	if !wasIdle {
		c.setLocked(models.UploadSession{Phase: models.PhaseIdle})
		log.Info().Msg("Upload session reset")
	}
	c.mu.Unlock()

	if tok != nil {
		tok.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

// Retry moves a failed session that still has its file back to validated so it can be
// started again. No request is issued until Start.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Phase != models.PhaseFailed || c.session.File == nil {
		return ErrNothingToRetry
	}
	c.gen++
	c.setLocked(models.UploadSession{File: c.session.File, Phase: models.PhaseValidated})
	return nil
}

// Close resets the session and releases the controller's background context.
func (c *Controller) Close() {
	c.Reset()
	c.stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// Subscribe returns a channel that always holds the most recent snapshot not yet read.
// Slow readers skip intermediate states. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan models.UploadSession, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan models.UploadSession, 1)
	ch <- c.session.Clone()
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			close(ch)
			delete(c.subs, id)
		}
	}
}

// Wait blocks until the session is no longer uploading or tracking and returns it.
func (c *Controller) Wait(ctx context.Context) (models.UploadSession, error) {
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		case s, ok := <-ch:
			if !ok {
				return c.Snapshot(), errors.New("controller closed")
			}
			if !s.Phase.IsActive() {
				return s, nil
			}
		}
	}
}

func (c *Controller) runUpload(ctx context.Context, gen uint64, file *models.CandidateFile) {
	start := time.Now()
	handle, err := c.submitter.Submit(ctx, file)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		log.Debug().Str("file", file.Name).Msg("Dropping upload result for superseded session")
		return
	}
	c.cancelUpload = nil

	if err != nil {
		c.markFailedLocked(err)
		log.Error().Err(err).Str("file", file.Name).Dur("duration", time.Since(start)).Msg("Upload failed")
		return
	}
	if handle.JobID == "" {
		c.markFailedLocked(errors.New("upload failed: server returned no job id"))
		log.Error().Str("file", file.Name).Msg("Upload response had no job id")
		return
	}

	next := c.session
	next.Phase = models.PhaseTracking
	next.JobID = handle.JobID
	next.JobState = ""
	next.ProcessedCount, next.TotalCount, next.Progress = 0, 0, 0
	c.setLocked(next)

	c.token = c.poller.Start(c.ctx, handle.JobID, c.onUpdate(gen), c.onTerminal(gen))
	log.Info().
		Str("file", file.Name).
		Str("job", handle.JobID).
		Dur("duration", time.Since(start)).
		Msg("Upload accepted, tracking job")
}

func (c *Controller) onUpdate(gen uint64) UpdateFunc {
	return func(status models.JobStatus) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen || c.session.Phase != models.PhaseTracking {
			return
		}
		if status.Percent() < c.session.Progress {
			log.Debug().
				Str("job", c.session.JobID).
				Int("processed", status.Processed).
				Int("total", status.Total).
				Msg("Ignoring status that would move progress backwards")
			return
		}

		next := c.session
		next.JobState = status.Status
		next.ProcessedCount = status.Processed
		next.TotalCount = status.Total
		next.Progress = status.Percent()
		c.setLocked(next)
	}
}

func (c *Controller) onTerminal(gen uint64) TerminalFunc {
	return func(status models.JobStatus, err error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.gen || c.session.Phase != models.PhaseTracking {
			return
		}
		c.token = nil

		if err != nil {
			if status.Status != "" {
				c.session.JobState = status.Status
			}
			c.markFailedLocked(err)
			log.Warn().Err(err).Str("job", c.session.JobID).Msg("Job did not complete")
			return
		}

		next := c.session
		next.Phase = models.PhaseCompleted
		next.JobState = status.Status
		next.ProcessedCount = status.Processed
		next.TotalCount = status.Total
		next.Progress = 100
		c.setLocked(next)
		log.Info().Str("job", next.JobID).Int("total", next.TotalCount).Msg("Job completed")
	}
}

func (c *Controller) markFailedLocked(err error) {
	next := c.session
	next.Phase = models.PhaseFailed
	next.ErrorMessage = describe(err)
	c.setLocked(next)
}

// setLocked replaces the session and notifies subscribers. Callers hold mu.
func (c *Controller) setLocked(next models.UploadSession) {
	if !c.session.Phase.CanTransitionTo(next.Phase) {
		log.Warn().Str("from", string(c.session.Phase)).Str("to", string(next.Phase)).Msg("Unexpected phase transition")
	}
	c.session = next
	for _, ch := range c.subs {
		snap := next.Clone()
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func logFile(f *models.CandidateFile) *zerolog.Event {
	ev := log.Info()
	if f != nil {
		ev = ev.Str("file", f.Name)
	}
	return ev
}
