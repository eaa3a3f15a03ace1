package upload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ngo-impact/impact-client/internal/models"
)

var errNetwork = errors.New("connection refused")

// scriptedSource replays a fixed sequence of status responses; the last one repeats.
type scriptedSource struct {
	mu       sync.Mutex
	script   []statusReply
	calls    int
	inFlight int32
	maxInFl  int32
	block    chan struct{}
}

type statusReply struct {
	status models.JobStatus
	err    error
}

func newScriptedSource(replies ...statusReply) *scriptedSource {
	return &scriptedSource{script: replies}
}

func reply(state models.JobState, processed, total int) statusReply {
	return statusReply{status: models.JobStatus{Processed: processed, Total: total, Status: state}}
}

func (s *scriptedSource) JobStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxInFl)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxInFl, m, n) {
			break
		}
	}

	s.mu.Lock()
	i := s.calls
	s.calls++
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.JobStatus{}, ctx.Err()
		}
	}

	if len(s.script) == 0 {
		return models.JobStatus{}, errNetwork
	}
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	r := s.script[i]
	return r.status, r.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedSource) MaxInFlight() int32 {
	return atomic.LoadInt32(&s.maxInFl)
}

// fakeSubmitter answers uploads with a fixed job id or error, optionally waiting on release.
type fakeSubmitter struct {
	mu      sync.Mutex
	jobID   string
	err     error
	calls   int
	release chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, file *models.CandidateFile) (models.JobHandle, error) {
	f.mu.Lock()
	f.calls++
	release, jobID, err := f.release, f.jobID, f.err
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return models.JobHandle{}, ctx.Err()
		}
	}
	if err != nil {
		return models.JobHandle{}, err
	}
	return models.JobHandle{JobID: jobID}, nil
}

func (f *fakeSubmitter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
