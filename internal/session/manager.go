package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/storage"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSessions limits concurrent console sessions.
const DefaultMaxSessions = 64

// ErrTooManySessions is returned when every slot holds an active upload.
var ErrTooManySessions = errors.New("too many active sessions")

// ControllerFactory builds the controller owned by a new session.
type ControllerFactory func() *upload.Controller

// Manager keeps one upload controller per console session.
type Manager struct {
	sessions      map[string]*SessionState
	mu            sync.RWMutex
	newController ControllerFactory
	store         storage.Store
	maxSessions   int
}

// SessionState holds a console session's controller and staged file.
type SessionState struct {
	ID           string
	Controller   *upload.Controller
	StagedFileID string
	Inspection   *models.CSVSummary
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a session manager. store may be nil when nothing is staged.
func NewManager(factory ControllerFactory, store storage.Store, maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:      make(map[string]*SessionState),
		newController: factory,
		store:         store,
		maxSessions:   maxSessions,
	}
}

// CreateSession starts a new session with an idle controller.
func (m *Manager) CreateSession() (*models.ConsoleSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		m.evictLocked(len(m.sessions) - m.maxSessions + 1)
		if len(m.sessions) >= m.maxSessions {
			return nil, ErrTooManySessions
		}
	}

	now := time.Now()
	state := &SessionState{
		ID:           uuid.New().String(),
		Controller:   m.newController(),
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.sessions[state.ID] = state

	log.Info().Str("session", state.ID).Int("sessions", len(m.sessions)).Msg("Console session created")
	return state.view(), nil
}

// Controller returns the session's controller and marks the session as used.
func (m *Manager) Controller(id string) (*upload.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Controller, true
}

// GetSession returns a snapshot of a session.
func (m *Manager) GetSession(id string) (*models.ConsoleSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return state.view(), true
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// SetStagedFile records fileID (possibly empty) as the session's staged file and
// deletes the file it replaces.
func (m *Manager) SetStagedFile(id, fileID string, inspection *models.CSVSummary) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	if state.StagedFileID != "" && state.StagedFileID != fileID {
		m.deleteStaged(state.StagedFileID)
	}
	state.StagedFileID = fileID
	state.Inspection = inspection
	state.LastAccessed = time.Now()
	return true
}

// RemoveSession stops the session's controller and drops its staged file.
func (m *Manager) RemoveSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	m.removeLocked(state)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions unused for longer than maxAge, except those
// with an upload in progress. Keepalive requests count as use.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	removed := 0
	for _, state := range m.sessions {
		if state.Controller.Snapshot().Phase.IsActive() {
			continue
		}
		if state.LastAccessed.After(cutoff) {
			continue
		}
		log.Info().
			Str("session", state.ID).
			Dur("idle", time.Since(state.LastAccessed).Round(time.Second)).
			Msg("Cleaned up idle session")
		m.removeLocked(state)
		removed++
	}
	return removed
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}

// Close removes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, state := range m.sessions {
		m.removeLocked(state)
	}
}

// evictLocked removes up to n idle or finished sessions, least recently used first.
func (m *Manager) evictLocked(n int) {
	var candidates []*SessionState
	for _, state := range m.sessions {
		if !state.Controller.Snapshot().Phase.IsActive() {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})
	for i := 0; i < n && i < len(candidates); i++ {
		log.Info().Str("session", candidates[i].ID).Msg("Evicted session to free a slot")
		m.removeLocked(candidates[i])
	}
}

func (m *Manager) removeLocked(state *SessionState) {
	state.Controller.Close()
	if state.StagedFileID != "" {
		m.deleteStaged(state.StagedFileID)
	}
	delete(m.sessions, state.ID)
}

func (m *Manager) deleteStaged(fileID string) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(fileID); err != nil {
		log.Warn().Err(err).Str("fileId", fileID).Msg("Failed to delete staged file")
	}
}

func (s *SessionState) view() *models.ConsoleSession {
	return &models.ConsoleSession{
		ID:           s.ID,
		Upload:       s.Controller.Snapshot(),
		Inspection:   s.Inspection,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed,
	}
}
