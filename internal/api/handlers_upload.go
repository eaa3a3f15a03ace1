// handlers_upload.go - Console session handlers bound to upload controller intents
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/storage"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/rs/zerolog/log"
)

// sseHeartbeat keeps idle progress streams open through proxies.
const sseHeartbeat = 15 * time.Second

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	store     storage.Store
	sessions  SessionManager
	inspector Inspector
	validator upload.Validator
}

// NewSessionHandler creates a new session handler instance.
// validator must match the one the session controllers use.
func NewSessionHandler(store storage.Store, sessions SessionManager, inspector Inspector, validator upload.Validator) SessionHandler {
	return &SessionHandlerImpl{
		store:     store,
		sessions:  sessions,
		inspector: inspector,
		validator: validator,
	}
}

// HandleCreateSession starts a console session with an idle controller
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	sess, err := h.sessions.CreateSession()
	if err != nil {
		return NewServiceUnavailableError(err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleGetSession returns the current snapshot of a session
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleSelectFile selects the multipart "file" field. The name is checked before
// anything is staged and at most one byte past the size limit is ever written.
func (h *SessionHandlerImpl) HandleSelectFile(c echo.Context) error {
	id := c.Param("id")
	ctrl, ok := h.sessions.Controller(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	if ctrl.Snapshot().Phase.IsActive() {
		return fromIntentError(upload.ErrSelectionLocked)
	}

	part, err := filePart(c.Request())
	if err != nil {
		// the browser sent nothing: record "no file selected" on the session
		return h.rejectSelection(id, ctrl.SelectFile(nil))
	}
	defer part.Close()

	name := part.FileName()
	if err := h.validator.Validate(models.NewCandidateFile(name, 0, "")); err != nil {
		return h.rejectSelection(id, ctrl.SelectFile(models.NewCandidateFile(name, 0, "")))
	}

	staged, err := h.store.Save(name, io.LimitReader(part, h.validator.MaxBytes+1))
	if err != nil {
		return NewInternalError("failed to stage file", err)
	}
	if staged.Size > h.validator.MaxBytes {
		h.discard(staged.ID)
		return h.rejectSelection(id, ctrl.SelectFile(models.NewCandidateFile(name, staged.Size, "")))
	}

	candidate, err := h.store.Candidate(staged.ID)
	if err != nil {
		h.discard(staged.ID)
		return NewInternalError("failed to read staged file", err)
	}

	if err := ctrl.SelectFile(candidate); err != nil {
		h.discard(staged.ID)
		return h.rejectSelection(id, err)
	}

	var inspection *models.CSVSummary
	if h.inspector != nil {
		if inspection, err = h.inspector.Inspect(candidate.Path); err != nil {
			log.Warn().Err(err).Str("session", id).Str("file", candidate.Name).Msg("CSV inspection failed")
		}
	}
	h.sessions.SetStagedFile(id, staged.ID, inspection)

	return h.respondSession(c, id, http.StatusOK)
}

// HandleStartUpload submits the selected file
func (h *SessionHandlerImpl) HandleStartUpload(c echo.Context) error {
	return h.intent(c, http.StatusAccepted, (*upload.Controller).Start)
}

// HandleResetSession cancels any in-flight work and returns the session to idle
func (h *SessionHandlerImpl) HandleResetSession(c echo.Context) error {
	return h.intent(c, http.StatusOK, func(ctrl *upload.Controller) error {
		ctrl.Reset()
		h.sessions.SetStagedFile(c.Param("id"), "", nil)
		return nil
	})
}

// HandleRetryUpload re-arms a failed session for another start
func (h *SessionHandlerImpl) HandleRetryUpload(c echo.Context) error {
	return h.intent(c, http.StatusOK, (*upload.Controller).Retry)
}

// HandleSessionKeepAlive marks the session as in use
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleProgressStream streams session snapshots via SSE until the session
// reaches a terminal phase or the client goes away
func (h *SessionHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("id")
	ctrl, ok := h.sessions.Controller(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			fmt.Fprint(c.Response(), ": keepalive\n\n")
			c.Response().Flush()
		case snap, ok := <-updates:
			if !ok {
				sendSSEData(c, map[string]string{"error": "session closed"})
				return nil
			}
			h.sessions.TouchSession(id)
			sendSSEData(c, snap)
			if snap.Phase.IsTerminal() {
				return nil
			}
		}
	}
}

// intent looks up the session's controller, applies fn and returns the new snapshot.
func (h *SessionHandlerImpl) intent(c echo.Context, status int, fn func(*upload.Controller) error) error {
	id := c.Param("id")
	ctrl, ok := h.sessions.Controller(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	if err := fn(ctrl); err != nil {
		return fromIntentError(err)
	}
	return h.respondSession(c, id, status)
}

func (h *SessionHandlerImpl) respondSession(c echo.Context, id string, status int) error {
	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	return c.JSON(status, sess)
}

// rejectSelection reports a refused selection. A validation failure also clears the
// session's file, so its staged copy goes too.
func (h *SessionHandlerImpl) rejectSelection(id string, err error) error {
	var ve *upload.ValidationError
	if errors.As(err, &ve) {
		h.sessions.SetStagedFile(id, "", nil)
	}
	return fromIntentError(err)
}

func (h *SessionHandlerImpl) discard(fileID string) {
	if err := h.store.Delete(fileID); err != nil {
		log.Warn().Err(err).Str("fileId", fileID).Msg("Failed to discard staged file")
	}
}

// filePart returns the first multipart file field named "file" without buffering the body.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}
