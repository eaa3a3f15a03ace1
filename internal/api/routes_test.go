package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/client"
	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, env.fake.URL(), body["service"])
	assert.Equal(t, float64(1), body["sessions"])
}

func TestFromIntentError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &upload.ValidationError{Reason: upload.ReasonTooLarge}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"no file", upload.ErrNoFileSelected, http.StatusBadRequest, "BAD_REQUEST"},
		{"in progress", upload.ErrUploadInProgress, http.StatusConflict, "CONFLICT"},
		{"locked", upload.ErrSelectionLocked, http.StatusConflict, "CONFLICT"},
		{"finished", upload.ErrSessionFinished, http.StatusConflict, "CONFLICT"},
		{"nothing to retry", upload.ErrNothingToRetry, http.StatusConflict, "CONFLICT"},
		{"transport", &client.TransportError{Op: "upload", StatusCode: 500, Message: "server responded 500"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"wrapped", fmt.Errorf("start: %w", upload.ErrUploadInProgress), http.StatusConflict, "CONFLICT"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := fromIntentError(tt.err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", NewConflictError("busy"), http.StatusConflict, "CONFLICT"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			ErrorHandler(tt.err, e.NewContext(req, rec))

			assert.Equal(t, tt.status, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, MiddlewareConfig{BodyLimit: "1K"})
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 4096)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func readWS(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestWebSocketSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.selectFile(t, id, "report.csv", validCSV).Code)

	srv := httptest.NewServer(env.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, MsgTypeConnected, readWS(t, ws).Type)

	first := readWS(t, ws)
	require.Equal(t, MsgTypeState, first.Type)
	var snap models.UploadSession
	require.NoError(t, json.Unmarshal(first.Payload, &snap))
	assert.Equal(t, models.PhaseValidated, snap.Phase)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeRetry}))
	rejected := readWS(t, ws)
	require.Equal(t, MsgTypeError, rejected.Type)
	var wsErr wsError
	require.NoError(t, json.Unmarshal(rejected.Payload, &wsErr))
	assert.Equal(t, "CONFLICT", wsErr.Code)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeStart}))
	for {
		msg := readWS(t, ws)
		if msg.Type != MsgTypeState {
			continue
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &snap))
		if snap.Phase == models.PhaseCompleted {
			break
		}
		require.NotEqual(t, models.PhaseFailed, snap.Phase)
	}

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readWS(t, ws).Type)
}

func TestBodyLimitSkipsOnlyFileSelection(t *testing.T) {
	env := newTestEnv(t)

	big := strings.NewReader(`{"ngoId":"` + strings.Repeat("x", 13*1024*1024) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/report", big)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.fake.Reports())

	e := echo.New()
	for _, tc := range []struct {
		method, path string
		want         bool
	}{
		{http.MethodPost, "/api/sessions/abc/file", true},
		{http.MethodGet, "/api/sessions/abc/file", false},
		{http.MethodPost, "/api/sessions/abc/start", false},
		{http.MethodPost, "/api/report", false},
	} {
		c := e.NewContext(httptest.NewRequest(tc.method, tc.path, nil), httptest.NewRecorder())
		assert.Equal(t, tc.want, isFileSelection(c), tc.method+" "+tc.path)
	}
}
