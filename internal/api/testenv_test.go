package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/client"
	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/parser"
	"github.com/ngo-impact/impact-client/internal/session"
	"github.com/ngo-impact/impact-client/internal/storage"
	"github.com/ngo-impact/impact-client/internal/testutil"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/stretchr/testify/require"
)

const validCSV = "ngoId,month,peopleHelped,eventsConducted,fundsUtilized\n" +
	"NGO1,2024-01,10,2,1500\n" +
	"NGO2,2024-01,5,1,200.5\n"

// testBodyLimit matches the shipped console default.
const testBodyLimit = "12M"

type testEnv struct {
	e          *echo.Echo
	fake       *testutil.FakeService
	sessions   *session.Manager
	stagingDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := testutil.NewFakeService()
	t.Cleanup(fake.Close)

	svc, err := client.New(client.Options{BaseURL: fake.URL(), RequestTimeout: time.Second})
	require.NoError(t, err)

	stagingDir := t.TempDir()
	store, err := storage.NewLocalStore(stagingDir)
	require.NoError(t, err)

	factory := func() *upload.Controller {
		return upload.NewController(upload.DefaultValidator(), svc, upload.NewPoller(svc, 5*time.Millisecond, 0))
	}
	sessions := session.NewManager(factory, store, 4)
	t.Cleanup(sessions.Close)

	e := echo.New()
	SetupMiddleware(e, MiddlewareConfig{BodyLimit: testBodyLimit})
	RegisterRoutes(e, NewHandlers(&Dependencies{
		Store:        store,
		Sessions:     sessions,
		Service:      svc,
		Inspector:    parser.NewReportCSVInspector(),
		Validator:    upload.DefaultValidator(),
		ServiceURL:   fake.URL(),
		Version:      "test",
		SessionCount: sessions.Count,
	}))

	return &testEnv{e: e, fake: fake, sessions: sessions, stagingDir: stagingDir}
}

func (env *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(b))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) selectFile(t *testing.T, id, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if name != "" {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/file", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// staged lists the files left in the staging directory.
func (env *testEnv) staged(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(env.stagingDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (env *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeSession(t, rec).ID
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.ConsoleSession {
	t.Helper()
	var sess models.ConsoleSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}
