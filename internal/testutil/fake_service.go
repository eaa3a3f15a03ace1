// fake_service.go - In-process impact service for client, CLI and console tests
package testutil

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// FakeService emulates the impact service endpoints. Each status request
// advances a job by Step rows until it completes.
type FakeService struct {
	Server *httptest.Server

	mu sync.Mutex
	// Step is how many rows a job advances per status request (default: all).
	Step int
	// UploadStatus, when non-zero, is returned by the upload endpoint instead of a job.
	UploadStatus int
	// FailJobs makes every job report FAILED once it would otherwise complete.
	FailJobs bool
	// StatusFailures is the number of upcoming status requests answered with 503.
	StatusFailures int

	jobs       map[string]*models.JobStatus
	uploads    []UploadRecord
	reports    []models.Report
	statusHits int
	nextJob    int
}

// UploadRecord is what the fake saw on one upload request.
type UploadRecord struct {
	FileName  string
	Content   []byte
	RequestID string
}

// NewFakeService starts the fake on a loopback listener. Call Close when done.
func NewFakeService() *FakeService {
	f := &FakeService{jobs: make(map[string]*models.JobStatus)}

	e := echo.New()
	e.HideBanner = true
	e.POST("/reports/upload", f.handleUpload)
	e.GET("/job-status/:id", f.handleStatus)
	e.POST("/report", f.handleReport)
	e.GET("/dashboard", f.handleDashboard)

	f.Server = httptest.NewServer(e)
	return f
}

// URL is the base URL of the fake.
func (f *FakeService) URL() string {
	return f.Server.URL
}

func (f *FakeService) Close() {
	f.Server.Close()
}

// Configure runs fn with the fake locked, for adjusting behaviour mid-test.
func (f *FakeService) Configure(fn func(f *FakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// Uploads returns the uploads received so far.
func (f *FakeService) Uploads() []UploadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UploadRecord(nil), f.uploads...)
}

// Reports returns the single reports received so far.
func (f *FakeService) Reports() []models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Report(nil), f.reports...)
}

// StatusHits counts status requests, including failed ones.
func (f *FakeService) StatusHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusHits
}

func (f *FakeService) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing file field"})
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploads = append(f.uploads, UploadRecord{
		FileName:  fh.Filename,
		Content:   data,
		RequestID: c.Request().Header.Get("X-Request-ID"),
	})
	if f.UploadStatus != 0 {
		return c.JSON(f.UploadStatus, map[string]string{"error": "upload rejected"})
	}

	f.nextJob++
	id := fmt.Sprintf("job-%d", f.nextJob)
	f.jobs[id] = &models.JobStatus{Total: countRows(data), Status: models.JobStatePending}
	return respond(c, http.StatusOK, models.JobHandle{JobID: id})
}

func (f *FakeService) handleStatus(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statusHits++
	if f.StatusFailures > 0 {
		f.StatusFailures--
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "try later"})
	}

	job, ok := f.jobs[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown job"})
	}

	if !job.Status.IsTerminal() {
		step := f.Step
		if step <= 0 {
			step = job.Total
		}
		job.Processed += step
		job.Status = models.JobStateProcessing
		if job.Processed >= job.Total {
			job.Processed = job.Total
			job.Status = models.JobStateCompleted
			if f.FailJobs {
				job.Status = models.JobStateFailed
			}
		}
	}
	return respond(c, http.StatusOK, *job)
}

func (f *FakeService) handleReport(c echo.Context) error {
	var r models.Report
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	if strings.Contains(c.Request().Header.Get("Content-Type"), "msgpack") {
		err = msgpack.Unmarshal(body, &r)
	} else {
		err = json.Unmarshal(body, &r)
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed report"})
	}
	if err := r.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	f.mu.Lock()
	f.reports = append(f.reports, r)
	f.mu.Unlock()
	return c.NoContent(http.StatusCreated)
}

func (f *FakeService) handleDashboard(c echo.Context) error {
	month := c.QueryParam("month")
	if err := models.ValidateMonth(month); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var sum models.DashboardSummary
	ngos := make(map[string]bool)
	for _, r := range f.reports {
		if r.Month != month {
			continue
		}
		ngos[r.NGOID] = true
		sum.PeopleHelped += models.Count(atoi(r.PeopleHelped))
		sum.EventsConducted += models.Count(atoi(r.EventsConducted))
		funds, _ := strconv.ParseFloat(r.FundsUtilized, 64)
		sum.FundsUtilized += models.Amount(funds)
	}
	sum.TotalNGOs = models.Count(len(ngos))
	return respond(c, http.StatusOK, sum)
}

// respond answers in msgpack when the client asked for it.
func respond(c echo.Context, code int, v any) error {
	if strings.Contains(c.Request().Header.Get("Accept"), "msgpack") {
		b, err := msgpack.Marshal(v)
		if err != nil {
			return err
		}
		return c.Blob(code, "application/msgpack", b)
	}
	return c.JSON(code, v)
}

func countRows(data []byte) int {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) == 0 {
		return 0
	}
	return len(records) - 1
}

func atoi(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
