package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ngo-impact/impact-client/internal/config"
	"github.com/ngo-impact/impact-client/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUpload(t *testing.T) (*testutil.FakeService, *bytes.Buffer) {
	t.Helper()
	fake := testutil.NewFakeService()
	t.Cleanup(fake.Close)

	cfg = config.DefaultConfig()
	cfg.Service.BaseURL = fake.URL()
	cfg.Upload.PollIntervalMs = 5

	var out bytes.Buffer
	uploadCmd.SetContext(context.Background())
	uploadCmd.SetOut(&out)
	uploadCmd.SetErr(&out)
	quietFlag = true
	return fake, &out
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunUploadCompletes(t *testing.T) {
	fake, out := setupUpload(t)
	path := writeCSV(t, "march.csv", "ngoId,month,peopleHelped,eventsConducted,fundsUtilized\nNGO1,2024-03,1,1,1\n")

	require.NoError(t, runUpload(uploadCmd, []string{path}))
	assert.Contains(t, out.String(), "Job job-1 completed: 1/1 rows")
	require.Len(t, fake.Uploads(), 1)
	assert.Equal(t, "march.csv", fake.Uploads()[0].FileName)
}

func TestRunUploadFailedJob(t *testing.T) {
	fake, _ := setupUpload(t)
	fake.Configure(func(f *testutil.FakeService) { f.FailJobs = true })
	path := writeCSV(t, "march.csv", "ngoId\nNGO1\n")

	err := runUpload(uploadCmd, []string{path})
	require.Error(t, err)
	assert.Equal(t, "processing failed", err.Error())
}

func TestRunUploadRejectedLocally(t *testing.T) {
	fake, _ := setupUpload(t)
	path := writeCSV(t, "march.txt", "ngoId\n")

	err := runUpload(uploadCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file type")
	assert.Empty(t, fake.Uploads())
}

func TestRunUploadServerError(t *testing.T) {
	fake, _ := setupUpload(t)
	fake.Configure(func(f *testutil.FakeService) { f.UploadStatus = http.StatusInternalServerError })
	path := writeCSV(t, "march.csv", "ngoId\nNGO1\n")

	err := runUpload(uploadCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed")
}
