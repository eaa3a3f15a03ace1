package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/rs/zerolog/log"
)

// UploadPath is the bulk CSV endpoint.
const UploadPath = "/reports/upload"

// Submit streams the file as multipart field "file" to the upload endpoint and
// returns the job it was assigned. It does not retry.
func (c *Client) Submit(ctx context.Context, file *models.CandidateFile) (models.JobHandle, error) {
	if file == nil || file.Path == "" {
		return models.JobHandle{}, &TransportError{Op: "upload", Message: "no file to send"}
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return models.JobHandle{}, &TransportError{Op: "upload", Message: err.Error(), Details: err}
	}
	defer f.Close()

	if c.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.uploadTimeout)
		defer cancel()
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", file.Name)
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, UploadPath, pr)
	if err != nil {
		pr.CloseWithError(err)
		return models.JobHandle{}, &TransportError{Op: "upload", Message: err.Error(), Details: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log.Info().Str("file", file.Name).Int64("size", file.SizeBytes).Msg("Uploading CSV")

	var handle models.JobHandle
	if err := c.do(req, "upload", &handle); err != nil {
		pr.CloseWithError(err)
		if errors.Is(err, context.DeadlineExceeded) && c.uploadTimeout > 0 {
			var te *TransportError
			if errors.As(err, &te) {
				te.Message = fmt.Sprintf("timed out after %s", c.uploadTimeout)
			}
		}
		return models.JobHandle{}, err
	}
	if handle.JobID == "" {
		return models.JobHandle{}, &TransportError{Op: "upload", StatusCode: http.StatusOK, Message: "response carried no job id"}
	}
	return handle, nil
}
