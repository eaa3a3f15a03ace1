package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ngo-impact/impact-client/internal/models"
	"github.com/ngo-impact/impact-client/internal/upload"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var quietFlag bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file.csv>",
	Short: "Upload a bulk report CSV and track the job to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Do not draw the progress bar")
}

func runUpload(cmd *cobra.Command, args []string) error {
	svc, err := newClient()
	if err != nil {
		return err
	}

	candidate, err := models.CandidateFromPath(args[0])
	if err != nil {
		return err
	}

	ctrl := upload.NewController(
		upload.NewValidator(cfg.Upload.MaxFileSize),
		svc,
		upload.NewPoller(svc, cfg.PollInterval(), cfg.Upload.StatusRetries),
	)
	defer ctrl.Close()

	if err := ctrl.SelectFile(candidate); err != nil {
		return fmt.Errorf("%s: %w", candidate.Name, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	final, err := track(ctx, ctrl, &progressWriter{w: cmd.ErrOrStderr()})
	if errors.Is(err, context.Canceled) {
		ctrl.Reset()
		return errors.New("upload cancelled")
	}
	if err != nil {
		return err
	}

	if final.Phase == models.PhaseFailed {
		return errors.New(final.ErrorMessage)
	}

	log.Info().Str("job", final.JobID).Int("total", final.TotalCount).Msg("Upload processed")
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s completed: %d/%d rows\n", final.JobID, final.ProcessedCount, final.TotalCount)
	return nil
}

// track starts the upload and renders snapshots until the session settles.
func track(ctx context.Context, ctrl *upload.Controller, pw *progressWriter) (models.UploadSession, error) {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if err := ctrl.Start(); err != nil {
		return ctrl.Snapshot(), err
	}
	defer pw.finish()

	for {
		select {
		case <-ctx.Done():
			return ctrl.Snapshot(), ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return ctrl.Snapshot(), errors.New("controller closed")
			}
			if !quietFlag {
				pw.update(s)
			}
			if s.Phase.IsTerminal() {
				return s, nil
			}
		}
	}
}
