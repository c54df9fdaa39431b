package archive

import (
	"context"
	"log/slog"

	"github.com/UoA-eResearch/driveoff/internal/crate"
)

// Job is one queued package build. When Format is non-empty the built
// package is additionally wrapped into an archive file.
type Job struct {
	DriveName  string
	VaultDir   string
	ArchiveDir string
	Format     crate.Format
}

// Worker consumes build jobs from a channel and runs the pipeline for each.
// A single worker serializes builds, so two jobs for the same drive can
// never race on the vault directory. Job failures are logged and the worker
// keeps draining the queue.
type Worker struct {
	service *Service
	inbox   <-chan Job
	log     *slog.Logger
}

func NewWorker(service *Service, inbox <-chan Job, log *slog.Logger) *Worker {
	return &Worker{service: service, inbox: inbox, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.inbox:
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	if err := w.service.BuildPackage(ctx, job.DriveName, job.VaultDir, job.ArchiveDir); err != nil {
		w.log.ErrorContext(ctx, "package build failed",
			"drive", job.DriveName, "error", err)
		return
	}
	if job.Format == "" {
		return
	}
	if _, err := w.service.ArchivePackage(ctx, job.DriveName, job.VaultDir, job.ArchiveDir, job.Format); err != nil {
		w.log.ErrorContext(ctx, "archive write failed",
			"drive", job.DriveName, "error", err)
	}
}
