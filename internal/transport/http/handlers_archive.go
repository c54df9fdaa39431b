package httptransport

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/UoA-eResearch/driveoff/internal/archive"
	"github.com/UoA-eResearch/driveoff/internal/crate"
	"github.com/UoA-eResearch/driveoff/internal/transport/http/shared"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// handlePostArchive queues a package build for a drive. The build runs in
// the background worker; the response only confirms the job was accepted.
func (h *Handler) handlePostArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driveName, ok := requireDriveName(w, r)
	if !ok {
		return
	}

	format := crate.FormatZip
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := crate.ParseFormat(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
			return
		}
		format = parsed
	}

	// Fail fast on drives that cannot build, rather than queueing a job
	// that is known to fail.
	drive, err := h.store.GetDriveByName(ctx, driveName)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}
	if drive.Submission == nil || !drive.Submission.IsCompleted {
		shared.WriteError(w, dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("drive %q has no completed offboarding submission", driveName)))
		return
	}

	job := archive.Job{
		DriveName:  driveName,
		VaultDir:   filepath.Join(h.vaultRoot, driveName),
		ArchiveDir: h.archiveRoot,
		Format:     format,
	}
	select {
	case h.jobs <- job:
	default:
		shared.WriteJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "archive queue is full"})
		return
	}

	h.logger.InfoContext(ctx, "archive build queued",
		"drive", driveName,
		"format", string(format),
	)
	shared.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":   "queued",
		"drive_id": driveName,
		"format":   string(format),
	})
}
