package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/internal/transport/http/shared"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// handlePostSubmission records a completed offboarding form for a drive. A
// drive takes exactly one submission; repeats are rejected so the recorded
// retention decision cannot be silently replaced.
func (h *Handler) handlePostSubmission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driveName, ok := requireDriveName(w, r)
	if !ok {
		return
	}

	var payload SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body"))
		return
	}

	drive, err := h.store.GetDriveByName(ctx, driveName)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}
	if drive.Submission != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("drive %q already has an offboarding submission", driveName)))
		return
	}

	submission, err := models.NewDriveOffboardSubmission(
		payload.RetentionPeriodYears,
		payload.RetentionPeriodJustification,
		payload.DataClassification,
		payload.IsCompleted,
		drive.ID,
		time.Now().UTC(),
	)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.store.SaveSubmission(ctx, submission); err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}

	// The form doubles as a chance to correct stale project records.
	changes := payload.ProjectChanges.toModel()
	projects, err := h.store.ListProjectsForDrive(ctx, drive.ID)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}
	for _, project := range projects {
		if !changes.Apply(project) {
			continue
		}
		if err := h.store.SaveProject(ctx, project); err != nil {
			shared.WriteError(w, translateStoreErr(err))
			return
		}
	}

	h.metrics.IncrementSubmissions()
	h.logger.InfoContext(ctx, "offboarding submission recorded",
		"drive", driveName,
		"submission_id", submission.ID,
		"retention_years", submission.RetentionPeriodYears,
		"completed", submission.IsCompleted,
	)
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"submission_id": submission.ID,
		"drive_id":      drive.ID,
	})
}
