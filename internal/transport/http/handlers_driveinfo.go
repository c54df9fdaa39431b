package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/UoA-eResearch/driveoff/internal/transport/http/shared"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"
)

// translateStoreErr lifts storage sentinel errors into coded domain errors so
// the response writer picks the right status.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(dErrors.CodeNotFound, err.Error(), err)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(dErrors.CodeConflict, err.Error(), err)
	}
	return err
}

// handlePostDriveInfo registers a project and its drives ahead of
// offboarding. Existing records with the same IDs or names are updated.
func (h *Handler) handlePostDriveInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload ProjectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body"))
		return
	}

	roles, err := h.store.ListRoles(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	project, err := payload.toModel(roles)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.store.SaveProject(ctx, project); err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}

	driveIDs := make([]int, 0, len(project.Drives))
	for _, drive := range project.Drives {
		driveIDs = append(driveIDs, drive.ID)
	}
	h.logger.InfoContext(ctx, "project registered",
		"project_id", project.ID,
		"drives", len(project.Drives),
	)
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"project_id": project.ID,
		"drive_ids":  driveIDs,
	})
}

type driveInfoResponse struct {
	Drive      DrivePayload        `json:"drive"`
	Submission *submissionResponse `json:"submission,omitempty"`
	Projects   []ProjectPayload    `json:"projects"`
}

type submissionResponse struct {
	ID                           int    `json:"id"`
	RetentionPeriodYears         int    `json:"retention_period_years"`
	RetentionPeriodJustification string `json:"retention_period_justification,omitempty"`
	DataClassification           string `json:"data_classification"`
	IsCompleted                  bool   `json:"is_completed"`
}

// handleGetDriveInfo returns the stored drive record with its submission and
// linked projects.
func (h *Handler) handleGetDriveInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driveName, ok := requireDriveName(w, r)
	if !ok {
		return
	}

	drive, err := h.store.GetDriveByName(ctx, driveName)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}
	projects, err := h.store.ListProjectsForDrive(ctx, drive.ID)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}

	resp := driveInfoResponse{Drive: drivePayloadFrom(drive)}
	if drive.Submission != nil {
		resp.Submission = &submissionResponse{
			ID:                           drive.Submission.ID,
			RetentionPeriodYears:         drive.Submission.RetentionPeriodYears,
			RetentionPeriodJustification: drive.Submission.RetentionPeriodJustification,
			DataClassification:           string(drive.Submission.DataClassification),
			IsCompleted:                  drive.Submission.IsCompleted,
		}
	}
	for _, project := range projects {
		resp.Projects = append(resp.Projects, projectPayloadFrom(project))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// handlePutDriveInfo applies corrected project details to every project
// linked to the drive.
func (h *Handler) handlePutDriveInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	driveName, ok := requireDriveName(w, r)
	if !ok {
		return
	}

	var payload ProjectChangesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed request body"))
		return
	}

	drive, err := h.store.GetDriveByName(ctx, driveName)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}
	projects, err := h.store.ListProjectsForDrive(ctx, drive.ID)
	if err != nil {
		shared.WriteError(w, translateStoreErr(err))
		return
	}

	changes := payload.toModel()
	updated := 0
	for _, project := range projects {
		if !changes.Apply(project) {
			continue
		}
		if err := h.store.SaveProject(ctx, project); err != nil {
			shared.WriteError(w, translateStoreErr(err))
			return
		}
		updated++
	}
	h.logger.InfoContext(ctx, "project details updated",
		"drive", driveName,
		"projects_updated", updated,
	)
	shared.WriteJSON(w, http.StatusOK, map[string]int{"projects_updated": updated})
}

// requireDriveName validates the drive_id query parameter, writing the
// validation error itself so handlers can return early.
func requireDriveName(w http.ResponseWriter, r *http.Request) (string, bool) {
	driveName := r.URL.Query().Get("drive_id")
	if err := validateDriveName(driveName); err != nil {
		shared.WriteError(w, err)
		return "", false
	}
	return driveName, true
}
