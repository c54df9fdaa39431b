// Package store exposes the relational records behind the offboarding
// workflow. The archive pipeline reads drives, projects and submissions
// through the Store interface; the HTTP layer writes them. Implementations:
// an in-memory store for tests and small deployments, and PostgreSQL.
package store

import (
	"context"

	"github.com/UoA-eResearch/driveoff/internal/models"
)

// Store is the data-store query surface. Read operations eager-load linked
// records: a drive comes back with its submission, a project with its
// members, codes and drives (each drive again carrying its submission), so
// callers never chase foreign keys themselves.
type Store interface {
	// GetDriveByName fetches a drive record by its unique name. Returns a
	// sentinel.ErrNotFound-wrapped error when absent.
	GetDriveByName(ctx context.Context, name string) (*models.ResearchDriveService, error)
	// ListProjectsForDrive fetches every project linked to the drive.
	ListProjectsForDrive(ctx context.Context, driveID int) ([]*models.Project, error)
	// GetProject fetches one project by ID.
	GetProject(ctx context.Context, id int) (*models.Project, error)
	// SaveProject upserts a project together with its members, codes and
	// drive links.
	SaveProject(ctx context.Context, project *models.Project) error
	// SaveSubmission records an offboarding submission against its drive.
	// Returns a sentinel.ErrConflict-wrapped error when the drive already
	// has one.
	SaveSubmission(ctx context.Context, submission *models.DriveOffboardSubmission) error
	// SaveManifest stores a generated file listing for a drive.
	SaveManifest(ctx context.Context, m *models.Manifest) error
	// ListRoles returns the seeded role reference data.
	ListRoles(ctx context.Context) ([]models.Role, error)
}
