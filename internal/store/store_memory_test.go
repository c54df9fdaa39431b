package store

import (
	"context"
	"testing"

	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"
	"github.com/UoA-eResearch/driveoff/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) seedTitoki() *models.Project {
	drive := testutil.TitokiDrive()
	project := testutil.TitokiProject(drive)
	s.Require().NoError(s.store.SaveProject(s.ctx, project))
	return project
}

func (s *MemoryStoreSuite) TestRolesSeeded() {
	roles, err := s.store.ListRoles(s.ctx)
	s.Require().NoError(err)
	s.Len(roles, 13)
	s.Equal("Project Owner", roles[0].Name)

	// Re-seeding the immutable fixtures is a no-op, not an error.
	s.store.seedRoles(models.SeedRoles())
	again, err := s.store.ListRoles(s.ctx)
	s.Require().NoError(err)
	s.Equal(roles, again)
}

func (s *MemoryStoreSuite) TestGetDriveByName() {
	s.seedTitoki()

	drive, err := s.store.GetDriveByName(s.ctx, testutil.TestDriveName)
	s.Require().NoError(err)
	s.Equal(testutil.TestDriveName, drive.Name)
	s.Require().NotNil(drive.Submission, "submission is eager-loaded")
	s.Equal(6, drive.Submission.RetentionPeriodYears)
	s.Equal([]int{1}, drive.ProjectIDs)

	_, err = s.store.GetDriveByName(s.ctx, "resmed000000042-missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListProjectsForDrive() {
	project := s.seedTitoki()

	projects, err := s.store.ListProjectsForDrive(s.ctx, project.Drives[0].ID)
	s.Require().NoError(err)
	s.Require().Len(projects, 1)

	got := projects[0]
	s.Equal("Tītoki metabolomics", got.Title)
	s.Len(got.Members, 3)
	s.Len(got.Codes, 2)
	s.Require().Len(got.Drives, 1, "drives are eager-loaded")
	s.Require().NotNil(got.Drives[0].Submission, "drive submissions are eager-loaded")

	_, err = s.store.ListProjectsForDrive(s.ctx, 404)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestSaveProjectUpsert() {
	project := s.seedTitoki()

	project.Title = "Tītoki metabolomics (amended)"
	s.Require().NoError(s.store.SaveProject(s.ctx, project))

	got, err := s.store.GetProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Equal("Tītoki metabolomics (amended)", got.Title)

	// The drive link survived the upsert without duplicating.
	drive, err := s.store.GetDriveByName(s.ctx, testutil.TestDriveName)
	s.Require().NoError(err)
	s.Equal([]int{project.ID}, drive.ProjectIDs)
}

func (s *MemoryStoreSuite) TestSaveSubmission() {
	drive := testutil.TitokiDrive()
	drive.Submission = nil
	project := testutil.TitokiProject(drive)
	s.Require().NoError(s.store.SaveProject(s.ctx, project))

	sub, err := models.NewDriveOffboardSubmission(10, "", "Internal", true, drive.ID, project.EndDate)
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveSubmission(s.ctx, sub))
	s.NotZero(sub.ID)

	s.Run("second submission for the same drive conflicts", func() {
		dup, err := models.NewDriveOffboardSubmission(6, "", "Public", true, drive.ID, project.EndDate)
		s.Require().NoError(err)
		s.Require().ErrorIs(s.store.SaveSubmission(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("submission for an unknown drive fails", func() {
		orphan, err := models.NewDriveOffboardSubmission(6, "", "Public", true, 404, project.EndDate)
		s.Require().NoError(err)
		s.Require().ErrorIs(s.store.SaveSubmission(s.ctx, orphan), sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestSaveManifest() {
	project := s.seedTitoki()
	driveID := project.Drives[0].ID

	m := &models.Manifest{DriveID: driveID, Content: "a.txt\nb.txt"}
	s.Require().NoError(s.store.SaveManifest(s.ctx, m))

	got, err := s.store.GetManifest(s.ctx, driveID)
	s.Require().NoError(err)
	s.Equal("a.txt\nb.txt", got.Content)

	s.Require().ErrorIs(
		s.store.SaveManifest(s.ctx, &models.Manifest{DriveID: 404}),
		sentinel.ErrNotFound,
	)
}
