//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/internal/store"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"
	"github.com/UoA-eResearch/driveoff/pkg/testutil"
	"github.com/UoA-eResearch/driveoff/pkg/testutil/containers"

	"github.com/stretchr/testify/suite"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())

	st, err := store.NewPostgresStore(s.ctx, s.postgres.DSN)
	s.Require().NoError(err)
	s.store = st
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(s.ctx,
		"manifests", "submissions", "project_drives", "members", "codes",
		"people", "research_drives", "projects")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedTitoki() *models.Project {
	drive := testutil.TitokiDrive()
	drive.ID = 0
	project := testutil.TitokiProject(drive)
	project.ID = 0
	s.Require().NoError(s.store.SaveProject(s.ctx, project))
	return project
}

func (s *PostgresStoreSuite) TestMigrateIdempotent() {
	s.Require().NoError(s.store.Migrate(s.ctx))

	roles, err := s.store.ListRoles(s.ctx)
	s.Require().NoError(err)
	s.Len(roles, 13)
	s.Equal("Project Owner", roles[0].Name)
}

func (s *PostgresStoreSuite) TestSaveAndGetProject() {
	project := s.seedTitoki()
	s.NotZero(project.ID)

	got, err := s.store.GetProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Equal("Tītoki metabolomics", got.Title)
	s.Len(got.Codes, 2)
	s.Len(got.Members, 3)
	s.Require().Len(got.Drives, 1)
	s.Require().NotNil(got.Drives[0].Submission)
	s.Equal(6, got.Drives[0].Submission.RetentionPeriodYears)

	var withoutRole *models.Member
	for i := range got.Members {
		if got.Members[i].Role == nil {
			withoutRole = &got.Members[i]
		}
	}
	s.Require().NotNil(withoutRole, "role-less membership survives the round trip")
	s.Equal("mlee789", withoutRole.Person.Username)

	_, err = s.store.GetProject(s.ctx, 404)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetDriveByName() {
	project := s.seedTitoki()

	drive, err := s.store.GetDriveByName(s.ctx, testutil.TestDriveName)
	s.Require().NoError(err)
	s.Require().NotNil(drive.Submission)
	s.True(drive.Submission.IsCompleted)
	s.Equal([]int{project.ID}, drive.ProjectIDs)

	_, err = s.store.GetDriveByName(s.ctx, "resmed000000042-missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListProjectsForDrive() {
	project := s.seedTitoki()

	projects, err := s.store.ListProjectsForDrive(s.ctx, project.Drives[0].ID)
	s.Require().NoError(err)
	s.Require().Len(projects, 1)
	s.Equal(project.Title, projects[0].Title)

	_, err = s.store.ListProjectsForDrive(s.ctx, 404)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSaveProjectUpsert() {
	project := s.seedTitoki()

	project.Title = "Tītoki metabolomics (amended)"
	s.Require().NoError(s.store.SaveProject(s.ctx, project))

	got, err := s.store.GetProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Equal("Tītoki metabolomics (amended)", got.Title)
	s.Len(got.Codes, 2, "codes are not duplicated on upsert")
	s.Len(got.Members, 3, "members are not duplicated on upsert")
	s.Require().Len(got.Drives, 1, "drive link is not duplicated on upsert")
}

func (s *PostgresStoreSuite) TestSaveSubmission() {
	drive := testutil.TitokiDrive()
	drive.ID = 0
	drive.Submission = nil
	project := testutil.TitokiProject(drive)
	project.ID = 0
	s.Require().NoError(s.store.SaveProject(s.ctx, project))

	sub, err := models.NewDriveOffboardSubmission(10, "", "Internal", true, drive.ID, project.EndDate)
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveSubmission(s.ctx, sub))
	s.NotZero(sub.ID)

	dup, err := models.NewDriveOffboardSubmission(6, "", "Public", true, drive.ID, project.EndDate)
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.SaveSubmission(s.ctx, dup), sentinel.ErrConflict)

	orphan, err := models.NewDriveOffboardSubmission(6, "", "Public", true, 404, project.EndDate)
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.SaveSubmission(s.ctx, orphan), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSaveManifest() {
	project := s.seedTitoki()
	driveID := project.Drives[0].ID

	m := &models.Manifest{DriveID: driveID, Content: "a.txt\nb.txt"}
	s.Require().NoError(s.store.SaveManifest(s.ctx, m))

	// Regeneration replaces the stored listing in place.
	m2 := &models.Manifest{DriveID: driveID, Content: "a.txt\nb.txt\nc.txt"}
	s.Require().NoError(s.store.SaveManifest(s.ctx, m2))
	s.Equal(m.ID, m2.ID)

	got, err := s.store.GetManifest(s.ctx, driveID)
	s.Require().NoError(err)
	s.Equal("a.txt\nb.txt\nc.txt", got.Content)

	s.Require().ErrorIs(
		s.store.SaveManifest(s.ctx, &models.Manifest{DriveID: 404}),
		sentinel.ErrNotFound,
	)
}
