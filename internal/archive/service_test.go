package archive

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UoA-eResearch/driveoff/internal/bagit"
	"github.com/UoA-eResearch/driveoff/internal/crate"
	"github.com/UoA-eResearch/driveoff/internal/manifest"
	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/internal/store"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
	"github.com/UoA-eResearch/driveoff/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

type ServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	service    *Service
	project    *models.Project
	vaultDir   string
	archiveDir string
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemoryStore()

	drive := testutil.TitokiDrive()
	s.project = testutil.TitokiProject(drive)
	s.Require().NoError(s.store.SaveProject(s.ctx, s.project))

	s.vaultDir = filepath.Join(s.T().TempDir(), testutil.TestDriveName)
	s.Require().NoError(os.MkdirAll(s.vaultDir, 0o755))
	testutil.SeedVault(s.T(), s.vaultDir)
	s.archiveDir = s.T().TempDir()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.store, log, nil, manifest.Options{})
}

func (s *ServiceSuite) build() {
	s.Require().NoError(
		s.service.BuildPackage(s.ctx, testutil.TestDriveName, s.vaultDir, s.archiveDir))
}

func (s *ServiceSuite) TestBuildPackage() {
	s.build()

	s.Run("vault becomes a valid bag", func() {
		s.True(bagit.IsBag(s.vaultDir))
		s.Require().NoError(bagit.Validate(s.vaultDir))
	})

	s.Run("payload holds drive files and crate metadata", func() {
		payload := filepath.Join(s.vaultDir, "data")
		for _, rel := range []string{
			"README.md",
			"samples/batch01.csv",
			"samples/batch02.csv",
			"instruments/nmr/run1.raw",
			crate.MetadataFilename,
		} {
			s.FileExists(filepath.Join(payload, rel))
		}
	})

	s.Run("entity graph covers projects, people and the delete action", func() {
		graph, err := crate.ReadMetadataGraph(filepath.Join(s.vaultDir, "data"))
		s.Require().NoError(err)
		// 1 project, 1 drive, 3 members, 3 people, 1 delete action,
		// plus the metadata descriptor and root dataset.
		s.Len(graph, 11)

		action := graph["#retention_period_for/research_drive_service/"+testutil.TestDriveName]
		s.Require().NotNil(action)
		s.Equal("PotentialActionStatus", action["actionStatus"])
		s.Equal("2030-02-01T00:00:00Z", action["endTime"], "end date plus six retention years")
	})

	s.Run("bag info names the projects", func() {
		bag, err := bagit.Load(s.vaultDir)
		s.Require().NoError(err)
		s.Equal("Tītoki metabolomics", bag.Info["Project-Titles"])
		s.Equal(testutil.TestDriveName, bag.Info["External-Identifier"])
	})

	s.Run("manifests directory holds the package manifests", func() {
		dir := filepath.Join(s.archiveDir, testutil.TestDriveName+manifestsSuffix)
		for _, name := range []string{
			"bagit.txt",
			"bag-info.txt",
			"manifest-sha256.txt",
			"manifest-sha512.txt",
			crate.MetadataFilename,
		} {
			s.FileExists(filepath.Join(dir, name))
		}
	})

	s.Run("file listing is stored against the drive", func() {
		m, err := s.store.GetManifest(s.ctx, s.project.Drives[0].ID)
		s.Require().NoError(err)
		s.Equal([]string{
			"README.md",
			"instruments/nmr/run1.raw",
			"samples/batch01.csv",
			"samples/batch02.csv",
		}, strings.Split(strings.TrimRight(m.Content, "\n"), "\n"))
	})
}

func (s *ServiceSuite) TestBuildPackageRerun() {
	s.build()
	s.build()

	s.NoDirExists(filepath.Join(s.vaultDir, "data", "data"), "no nested bag on re-run")
	s.Require().NoError(bagit.Validate(s.vaultDir))

	graph, err := crate.ReadMetadataGraph(filepath.Join(s.vaultDir, "data"))
	s.Require().NoError(err)
	s.Len(graph, 11, "re-run does not duplicate graph nodes")

	m, err := s.store.GetManifest(s.ctx, s.project.Drives[0].ID)
	s.Require().NoError(err)
	s.Contains(m.Content, crate.MetadataFilename,
		"second listing is taken after metadata was added to the payload")
}

func (s *ServiceSuite) TestBuildPackageUnknownDrive() {
	err := s.service.BuildPackage(s.ctx, "resmed000000042-missing", s.vaultDir, s.archiveDir)
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestBuildPackageWithoutSubmission() {
	st := store.NewInMemoryStore()
	drive := testutil.TitokiDrive()
	drive.Submission = nil
	project := testutil.TitokiProject(drive)
	s.Require().NoError(st.SaveProject(s.ctx, project))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, log, nil, manifest.Options{})

	err := svc.BuildPackage(s.ctx, testutil.TestDriveName, s.vaultDir, s.archiveDir)
	s.Require().Error(err)
	s.Equal(dErrors.CodePrecondition, dErrors.CodeOf(err))
	s.False(bagit.IsBag(s.vaultDir), "failed build leaves the vault untouched")
}

func (s *ServiceSuite) TestBuildPackageIncompleteSubmission() {
	st := store.NewInMemoryStore()
	drive := testutil.TitokiDrive()
	drive.Submission.IsCompleted = false
	project := testutil.TitokiProject(drive)
	s.Require().NoError(st.SaveProject(s.ctx, project))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(st, log, nil, manifest.Options{})

	err := svc.BuildPackage(s.ctx, testutil.TestDriveName, s.vaultDir, s.archiveDir)
	s.Require().Error(err)
	s.Equal(dErrors.CodePrecondition, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestArchivePackage() {
	s.build()

	out, err := s.service.ArchivePackage(s.ctx, testutil.TestDriveName, s.vaultDir, s.archiveDir, crate.FormatZip)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.archiveDir, testutil.TestDriveName+".zip"), out)
	s.FileExists(out)
}

func (s *ServiceSuite) TestArchivePackageBeforeBuild() {
	_, err := s.service.ArchivePackage(s.ctx, testutil.TestDriveName, s.vaultDir, s.archiveDir, crate.FormatZip)
	s.Require().Error(err)
	s.Equal(dErrors.CodePrecondition, dErrors.CodeOf(err))
}
