package crate

import (
	"testing"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/models"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
	"github.com/UoA-eResearch/driveoff/pkg/testutil"

	"github.com/stretchr/testify/suite"
)

type BuilderSuite struct {
	suite.Suite
	builder *Builder
	drive   *models.ResearchDriveService
	project *models.Project
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) SetupTest() {
	s.builder = NewBuilder(New())
	s.drive = testutil.TitokiDrive()
	s.project = testutil.TitokiProject(s.drive)
}

func (s *BuilderSuite) TestAddPerson() {
	person := s.project.Members[0].Person

	entity := s.builder.AddPerson(person)
	s.Equal("#jbla123", entity.ID)
	s.Equal("Person", entity.Type)
	s.Equal("Jane Blake", entity.Properties["name"])
	s.Equal("j.blake@auckland.ac.nz", entity.Properties["email"])

	s.Run("repeated adds return the identical node", func() {
		s.Same(entity, s.builder.AddPerson(person))
		s.Same(entity, s.builder.Crate().Dereference("#jbla123"))
		s.Equal(1, s.builder.Crate().Len())
	})

	s.Run("missing email is omitted", func() {
		entity := s.builder.AddPerson(s.project.Members[2].Person)
		s.NotContains(entity.Properties, "email")
	})
}

func (s *BuilderSuite) TestAddMember() {
	member := s.project.Members[0]

	entity := s.builder.AddMember(member)
	s.Equal("#member/1/ProjectOwner/jbla123", entity.ID)
	s.Equal("OrganizationRole", entity.Type)
	s.Equal("Project Owner", entity.Properties["name"])
	s.Equal([]Ref{{ID: "#jbla123"}}, entity.Properties["member"])

	s.Run("dedup by project, role and username", func() {
		s.Same(entity, s.builder.AddMember(member))
	})

	s.Run("nil role uses the sentinel name and omits the role segment", func() {
		entity := s.builder.AddMember(s.project.Members[2])
		s.Equal("#member/1/mlee789", entity.ID)
		s.Equal("No Role", entity.Properties["name"])
	})
}

func (s *BuilderSuite) TestAddResearchDriveService() {
	entity := s.builder.AddResearchDriveService(s.drive)
	s.Equal("#research_drive_service/restst000000001-testing", entity.ID)
	s.Equal("ResearchDriveService", entity.Type)
	s.Equal(s.drive.AllocatedGB, entity.Properties["allocatedGb"])
	s.Equal(s.drive.PercentageUsed, entity.Properties["percentageUsed"])
	s.Equal(s.drive.FirstDay, entity.Properties["firstDay"])
	s.Equal(*s.drive.LastDay, entity.Properties["lastDay"])

	s.Same(entity, s.builder.AddResearchDriveService(s.drive))

	s.Run("nil last day is omitted", func() {
		other := testutil.TitokiDrive()
		other.Name = "restst000000002-other"
		other.LastDay = nil
		entity := s.builder.AddResearchDriveService(other)
		s.NotContains(entity.Properties, "lastDay")
	})
}

func (s *BuilderSuite) TestAddDeleteAction() {
	entity, err := s.builder.AddDeleteAction(s.drive.Submission, s.project)
	s.Require().NoError(err)

	s.Equal("#retention_period_for/research_drive_service/restst000000001-testing", entity.ID)
	s.Equal("DeleteAction", entity.Type)
	s.Equal("PotentialActionStatus", entity.Properties["actionStatus"])

	// Calendar arithmetic: six years past the project end date.
	want := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
	s.Equal(want, entity.Properties["endTime"])

	driveEntity := s.builder.Crate().Dereference("#research_drive_service/restst000000001-testing")
	s.Require().NotNil(driveEntity)
	s.Equal([]Ref{driveEntity.Ref()}, entity.Properties["targetCollection"])

	s.Run("submission without a matching drive is rejected", func() {
		orphan := &models.DriveOffboardSubmission{ID: 99, DriveID: 404, RetentionPeriodYears: 6, IsCompleted: true}
		_, err := s.builder.AddDeleteAction(orphan, s.project)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})
}

func (s *BuilderSuite) TestAddProject() {
	entity, err := s.builder.AddProject(s.project, s.drive.Submission)
	s.Require().NoError(err)

	s.Equal("#project/1", entity.ID)
	s.Equal("ResearchProject", entity.Type)
	s.Equal("Tītoki metabolomics", entity.Properties["name"])
	s.Equal("Faculty of Science", entity.Properties["division"])
	s.Equal([]string{"uoa03718", "rvmf00382"}, entity.Properties["identifier"])
	s.Equal(6, entity.Properties["retentionPeriodYears"])
	s.Equal("Sensitive", entity.Properties["dataClassification"])
	s.NotContains(entity.Properties, "retentionPeriodJustification")

	s.Len(entity.Properties["member"], 3)
	s.Len(entity.Properties["services"], 1)
	s.Len(entity.Properties["actions"], 1)

	// 1 project + 1 drive + 3 members + 3 people + 1 delete action.
	s.Equal(9, s.builder.Crate().Len())

	s.Run("re-adding returns the existing node", func() {
		again, err := s.builder.AddProject(s.project, s.drive.Submission)
		s.Require().NoError(err)
		s.Same(entity, again)
		s.Equal(9, s.builder.Crate().Len())
	})
}

func (s *BuilderSuite) TestAddProjectPreconditions() {
	s.Run("incomplete submission", func() {
		s.drive.Submission.IsCompleted = false
		_, err := s.builder.AddProject(s.project, s.drive.Submission)
		s.Require().Error(err)
		s.Equal(dErrors.CodePrecondition, dErrors.CodeOf(err))
		s.Equal(0, s.builder.Crate().Len(), "no partial graph on failure")
	})

	s.Run("submission not linked to the project's drives", func() {
		foreign := &models.DriveOffboardSubmission{ID: 77, DriveID: 77, RetentionPeriodYears: 6, IsCompleted: true}
		_, err := s.builder.AddProject(s.project, foreign)
		s.Require().Error(err)
		s.Equal(dErrors.CodePrecondition, dErrors.CodeOf(err))
	})

	s.Run("nil submission", func() {
		_, err := s.builder.AddProject(s.project, nil)
		s.Require().Error(err)
	})
}

func (s *BuilderSuite) TestCrossProjectDeduplication() {
	// A second project sharing a member and the drive must reuse their nodes.
	second := testutil.TitokiProject(s.drive)
	second.ID = 2
	second.Title = "Tītoki genome assembly"
	for i := range second.Members {
		second.Members[i].ProjectID = 2
	}

	_, err := s.builder.AddProject(s.project, s.drive.Submission)
	s.Require().NoError(err)
	countAfterFirst := s.builder.Crate().Len()

	_, err = s.builder.AddProject(second, s.drive.Submission)
	s.Require().NoError(err)

	// Second project adds: its project node and three member nodes (member
	// keys embed the project ID), but no new people or drives.
	s.Equal(countAfterFirst+4, s.builder.Crate().Len())
}
