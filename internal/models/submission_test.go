package models

import (
	"testing"
	"time"

	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"

	"github.com/stretchr/testify/suite"
)

type SubmissionSuite struct {
	suite.Suite
}

func TestSubmissionSuite(t *testing.T) {
	suite.Run(t, new(SubmissionSuite))
}

func (s *SubmissionSuite) TestConstruction() {
	now := time.Now()

	s.Run("default retention period needs no justification", func() {
		sub, err := NewDriveOffboardSubmission(6, "", "Public", true, 1, now)
		s.Require().NoError(err)
		s.Equal(6, sub.RetentionPeriodYears)
		s.Equal(ClassificationPublic, sub.DataClassification)
		s.True(sub.IsCompleted)
		s.Equal(1, sub.DriveID)
	})

	s.Run("every default retention period is accepted", func() {
		for _, years := range DefaultRetentionPeriods {
			_, err := NewDriveOffboardSubmission(years, "", "Internal", true, 1, now)
			s.NoError(err)
		}
	})

	s.Run("non-default retention period without justification is rejected", func() {
		_, err := NewDriveOffboardSubmission(7, "", "Public", true, 1, now)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})

	s.Run("non-default retention period with justification is accepted", func() {
		sub, err := NewDriveOffboardSubmission(42, "departmental policy", "Restricted", true, 1, now)
		s.Require().NoError(err)
		s.Equal("departmental policy", sub.RetentionPeriodJustification)
	})

	s.Run("zero or negative retention period is rejected", func() {
		_, err := NewDriveOffboardSubmission(0, "why not", "Public", true, 1, now)
		s.Error(err)
		_, err = NewDriveOffboardSubmission(-4, "why not", "Public", true, 1, now)
		s.Error(err)
	})

	s.Run("unrecognized classification label is rejected", func() {
		_, err := NewDriveOffboardSubmission(6, "", "Top Secret", true, 1, now)
		s.Require().Error(err)
		s.Equal(dErrors.CodeValidation, dErrors.CodeOf(err))
	})
}

func (s *SubmissionSuite) TestParseDataClassification() {
	for _, label := range []string{"Public", "Internal", "Sensitive", "Restricted"} {
		parsed, err := ParseDataClassification(label)
		s.Require().NoError(err)
		s.Equal(label, string(parsed))
	}
	_, err := ParseDataClassification("public")
	s.Error(err, "labels are case sensitive")
}

func (s *SubmissionSuite) TestProjectChangesApply() {
	title := "My new title"
	desc := "My new description"

	s.Run("applies changed fields", func() {
		project := &Project{Title: "Old", Description: "Old description"}
		changes := ProjectChanges{Title: &title, Description: &desc}
		s.True(changes.Apply(project))
		s.Equal("My new title", project.Title)
		s.Equal("My new description", project.Description)
	})

	s.Run("nil fields leave the project untouched", func() {
		project := &Project{Title: "Old", Description: "Old description"}
		s.False(ProjectChanges{}.Apply(project))
		s.Equal("Old", project.Title)
	})

	s.Run("identical values report no change", func() {
		project := &Project{Title: title, Description: desc}
		changes := ProjectChanges{Title: &title, Description: &desc}
		s.False(changes.Apply(project))
	})
}
