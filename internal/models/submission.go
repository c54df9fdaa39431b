package models

import (
	"fmt"
	"time"

	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// DefaultRetentionPeriods are the retention choices offered on the
// offboarding form. Any other period requires a written justification.
var DefaultRetentionPeriods = []int{6, 10, 20, 26}

// DriveOffboardSubmission is a user's completed offboarding questionnaire for
// one drive. Construct through NewDriveOffboardSubmission so an invalid
// instance never exists.
type DriveOffboardSubmission struct {
	ID                           int
	RetentionPeriodYears         int
	RetentionPeriodJustification string // required for non-default retention periods
	DataClassification           DataClassification
	IsCompleted                  bool
	UpdatedTime                  time.Time
	DriveID                      int
}

// NewDriveOffboardSubmission validates and builds a submission. It rejects
// retention periods outside DefaultRetentionPeriods that lack a
// justification, and unrecognized classification labels.
func NewDriveOffboardSubmission(
	retentionYears int,
	justification string,
	classification string,
	isCompleted bool,
	driveID int,
	updated time.Time,
) (*DriveOffboardSubmission, error) {
	if retentionYears <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("retention period must be positive, got %d", retentionYears))
	}
	if !isDefaultRetentionPeriod(retentionYears) && justification == "" {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("retention period of %d years requires a justification", retentionYears))
	}
	parsed, err := ParseDataClassification(classification)
	if err != nil {
		return nil, err
	}
	return &DriveOffboardSubmission{
		RetentionPeriodYears:         retentionYears,
		RetentionPeriodJustification: justification,
		DataClassification:           parsed,
		IsCompleted:                  isCompleted,
		DriveID:                      driveID,
		UpdatedTime:                  updated,
	}, nil
}

func isDefaultRetentionPeriod(years int) bool {
	for _, d := range DefaultRetentionPeriods {
		if years == d {
			return true
		}
	}
	return false
}
