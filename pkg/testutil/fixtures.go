// Package testutil provides shared fixtures for pipeline and handler tests,
// modelled on the drive used throughout the offboarding test data.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/models"

	"github.com/stretchr/testify/require"
)

// TestDriveName matches the naming scheme of real Research Drives.
const TestDriveName = "restst000000001-testing"

// TitokiDrive returns the canonical test drive with a completed six-year
// "Sensitive" submission attached.
func TitokiDrive() *models.ResearchDriveService {
	lastDay := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &models.ResearchDriveService{
		ID:             1,
		Name:           TestDriveName,
		AllocatedGB:    2048,
		FreeGB:         1024.5,
		UsedGB:         1023.5,
		PercentageUsed: 49.97,
		Date:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		FirstDay:       time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC),
		LastDay:        &lastDay,
		Submission: &models.DriveOffboardSubmission{
			ID:                   1,
			RetentionPeriodYears: 6,
			DataClassification:   models.ClassificationSensitive,
			IsCompleted:          true,
			UpdatedTime:          time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC),
			DriveID:              1,
		},
	}
}

// TitokiProject returns the canonical test project: three members, two codes
// and one linked drive. The drive argument lets callers share one drive
// instance between the project and the store.
func TitokiProject(drive *models.ResearchDriveService) *models.Project {
	roles := models.SeedRoles()
	owner := roleByName(roles, "Project Owner")
	teamMember := roleByName(roles, "Project Team Member")

	project := &models.Project{
		ID:          1,
		Title:       "Tītoki metabolomics",
		Description: "Metabolomic analysis of the tītoki tree under drought stress.",
		Division:    "Faculty of Science",
		StartDate:   time.Date(2018, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Codes: []models.Code{
			{ID: 1, Code: "uoa03718"},
			{ID: 2, Code: "rvmf00382"},
		},
		Drives: []*models.ResearchDriveService{drive},
	}
	project.Members = []models.Member{
		{ProjectID: project.ID, Role: &owner, Person: models.Person{
			ID: 1, Username: "jbla123", FullName: "Jane Blake", Email: "j.blake@auckland.ac.nz",
		}},
		{ProjectID: project.ID, Role: &teamMember, Person: models.Person{
			ID: 2, Username: "rtan456", FullName: "Rangi Tane", Email: "r.tane@auckland.ac.nz",
		}},
		{ProjectID: project.ID, Role: nil, Person: models.Person{
			ID: 3, Username: "mlee789", FullName: "Min Lee",
		}},
	}
	drive.ProjectIDs = append(drive.ProjectIDs, project.ID)
	return project
}

func roleByName(roles []models.Role, name string) models.Role {
	for _, r := range roles {
		if r.Name == name {
			return r
		}
	}
	panic("unknown role fixture: " + name)
}

// SeedVault writes a small payload tree into dir, standing in for the staged
// copy of a drive's files.
func SeedVault(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"README.md":                "Tītoki metabolomics research data.\n",
		"samples/batch01.csv":      "sample,mass\nA1,0.42\n",
		"samples/batch02.csv":      "sample,mass\nB1,0.57\n",
		"instruments/nmr/run1.raw": "rawdata",
	}
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}
