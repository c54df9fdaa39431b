package models

import "time"

// ResearchDriveService is a departmental file-share being decommissioned.
// Name doubles as the graph identity key and the archive's top-level
// directory name.
type ResearchDriveService struct {
	ID             int
	Name           string
	AllocatedGB    float64
	FreeGB         float64
	UsedGB         float64
	PercentageUsed float64
	Date           time.Time // usage snapshot date
	FirstDay       time.Time
	LastDay        *time.Time
	Submission     *DriveOffboardSubmission
	ProjectIDs     []int
}

// Manifest is a stored file listing for a drive, produced by the manifest
// generator and kept alongside the drive record.
type Manifest struct {
	ID      int
	DriveID int
	Content string
}
