package models

import "time"

// Code is an opaque string identifier attached to a project, e.g. a grant or
// department reference.
type Code struct {
	ID   int
	Code string
}

// Project is a research project as recorded in the project database. Drives
// are eager-loaded by the store so the pipeline sees each linked drive with
// its submission attached.
type Project struct {
	ID          int
	Title       string
	Description string
	Division    string
	StartDate   time.Time
	EndDate     time.Time
	Codes       []Code
	Members     []Member
	Drives      []*ResearchDriveService
}

// ProjectChanges describes updates to project details collected on the
// offboarding form.
type ProjectChanges struct {
	Title       *string
	Description *string
}

// Apply updates a project from the changed values in c and reports whether
// anything was modified.
func (c ProjectChanges) Apply(to *Project) bool {
	applied := false
	if c.Title != nil && *c.Title != to.Title {
		to.Title = *c.Title
		applied = true
	}
	if c.Description != nil && *c.Description != to.Description {
		to.Description = *c.Description
		applied = true
	}
	return applied
}
