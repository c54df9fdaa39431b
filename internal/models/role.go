package models

// Role is a project role for a person. Immutable reference data seeded from
// the CeR database fixtures.
type Role struct {
	ID   int
	Name string
}

// SeedRoles returns fixtures for known roles in the CeR database.
func SeedRoles() []Role {
	return []Role{
		{ID: 9, Name: "CeR Contact"},
		{ID: 4, Name: "Contact Person"},
		{ID: 13, Name: "Data Contact"},
		{ID: 12, Name: "Data Owner"},
		{ID: 14, Name: "Former Team Member"},
		{ID: 6, Name: "Grant PI"},
		{ID: 7, Name: "Primary Adviser"},
		{ID: 10, Name: "Primary Reviewer"},
		{ID: 1, Name: "Project Owner"},
		{ID: 3, Name: "Project Team Member"},
		{ID: 11, Name: "Reviewer"},
		{ID: 2, Name: "Supervisor"},
		{ID: 8, Name: "Support"},
	}
}
