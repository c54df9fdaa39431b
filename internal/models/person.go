package models

// Person is someone associated with a project. Username is the stable
// identity key used when the person appears in a metadata graph.
type Person struct {
	ID       int
	Email    string // optional; empty means unknown
	FullName string
	Username string
}

// Member associates one person with one project and one role. Role may be nil
// when the upstream project database recorded no role for the assignment.
type Member struct {
	ProjectID int
	Person    Person
	Role      *Role
}
