package crate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UoA-eResearch/driveoff/internal/models"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// Natural-key prefixes for graph node identities.
const (
	projectPrefix = "project/"
	memberPrefix  = "member/"
	drivePrefix   = "research_drive_service/"
	deletePrefix  = "retention_period_for/"
)

// noRoleName labels members whose project database record carries no role.
const noRoleName = "No Role"

// Builder converts relational records into crate entities. Every add
// operation checks the graph before inserting, so records that overlap across
// projects (shared people, shared drives) resolve to a single node. One
// builder instance should be reused for all projects in a package so the
// deduplication holds across them.
type Builder struct {
	crate *Crate
}

// NewBuilder wraps a crate for entity construction.
func NewBuilder(c *Crate) *Builder {
	return &Builder{crate: c}
}

// Crate exposes the underlying graph.
func (b *Builder) Crate() *Crate {
	return b.crate
}

// AddPerson adds a person node keyed by username, or returns the existing one.
func (b *Builder) AddPerson(person models.Person) *Entity {
	id := CanonicalID(person.Username)
	if e := b.crate.Dereference(id); e != nil {
		return e
	}
	props := map[string]any{"name": person.FullName}
	if person.Email != "" {
		props["email"] = person.Email
	}
	return b.crate.Add(&Entity{ID: id, Type: "Person", Properties: props})
}

// AddMember adds an organization-role node for a project membership, linked
// to the member's person node. The key combines project, role (spaces
// stripped) and username so the same person can hold distinct roles.
func (b *Builder) AddMember(member models.Member) *Entity {
	id := CanonicalID(memberKey(member))
	if e := b.crate.Dereference(id); e != nil {
		return e
	}
	person := b.AddPerson(member.Person)
	name := noRoleName
	if member.Role != nil {
		name = member.Role.Name
	}
	return b.crate.Add(&Entity{
		ID:   id,
		Type: "OrganizationRole",
		Properties: map[string]any{
			"name":   name,
			"member": []Ref{person.Ref()},
		},
	})
}

func memberKey(member models.Member) string {
	project := strconv.Itoa(member.ProjectID)
	if member.Role != nil {
		role := strings.Join(strings.Fields(member.Role.Name), "")
		return memberPrefix + project + "/" + role + "/" + member.Person.Username
	}
	return memberPrefix + project + "/" + member.Person.Username
}

// AddResearchDriveService adds a drive node keyed by drive name, carrying the
// capacity and usage metrics, or returns the existing one.
func (b *Builder) AddResearchDriveService(drive *models.ResearchDriveService) *Entity {
	id := CanonicalID(drivePrefix + drive.Name)
	if e := b.crate.Dereference(id); e != nil {
		return e
	}
	props := map[string]any{
		"name":           drive.Name,
		"allocatedGb":    drive.AllocatedGB,
		"freeGb":         drive.FreeGB,
		"usedGb":         drive.UsedGB,
		"percentageUsed": drive.PercentageUsed,
		"date":           drive.Date,
		"firstDay":       drive.FirstDay,
	}
	if drive.LastDay != nil {
		props["lastDay"] = *drive.LastDay
	}
	return b.crate.Add(&Entity{ID: id, Type: "ResearchDriveService", Properties: props})
}

// AddDeleteAction derives the future deletion of the drive's data from the
// submission: eligible when the project's end date plus the retention period
// has passed. The submission must refer to one of the project's drives.
func (b *Builder) AddDeleteAction(submission *models.DriveOffboardSubmission, project *models.Project) (*Entity, error) {
	if submission == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "no submission provided for delete action")
	}
	var drive *models.ResearchDriveService
	for _, d := range project.Drives {
		if d.ID == submission.DriveID {
			drive = d
			break
		}
	}
	if drive == nil {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("submission %d does not refer to a research drive", submission.ID))
	}
	driveEntity := b.AddResearchDriveService(drive)

	// Calendar-year arithmetic, not a day count.
	endTime := project.EndDate.AddDate(submission.RetentionPeriodYears, 0, 0)

	id := CanonicalID(deletePrefix + strings.TrimPrefix(driveEntity.ID, "#"))
	if e := b.crate.Dereference(id); e != nil {
		return e, nil
	}
	return b.crate.Add(&Entity{
		ID:   id,
		Type: "DeleteAction",
		Properties: map[string]any{
			"actionStatus":     "PotentialActionStatus",
			"endTime":          endTime,
			"targetCollection": []Ref{driveEntity.Ref()},
		},
	}), nil
}

// AddProject is the orchestrating call: it builds the project node with the
// submission's retention decisions flattened onto it and attaches codes,
// members, drives and the delete action.
//
// Precondition: the submission is completed and belongs to one of this
// project's drives. Anything else means the archive was requested for an
// unapproved or mismatched submission, and no partial node is added.
func (b *Builder) AddProject(project *models.Project, submission *models.DriveOffboardSubmission) (*Entity, error) {
	if submission == nil || !submission.IsCompleted {
		return nil, dErrors.New(dErrors.CodePrecondition,
			"offboarding form has not been completed, cannot construct archive metadata")
	}
	belongs := false
	for _, drive := range project.Drives {
		if drive.Submission != nil && drive.Submission.IsCompleted && drive.Submission.ID == submission.ID {
			belongs = true
			break
		}
	}
	if !belongs {
		return nil, dErrors.New(dErrors.CodePrecondition,
			fmt.Sprintf("submission %d is not linked to any drive of project %d", submission.ID, project.ID))
	}

	id := CanonicalID(projectPrefix + strconv.Itoa(project.ID))
	if e := b.crate.Dereference(id); e != nil {
		return e, nil
	}

	codes := make([]string, 0, len(project.Codes))
	for _, code := range project.Codes {
		codes = append(codes, code.Code)
	}
	members := make([]Ref, 0, len(project.Members))
	for _, member := range project.Members {
		members = append(members, b.AddMember(member).Ref())
	}
	services := make([]Ref, 0, len(project.Drives))
	for _, drive := range project.Drives {
		services = append(services, b.AddResearchDriveService(drive).Ref())
	}
	deleteAction, err := b.AddDeleteAction(submission, project)
	if err != nil {
		return nil, err
	}

	props := map[string]any{
		"name":                 project.Title,
		"description":          project.Description,
		"division":             project.Division,
		"startDate":            project.StartDate,
		"endDate":              project.EndDate,
		"identifier":           codes,
		"member":               members,
		"services":             services,
		"actions":              []Ref{deleteAction.Ref()},
		"retentionPeriodYears": submission.RetentionPeriodYears,
		"dataClassification":   string(submission.DataClassification),
		"updatedTime":          submission.UpdatedTime,
	}
	if submission.RetentionPeriodJustification != "" {
		props["retentionPeriodJustification"] = submission.RetentionPeriodJustification
	}
	return b.crate.Add(&Entity{ID: id, Type: "ResearchProject", Properties: props}), nil
}
