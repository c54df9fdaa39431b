package httptransport

import (
	"fmt"
	"regexp"
	"time"

	"github.com/UoA-eResearch/driveoff/internal/models"
	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// driveNamePattern matches Research Drive names, e.g. restst000000001-testing.
var driveNamePattern = regexp.MustCompile(`^res[a-z]{3}[0-9]{9}-[a-zA-Z0-9-_]+$`)

func validateDriveName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "drive_id query parameter is required")
	}
	if !driveNamePattern.MatchString(name) {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("%q is not a research drive name", name))
	}
	return nil
}

// MemberPayload is one project membership in a registration request. Role is
// matched by name against the seeded roles; empty means no recorded role.
type MemberPayload struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// DrivePayload carries a drive's usage snapshot.
type DrivePayload struct {
	Name           string     `json:"name"`
	AllocatedGB    float64    `json:"allocated_gb"`
	FreeGB         float64    `json:"free_gb"`
	UsedGB         float64    `json:"used_gb"`
	PercentageUsed float64    `json:"percentage_used"`
	Date           time.Time  `json:"date"`
	FirstDay       time.Time  `json:"first_day"`
	LastDay        *time.Time `json:"last_day,omitempty"`
}

// ProjectPayload registers one project together with its drives.
type ProjectPayload struct {
	ID          int             `json:"id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Division    string          `json:"division,omitempty"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Codes       []string        `json:"codes,omitempty"`
	Members     []MemberPayload `json:"members,omitempty"`
	Drives      []DrivePayload  `json:"drives"`
}

// ProjectChangesPayload carries corrected project details from the
// offboarding form. Absent fields keep their stored values.
type ProjectChangesPayload struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p *ProjectChangesPayload) toModel() models.ProjectChanges {
	if p == nil {
		return models.ProjectChanges{}
	}
	return models.ProjectChanges{Title: p.Title, Description: p.Description}
}

// SubmissionRequest is the offboarding form for one drive.
type SubmissionRequest struct {
	RetentionPeriodYears         int                    `json:"retention_period_years"`
	RetentionPeriodJustification string                 `json:"retention_period_justification,omitempty"`
	DataClassification           string                 `json:"data_classification"`
	IsCompleted                  bool                   `json:"is_completed"`
	ProjectChanges               *ProjectChangesPayload `json:"project_changes,omitempty"`
}

func (p ProjectPayload) toModel(roles []models.Role) (*models.Project, error) {
	if p.Title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "project title is required")
	}
	if len(p.Drives) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "project must include at least one drive")
	}

	project := &models.Project{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Division:    p.Division,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
	}
	for _, code := range p.Codes {
		project.Codes = append(project.Codes, models.Code{Code: code})
	}
	for _, member := range p.Members {
		m, err := member.toModel(roles)
		if err != nil {
			return nil, err
		}
		project.Members = append(project.Members, m)
	}
	for _, drive := range p.Drives {
		d, err := drive.toModel()
		if err != nil {
			return nil, err
		}
		project.Drives = append(project.Drives, d)
	}
	return project, nil
}

func (m MemberPayload) toModel(roles []models.Role) (models.Member, error) {
	if m.Username == "" {
		return models.Member{}, dErrors.New(dErrors.CodeValidation, "member username is required")
	}
	member := models.Member{
		Person: models.Person{
			Username: m.Username,
			FullName: m.FullName,
			Email:    m.Email,
		},
	}
	if m.Role == "" {
		return member, nil
	}
	for _, role := range roles {
		if role.Name == m.Role {
			r := role
			member.Role = &r
			return member, nil
		}
	}
	return models.Member{}, dErrors.New(dErrors.CodeValidation,
		fmt.Sprintf("unknown role %q for member %q", m.Role, m.Username))
}

func (d DrivePayload) toModel() (*models.ResearchDriveService, error) {
	if err := validateDriveName(d.Name); err != nil {
		return nil, err
	}
	return &models.ResearchDriveService{
		Name:           d.Name,
		AllocatedGB:    d.AllocatedGB,
		FreeGB:         d.FreeGB,
		UsedGB:         d.UsedGB,
		PercentageUsed: d.PercentageUsed,
		Date:           d.Date,
		FirstDay:       d.FirstDay,
		LastDay:        d.LastDay,
	}, nil
}

func drivePayloadFrom(d *models.ResearchDriveService) DrivePayload {
	return DrivePayload{
		Name:           d.Name,
		AllocatedGB:    d.AllocatedGB,
		FreeGB:         d.FreeGB,
		UsedGB:         d.UsedGB,
		PercentageUsed: d.PercentageUsed,
		Date:           d.Date,
		FirstDay:       d.FirstDay,
		LastDay:        d.LastDay,
	}
}

func projectPayloadFrom(p *models.Project) ProjectPayload {
	out := ProjectPayload{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Division:    p.Division,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
	}
	for _, code := range p.Codes {
		out.Codes = append(out.Codes, code.Code)
	}
	for _, member := range p.Members {
		mp := MemberPayload{
			Username: member.Person.Username,
			FullName: member.Person.FullName,
			Email:    member.Person.Email,
		}
		if member.Role != nil {
			mp.Role = member.Role.Name
		}
		out.Members = append(out.Members, mp)
	}
	for _, drive := range p.Drives {
		out.Drives = append(out.Drives, drivePayloadFrom(drive))
	}
	return out
}
