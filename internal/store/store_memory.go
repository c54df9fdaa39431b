package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"
)

// InMemoryStore keeps all records in maps guarded by one RWMutex. The
// drive-project many-to-many link is an explicit join table, mirroring the
// relational layout.
type InMemoryStore struct {
	mu            sync.RWMutex
	roles         map[int]models.Role
	drives        map[int]*models.ResearchDriveService
	driveNames    map[string]int
	projects      map[int]*models.Project
	projectDrives map[int][]int                           // project ID -> drive IDs
	submissions   map[int]*models.DriveOffboardSubmission // keyed by drive ID
	manifests     map[int]*models.Manifest                // keyed by drive ID
	nextID        int
}

// NewInMemoryStore returns a store pre-seeded with the role fixtures.
func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{
		roles:         make(map[int]models.Role),
		drives:        make(map[int]*models.ResearchDriveService),
		driveNames:    make(map[string]int),
		projects:      make(map[int]*models.Project),
		projectDrives: make(map[int][]int),
		submissions:   make(map[int]*models.DriveOffboardSubmission),
		manifests:     make(map[int]*models.Manifest),
		nextID:        1000,
	}
	s.seedRoles(models.SeedRoles())
	return s
}

// seedRoles inserts role fixtures, silently skipping IDs already present.
// Re-seeding immutable reference data is expected at every startup.
func (s *InMemoryStore) seedRoles(roles []models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range roles {
		if _, exists := s.roles[role.ID]; exists {
			continue
		}
		s.roles[role.ID] = role
	}
}

func (s *InMemoryStore) ListRoles(_ context.Context) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]models.Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (s *InMemoryStore) GetDriveByName(_ context.Context, name string) (*models.ResearchDriveService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.driveNames[name]
	if !ok {
		return nil, fmt.Errorf("drive %q: %w", name, sentinel.ErrNotFound)
	}
	return s.materializeDrive(id), nil
}

func (s *InMemoryStore) ListProjectsForDrive(_ context.Context, driveID int) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.drives[driveID]; !ok {
		return nil, fmt.Errorf("drive %d: %w", driveID, sentinel.ErrNotFound)
	}
	var projects []*models.Project
	for projectID, driveIDs := range s.projectDrives {
		for _, id := range driveIDs {
			if id == driveID {
				projects = append(projects, s.materializeProject(projectID))
				break
			}
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

func (s *InMemoryStore) GetProject(_ context.Context, id int) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.projects[id]; !ok {
		return nil, fmt.Errorf("project %d: %w", id, sentinel.ErrNotFound)
	}
	return s.materializeProject(id), nil
}

func (s *InMemoryStore) SaveProject(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.ID == 0 {
		project.ID = s.allocateID()
	}
	for i := range project.Members {
		project.Members[i].ProjectID = project.ID
	}

	// Store drives and the join rows; the project record itself is kept flat.
	driveIDs := make([]int, 0, len(project.Drives))
	for _, drive := range project.Drives {
		if drive.ID == 0 {
			if existing, ok := s.driveNames[drive.Name]; ok {
				drive.ID = existing
			} else {
				drive.ID = s.allocateID()
			}
		}
		stored := *drive
		stored.Submission = nil
		stored.ProjectIDs = nil
		s.drives[drive.ID] = &stored
		s.driveNames[drive.Name] = drive.ID
		if drive.Submission != nil {
			drive.Submission.DriveID = drive.ID
			s.submissions[drive.ID] = drive.Submission
		}
		driveIDs = append(driveIDs, drive.ID)
	}

	flat := *project
	flat.Drives = nil
	s.projects[project.ID] = &flat
	s.projectDrives[project.ID] = driveIDs
	return nil
}

func (s *InMemoryStore) SaveSubmission(_ context.Context, submission *models.DriveOffboardSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drives[submission.DriveID]; !ok {
		return fmt.Errorf("drive %d: %w", submission.DriveID, sentinel.ErrNotFound)
	}
	if _, exists := s.submissions[submission.DriveID]; exists {
		return fmt.Errorf("drive %d already has a submission: %w", submission.DriveID, sentinel.ErrConflict)
	}
	if submission.ID == 0 {
		submission.ID = s.allocateID()
	}
	s.submissions[submission.DriveID] = submission
	return nil
}

func (s *InMemoryStore) SaveManifest(_ context.Context, m *models.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drives[m.DriveID]; !ok {
		return fmt.Errorf("drive %d: %w", m.DriveID, sentinel.ErrNotFound)
	}
	if m.ID == 0 {
		m.ID = s.allocateID()
	}
	s.manifests[m.DriveID] = m
	return nil
}

// GetManifest returns the stored file listing for a drive, if any.
func (s *InMemoryStore) GetManifest(_ context.Context, driveID int) (*models.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[driveID]
	if !ok {
		return nil, fmt.Errorf("manifest for drive %d: %w", driveID, sentinel.ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

// materializeDrive assembles a drive with its submission. Callers hold the lock.
func (s *InMemoryStore) materializeDrive(id int) *models.ResearchDriveService {
	drive := *s.drives[id]
	if sub, ok := s.submissions[id]; ok {
		copied := *sub
		drive.Submission = &copied
	}
	for projectID, driveIDs := range s.projectDrives {
		for _, did := range driveIDs {
			if did == id {
				drive.ProjectIDs = append(drive.ProjectIDs, projectID)
			}
		}
	}
	sort.Ints(drive.ProjectIDs)
	return &drive
}

// materializeProject assembles a project with its drives, each carrying its
// submission. Callers hold the lock.
func (s *InMemoryStore) materializeProject(id int) *models.Project {
	project := *s.projects[id]
	for _, driveID := range s.projectDrives[id] {
		project.Drives = append(project.Drives, s.materializeDrive(driveID))
	}
	return &project
}

func (s *InMemoryStore) allocateID() int {
	s.nextID++
	return s.nextID
}
