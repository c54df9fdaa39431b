package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/UoA-eResearch/driveoff/internal/models"
	"github.com/UoA-eResearch/driveoff/pkg/platform/sentinel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS roles (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS projects (
	id          SERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	division    TEXT NOT NULL DEFAULT '',
	start_date  TIMESTAMPTZ,
	end_date    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS codes (
	id         SERIAL PRIMARY KEY,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	code       TEXT NOT NULL,
	UNIQUE (project_id, code)
);

CREATE TABLE IF NOT EXISTS people (
	id        SERIAL PRIMARY KEY,
	username  TEXT NOT NULL UNIQUE,
	full_name TEXT NOT NULL DEFAULT '',
	email     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS members (
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	person_id  INTEGER NOT NULL REFERENCES people(id),
	role_id    INTEGER REFERENCES roles(id),
	PRIMARY KEY (project_id, person_id)
);

CREATE TABLE IF NOT EXISTS research_drives (
	id              SERIAL PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	allocated_gb    DOUBLE PRECISION NOT NULL DEFAULT 0,
	free_gb         DOUBLE PRECISION NOT NULL DEFAULT 0,
	used_gb         DOUBLE PRECISION NOT NULL DEFAULT 0,
	percentage_used DOUBLE PRECISION NOT NULL DEFAULT 0,
	date            TIMESTAMPTZ,
	first_day       TIMESTAMPTZ,
	last_day        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS project_drives (
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	drive_id   INTEGER NOT NULL REFERENCES research_drives(id),
	PRIMARY KEY (project_id, drive_id)
);

CREATE TABLE IF NOT EXISTS submissions (
	id                  SERIAL PRIMARY KEY,
	drive_id            INTEGER NOT NULL UNIQUE REFERENCES research_drives(id),
	retention_years     INTEGER NOT NULL,
	justification       TEXT NOT NULL DEFAULT '',
	data_classification TEXT NOT NULL,
	is_completed        BOOLEAN NOT NULL DEFAULT FALSE,
	updated_time        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS manifests (
	id       SERIAL PRIMARY KEY,
	drive_id INTEGER NOT NULL UNIQUE REFERENCES research_drives(id),
	content  TEXT NOT NULL
);
`

// PostgresStore persists the offboarding records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database, applies the schema and seeds
// the role fixtures.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the schema and seeds the role fixtures. Safe to run at
// every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	for _, role := range models.SeedRoles() {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			role.ID, role.Name)
		if err != nil {
			return fmt.Errorf("seed role %q: %w", role.Name, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *PostgresStore) GetDriveByName(ctx context.Context, name string) (*models.ResearchDriveService, error) {
	drive := &models.ResearchDriveService{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, allocated_gb, free_gb, used_gb, percentage_used, date, first_day, last_day
		FROM research_drives WHERE name = $1`, name).
		Scan(&drive.ID, &drive.Name, &drive.AllocatedGB, &drive.FreeGB, &drive.UsedGB,
			&drive.PercentageUsed, &drive.Date, &drive.FirstDay, &drive.LastDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("drive %q: %w", name, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get drive %q: %w", name, err)
	}
	if err := s.attachDriveLinks(ctx, drive); err != nil {
		return nil, err
	}
	return drive, nil
}

func (s *PostgresStore) ListProjectsForDrive(ctx context.Context, driveID int) ([]*models.Project, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM research_drives WHERE id = $1)`, driveID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check drive %d: %w", driveID, err)
	}
	if !exists {
		return nil, fmt.Errorf("drive %d: %w", driveID, sentinel.ErrNotFound)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT project_id FROM project_drives WHERE drive_id = $1 ORDER BY project_id`, driveID)
	if err != nil {
		return nil, fmt.Errorf("list projects for drive %d: %w", driveID, err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	projects := make([]*models.Project, 0, len(ids))
	for _, id := range ids {
		project, err := s.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id int) (*models.Project, error) {
	project := &models.Project{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, description, division, start_date, end_date
		FROM projects WHERE id = $1`, id).
		Scan(&project.ID, &project.Title, &project.Description, &project.Division,
			&project.StartDate, &project.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}

	if project.Codes, err = s.projectCodes(ctx, id); err != nil {
		return nil, err
	}
	if project.Members, err = s.projectMembers(ctx, id); err != nil {
		return nil, err
	}
	if project.Drives, err = s.projectDrives(ctx, id); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *PostgresStore) SaveProject(ctx context.Context, project *models.Project) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save project: %w", err)
	}
	defer tx.Rollback(ctx)

	if project.ID == 0 {
		err = tx.QueryRow(ctx, `
			INSERT INTO projects (title, description, division, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			project.Title, project.Description, project.Division,
			project.StartDate, project.EndDate).Scan(&project.ID)
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO projects (id, title, description, division, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				division = EXCLUDED.division,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date`,
			project.ID, project.Title, project.Description, project.Division,
			project.StartDate, project.EndDate)
	}
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	for _, code := range project.Codes {
		_, err := tx.Exec(ctx, `
			INSERT INTO codes (project_id, code) VALUES ($1, $2)
			ON CONFLICT (project_id, code) DO NOTHING`,
			project.ID, code.Code)
		if err != nil {
			return fmt.Errorf("save code %q: %w", code.Code, err)
		}
	}

	for i := range project.Members {
		if err := saveMember(ctx, tx, project.ID, &project.Members[i]); err != nil {
			return err
		}
	}

	for _, drive := range project.Drives {
		if err := saveDrive(ctx, tx, project.ID, drive); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save project: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSubmission(ctx context.Context, submission *models.DriveOffboardSubmission) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM research_drives WHERE id = $1)`, submission.DriveID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check drive %d: %w", submission.DriveID, err)
	}
	if !exists {
		return fmt.Errorf("drive %d: %w", submission.DriveID, sentinel.ErrNotFound)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO submissions (drive_id, retention_years, justification, data_classification, is_completed, updated_time)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		submission.DriveID, submission.RetentionPeriodYears, submission.RetentionPeriodJustification,
		string(submission.DataClassification), submission.IsCompleted, submission.UpdatedTime).
		Scan(&submission.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("drive %d already has a submission: %w", submission.DriveID, sentinel.ErrConflict)
		}
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveManifest(ctx context.Context, m *models.Manifest) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM research_drives WHERE id = $1)`, m.DriveID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check drive %d: %w", m.DriveID, err)
	}
	if !exists {
		return fmt.Errorf("drive %d: %w", m.DriveID, sentinel.ErrNotFound)
	}

	// Regenerating a manifest replaces the previous listing.
	err = s.pool.QueryRow(ctx, `
		INSERT INTO manifests (drive_id, content) VALUES ($1, $2)
		ON CONFLICT (drive_id) DO UPDATE SET content = EXCLUDED.content
		RETURNING id`,
		m.DriveID, m.Content).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// GetManifest returns the stored file listing for a drive, if any.
func (s *PostgresStore) GetManifest(ctx context.Context, driveID int) (*models.Manifest, error) {
	m := &models.Manifest{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, drive_id, content FROM manifests WHERE drive_id = $1`, driveID).
		Scan(&m.ID, &m.DriveID, &m.Content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("manifest for drive %d: %w", driveID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get manifest for drive %d: %w", driveID, err)
	}
	return m, nil
}

func saveMember(ctx context.Context, tx pgx.Tx, projectID int, member *models.Member) error {
	var personID int
	err := tx.QueryRow(ctx, `
		INSERT INTO people (username, full_name, email) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email
		RETURNING id`,
		member.Person.Username, member.Person.FullName, member.Person.Email).Scan(&personID)
	if err != nil {
		return fmt.Errorf("save person %q: %w", member.Person.Username, err)
	}
	member.Person.ID = personID
	member.ProjectID = projectID

	var roleID *int
	if member.Role != nil {
		roleID = &member.Role.ID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO members (project_id, person_id, role_id) VALUES ($1, $2, $3)
		ON CONFLICT (project_id, person_id) DO UPDATE SET role_id = EXCLUDED.role_id`,
		projectID, personID, roleID)
	if err != nil {
		return fmt.Errorf("save member %q: %w", member.Person.Username, err)
	}
	return nil
}

func saveDrive(ctx context.Context, tx pgx.Tx, projectID int, drive *models.ResearchDriveService) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO research_drives (name, allocated_gb, free_gb, used_gb, percentage_used, date, first_day, last_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			allocated_gb = EXCLUDED.allocated_gb,
			free_gb = EXCLUDED.free_gb,
			used_gb = EXCLUDED.used_gb,
			percentage_used = EXCLUDED.percentage_used,
			date = EXCLUDED.date,
			first_day = EXCLUDED.first_day,
			last_day = EXCLUDED.last_day
		RETURNING id`,
		drive.Name, drive.AllocatedGB, drive.FreeGB, drive.UsedGB,
		drive.PercentageUsed, drive.Date, drive.FirstDay, drive.LastDay).Scan(&drive.ID)
	if err != nil {
		return fmt.Errorf("save drive %q: %w", drive.Name, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO project_drives (project_id, drive_id) VALUES ($1, $2)
		ON CONFLICT (project_id, drive_id) DO NOTHING`,
		projectID, drive.ID)
	if err != nil {
		return fmt.Errorf("link drive %q to project %d: %w", drive.Name, projectID, err)
	}

	if drive.Submission != nil {
		sub := drive.Submission
		sub.DriveID = drive.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO submissions (drive_id, retention_years, justification, data_classification, is_completed, updated_time)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (drive_id) DO UPDATE SET
				retention_years = EXCLUDED.retention_years,
				justification = EXCLUDED.justification,
				data_classification = EXCLUDED.data_classification,
				is_completed = EXCLUDED.is_completed,
				updated_time = EXCLUDED.updated_time`,
			sub.DriveID, sub.RetentionPeriodYears, sub.RetentionPeriodJustification,
			string(sub.DataClassification), sub.IsCompleted, sub.UpdatedTime)
		if err != nil {
			return fmt.Errorf("save submission for drive %q: %w", drive.Name, err)
		}
	}
	return nil
}

func (s *PostgresStore) attachDriveLinks(ctx context.Context, drive *models.ResearchDriveService) error {
	sub, err := s.driveSubmission(ctx, drive.ID)
	if err != nil {
		return err
	}
	drive.Submission = sub

	rows, err := s.pool.Query(ctx,
		`SELECT project_id FROM project_drives WHERE drive_id = $1 ORDER BY project_id`, drive.ID)
	if err != nil {
		return fmt.Errorf("list project links for drive %d: %w", drive.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan project link: %w", err)
		}
		drive.ProjectIDs = append(drive.ProjectIDs, id)
	}
	return rows.Err()
}

func (s *PostgresStore) driveSubmission(ctx context.Context, driveID int) (*models.DriveOffboardSubmission, error) {
	sub := &models.DriveOffboardSubmission{}
	var classification string
	err := s.pool.QueryRow(ctx, `
		SELECT id, drive_id, retention_years, justification, data_classification, is_completed, updated_time
		FROM submissions WHERE drive_id = $1`, driveID).
		Scan(&sub.ID, &sub.DriveID, &sub.RetentionPeriodYears, &sub.RetentionPeriodJustification,
			&classification, &sub.IsCompleted, &sub.UpdatedTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission for drive %d: %w", driveID, err)
	}
	sub.DataClassification = models.DataClassification(classification)
	return sub, nil
}

func (s *PostgresStore) projectCodes(ctx context.Context, projectID int) ([]models.Code, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code FROM codes WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list codes for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var codes []models.Code
	for rows.Next() {
		var code models.Code
		if err := rows.Scan(&code.ID, &code.Code); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *PostgresStore) projectMembers(ctx context.Context, projectID int) ([]models.Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.username, p.full_name, p.email, r.id, r.name
		FROM members m
		JOIN people p ON p.id = m.person_id
		LEFT JOIN roles r ON r.id = m.role_id
		WHERE m.project_id = $1
		ORDER BY p.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		member := models.Member{ProjectID: projectID}
		var roleID *int
		var roleName *string
		err := rows.Scan(&member.Person.ID, &member.Person.Username, &member.Person.FullName,
			&member.Person.Email, &roleID, &roleName)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if roleID != nil {
			member.Role = &models.Role{ID: *roleID, Name: *roleName}
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (s *PostgresStore) projectDrives(ctx context.Context, projectID int) ([]*models.ResearchDriveService, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.name, d.allocated_gb, d.free_gb, d.used_gb, d.percentage_used, d.date, d.first_day, d.last_day
		FROM project_drives pd
		JOIN research_drives d ON d.id = pd.drive_id
		WHERE pd.project_id = $1
		ORDER BY d.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list drives for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var drives []*models.ResearchDriveService
	for rows.Next() {
		drive := &models.ResearchDriveService{}
		err := rows.Scan(&drive.ID, &drive.Name, &drive.AllocatedGB, &drive.FreeGB, &drive.UsedGB,
			&drive.PercentageUsed, &drive.Date, &drive.FirstDay, &drive.LastDay)
		if err != nil {
			return nil, fmt.Errorf("scan drive: %w", err)
		}
		drives = append(drives, drive)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, drive := range drives {
		if err := s.attachDriveLinks(ctx, drive); err != nil {
			return nil, err
		}
	}
	return drives, nil
}
