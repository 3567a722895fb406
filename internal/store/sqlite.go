// Package store persists users and career roadmaps in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// SQLiteStore implements user and roadmap persistence on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	// A single connection serialises writers and keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	// WAL mode for concurrent readers alongside the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			email            TEXT NOT NULL UNIQUE,
			name             TEXT NOT NULL,
			token_hash       TEXT NOT NULL UNIQUE,
			skills           TEXT NOT NULL DEFAULT '[]',
			target_roles     TEXT NOT NULL DEFAULT '[]',
			projects         TEXT NOT NULL DEFAULT '[]',
			education_level  TEXT,
			experience_level TEXT,
			raw_cv_text      TEXT,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS career_roadmaps (
			id                      INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id                 INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title                   TEXT NOT NULL,
			target_role             TEXT NOT NULL,
			roadmap_data            TEXT NOT NULL,
			ai_provider             TEXT NOT NULL,
			timeframe_months        INTEGER NOT NULL,
			learning_hours_per_week INTEGER NOT NULL,
			current_skills          TEXT NOT NULL DEFAULT '[]',
			project_suggestions     TEXT NOT NULL DEFAULT '[]',
			job_application_timing  TEXT NOT NULL,
			progress_percentage     INTEGER NOT NULL DEFAULT 0 CHECK (progress_percentage BETWEEN 0 AND 100),
			completed_phases        TEXT NOT NULL DEFAULT '[]',
			notes                   TEXT,
			created_at              TEXT NOT NULL,
			updated_at              TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_career_roadmaps_user ON career_roadmaps(user_id);
	`)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Users
// ============================================================================

const userColumns = `id, email, name, skills, target_roles, projects, education_level,
	experience_level, raw_cv_text, created_at, updated_at`

// CreateUser inserts a user identified by tokenHash. A duplicate email is a
// *domain.ValidationError.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, tokenHash string) (*domain.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, name, token_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		email, name, tokenHash, formatTime(now), formatTime(now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return nil, &domain.ValidationError{Field: "email", Message: fmt.Sprintf("email %s is already registered", email)}
		}
		return nil, fmt.Errorf("inserting user %s: %w", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}
	return &domain.User{
		ID:          id,
		Email:       email,
		Name:        name,
		Skills:      []string{},
		TargetRoles: []string{},
		Projects:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetUser loads a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// UserByTokenHash loads the user owning an API token hash.
func (s *SQLiteStore) UserByTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE token_hash = ?", tokenHash)
	return scanUser(row)
}

// UpdateProfileFromCV replaces the user's skills and target roles and stores
// the CV text they were extracted from.
func (s *SQLiteStore) UpdateProfileFromCV(ctx context.Context, userID int64, skills, targetRoles []string, rawCV string) error {
	skillsJSON, err := marshalJSON(skills, "[]")
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	rolesJSON, err := marshalJSON(targetRoles, "[]")
	if err != nil {
		return fmt.Errorf("marshal target roles: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET skills = ?, target_roles = ?, raw_cv_text = ?, updated_at = ? WHERE id = ?",
		skillsJSON, rolesJSON, rawCV, formatTime(time.Now().UTC()), userID,
	)
	if err != nil {
		return fmt.Errorf("updating profile for user %d: %w", userID, err)
	}
	return requireAffected(res)
}

// ============================================================================
// Roadmaps
// ============================================================================

const roadmapColumns = `id, user_id, title, target_role, roadmap_data, ai_provider, timeframe_months,
	learning_hours_per_week, current_skills, project_suggestions, job_application_timing,
	progress_percentage, completed_phases, notes, created_at, updated_at`

// CreateRoadmap inserts r and fills in its ID and timestamps.
func (s *SQLiteStore) CreateRoadmap(ctx context.Context, r *domain.Roadmap) error {
	if len(r.CurrentSkills) == 0 {
		r.CurrentSkills = json.RawMessage("[]")
	}
	if len(r.ProjectSuggestions) == 0 {
		r.ProjectSuggestions = json.RawMessage("[]")
	}
	if r.JobApplicationTiming == "" {
		r.JobApplicationTiming = domain.DefaultJobApplicationTiming
	}
	if r.CompletedPhases == nil {
		r.CompletedPhases = []int{}
	}
	phasesJSON, err := marshalJSON(r.CompletedPhases, "[]")
	if err != nil {
		return fmt.Errorf("marshal completed phases: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO career_roadmaps (user_id, title, target_role, roadmap_data, ai_provider, timeframe_months,
			learning_hours_per_week, current_skills, project_suggestions, job_application_timing,
			progress_percentage, completed_phases, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Title, r.TargetRole, string(r.RoadmapData), string(r.AIProvider), r.TimeframeMonths,
		r.LearningHoursPerWeek, string(r.CurrentSkills), string(r.ProjectSuggestions), r.JobApplicationTiming,
		r.ProgressPercentage, phasesJSON, r.Notes, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting roadmap for user %d: %w", r.UserID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading roadmap id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// ListRoadmaps returns the user's roadmaps, newest first.
func (s *SQLiteStore) ListRoadmaps(ctx context.Context, userID int64) ([]*domain.Roadmap, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+roadmapColumns+" FROM career_roadmaps WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing roadmaps for user %d: %w", userID, err)
	}
	defer rows.Close()

	roadmaps := []*domain.Roadmap{}
	for rows.Next() {
		r, err := scanRoadmap(rows)
		if err != nil {
			return nil, err
		}
		roadmaps = append(roadmaps, r)
	}
	return roadmaps, rows.Err()
}

// GetRoadmap loads one of the user's roadmaps. Another user's roadmap is
// reported as domain.ErrNotFound.
func (s *SQLiteStore) GetRoadmap(ctx context.Context, userID, id int64) (*domain.Roadmap, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+roadmapColumns+" FROM career_roadmaps WHERE id = ? AND user_id = ?", id, userID)
	r, err := scanRoadmap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return r, err
}

// DeleteRoadmap removes one of the user's roadmaps.
func (s *SQLiteStore) DeleteRoadmap(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM career_roadmaps WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting roadmap %d: %w", id, err)
	}
	return requireAffected(res)
}

// UpdateRoadmapProgress applies the non-nil fields of p and returns the
// updated roadmap.
func (s *SQLiteStore) UpdateRoadmapProgress(ctx context.Context, userID, id int64, p domain.RoadmapProgress) (*domain.Roadmap, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+roadmapColumns+" FROM career_roadmaps WHERE id = ? AND user_id = ?", id, userID)
	r, err := scanRoadmap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.ProgressPercentage != nil {
		r.ProgressPercentage = *p.ProgressPercentage
	}
	if p.CompletedPhases != nil {
		r.CompletedPhases = p.CompletedPhases
	}
	if p.Notes != nil {
		r.Notes = p.Notes
	}
	r.UpdatedAt = time.Now().UTC()

	phasesJSON, err := marshalJSON(r.CompletedPhases, "[]")
	if err != nil {
		return nil, fmt.Errorf("marshal completed phases: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE career_roadmaps SET progress_percentage = ?, completed_phases = ?, notes = ?, updated_at = ? WHERE id = ?",
		r.ProgressPercentage, phasesJSON, r.Notes, formatTime(r.UpdatedAt), id,
	); err != nil {
		return nil, fmt.Errorf("updating roadmap %d progress: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit progress update: %w", err)
	}
	return r, nil
}

// ============================================================================
// Scanning helpers
// ============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		u                            domain.User
		skills, roles, projects      string
		education, experience, rawCV sql.NullString
		createdStr, updatedStr       string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &skills, &roles, &projects,
		&education, &experience, &rawCV, &createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if err := unmarshalList(skills, &u.Skills); err != nil {
		return nil, fmt.Errorf("unmarshal skills: %w", err)
	}
	if err := unmarshalList(roles, &u.TargetRoles); err != nil {
		return nil, fmt.Errorf("unmarshal target roles: %w", err)
	}
	if err := unmarshalList(projects, &u.Projects); err != nil {
		return nil, fmt.Errorf("unmarshal projects: %w", err)
	}
	u.EducationLevel = nullString(education)
	u.ExperienceLevel = nullString(experience)
	u.RawCVText = nullString(rawCV)
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return &u, nil
}

func scanRoadmap(row scanner) (*domain.Roadmap, error) {
	var (
		r                                        domain.Roadmap
		data, provider, skills, projects, phases string
		notes                                    sql.NullString
		createdStr, updatedStr                   string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.TargetRole, &data, &provider, &r.TimeframeMonths,
		&r.LearningHoursPerWeek, &skills, &projects, &r.JobApplicationTiming,
		&r.ProgressPercentage, &phases, &notes, &createdStr, &updatedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning roadmap: %w", err)
	}
	r.RoadmapData = json.RawMessage(data)
	r.AIProvider = domain.Provider(provider)
	r.CurrentSkills = json.RawMessage(skills)
	r.ProjectSuggestions = json.RawMessage(projects)
	if err := json.Unmarshal([]byte(phases), &r.CompletedPhases); err != nil {
		return nil, fmt.Errorf("unmarshal completed phases: %w", err)
	}
	if r.CompletedPhases == nil {
		r.CompletedPhases = []int{}
	}
	r.Notes = nullString(notes)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return &r, nil
}

func unmarshalList(raw string, dst *[]string) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
