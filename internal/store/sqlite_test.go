package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestUser(t *testing.T, s *SQLiteStore, email string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "Test User", "hash-"+email)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateUserThenLookupByToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := newTestUser(t, s, "ada@example.com")

	got, err := s.UserByTokenHash(ctx, "hash-ada@example.com")
	if err != nil {
		t.Fatalf("UserByTokenHash: %v", err)
	}
	if got.ID != created.ID || got.Email != "ada@example.com" || got.Name != "Test User" {
		t.Errorf("got %+v", got)
	}
	if got.Skills == nil || len(got.Skills) != 0 {
		t.Errorf("Skills = %#v, want empty non-nil", got.Skills)
	}
	if got.RawCVText != nil {
		t.Errorf("RawCVText = %v, want nil", *got.RawCVText)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}
}

func TestUserByTokenHashUnknown(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UserByTokenHash(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "dup@example.com")

	_, err := s.CreateUser(context.Background(), "dup@example.com", "Other", "other-hash")
	if !domain.IsValidationError(err) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestUpdateProfileFromCV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "cv@example.com")

	if err := s.UpdateProfileFromCV(ctx, u.ID, []string{"Go", "SQL"}, []string{"Backend Engineer"}, "my cv"); err != nil {
		t.Fatalf("UpdateProfileFromCV: %v", err)
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(got.Skills) != 2 || got.Skills[0] != "Go" || got.Skills[1] != "SQL" {
		t.Errorf("Skills = %v", got.Skills)
	}
	if len(got.TargetRoles) != 1 || got.TargetRoles[0] != "Backend Engineer" {
		t.Errorf("TargetRoles = %v", got.TargetRoles)
	}
	if got.RawCVText == nil || *got.RawCVText != "my cv" {
		t.Errorf("RawCVText = %v", got.RawCVText)
	}

	if err := s.UpdateProfileFromCV(ctx, 9999, nil, nil, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown user err = %v, want ErrNotFound", err)
	}
}

func TestRoadmapLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "road@example.com")

	r := &domain.Roadmap{
		UserID:               u.ID,
		Title:                "Roadmap to Go Developer",
		TargetRole:           "Go Developer",
		RoadmapData:          json.RawMessage(`{"phases":[{"phase":1}]}`),
		AIProvider:           domain.ProviderGroq,
		TimeframeMonths:      6,
		LearningHoursPerWeek: 10,
	}
	if err := s.CreateRoadmap(ctx, r); err != nil {
		t.Fatalf("CreateRoadmap: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("expected ID to be set")
	}
	if r.JobApplicationTiming != domain.DefaultJobApplicationTiming {
		t.Errorf("JobApplicationTiming = %q", r.JobApplicationTiming)
	}

	got, err := s.GetRoadmap(ctx, u.ID, r.ID)
	if err != nil {
		t.Fatalf("GetRoadmap: %v", err)
	}
	if string(got.ProjectSuggestions) != "[]" {
		t.Errorf("ProjectSuggestions = %s, want []", got.ProjectSuggestions)
	}
	if got.AIProvider != domain.ProviderGroq || got.TimeframeMonths != 6 {
		t.Errorf("got %+v", got)
	}
	if string(got.RoadmapData) != `{"phases":[{"phase":1}]}` {
		t.Errorf("RoadmapData = %s", got.RoadmapData)
	}

	list, err := s.ListRoadmaps(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListRoadmaps: %v", err)
	}
	if len(list) != 1 || list[0].ID != r.ID {
		t.Errorf("ListRoadmaps = %+v", list)
	}

	if err := s.DeleteRoadmap(ctx, u.ID, r.ID); err != nil {
		t.Fatalf("DeleteRoadmap: %v", err)
	}
	if _, err := s.GetRoadmap(ctx, u.ID, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("after delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteRoadmap(ctx, u.ID, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRoadmapsAreScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "owner@example.com")
	other := newTestUser(t, s, "other@example.com")

	r := &domain.Roadmap{UserID: owner.ID, Title: "t", TargetRole: "r", RoadmapData: json.RawMessage(`{}`), AIProvider: domain.ProviderGemini}
	if err := s.CreateRoadmap(ctx, r); err != nil {
		t.Fatalf("CreateRoadmap: %v", err)
	}

	if _, err := s.GetRoadmap(ctx, other.ID, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetRoadmap by other user err = %v", err)
	}
	if err := s.DeleteRoadmap(ctx, other.ID, r.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteRoadmap by other user err = %v", err)
	}
	list, err := s.ListRoadmaps(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListRoadmaps: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("other user sees %d roadmaps", len(list))
	}
}

func TestUpdateRoadmapProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "progress@example.com")

	r := &domain.Roadmap{UserID: u.ID, Title: "t", TargetRole: "r", RoadmapData: json.RawMessage(`{}`), AIProvider: domain.ProviderGemini}
	if err := s.CreateRoadmap(ctx, r); err != nil {
		t.Fatalf("CreateRoadmap: %v", err)
	}

	pct := 40
	notes := "halfway through phase 2"
	updated, err := s.UpdateRoadmapProgress(ctx, u.ID, r.ID, domain.RoadmapProgress{
		ProgressPercentage: &pct,
		CompletedPhases:    []int{1},
		Notes:              &notes,
	})
	if err != nil {
		t.Fatalf("UpdateRoadmapProgress: %v", err)
	}
	if updated.ProgressPercentage != 40 || len(updated.CompletedPhases) != 1 || *updated.Notes != notes {
		t.Errorf("updated = %+v", updated)
	}

	// A partial update keeps the other fields.
	pct = 55
	if _, err := s.UpdateRoadmapProgress(ctx, u.ID, r.ID, domain.RoadmapProgress{ProgressPercentage: &pct}); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	got, err := s.GetRoadmap(ctx, u.ID, r.ID)
	if err != nil {
		t.Fatalf("GetRoadmap: %v", err)
	}
	if got.ProgressPercentage != 55 || len(got.CompletedPhases) != 1 || got.Notes == nil || *got.Notes != notes {
		t.Errorf("got = %+v", got)
	}
}

func TestUpdateRoadmapProgressRejectsOutOfRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "range@example.com")

	for _, pct := range []int{-1, 101} {
		p := pct
		_, err := s.UpdateRoadmapProgress(ctx, u.ID, 1, domain.RoadmapProgress{ProgressPercentage: &p})
		if !domain.IsValidationError(err) {
			t.Errorf("pct %d: err = %v, want ValidationError", pct, err)
		}
	}

	p := 10
	if _, err := s.UpdateRoadmapProgress(ctx, u.ID, 12345, domain.RoadmapProgress{ProgressPercentage: &p}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing roadmap err = %v, want ErrNotFound", err)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
