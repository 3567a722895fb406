package domain

import (
	"encoding/json"
	"time"
)

// DefaultJobApplicationTiming is stored when the roadmap response does not suggest one.
const DefaultJobApplicationTiming = "Apply after completing 60-70% of the roadmap"

// User is a job seeker profile.
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Skills          []string  `json:"skills"`
	TargetRoles     []string  `json:"target_roles"`
	Projects        []string  `json:"projects"`
	EducationLevel  *string   `json:"education_level,omitempty"`
	ExperienceLevel *string   `json:"experience_level,omitempty"`
	RawCVText       *string   `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Roadmap is a persisted learning roadmap.
type Roadmap struct {
	ID                   int64           `json:"id"`
	UserID               int64           `json:"-"`
	Title                string          `json:"title"`
	TargetRole           string          `json:"target_role"`
	RoadmapData          json.RawMessage `json:"roadmap"`
	AIProvider           Provider        `json:"ai_provider"`
	TimeframeMonths      int             `json:"timeframe_months"`
	LearningHoursPerWeek int             `json:"learning_hours_per_week"`
	CurrentSkills        json.RawMessage `json:"current_skills"`
	ProjectSuggestions   json.RawMessage `json:"project_suggestions"`
	JobApplicationTiming string          `json:"job_application_timing"`
	ProgressPercentage   int             `json:"progress_percentage"`
	CompletedPhases      []int           `json:"completed_phases"`
	Notes                *string         `json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// RoadmapProgress is a partial progress update; nil fields are left unchanged.
type RoadmapProgress struct {
	ProgressPercentage *int
	CompletedPhases    []int
	Notes              *string
}

// Validate rejects a progress percentage outside 0..100.
func (p RoadmapProgress) Validate() error {
	if p.ProgressPercentage != nil && (*p.ProgressPercentage < 0 || *p.ProgressPercentage > 100) {
		return &ValidationError{Field: "progress_percentage", Message: "Progress percentage must be between 0 and 100"}
	}
	return nil
}

// MergeUnique appends values missing from base, preserving order.
func MergeUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
