package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

// Defaults applied by the roadmap endpoint.
const (
	DefaultTimeframeMonths      = 6
	DefaultLearningHoursPerWeek = 10
	DefaultPlatform             = "linkedin"
)

// ActionProcessor runs AI actions. *service.AIService implements it.
type ActionProcessor interface {
	ProcessAction(ctx context.Context, req domain.ActionRequest) (domain.ActionResponse, error)
	EnabledProviders() []domain.Provider
}

// ProfileStore reads and updates user profiles.
type ProfileStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateProfileFromCV(ctx context.Context, userID int64, skills, targetRoles []string, rawCV string) error
}

// RoadmapStore persists generated roadmaps.
type RoadmapStore interface {
	CreateRoadmap(ctx context.Context, r *domain.Roadmap) error
	ListRoadmaps(ctx context.Context, userID int64) ([]*domain.Roadmap, error)
	GetRoadmap(ctx context.Context, userID, id int64) (*domain.Roadmap, error)
	DeleteRoadmap(ctx context.Context, userID, id int64) error
	UpdateRoadmapProgress(ctx context.Context, userID, id int64, p domain.RoadmapProgress) (*domain.Roadmap, error)
}

// AIHandler serves the /api/ai endpoints that call a provider.
type AIHandler struct {
	ai       ActionProcessor
	profiles ProfileStore
	roadmaps RoadmapStore
	usage    *UsageEstimator
	logger   *slog.Logger
}

// NewAIHandler creates an AIHandler. usage may be nil.
func NewAIHandler(ai ActionProcessor, profiles ProfileStore, roadmaps RoadmapStore, usage *UsageEstimator, logger *slog.Logger) *AIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AIHandler{ai: ai, profiles: profiles, roadmaps: roadmaps, usage: usage, logger: logger}
}

// process runs one action and records its estimated usage.
func (h *AIHandler) process(c *gin.Context, req domain.ActionRequest) (domain.ActionResponse, error) {
	resp, err := h.ai.ProcessAction(c.Request.Context(), req)
	if err != nil {
		return resp, err
	}

	if h.usage != nil {
		output := ""
		if resp.Success {
			if b, mErr := json.Marshal(resp.Data); mErr == nil {
				output = string(b)
			}
		}
		m := h.usage.Record(resp.Provider, req.Input, output, resp.Success)
		ui.PrintUsage(string(resp.Provider), m.InputTokens, m.OutputTokens, FormatCost(m.Cost), FormatCost(m.TotalCost))
	}
	return resp, nil
}

// Action handles POST /api/ai/action and returns the envelope as is.
// Successful envelopes are marked cacheable for the response cache.
func (h *AIHandler) Action(c *gin.Context) {
	var req domain.ActionRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.process(c, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if resp.Success {
		c.Set(ctxCacheable, true)
	}
	c.JSON(http.StatusOK, resp)
}

type extractSkillsRequest struct {
	CVText        string `json:"cv_text"`
	Provider      string `json:"provider"`
	UpdateProfile bool   `json:"update_profile"`
}

// ExtractSkills handles POST /api/ai/extract-skills.
func (h *AIHandler) ExtractSkills(c *gin.Context) {
	var req extractSkillsRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if strings.TrimSpace(req.CVText) == "" {
		respondError(c, h.logger, &domain.ValidationError{Field: "cv_text", Message: "cv_text is required"})
		return
	}

	resp, err := h.process(c, domain.ActionRequest{
		Action:   domain.ActionExtractSkills,
		Provider: domain.Provider(req.Provider),
		Input:    req.CVText,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !resp.Success {
		respondError(c, h.logger, failureError(resp))
		return
	}

	if req.UpdateProfile {
		if err := h.mergeProfile(c.Request.Context(), currentUser(c).ID, resp, req.CVText); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"extracted_data":  resp.Data,
		"profile_updated": req.UpdateProfile,
		"message":         "Skills extracted successfully",
	})
}

// mergeProfile folds extracted skills and roles into the stored profile.
func (h *AIHandler) mergeProfile(ctx context.Context, userID int64, resp domain.ActionResponse, cvText string) error {
	skills := namedList(resp.Field("technical_skills"))
	roles := namedList(resp.Field("roles"))

	user, err := h.profiles.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading user %d: %w", userID, err)
	}

	mergedSkills := domain.MergeUnique(user.Skills, skills)
	mergedRoles := domain.MergeUnique(user.TargetRoles, roles)
	if err := h.profiles.UpdateProfileFromCV(ctx, userID, mergedSkills, mergedRoles, cvText); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	h.logger.Info("profile updated from CV",
		slog.Int64("user_id", userID),
		slog.Int("extracted_skills", len(skills)),
		slog.Int("extracted_roles", len(roles)),
		slog.Int("total_skills", len(mergedSkills)),
		slog.Int("total_roles", len(mergedRoles)),
	)
	return nil
}

type roadmapRequest struct {
	TargetRole           string `json:"target_role"`
	TechStack            string `json:"tech_stack"`
	TimeframeMonths      *int   `json:"timeframe_months"`
	LearningHoursPerWeek *int   `json:"learning_hours_per_week"`
	Provider             string `json:"provider"`
	IncludeCurrentSkills *bool  `json:"include_current_skills"`
}

// GenerateRoadmap handles POST /api/ai/roadmap. The roadmap is saved after
// the provider call succeeds.
func (h *AIHandler) GenerateRoadmap(c *gin.Context) {
	var req roadmapRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.logger, err)
		return
	}

	target := strings.TrimSpace(req.TargetRole)
	if target == "" {
		target = strings.TrimSpace(req.TechStack)
	}
	if target == "" {
		respondError(c, h.logger, &domain.ValidationError{Field: "target_role", Message: "target_role is required"})
		return
	}

	timeframe := positiveOr(req.TimeframeMonths, DefaultTimeframeMonths)
	hours := positiveOr(req.LearningHoursPerWeek, DefaultLearningHoursPerWeek)
	includeSkills := req.IncludeCurrentSkills == nil || *req.IncludeCurrentSkills

	user := currentUser(c)
	params := map[string]any{
		"timeframe_months":        timeframe,
		"learning_hours_per_week": hours,
	}
	var currentSkills []string
	if includeSkills {
		currentSkills = user.Skills
		params["current_skills"] = strings.Join(user.Skills, ", ")
	}

	resp, err := h.process(c, domain.ActionRequest{
		Action:     domain.ActionGenerateRoadmap,
		Provider:   domain.Provider(req.Provider),
		Input:      target,
		Parameters: params,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !resp.Success {
		respondError(c, h.logger, failureError(resp))
		return
	}

	roadmap, err := newRoadmap(user.ID, target, resp, timeframe, hours, currentSkills)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.roadmaps.CreateRoadmap(c.Request.Context(), roadmap); err != nil {
		respondError(c, h.logger, fmt.Errorf("saving roadmap: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"roadmap":    resp.Data,
		"roadmap_id": roadmap.ID,
		"provider":   resp.Provider,
		"message":    "Roadmap generated and saved successfully",
		"metadata": gin.H{
			"timeframe_months":        timeframe,
			"learning_hours_per_week": hours,
			"job_application_timing":  roadmap.JobApplicationTiming,
		},
	})
}

func newRoadmap(userID int64, target string, resp domain.ActionResponse, timeframe, hours int, currentSkills []string) (*domain.Roadmap, error) {
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding roadmap: %w", err)
	}
	if currentSkills == nil {
		currentSkills = []string{}
	}
	skills, err := json.Marshal(currentSkills)
	if err != nil {
		return nil, fmt.Errorf("encoding current skills: %w", err)
	}

	r := &domain.Roadmap{
		UserID:               userID,
		Title:                "Roadmap to " + target,
		TargetRole:           target,
		RoadmapData:          data,
		AIProvider:           resp.Provider,
		TimeframeMonths:      timeframe,
		LearningHoursPerWeek: hours,
		CurrentSkills:        skills,
	}
	if ps := resp.Field("project_suggestions"); ps != nil {
		if b, err := json.Marshal(ps); err == nil {
			r.ProjectSuggestions = b
		}
	}
	if timing, ok := resp.Field("job_application_timing").(string); ok && timing != "" {
		r.JobApplicationTiming = timing
	}
	return r, nil
}

type providerRequest struct {
	Provider string `json:"provider"`
}

// GenerateSummary handles POST /api/ai/generate-summary.
func (h *AIHandler) GenerateSummary(c *gin.Context) {
	var req providerRequest
	if err := bindJSON(c, &req, true); err != nil {
		respondError(c, h.logger, err)
		return
	}
	user := currentUser(c)

	profile := fmt.Sprintf("User Profile:\nSkills: %s\nProjects: %s\nTarget Roles: %s\nEducation: %s\nExperience Level: %s",
		strings.Join(user.Skills, ", "),
		strings.Join(user.Projects, ", "),
		strings.Join(user.TargetRoles, ", "),
		orNotSpecified(user.EducationLevel),
		orNotSpecified(user.ExperienceLevel),
	)
	input := "Generate a professional summary for a CV/LinkedIn profile based on the following information:\n\n" +
		profile +
		"\n\nCreate a compelling 2-3 sentence professional summary that highlights key strengths, experience, and career goals. Make it engaging and professional."

	resp, err := h.process(c, domain.ActionRequest{
		Action:   domain.ActionGenerateContent,
		Provider: domain.Provider(req.Provider),
		Input:    input,
		Parameters: map[string]any{
			"content_type": "professional_summary",
			"tone":         "professional",
			"length":       "short",
		},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  resp.Success,
		"summary":  resp.Data,
		"provider": resp.Provider,
	})
}

type improveProjectsRequest struct {
	Projects []string `json:"projects"`
	Provider string   `json:"provider"`
}

// ImproveProjects handles POST /api/ai/improve-projects.
func (h *AIHandler) ImproveProjects(c *gin.Context) {
	var req improveProjectsRequest
	if err := bindJSON(c, &req, true); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if req.Projects == nil {
		respondError(c, h.logger, &domain.ValidationError{Field: "projects", Message: "projects array is required"})
		return
	}
	user := currentUser(c)

	input := fmt.Sprintf("Improve these project descriptions for a professional CV. Make them more impactful using action verbs and quantifiable achievements where possible. User's skills: %s\n\nProjects:\n- %s\n\nReturn a JSON array of improved descriptions in the same order.",
		strings.Join(user.Skills, ", "),
		strings.Join(req.Projects, "\n- "),
	)

	resp, err := h.process(c, domain.ActionRequest{
		Action:   domain.ActionGenerateContent,
		Provider: domain.Provider(req.Provider),
		Input:    input,
		Parameters: map[string]any{
			"content_type": "project_descriptions",
			"format":       "bullet_points",
		},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           resp.Success,
		"improved_projects": resp.Data,
		"provider":          resp.Provider,
	})
}

type profileSuggestionsRequest struct {
	Platform string `json:"platform"`
	Provider string `json:"provider"`
}

// ProfileSuggestions handles POST /api/ai/profile-suggestions.
func (h *AIHandler) ProfileSuggestions(c *gin.Context) {
	var req profileSuggestionsRequest
	if err := bindJSON(c, &req, true); err != nil {
		respondError(c, h.logger, err)
		return
	}
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = DefaultPlatform
	}
	user := currentUser(c)

	input := fmt.Sprintf("Provide 5 specific, actionable suggestions to improve a %s profile for a job seeker with the following background:\n\nSkills: %s\nTarget Roles: %s\nExperience Level: %s\nEducation: %s\n\nReturn suggestions as a JSON array of objects with 'category' and 'suggestion' fields.",
		platform,
		strings.Join(user.Skills, ", "),
		strings.Join(user.TargetRoles, ", "),
		orNotSpecified(user.ExperienceLevel),
		orNotSpecified(user.EducationLevel),
	)

	resp, err := h.process(c, domain.ActionRequest{
		Action:   domain.ActionGenerateContent,
		Provider: domain.Provider(req.Provider),
		Input:    input,
		Parameters: map[string]any{
			"content_type": "profile_suggestions",
			"platform":     platform,
		},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     resp.Success,
		"suggestions": resp.Data,
		"platform":    platform,
		"provider":    resp.Provider,
	})
}

type askMentorRequest struct {
	Question string `json:"question"`
	Provider string `json:"provider"`
}

// AskMentor handles POST /api/ai/ask-mentor.
func (h *AIHandler) AskMentor(c *gin.Context) {
	var req askMentorRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondError(c, h.logger, &domain.ValidationError{Field: "question", Message: "question is required"})
		return
	}
	user := currentUser(c)

	mentorContext := fmt.Sprintf("User's current skills: %s\nTarget roles: %s\nExperience level: %s",
		strings.Join(user.Skills, ", "),
		strings.Join(user.TargetRoles, ", "),
		orNotSpecified(user.ExperienceLevel),
	)

	resp, err := h.process(c, domain.ActionRequest{
		Action:     domain.ActionAskQuestion,
		Provider:   domain.Provider(req.Provider),
		Input:      req.Question,
		Parameters: map[string]any{"context": mentorContext},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  resp.Success,
		"answer":   resp.Data,
		"provider": resp.Provider,
	})
}

// bindJSON decodes the request body into dst. With optional set, an empty
// body leaves dst at its zero value.
func bindJSON(c *gin.Context, dst any, optional bool) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return &domain.ValidationError{Field: "body", Message: "request body is required"}
	}
	return &domain.ValidationError{Field: "body", Message: "invalid JSON body: " + err.Error()}
}

// failureError turns a failure envelope into the error raised by endpoints
// that cannot return partial results.
func failureError(resp domain.ActionResponse) error {
	msg := "AI request failed"
	if resp.Message != nil {
		msg = *resp.Message
	}
	return &domain.ExternalServiceError{Provider: resp.Provider, Message: msg}
}

// namedList reads a JSON array whose items are strings or objects with a "name" field.
func namedList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case string:
			if it != "" {
				out = append(out, it)
			}
		case map[string]any:
			if name, ok := it["name"].(string); ok && name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func positiveOr(v *int, def int) int {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

func orNotSpecified(s *string) string {
	if s == nil || *s == "" {
		return "Not specified"
	}
	return *s
}
