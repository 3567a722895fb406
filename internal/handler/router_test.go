package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerbridge/careerbridge-api/internal/domain"
	"github.com/careerbridge/careerbridge-api/internal/security"
	"github.com/careerbridge/careerbridge-api/internal/store"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

// fakeAI records every request and answers with respond.
type fakeAI struct {
	mu      sync.Mutex
	calls   []domain.ActionRequest
	respond func(req domain.ActionRequest) (domain.ActionResponse, error)
}

func (f *fakeAI) ProcessAction(_ context.Context, req domain.ActionRequest) (domain.ActionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(req)
	}
	return domain.NewSuccessResponse(req.Normalize().Provider, map[string]any{"answer": "ok"}), nil
}

func (f *fakeAI) EnabledProviders() []domain.Provider {
	return []domain.Provider{domain.ProviderGemini}
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAI) lastCall() domain.ActionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type testEnv struct {
	router *gin.Engine
	store  *store.SQLiteStore
	ai     *fakeAI
	user   *domain.User
	token  string
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(nil) })

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	token, err := security.GenerateToken()
	require.NoError(t, err)
	user, err := s.CreateUser(context.Background(), "grace@example.com", "Grace", security.HashToken(token))
	require.NoError(t, err)

	ai := &fakeAI{}
	cache := NewResponseCache(WithCacheLogger(discard()))
	t.Cleanup(cache.Close)

	deps := Dependencies{
		AI:             ai,
		Store:          s,
		Cache:          cache,
		Usage:          NewUsageEstimator(nil),
		AllowedOrigins: []string{"*"},
		Logger:         discard(),
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &testEnv{router: NewRouter(deps), store: s, ai: ai, user: user, token: token}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return e.doWithToken(t, method, path, body, e.token)
}

func (e *testEnv) doWithToken(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func errorKind(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error object in %v", body)
	return errObj["kind"].(string), errObj["message"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.doWithToken(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, []any{"gemini"}, body["providers"])
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "client-supplied-id")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied-id", rec.Header().Get(HeaderRequestID))
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	for name, token := range map[string]string{"missing": "", "unknown": "cb_not-a-real-token"} {
		t.Run(name, func(t *testing.T) {
			rec, body := env.doWithToken(t, http.MethodGet, "/api/ai/roadmaps", "", token)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			kind, _ := errorKind(t, body)
			assert.Equal(t, KindUnauthorized, kind)
			assert.Equal(t, false, body["success"])
		})
	}
	assert.Zero(t, env.ai.callCount())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/ai/action", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestActionReturnsEnvelopeAndCachesSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	payload := `{"action":"ask_question","input":"How do I learn Go?"}`

	rec, body := env.do(t, http.MethodPost, "/api/ai/action", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "gemini", body["provider"])
	assert.Nil(t, body["message"])

	rec2, body2 := env.do(t, http.MethodPost, "/api/ai/action", payload)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, body, body2)
	assert.Equal(t, 1, env.ai.callCount(), "second identical request should be served from cache")
}

func TestActionFailureEnvelopeIsNotCached(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.respond = func(req domain.ActionRequest) (domain.ActionResponse, error) {
		return domain.NewFailureResponse(domain.ProviderGroq, "Groq API error: 500 boom"), nil
	}
	payload := `{"action":"ask_question","provider":"groq","input":"hi"}`

	for i := 0; i < 2; i++ {
		rec, body := env.do(t, http.MethodPost, "/api/ai/action", payload)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Groq API error: 500 boom", body["message"])
	}
	assert.Equal(t, 2, env.ai.callCount())
}

func TestActionErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", &domain.ValidationError{Field: "action", Message: `unknown action "dance"`}, http.StatusBadRequest, KindValidation},
		{"configuration", &domain.ConfigurationError{Message: "Groq API key not configured"}, http.StatusServiceUnavailable, KindConfiguration},
		{"external", &domain.ExternalServiceError{Message: "Gemini API unavailable: circuit open"}, http.StatusBadGateway, KindExternalService},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.ai.respond = func(domain.ActionRequest) (domain.ActionResponse, error) {
				return domain.ActionResponse{}, tt.err
			}

			rec, body := env.do(t, http.MethodPost, "/api/ai/action", `{"action":"ask_question","input":"x"}`)
			require.Equal(t, tt.status, rec.Code)
			kind, msg := errorKind(t, body)
			assert.Equal(t, tt.kind, kind)
			if tt.kind == KindInternal {
				assert.Equal(t, "Internal server error", msg)
			}
		})
	}
}

func TestActionRejectsMalformedJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/ai/action", `{"action":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := errorKind(t, body)
	assert.Equal(t, KindValidation, kind)
	assert.Zero(t, env.ai.callCount())
}

func TestExtractSkillsUpdatesProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.respond = func(req domain.ActionRequest) (domain.ActionResponse, error) {
		return domain.NewSuccessResponse(domain.ProviderGemini, map[string]any{
			"technical_skills": []any{map[string]any{"name": "Go"}, "SQL"},
			"roles":            []any{"Backend Engineer"},
		}), nil
	}

	rec, body := env.do(t, http.MethodPost, "/api/ai/extract-skills",
		`{"cv_text":"Go developer, SQL expert","update_profile":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["profile_updated"])
	assert.Equal(t, "Skills extracted successfully", body["message"])
	assert.Equal(t, domain.ActionExtractSkills, env.ai.lastCall().Action)

	// A second run must not duplicate anything.
	rec, _ = env.do(t, http.MethodPost, "/api/ai/extract-skills",
		`{"cv_text":"Go developer, SQL expert","update_profile":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := env.store.GetUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, user.Skills)
	assert.Equal(t, []string{"Backend Engineer"}, user.TargetRoles)
	require.NotNil(t, user.RawCVText)
	assert.Equal(t, "Go developer, SQL expert", *user.RawCVText)
}

func TestExtractSkillsWithoutUpdateLeavesProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ai.respond = func(req domain.ActionRequest) (domain.ActionResponse, error) {
		return domain.NewSuccessResponse(domain.ProviderGemini, map[string]any{
			"technical_skills": []any{"Go"},
		}), nil
	}

	rec, body := env.do(t, http.MethodPost, "/api/ai/extract-skills", `{"cv_text":"Go"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["profile_updated"])

	user, err := env.store.GetUser(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, user.Skills)
}

func TestExtractSkillsValidationAndFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/ai/extract-skills", `{"cv_text":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := errorKind(t, body)
	assert.Equal(t, "cv_text is required", msg)
	assert.Zero(t, env.ai.callCount())

	env.ai.respond = func(req domain.ActionRequest) (domain.ActionResponse, error) {
		return domain.NewFailureResponse(domain.ProviderGemini, "Failed to parse AI response: invalid character"), nil
	}
	rec, body = env.do(t, http.MethodPost, "/api/ai/extract-skills", `{"cv_text":"Go"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	kind, msg := errorKind(t, body)
	assert.Equal(t, KindExternalService, kind)
	assert.Equal(t, "Failed to parse AI response: invalid character", msg)
}

func TestRoadmapLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.UpdateProfileFromCV(context.Background(), env.user.ID, []string{"Go", "SQL"}, nil, "cv"))

	env.ai.respond = func(req domain.ActionRequest) (domain.ActionResponse, error) {
		return domain.NewSuccessResponse(domain.ProviderGroq, map[string]any{
			"stack_name":          "Backend",
			"phases":              []any{map[string]any{"phase": float64(1), "title": "Basics"}},
			"project_suggestions": []any{map[string]any{"title": "URL shortener"}},
		}), nil
	}

	rec, body := env.do(t, http.MethodPost, "/api/ai/roadmap", `{"target_role":"Backend Engineer","provider":"groq"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Roadmap generated and saved successfully", body["message"])
	assert.Equal(t, "groq", body["provider"])
	meta := body["metadata"].(map[string]any)
	assert.Equal(t, float64(DefaultTimeframeMonths), meta["timeframe_months"])
	assert.Equal(t, float64(DefaultLearningHoursPerWeek), meta["learning_hours_per_week"])
	assert.Equal(t, domain.DefaultJobApplicationTiming, meta["job_application_timing"])

	call := env.ai.lastCall()
	assert.Equal(t, domain.ActionGenerateRoadmap, call.Action)
	assert.Equal(t, "Backend Engineer", call.Input)
	assert.Equal(t, "Go, SQL", call.Parameters["current_skills"])
	assert.Equal(t, DefaultTimeframeMonths, call.Parameters["timeframe_months"])

	id := int64(body["roadmap_id"].(float64))
	saved, err := env.store.GetRoadmap(context.Background(), env.user.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap to Backend Engineer", saved.Title)
	assert.JSONEq(t, `["Go","SQL"]`, string(saved.CurrentSkills))
	assert.JSONEq(t, `[{"title":"URL shortener"}]`, string(saved.ProjectSuggestions))

	path := "/api/ai/roadmaps/" + jsonNumber(id)

	rec, body = env.do(t, http.MethodGet, "/api/ai/roadmaps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = env.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	roadmap := body["roadmap"].(map[string]any)
	assert.Equal(t, "Backend Engineer", roadmap["target_role"])

	rec, body = env.do(t, http.MethodPut, path+"/progress", `{"progress_percentage":150}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := errorKind(t, body)
	assert.Equal(t, "Progress percentage must be between 0 and 100", msg)

	rec, body = env.do(t, http.MethodPut, path+"/progress", `{"progress_percentage":40,"completed_phases":[1],"notes":"halfway"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Roadmap progress updated successfully", body["message"])
	updated := body["roadmap"].(map[string]any)
	assert.Equal(t, float64(40), updated["progress_percentage"])
	assert.Equal(t, []any{float64(1)}, updated["completed_phases"])

	rec, body = env.do(t, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Roadmap deleted successfully", body["message"])

	rec, body = env.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	kind, _ := errorKind(t, body)
	assert.Equal(t, KindNotFound, kind)
}

func TestRoadmapOptions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodPost, "/api/ai/roadmap", `{"timeframe_months":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := errorKind(t, body)
	assert.Equal(t, "target_role is required", msg)

	rec, _ = env.do(t, http.MethodPost, "/api/ai/roadmap",
		`{"tech_stack":"Kubernetes","timeframe_months":3,"learning_hours_per_week":5,"include_current_skills":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	call := env.ai.lastCall()
	assert.Equal(t, "Kubernetes", call.Input)
	assert.Equal(t, 3, call.Parameters["timeframe_months"])
	assert.Equal(t, 5, call.Parameters["learning_hours_per_week"])
	assert.NotContains(t, call.Parameters, "current_skills")
}

func TestRoadmapInvalidID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodGet, "/api/ai/roadmaps/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := errorKind(t, body)
	assert.Equal(t, KindValidation, kind)
}

func TestContentEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.UpdateProfileFromCV(context.Background(), env.user.ID, []string{"Go"}, []string{"SRE"}, "cv"))

	t.Run("generate summary", func(t *testing.T) {
		rec, body := env.do(t, http.MethodPost, "/api/ai/generate-summary", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, body, "summary")

		call := env.ai.lastCall()
		assert.Equal(t, domain.ActionGenerateContent, call.Action)
		assert.Equal(t, "professional_summary", call.Parameters["content_type"])
		assert.Contains(t, call.Input, "Skills: Go")
		assert.Contains(t, call.Input, "Education: Not specified")
	})

	t.Run("improve projects", func(t *testing.T) {
		rec, body := env.do(t, http.MethodPost, "/api/ai/improve-projects", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		_, msg := errorKind(t, body)
		assert.Equal(t, "projects array is required", msg)

		rec, body = env.do(t, http.MethodPost, "/api/ai/improve-projects", `{"projects":["Built a CLI","Wrote a blog"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, body, "improved_projects")
		assert.Contains(t, env.ai.lastCall().Input, "Projects:\n- Built a CLI\n- Wrote a blog")
		assert.Equal(t, "project_descriptions", env.ai.lastCall().Parameters["content_type"])
	})

	t.Run("profile suggestions", func(t *testing.T) {
		rec, body := env.do(t, http.MethodPost, "/api/ai/profile-suggestions", `{}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, DefaultPlatform, body["platform"])
		assert.Equal(t, DefaultPlatform, env.ai.lastCall().Parameters["platform"])

		rec, body = env.do(t, http.MethodPost, "/api/ai/profile-suggestions", `{"platform":"github"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "github", body["platform"])
	})

	t.Run("ask mentor", func(t *testing.T) {
		rec, body := env.do(t, http.MethodPost, "/api/ai/ask-mentor", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		_, msg := errorKind(t, body)
		assert.Equal(t, "question is required", msg)

		rec, body = env.do(t, http.MethodPost, "/api/ai/ask-mentor", `{"question":"Should I learn Rust?","provider":"groq"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, body, "answer")

		call := env.ai.lastCall()
		assert.Equal(t, domain.ActionAskQuestion, call.Action)
		assert.Equal(t, domain.ProviderGroq, call.Provider)
		assert.Equal(t, "User's current skills: Go\nTarget roles: SRE\nExperience level: Not specified", call.Parameters["context"])
	})
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(60, 1)
	t.Cleanup(limiter.Close)
	env := newTestEnv(t, func(d *Dependencies) { d.RateLimiter = limiter })

	rec, _ := env.do(t, http.MethodPost, "/api/ai/ask-mentor", `{"question":"one"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/ai/ask-mentor", `{"question":"two"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	kind, _ := errorKind(t, body)
	assert.Equal(t, KindRateLimited, kind)
	assert.Equal(t, 1, env.ai.callCount())

	// Listing roadmaps does not consume the generation budget.
	rec, _ = env.do(t, http.MethodGet, "/api/ai/roadmaps", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUsageIsRecorded(t *testing.T) {
	usage := NewUsageEstimator(nil)
	env := newTestEnv(t, func(d *Dependencies) { d.Usage = usage })

	rec, _ := env.do(t, http.MethodPost, "/api/ai/ask-mentor", `{"question":"How do I write better Go?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := usage.Snapshot()
	require.Contains(t, snap, domain.ProviderGemini)
	assert.Equal(t, int64(1), snap[domain.ProviderGemini].Requests)
	assert.Positive(t, snap[domain.ProviderGemini].InputTokens)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
