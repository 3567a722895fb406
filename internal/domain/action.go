package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ActionKind selects the prompt template and the expected response shape.
type ActionKind string

const (
	ActionExtractSkills   ActionKind = "extract_skills"
	ActionGenerateRoadmap ActionKind = "generate_roadmap"
	ActionAskQuestion     ActionKind = "ask_question"
	ActionGenerateContent ActionKind = "generate_content"
)

// DefaultContentType is used when generate_content gets no content_type parameter.
const DefaultContentType = "generic"

// Actions lists every supported action kind.
func Actions() []ActionKind {
	return []ActionKind{ActionExtractSkills, ActionGenerateRoadmap, ActionAskQuestion, ActionGenerateContent}
}

// IsValid reports whether k is a known action.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionExtractSkills, ActionGenerateRoadmap, ActionAskQuestion, ActionGenerateContent:
		return true
	default:
		return false
	}
}

// ActionRequest is a single AI action as received at the boundary.
type ActionRequest struct {
	// Action is the task to perform.
	Action ActionKind `json:"action"`

	// Provider selects the remote service. Empty means DefaultProvider.
	Provider Provider `json:"provider,omitempty"`

	// Input is the free-form user text (CV, tech stack, question, ...).
	Input string `json:"input"`

	// Parameters carries optional action-specific values.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Normalize fills in the default provider.
func (r ActionRequest) Normalize() ActionRequest {
	if r.Provider == "" {
		r.Provider = DefaultProvider
	}
	return r
}

// Validate rejects requests that must not reach a provider.
func (r ActionRequest) Validate() error {
	if !r.Action.IsValid() {
		return &ValidationError{Field: "action", Message: fmt.Sprintf("unknown action %q", r.Action)}
	}
	if r.Provider != "" && !r.Provider.IsValid() {
		return &ValidationError{Field: "provider", Message: fmt.Sprintf("unknown provider %q, must be one of: gemini, groq", r.Provider)}
	}
	if strings.TrimSpace(r.Input) == "" {
		return &ValidationError{Field: "input", Message: "input is required"}
	}
	return nil
}

// ActionResponse is the uniform success/failure envelope.
type ActionResponse struct {
	Success  bool     `json:"success"`
	Data     any      `json:"data"`
	Provider Provider `json:"provider"`
	Message  *string  `json:"message"`
}

// NewSuccessResponse wraps parsed provider output.
func NewSuccessResponse(provider Provider, data any) ActionResponse {
	return ActionResponse{Success: true, Data: data, Provider: provider}
}

// NewFailureResponse wraps an error message as {"error": msg}.
func NewFailureResponse(provider Provider, msg string) ActionResponse {
	return ActionResponse{
		Success:  false,
		Data:     map[string]any{"error": msg},
		Provider: provider,
		Message:  &msg,
	}
}

// Field returns a top-level field of an object-shaped Data, or nil.
func (r ActionResponse) Field(name string) any {
	obj, ok := r.Data.(map[string]any)
	if !ok {
		return nil
	}
	return obj[name]
}

// RoadmapOptions are the typed parameters of generate_roadmap.
type RoadmapOptions struct {
	CurrentSkills        *string
	TimeframeMonths      *int
	LearningHoursPerWeek *int
}

// QuestionOptions are the typed parameters of ask_question.
type QuestionOptions struct {
	Context *string
}

// ContentOptions are the typed parameters of generate_content.
type ContentOptions struct {
	ContentType string
	// Parameters is the raw parameter map, rendered into the prompt verbatim.
	Parameters map[string]any
}

// RoadmapOptionsFrom converts a loose parameter map. Values of the wrong type are ignored.
func RoadmapOptionsFrom(params map[string]any) RoadmapOptions {
	return RoadmapOptions{
		CurrentSkills:        stringParam(params, "current_skills"),
		TimeframeMonths:      uintParam(params, "timeframe_months"),
		LearningHoursPerWeek: uintParam(params, "learning_hours_per_week"),
	}
}

// QuestionOptionsFrom converts a loose parameter map.
func QuestionOptionsFrom(params map[string]any) QuestionOptions {
	return QuestionOptions{Context: stringParam(params, "context")}
}

// ContentOptionsFrom converts a loose parameter map.
func ContentOptionsFrom(params map[string]any) ContentOptions {
	opts := ContentOptions{ContentType: DefaultContentType, Parameters: params}
	if ct := stringParam(params, "content_type"); ct != nil {
		opts.ContentType = *ct
	}
	return opts
}

func stringParam(params map[string]any, key string) *string {
	s, ok := params[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// uintParam accepts non-negative whole JSON numbers.
func uintParam(params map[string]any, key string) *int {
	var f float64
	switch v := params[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}
