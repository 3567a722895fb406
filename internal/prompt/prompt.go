// Package prompt renders the natural-language prompts sent to the LLM providers.
// Templates are embedded at build time and parsed once at package init.
package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").ParseFS(templateFS, "templates/*.tmpl"))

var templateNames = map[domain.ActionKind]string{
	domain.ActionExtractSkills:   "extract_skills.tmpl",
	domain.ActionGenerateRoadmap: "generate_roadmap.tmpl",
	domain.ActionAskQuestion:     "ask_question.tmpl",
	domain.ActionGenerateContent: "generate_content.tmpl",
}

// Build renders the prompt for kind from the raw request parameters. It is
// the untyped entry point over ExtractSkills, Roadmap, Question and Content,
// which callers holding typed options use directly. Identical arguments
// always produce identical text.
func Build(kind domain.ActionKind, input string, params map[string]any) (string, error) {
	switch kind {
	case domain.ActionExtractSkills:
		return ExtractSkills(input)
	case domain.ActionGenerateRoadmap:
		return Roadmap(input, domain.RoadmapOptionsFrom(params))
	case domain.ActionAskQuestion:
		return Question(input, domain.QuestionOptionsFrom(params))
	case domain.ActionGenerateContent:
		return Content(input, domain.ContentOptionsFrom(params))
	default:
		return "", fmt.Errorf("no prompt template for action %q", kind)
	}
}

// ExtractSkills renders the CV analysis prompt.
func ExtractSkills(cvText string) (string, error) {
	return render(domain.ActionExtractSkills, struct{ Input string }{cvText})
}

// Roadmap renders the learning roadmap prompt.
func Roadmap(techStack string, opts domain.RoadmapOptions) (string, error) {
	data := struct {
		Input                string
		CurrentSkills        string
		TimeframeMonths      int
		LearningHoursPerWeek int
	}{Input: techStack}
	if opts.CurrentSkills != nil {
		data.CurrentSkills = *opts.CurrentSkills
	}
	if opts.TimeframeMonths != nil {
		data.TimeframeMonths = *opts.TimeframeMonths
	}
	if opts.LearningHoursPerWeek != nil {
		data.LearningHoursPerWeek = *opts.LearningHoursPerWeek
	}
	return render(domain.ActionGenerateRoadmap, data)
}

// Question renders the career Q&A prompt.
func Question(question string, opts domain.QuestionOptions) (string, error) {
	data := struct {
		Input   string
		Context string
	}{Input: question}
	if opts.Context != nil {
		data.Context = *opts.Context
	}
	return render(domain.ActionAskQuestion, data)
}

// Content renders the content generation prompt. Parameters are embedded as
// indented JSON; map keys are sorted by encoding/json.
func Content(input string, opts domain.ContentOptions) (string, error) {
	params := ""
	if opts.Parameters != nil {
		raw, err := json.MarshalIndent(opts.Parameters, "", "  ")
		if err == nil {
			params = string(raw)
		}
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}
	data := struct {
		Input       string
		ContentType string
		Parameters  string
	}{Input: input, ContentType: contentType, Parameters: params}
	return render(domain.ActionGenerateContent, data)
}

func render(kind domain.ActionKind, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, templateNames[kind], data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", kind, err)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
