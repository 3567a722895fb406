// Package ui provides colorized console output for the CareerBridge API:
// request lines, status badges and startup information.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)

	// Special colors
	moneyGreen = color.New(color.FgHiGreen, color.Bold)
	neonBlue   = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST   = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET    = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
	methodPUT    = color.New(color.BgHiYellow, color.FgBlack, color.Bold)
	methodDELETE = color.New(color.BgHiRed, color.FgBlack, color.Bold)
)

// out is where every console line goes. Tests and the `user` CLI silence it.
var out io.Writer = os.Stdout

// SetOutput redirects console output. Passing nil restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS LINES
// ══════════════════════════════════════════════════════════════════════════════

// PrintInfo logs general server information.
// Format: [CAREERBRIDGE] message
func PrintInfo(msg string) {
	infoBadge.Fprint(out, "[CAREERBRIDGE]")
	fmt.Fprint(out, " ")
	infoText.Fprintln(out, msg)
}

// PrintBreakerState logs a circuit breaker transition for one provider.
// Format: ⚠️ [BREAKER] groq closed → open
func PrintBreakerState(provider, from, to string) {
	fmt.Fprint(out, "⚠️  ")
	if to == "open" {
		errorBadge.Fprint(out, " BREAKER ")
	} else {
		warningBadge.Fprint(out, "[BREAKER]")
	}
	fmt.Fprint(out, " ")
	accentText.Fprint(out, provider)
	mutedText.Fprintf(out, " %s", from)
	warningText.Fprint(out, " → ")
	accentText.Fprintln(out, to)
}

// PrintUsage logs the estimated token usage of one provider call.
// Format: 🪙 groq ~120 in / ~340 out tokens, est. $0.0003 (total $0.0120)
func PrintUsage(provider string, inputTokens, outputTokens int, cost, total string) {
	moneyGreen.Fprint(out, "🪙 ")
	accentText.Fprint(out, provider)
	fmt.Fprintf(out, " ~%d in / ~%d out tokens, est. ", inputTokens, outputTokens)
	moneyGreen.Fprint(out, cost)
	mutedText.Fprintf(out, " (total %s)\n", total)
}

// PrintCacheHit logs a cache hit with lightning styling.
// Format: ⚡ CACHE HIT | key:xxxx...xxxx | 0ms
func PrintCacheHit(cacheKey string, latency time.Duration) {
	neonBlue.Fprint(out, "⚡ CACHE HIT ")
	fmt.Fprint(out, "| key:")
	mutedText.Fprint(out, maskShort(cacheKey))
	fmt.Fprint(out, " | ")
	successText.Fprintf(out, "%dms\n", latency.Milliseconds())
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// PrintRequest logs a request with styled output.
// Color-codes status, method, and latency for quick visual parsing.
func PrintRequest(method, path string, status int, latency time.Duration, requestID string) {
	mutedText.Fprintf(out, "%s ", time.Now().Format("15:04:05"))

	printMethodBadge(method)
	fmt.Fprint(out, " ")

	fmt.Fprintf(out, "%-32s ", truncatePath(path, 32))

	printStatusBadge(status)
	fmt.Fprint(out, " ")

	printLatency(latency)
	fmt.Fprint(out, " ")

	if requestID != "" {
		mutedText.Fprintf(out, "id:%s", requestID)
	}

	fmt.Fprintln(out)
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Fprintf(out, " %s ", method)
	case "GET":
		methodGET.Fprintf(out, " %s ", method)
	case "PUT":
		methodPUT.Fprintf(out, " %s ", method)
	case "DELETE":
		methodDELETE.Fprintf(out, " %s ", method)
	default:
		debugBadge.Fprintf(out, " %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Fprintf(out, " %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Fprintf(out, " %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Fprintf(out, " %d ", status)
	default:
		errorBadge.Fprintf(out, " %d ", status)
	}
}

// printLatency prints latency with color gradient.
// AI calls take seconds, so the bands are wider than for a plain CRUD API.
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%5dms", ms)

	switch {
	case ms < 500:
		successText.Fprint(out, latencyStr)
	case ms < 5000:
		warningText.Fprint(out, latencyStr)
	default:
		errorText.Fprint(out, latencyStr)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// maskShort returns a short masked version of a key or hash.
// Format: xxxx...xxxx
func maskShort(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// truncatePath truncates a path to maxLen characters.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return path[:maxLen-3] + "..."
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// Endpoint is one row of the startup endpoint table.
type Endpoint struct {
	Method      string
	Path        string
	Description string
}

// Endpoints lists the routes served by the API, in display order.
var Endpoints = []Endpoint{
	{"POST", "/api/ai/action", "Generic AI action envelope"},
	{"POST", "/api/ai/extract-skills", "Extract skills from a CV"},
	{"POST", "/api/ai/roadmap", "Generate and save a roadmap"},
	{"POST", "/api/ai/generate-summary", "Professional summary"},
	{"POST", "/api/ai/improve-projects", "Improve project descriptions"},
	{"POST", "/api/ai/profile-suggestions", "Profile suggestions"},
	{"POST", "/api/ai/ask-mentor", "Ask the career mentor"},
	{"GET", "/api/ai/roadmaps", "List saved roadmaps"},
	{"GET", "/api/ai/roadmaps/:id", "Get one roadmap"},
	{"DELETE", "/api/ai/roadmaps/:id", "Delete a roadmap"},
	{"PUT", "/api/ai/roadmaps/:id/progress", "Update roadmap progress"},
	{"GET", "/health", "Health check"},
}

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(addr string, providers []string) {
	fmt.Fprintln(out)
	infoBadge.Fprint(out, "[CAREERBRIDGE]")
	fmt.Fprint(out, " Server starting on ")
	neonBlue.Fprintf(out, "http://%s\n", addr)

	infoBadge.Fprint(out, "[CAREERBRIDGE]")
	fmt.Fprint(out, " AI providers: ")
	if len(providers) > 0 {
		successText.Fprintln(out, strings.Join(providers, ", "))
	} else {
		errorText.Fprintln(out, "none configured (set GEMINI_API_KEY or GROQ_API_KEY)")
	}

	fmt.Fprintln(out)
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	mutedText.Fprintln(out, "  ┌────────────────────────────────────────────────────────────────────┐")
	for _, e := range Endpoints {
		mutedText.Fprint(out, "  │ ")
		printMethodBadge(e.Method)
		fmt.Fprint(out, strings.Repeat(" ", max(0, 6-len(e.Method))))
		fmt.Fprintf(out, " %-30s ", e.Path)
		mutedText.Fprintf(out, "%-28s", e.Description)
		mutedText.Fprintln(out, "│")
	}
	mutedText.Fprintln(out, "  └────────────────────────────────────────────────────────────────────┘")
	fmt.Fprintln(out)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Fprintln(out)
	warningBadge.Fprint(out, "[SHUTDOWN]")
	warningText.Fprintln(out, " Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Fprint(out, " OK ")
	fmt.Fprint(out, " ")
	successText.Fprintln(out, "Server stopped. Goodbye! 👋")
}
