package adapter

// OpenAI-compatible chat completion types, as spoken by Groq.

// ChatCompletionRequest represents a chat completion request.
type ChatCompletionRequest struct {
	// Model specifies which model to use.
	Model string `json:"model"`

	// Messages contains the conversation, a single user message here.
	Messages []ChatMessage `json:"messages"`

	// Temperature controls randomness (0.0-2.0).
	Temperature float64 `json:"temperature"`

	// ResponseFormat constrains the output format. Optional.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	// Role is one of: "system", "user", "assistant".
	Role string `json:"role"`

	// Content is the message text content.
	Content string `json:"content"`
}

// ResponseFormat selects the output format, e.g. {"type":"json_object"}.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatCompletionResponse represents a chat completion response.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

// ChatChoice represents a single completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage contains token usage statistics.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
