package core

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is a single message in the conversation history. Turns are
// ordered, and the order is semantically meaningful; the adapter never
// mutates or reorders them.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Default generation parameters, applied when the caller leaves a field unset.
const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.5
)

// GenerationParams carries the generation knobs shared by every provider
// family. It is a value object, compared by value and never retained
// across calls.
type GenerationParams struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	// ImageURL optionally attaches an image to the last user turn.
	// Only Anthropic models consume it.
	ImageURL string `json:"image_url,omitempty"`
}

// DefaultParams returns the default generation parameters.
func DefaultParams() GenerationParams {
	return GenerationParams{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// Invocation is one uniform chat completion request before family dispatch.
type Invocation struct {
	ModelID string
	Turns   []ChatTurn
	Params  GenerationParams
	Stream  bool
}
