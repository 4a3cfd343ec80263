// Package format serializes a uniform chat request into the wire payload of
// a classified provider family. Each family has its own payload schema and
// prompt construction rules; all of them produce a single JSON document.
package format

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

// anthropicVersion is the fixed schema tag Bedrock expects on Anthropic
// payloads.
const anthropicVersion = "bedrock-2023-05-31"

// Formatter builds provider-specific request payloads. It holds no state
// across calls; the HTTP client exists only for the optional image fetch on
// Anthropic multimodal turns.
type Formatter struct {
	client *http.Client
	log    *zap.Logger
}

// New creates a Formatter with a default HTTP client for image retrieval.
func New(log *zap.Logger) *Formatter {
	return NewWithClient(log, &http.Client{Timeout: 60 * time.Second})
}

// NewWithClient creates a Formatter with a caller-supplied HTTP client.
func NewWithClient(log *zap.Logger, client *http.Client) *Formatter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Formatter{client: client, log: log}
}

// Format serializes turns and params into fam's wire payload. The result is
// a fresh UTF-8 JSON document; formatting the same inputs twice yields
// byte-identical payloads. An unknown family produces an empty payload and
// no error. An empty turn list is valid for every family and produces an
// empty prompt, not an error.
func (f *Formatter) Format(ctx context.Context, fam family.Family, turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	switch fam {
	case family.Amazon:
		return f.formatAmazon(turns, params)
	case family.Anthropic:
		return f.formatAnthropic(ctx, turns, params)
	case family.AI21:
		return f.formatAI21(turns, params)
	case family.Cohere:
		return f.formatCohere(turns, params)
	case family.Meta:
		return f.formatMeta(turns, params)
	case family.Mistral:
		return f.formatMistral(turns, params)
	default:
		return nil, nil
	}
}

type amazonTextGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	StopSequences []string `json:"stopSequences"`
	Temperature   float64  `json:"temperature"`
}

type amazonPayload struct {
	InputText            string                     `json:"inputText"`
	TextGenerationConfig amazonTextGenerationConfig `json:"textGenerationConfig"`
}

// formatAmazon keeps user turns only, concatenating each content followed by
// a single space.
func (f *Formatter) formatAmazon(turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	var prompt strings.Builder
	for _, turn := range turns {
		if turn.Role == core.RoleUser {
			prompt.WriteString(turn.Content)
			prompt.WriteString(" ")
		}
	}
	return sonic.Marshal(amazonPayload{
		InputText: prompt.String(),
		TextGenerationConfig: amazonTextGenerationConfig{
			MaxTokenCount: params.MaxTokens,
			StopSequences: []string{},
			Temperature:   params.Temperature,
		},
	})
}

type anthropicContentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicContentBlock struct {
	Type   string                  `json:"type"`
	Text   string                  `json:"text,omitempty"`
	Source *anthropicContentSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role core.Role `json:"role"`
	// Content is a block list for user turns and a plain string for
	// assistant turns.
	Content any `json:"content"`
}

type anthropicPayload struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      float64            `json:"temperature"`
}

// formatAnthropic keeps user and assistant turns in order. User turns carry
// a structured content block list; when the last turn is from the user and
// an image URL is set, the fetched image is prepended to that turn's blocks
// before the text block. An image fetch failure is logged and the turn
// proceeds text-only.
func (f *Formatter) formatAnthropic(ctx context.Context, turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	var imageBlock *anthropicContentBlock
	if len(turns) > 0 && turns[len(turns)-1].Role == core.RoleUser && params.ImageURL != "" {
		data, err := f.fetchImage(ctx, params.ImageURL)
		if err != nil {
			f.log.Warn("could not download image, continuing text-only",
				zap.String("image_url", params.ImageURL),
				zap.Error(err),
			)
		} else {
			imageBlock = &anthropicContentBlock{
				Type: "image",
				Source: &anthropicContentSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      data,
				},
			}
		}
	}

	messages := make([]anthropicMessage, 0, len(turns))
	for i, turn := range turns {
		switch turn.Role {
		case core.RoleUser:
			content := []anthropicContentBlock{}
			if imageBlock != nil && i == len(turns)-1 {
				content = append(content, *imageBlock)
			}
			content = append(content, anthropicContentBlock{Type: "text", Text: turn.Content})
			messages = append(messages, anthropicMessage{Role: core.RoleUser, Content: content})
		case core.RoleAssistant:
			messages = append(messages, anthropicMessage{Role: core.RoleAssistant, Content: turn.Content})
		}
	}

	return sonic.Marshal(anthropicPayload{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        params.MaxTokens,
		Messages:         messages,
		Temperature:      params.Temperature,
	})
}

type ai21Payload struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

func (f *Formatter) formatAI21(turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	return sonic.Marshal(ai21Payload{
		Prompt:      rolePrompt(turns),
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
}

type coherePayload struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func (f *Formatter) formatCohere(turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	return sonic.Marshal(coherePayload{
		Prompt:      rolePrompt(turns),
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
}

type metaPayload struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxGenLen   int     `json:"max_gen_len"`
}

func (f *Formatter) formatMeta(turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	return sonic.Marshal(metaPayload{
		Prompt:      rolePrompt(turns),
		Temperature: params.Temperature,
		MaxGenLen:   params.MaxTokens,
	})
}

type mistralPayload struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// formatMistral wraps user turns in [INST] tags and appends assistant turns
// verbatim, all concatenated in order.
func (f *Formatter) formatMistral(turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	var prompt strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case core.RoleUser:
			prompt.WriteString("[INST] ")
			prompt.WriteString(turn.Content)
			prompt.WriteString(" [/INST]")
		case core.RoleAssistant:
			prompt.WriteString(turn.Content)
		}
	}
	return sonic.Marshal(mistralPayload{
		Prompt:      prompt.String(),
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
}

// rolePrompt renders every turn as "{role}: {content}\n" in order, the
// shared prompt shape of the AI21, Cohere and Meta schemas.
func rolePrompt(turns []core.ChatTurn) string {
	var prompt strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&prompt, "%s: %s\n", turn.Role, turn.Content)
	}
	return prompt.String()
}
