package format

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

var sampleTurns = []core.ChatTurn{
	{Role: core.RoleUser, Content: "hi"},
	{Role: core.RoleAssistant, Content: "hello"},
	{Role: core.RoleUser, Content: "there"},
}

func TestFormatAmazon(t *testing.T) {
	f := New(zap.NewNop())

	payload, err := f.Format(context.Background(), family.Amazon, sampleTurns, core.DefaultParams())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if got := gjson.GetBytes(payload, "inputText").String(); got != "hi there " {
		t.Errorf("Expected prompt 'hi there ', got %q", got)
	}
	if got := gjson.GetBytes(payload, "textGenerationConfig.maxTokenCount").Int(); got != 2048 {
		t.Errorf("Expected maxTokenCount 2048, got %d", got)
	}
	if got := gjson.GetBytes(payload, "textGenerationConfig.temperature").Float(); got != 0.5 {
		t.Errorf("Expected temperature 0.5, got %v", got)
	}
	stops := gjson.GetBytes(payload, "textGenerationConfig.stopSequences")
	if !stops.IsArray() || len(stops.Array()) != 0 {
		t.Errorf("Expected empty stopSequences array, got %s", stops.Raw)
	}
}

func TestFormatMistral(t *testing.T) {
	f := New(zap.NewNop())

	payload, err := f.Format(context.Background(), family.Mistral, []core.ChatTurn{{Role: core.RoleUser, Content: "hi"}}, core.DefaultParams())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got := gjson.GetBytes(payload, "prompt").String(); got != "[INST] hi [/INST]" {
		t.Errorf("Expected prompt '[INST] hi [/INST]', got %q", got)
	}

	payload, err = f.Format(context.Background(), family.Mistral, sampleTurns, core.DefaultParams())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got := gjson.GetBytes(payload, "prompt").String(); got != "[INST] hi [/INST]hello[INST] there [/INST]" {
		t.Errorf("Unexpected mistral prompt %q", got)
	}
	if got := gjson.GetBytes(payload, "max_tokens").Int(); got != 2048 {
		t.Errorf("Expected max_tokens 2048, got %d", got)
	}
}

func TestFormatRolePromptFamilies(t *testing.T) {
	cases := []struct {
		fam       family.Family
		tokensKey string
	}{
		{family.AI21, "maxTokens"},
		{family.Cohere, "max_tokens"},
		{family.Meta, "max_gen_len"},
	}

	f := New(zap.NewNop())
	wantPrompt := "user: hi\nassistant: hello\nuser: there\n"

	for _, tc := range cases {
		t.Run(tc.fam.String(), func(t *testing.T) {
			payload, err := f.Format(context.Background(), tc.fam, sampleTurns, core.DefaultParams())
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			if got := gjson.GetBytes(payload, "prompt").String(); got != wantPrompt {
				t.Errorf("Expected prompt %q, got %q", wantPrompt, got)
			}
			if got := gjson.GetBytes(payload, tc.tokensKey).Int(); got != 2048 {
				t.Errorf("Expected %s 2048, got %d", tc.tokensKey, got)
			}
			if got := gjson.GetBytes(payload, "temperature").Float(); got != 0.5 {
				t.Errorf("Expected temperature 0.5, got %v", got)
			}
		})
	}
}

func TestFormatAnthropic(t *testing.T) {
	f := New(zap.NewNop())

	payload, err := f.Format(context.Background(), family.Anthropic, sampleTurns, core.DefaultParams())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if got := gjson.GetBytes(payload, "anthropic_version").String(); got != "bedrock-2023-05-31" {
		t.Errorf("Expected anthropic_version 'bedrock-2023-05-31', got %q", got)
	}
	if got := gjson.GetBytes(payload, "max_tokens").Int(); got != 2048 {
		t.Errorf("Expected max_tokens 2048, got %d", got)
	}

	messages := gjson.GetBytes(payload, "messages").Array()
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	if got := messages[0].Get("content.0.text").String(); got != "hi" {
		t.Errorf("Expected first user block text 'hi', got %q", got)
	}
	if got := messages[0].Get("content.0.type").String(); got != "text" {
		t.Errorf("Expected first user block type 'text', got %q", got)
	}
	// Assistant turns carry plain string content
	if messages[1].Get("content").Type != gjson.String {
		t.Errorf("Expected assistant content to be a string, got %s", messages[1].Get("content").Raw)
	}
	if got := messages[1].Get("content").String(); got != "hello" {
		t.Errorf("Expected assistant content 'hello', got %q", got)
	}
}

func TestFormatAnthropicImage(t *testing.T) {
	imageBytes := []byte("fake-jpeg-bytes")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(imageBytes)
	}))
	defer ts.Close()

	f := NewWithClient(zap.NewNop(), ts.Client())
	params := core.DefaultParams()
	params.ImageURL = ts.URL + "/cat.jpg"

	payload, err := f.Format(context.Background(), family.Anthropic, sampleTurns, params)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	// The image block is prepended to the last user turn only
	last := gjson.GetBytes(payload, "messages.2.content").Array()
	if len(last) != 2 {
		t.Fatalf("Expected image + text blocks on the last turn, got %d blocks", len(last))
	}
	if got := last[0].Get("type").String(); got != "image" {
		t.Errorf("Expected first block type 'image', got %q", got)
	}
	if got := last[0].Get("source.media_type").String(); got != "image/jpeg" {
		t.Errorf("Expected media_type 'image/jpeg', got %q", got)
	}
	if got := last[0].Get("source.data").String(); got != base64.StdEncoding.EncodeToString(imageBytes) {
		t.Errorf("Image data not base64-encoded as expected, got %q", got)
	}
	if got := last[1].Get("text").String(); got != "there" {
		t.Errorf("Expected text block after the image, got %q", got)
	}

	// Earlier user turns stay text-only
	first := gjson.GetBytes(payload, "messages.0.content").Array()
	if len(first) != 1 || first[0].Get("type").String() != "text" {
		t.Errorf("Expected a single text block on the first turn, got %s", gjson.GetBytes(payload, "messages.0.content").Raw)
	}
}

func TestFormatAnthropicImageFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewWithClient(zap.NewNop(), ts.Client())
	params := core.DefaultParams()
	params.ImageURL = ts.URL + "/missing.jpg"

	payload, err := f.Format(context.Background(), family.Anthropic, sampleTurns, params)
	if err != nil {
		t.Fatalf("Image fetch failure must not abort formatting: %v", err)
	}

	last := gjson.GetBytes(payload, "messages.2.content").Array()
	if len(last) != 1 || last[0].Get("type").String() != "text" {
		t.Errorf("Expected text-only content after fetch failure, got %s", gjson.GetBytes(payload, "messages.2.content").Raw)
	}
}

func TestFormatAnthropicImageSkippedWhenLastTurnAssistant(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	f := NewWithClient(zap.NewNop(), ts.Client())
	params := core.DefaultParams()
	params.ImageURL = ts.URL

	turns := []core.ChatTurn{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello"},
	}
	if _, err := f.Format(context.Background(), family.Anthropic, turns, params); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if called {
		t.Error("Image must not be fetched when the last turn is not from the user")
	}
}

func TestFormatEmptyTurns(t *testing.T) {
	f := New(zap.NewNop())
	families := []family.Family{
		family.Amazon, family.Anthropic, family.AI21,
		family.Cohere, family.Meta, family.Mistral,
	}

	for _, fam := range families {
		payload, err := f.Format(context.Background(), fam, nil, core.DefaultParams())
		if err != nil {
			t.Errorf("Format(%s) with empty turns failed: %v", fam, err)
			continue
		}
		if !gjson.ValidBytes(payload) {
			t.Errorf("Format(%s) with empty turns produced invalid JSON: %s", fam, payload)
		}
	}

	payload, _ := f.Format(context.Background(), family.Amazon, nil, core.DefaultParams())
	if got := gjson.GetBytes(payload, "inputText").String(); got != "" {
		t.Errorf("Expected empty prompt for empty turns, got %q", got)
	}
}

func TestFormatUnknown(t *testing.T) {
	f := New(zap.NewNop())
	payload, err := f.Format(context.Background(), family.Unknown, sampleTurns, core.DefaultParams())
	if err != nil {
		t.Fatalf("Unknown family must not error, got: %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("Expected empty payload for unknown family, got %s", payload)
	}
}

func TestFormatDeterministic(t *testing.T) {
	f := New(zap.NewNop())
	families := []family.Family{
		family.Amazon, family.Anthropic, family.AI21,
		family.Cohere, family.Meta, family.Mistral,
	}

	for _, fam := range families {
		first, err := f.Format(context.Background(), fam, sampleTurns, core.DefaultParams())
		if err != nil {
			t.Fatalf("Format(%s) failed: %v", fam, err)
		}
		second, err := f.Format(context.Background(), fam, sampleTurns, core.DefaultParams())
		if err != nil {
			t.Fatalf("Format(%s) failed: %v", fam, err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("Format(%s) is not deterministic:\n%s\n%s", fam, first, second)
		}
	}
}
