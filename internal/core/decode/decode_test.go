package decode

import (
	"testing"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		fam  family.Family
		doc  string
		want string
	}{
		{family.Amazon, `{"results":[{"outputText":"titan says hi"}]}`, "titan says hi"},
		{family.Anthropic, `{"content":[{"text":"ok"}]}`, "ok"},
		{family.AI21, `{"completions":[{"data":{"text":"jurassic"}}]}`, "jurassic"},
		{family.Cohere, `{"generations":[{"text":"command"}]}`, "command"},
		{family.Meta, `{"generation":"llama"}`, "llama"},
		{family.Mistral, `{"outputs":[{"text":"mixtral"}]}`, "mixtral"},
	}

	for _, tc := range cases {
		t.Run(tc.fam.String(), func(t *testing.T) {
			got, err := Extract(tc.fam, []byte(tc.doc))
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestExtractMissingField(t *testing.T) {
	cases := []struct {
		fam family.Family
		doc string
	}{
		{family.Anthropic, `{"content":[]}`},
		{family.Amazon, `{"results":[{}]}`},
		{family.Meta, `{}`},
		{family.Mistral, `{"outputs":[]}`},
	}

	for _, tc := range cases {
		t.Run(tc.fam.String(), func(t *testing.T) {
			got, err := Extract(tc.fam, []byte(tc.doc))
			if err == nil {
				t.Fatalf("Expected DecodeError, got %q", got)
			}
			if !core.IsDecodeError(err) {
				t.Errorf("Expected a *core.DecodeError, got %T: %v", err, err)
			}
		})
	}
}

func TestExtractWrongFieldType(t *testing.T) {
	_, err := Extract(family.Amazon, []byte(`{"results":[{"outputText":42}]}`))
	if !core.IsDecodeError(err) {
		t.Errorf("Expected DecodeError for non-string field, got %v", err)
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	_, err := Extract(family.Cohere, []byte(`{"generations":`))
	if !core.IsDecodeError(err) {
		t.Errorf("Expected DecodeError for invalid JSON, got %v", err)
	}
}

func TestExtractUnknownFamily(t *testing.T) {
	got, err := Extract(family.Unknown, []byte(`{"anything":"here"}`))
	if err != nil {
		t.Fatalf("Unknown family must not error, got %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty string for unknown family, got %q", got)
	}
}
