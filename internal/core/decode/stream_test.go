package decode

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

func TestDecodeEvent(t *testing.T) {
	cases := []struct {
		name  string
		fam   family.Family
		chunk string
		want  string
	}{
		{"anthropic completion", family.Anthropic, `{"completion":"Hel"}`, "Hel"},
		{"anthropic missing field defaults empty", family.Anthropic, `{"stop_reason":null}`, ""},
		{"cohere text", family.Cohere, `{"text":"lo"}`, "lo"},
		{"meta generation", family.Meta, `{"generation":" world"}`, " world"},
		{"mistral text", family.Mistral, `{"outputs":[{"text":"hi"}]}`, "hi"},
		{"mistral newline normalized to empty delta", family.Mistral, `{"outputs":[{"text":"\n"}]}`, ""},
		{"mistral embedded newline passes through", family.Mistral, `{"outputs":[{"text":"a\n"}]}`, "a\n"},
		{"default family passes bytes verbatim", family.Amazon, `plain text chunk`, "plain text chunk"},
		{"unknown family passes bytes verbatim", family.Unknown, `{"completion":"x"}`, `{"completion":"x"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEvent(tc.fam, []byte(tc.chunk))
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	_, err := DecodeEvent(family.Anthropic, []byte(`{"completion":`))
	if !core.IsDecodeError(err) {
		t.Errorf("Expected DecodeError for malformed event, got %v", err)
	}
}

func TestStreamOrderAndSkip(t *testing.T) {
	events := make(chan []byte, 5)
	events <- []byte(`{"completion":"one"}`)
	events <- []byte(`{"completion":`) // malformed, must be skipped
	events <- []byte(`{"completion":""}`)
	events <- []byte(`{"completion":"two"}`)
	close(events)

	deltas := Stream(context.Background(), family.Anthropic, events, zap.NewNop())

	var got []string
	for delta := range deltas {
		got = append(got, delta)
	}

	want := []string{"one", "", "two"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d deltas, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Delta %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestStreamMistralNewlineDelta(t *testing.T) {
	events := make(chan []byte, 2)
	events <- []byte(`{"outputs":[{"text":"\n"}]}`)
	events <- []byte(`{"outputs":[{"text":"done"}]}`)
	close(events)

	deltas := Stream(context.Background(), family.Mistral, events, zap.NewNop())

	first, ok := <-deltas
	if !ok || first != "" {
		t.Errorf("Expected a preserved empty delta, got %q (ok=%v)", first, ok)
	}
	second := <-deltas
	if second != "done" {
		t.Errorf("Expected 'done', got %q", second)
	}
	if _, ok := <-deltas; ok {
		t.Error("Expected deltas channel to close after events close")
	}
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan []byte)

	deltas := Stream(ctx, family.Cohere, events, zap.NewNop())
	cancel()

	if _, ok := <-deltas; ok {
		t.Error("Expected deltas channel to close after context cancellation")
	}
}
