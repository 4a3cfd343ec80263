package decode

import (
	"context"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

// DecodeEvent decodes one raw stream event chunk into its text delta. An
// absent field is an empty delta, not an error; an empty delta is a
// meaningful value and must be preserved by callers. A chunk that is not
// valid JSON (for the families that require it) is a *core.DecodeError
// scoped to that single event.
func DecodeEvent(fam family.Family, chunk []byte) (string, error) {
	switch fam {
	case family.Anthropic:
		return eventField(fam, chunk, "completion")
	case family.Cohere:
		return eventField(fam, chunk, "text")
	case family.Meta:
		return eventField(fam, chunk, "generation")
	case family.Mistral:
		text, err := eventField(fam, chunk, "outputs.0.text")
		if err != nil {
			return "", err
		}
		// A bare newline marks a line boundary; it is normalized to an
		// empty delta so a raw "\n" never passes through as visible text.
		if text == "\n" {
			return "", nil
		}
		return text, nil
	default:
		// Forward-compatible fallback for unlisted families: the chunk
		// bytes are emitted verbatim as UTF-8 text.
		return string(chunk), nil
	}
}

func eventField(fam family.Family, chunk []byte, path string) (string, error) {
	if !gjson.ValidBytes(chunk) {
		return "", &core.DecodeError{Family: fam.String(), Path: path, Reason: "event is not valid JSON"}
	}
	result := gjson.GetBytes(chunk, path)
	if !result.Exists() {
		return "", nil
	}
	if result.Type != gjson.String {
		return "", &core.DecodeError{Family: fam.String(), Path: path, Reason: "event field is not a string"}
	}
	return result.String(), nil
}

// Stream decodes raw event chunks into text deltas in arrival order, one
// event at a time. A malformed event is logged and skipped without
// terminating the stream. The returned channel closes when events closes or
// ctx is done; consumption is caller-driven and the stream is not
// restartable.
func Stream(ctx context.Context, fam family.Family, events <-chan []byte, log *zap.Logger) <-chan string {
	if log == nil {
		log = zap.NewNop()
	}

	deltas := make(chan string)
	go func() {
		defer close(deltas)
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-events:
				if !ok {
					return
				}
				text, err := DecodeEvent(fam, chunk)
				if err != nil {
					log.Warn("skipping malformed stream event",
						zap.String("family", fam.String()),
						zap.Error(err),
					)
					continue
				}
				select {
				case deltas <- text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return deltas
}
