package core

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider reports a model identifier that maps to no known
// provider family. The adapter itself never returns it: formatting and
// decoding for an unknown family yield empty results by design. Hosts use
// this sentinel to build a user-facing message once they observe an
// unknown classification.
var ErrUnsupportedProvider = errors.New("unsupported provider family")

// DecodeError reports a provider response document that is missing the
// expected field or carries it with the wrong type. In whole-response mode
// it is fatal to the call; in streaming mode it is scoped to the single
// offending event.
type DecodeError struct {
	Family string
	Path   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %s at %q", e.Family, e.Reason, e.Path)
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
