package transport

import (
	"encoding/base64"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// applyTransforms runs the route's transform steps over the payload.
func (c *Client) applyTransforms(route *Route, payload []byte) ([]byte, error) {
	result := payload
	for _, step := range route.Transforms {
		var err error
		switch step.Type {
		case TransformTypeFieldMap:
			result, err = applyFieldMap(result, step.Config)
		default:
			// Unknown transform type, skip
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("transform %s failed: %w", step.Type, err)
		}
	}
	return result, nil
}

// applyFieldMap maps fields from source to target using gjson/sjson.
// Config format: "target_path": "source_path".
func applyFieldMap(body []byte, config map[string]string) ([]byte, error) {
	result := body

	for targetPath, sourcePath := range config {
		value := gjson.GetBytes(body, sourcePath)
		if !value.Exists() {
			continue
		}

		var err error
		switch value.Type {
		case gjson.String:
			result, err = sjson.SetBytes(result, targetPath, value.String())
		case gjson.Number:
			result, err = sjson.SetBytes(result, targetPath, value.Float())
		case gjson.True, gjson.False:
			result, err = sjson.SetBytes(result, targetPath, value.Bool())
		default:
			// Objects and arrays go in as raw JSON
			result, err = sjson.SetRawBytes(result, targetPath, []byte(value.Raw))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to set field %s: %w", targetPath, err)
		}
	}

	return result, nil
}

// unwrapEnvelope extracts the inner event bytes from the Bedrock
// {"chunk":{"bytes":"<base64>"}} stream envelope. Events without the
// envelope pass through unchanged. The returned slice is always a copy,
// safe to hold after the scanner advances.
func unwrapEnvelope(line []byte) []byte {
	wrapped := gjson.GetBytes(line, "chunk.bytes")
	if !wrapped.Exists() || wrapped.Type != gjson.String {
		return append([]byte(nil), line...)
	}
	decoded, err := base64.StdEncoding.DecodeString(wrapped.String())
	if err != nil {
		return append([]byte(nil), line...)
	}
	return decoded
}
