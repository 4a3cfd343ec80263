// Package decode extracts uniform plain text from provider response
// documents, in whole-response mode (one complete JSON document) and in
// streaming mode (a sequence of independently decodable event chunks).
package decode

import (
	"github.com/tidwall/gjson"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

// outputPaths maps each family to the gjson path of the generated text in a
// whole-call response document.
var outputPaths = map[family.Family]string{
	family.Amazon:    "results.0.outputText",
	family.Anthropic: "content.0.text",
	family.AI21:      "completions.0.data.text",
	family.Cohere:    "generations.0.text",
	family.Meta:      "generation",
	family.Mistral:   "outputs.0.text",
}

// Extract pulls the plain-text result out of a complete provider response.
// An unknown family yields an empty string and no error; a missing or
// non-string field at the expected path is a *core.DecodeError, fatal to
// the call.
func Extract(fam family.Family, doc []byte) (string, error) {
	path, ok := outputPaths[fam]
	if !ok {
		return "", nil
	}

	if !gjson.ValidBytes(doc) {
		return "", &core.DecodeError{Family: fam.String(), Path: path, Reason: "response is not valid JSON"}
	}

	result := gjson.GetBytes(doc, path)
	if !result.Exists() {
		return "", &core.DecodeError{Family: fam.String(), Path: path, Reason: "expected field missing"}
	}
	if result.Type != gjson.String {
		return "", &core.DecodeError{Family: fam.String(), Path: path, Reason: "expected field is not a string"}
	}

	return result.String(), nil
}
