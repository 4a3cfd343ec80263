package family

import "strings"

// Family is one provider wire protocol hosted behind the gateway. It is a
// closed set: every model identifier classifies into exactly one family,
// with Unknown as the valid terminal fallback.
type Family int

const (
	Unknown Family = iota
	Amazon
	Anthropic
	AI21
	Cohere
	Meta
	Mistral
)

var names = map[Family]string{
	Unknown:   "unknown",
	Amazon:    "amazon",
	Anthropic: "anthropic",
	AI21:      "ai21",
	Cohere:    "cohere",
	Meta:      "meta",
	Mistral:   "mistral",
}

func (f Family) String() string {
	if name, ok := names[f]; ok {
		return name
	}
	return "unknown"
}

// markers are the vendor tokens embedded in model identifiers, in priority
// order. First match wins.
var markers = []struct {
	token  string
	family Family
}{
	{"amazon", Amazon},
	{"anthropic", Anthropic},
	{"ai21", AI21},
	{"cohere", Cohere},
	{"meta", Meta},
	{"mistral", Mistral},
}

// Classify maps a model identifier to its provider family. Vendor
// convention embeds the vendor name in the model id (e.g.
// "anthropic.claude-v2:1"), so a case-sensitive substring test is
// sufficient and no registry lookup is needed. Classify is a pure function
// with no failure mode: an unrecognized id returns Unknown.
func Classify(modelID string) Family {
	for _, m := range markers {
		if strings.Contains(modelID, m.token) {
			return m.family
		}
	}
	return Unknown
}
