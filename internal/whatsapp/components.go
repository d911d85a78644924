package whatsapp

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// Parameter is a text substitution for one {{n}} slot.
type Parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Component groups the parameters of one template section.
type Component struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameters"`
}

// Components places the first headerCount values in a header component and
// the rest in the body. Empty sections are omitted.
func Components(values []string, headerCount int) []Component {
	if headerCount < 0 {
		headerCount = 0
	}
	if headerCount > len(values) {
		headerCount = len(values)
	}
	var out []Component
	if headerCount > 0 {
		out = append(out, Component{Type: "header", Parameters: textParams(values[:headerCount])})
	}
	if rest := values[headerCount:]; len(rest) > 0 {
		out = append(out, Component{Type: "body", Parameters: textParams(rest)})
	}
	return out
}

func textParams(values []string) []Parameter {
	ps := make([]Parameter, len(values))
	for i, v := range values {
		ps[i] = Parameter{Type: "text", Text: v}
	}
	return ps
}

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhone strips everything but digits and prefixes India's country
// code to bare 10-digit numbers.
func NormalizePhone(raw string) string {
	p := nonDigit.ReplaceAllString(raw, "")
	if len(p) == 10 {
		p = "91" + p
	}
	return p
}

// NormalizeLanguage converts a language tag to the provider's form
// ("en_US", "hi"). Unparseable or empty input yields fallback.
func NormalizeLanguage(code, fallback string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return fallback
	}
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return fallback
	}
	return strings.ReplaceAll(tag.String(), "-", "_")
}
