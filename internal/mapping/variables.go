package mapping

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Counts is the number of distinct {{n}} placeholders per component.
type Counts struct {
	Header int `json:"header"`
	Body   int `json:"body"`
	Total  int `json:"total"`
}

var placeholderRe = regexp.MustCompile(`\{\{\s*(\d+)\s*\}\}`)

// CountVariables counts unique placeholders in the HEADER and BODY
// components of a provider template definition (a JSON array).
func CountVariables(components []byte) Counts {
	var c Counts
	if len(components) == 0 || !gjson.ValidBytes(components) {
		return c
	}
	gjson.ParseBytes(components).ForEach(func(_, comp gjson.Result) bool {
		n := uniquePlaceholders(comp.Get("text").String())
		switch strings.ToUpper(comp.Get("type").String()) {
		case "HEADER":
			c.Header += n
		case "BODY":
			c.Body += n
		}
		return true
	})
	c.Total = c.Header + c.Body
	return c
}

func uniquePlaceholders(text string) int {
	seen := map[string]struct{}{}
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}
	return len(seen)
}
