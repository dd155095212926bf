// Package mine extracts extra candidate parameter names from the target's
// own HTML. Form fields the page already declares are the most likely
// parameter names the backend accepts, so they are worth probing even when
// the wordlist misses them.
package mine

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// field tags whose name attribute maps to a request parameter.
var fieldTags = map[string]struct{}{
	"input":    {},
	"select":   {},
	"textarea": {},
	"button":   {},
}

// ExtractCandidates tokenizes body and returns de-duplicated name attributes
// of form fields, in document order. Malformed HTML is fine: the tokenizer
// yields whatever it can parse and stops at the error token.
func ExtractCandidates(body []byte) []string {
	z := html.NewTokenizer(bytes.NewReader(body))
	seen := make(map[string]struct{})
	var names []string

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return names
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if _, ok := fieldTags[tok.Data]; !ok {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "name" {
					continue
				}
				name := strings.TrimSpace(attr.Val)
				if name == "" {
					continue
				}
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					names = append(names, name)
				}
			}
		}
	}
}

// Merge appends mined names to the wordlist, skipping entries the wordlist
// already contains.
func Merge(wordlist, mined []string) []string {
	have := make(map[string]struct{}, len(wordlist))
	for _, w := range wordlist {
		have[w] = struct{}{}
	}
	merged := wordlist
	for _, m := range mined {
		if _, ok := have[m]; !ok {
			have[m] = struct{}{}
			merged = append(merged, m)
		}
	}
	return merged
}
