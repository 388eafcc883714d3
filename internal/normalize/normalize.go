// Package normalize cleans up user queries before classification and
// retrieval: common misspellings are corrected and the short company name is
// expanded to its canonical form so embeddings match indexed content.
package normalize

import (
	"regexp"
	"strings"
)

// misspellings maps frequent typos to their corrections. Matches are
// whole-word and case-insensitive; replacements are lowercase.
var misspellings = map[string]string{
	"emial":      "email",
	"emal":       "email",
	"e-mail":     "email",
	"contct":     "contact",
	"contac":     "contact",
	"contat":     "contact",
	"locaton":    "location",
	"loction":    "location",
	"locaion":    "location",
	"addres":     "address",
	"adress":     "address",
	"phne":       "phone",
	"phn":        "phone",
	"servce":     "services",
	"servic":     "services",
	"servces":    "services",
	"consultin":  "consulting",
	"consultng":  "consulting",
	"consutling": "consulting",
	"bussiness":  "business",
	"busines":    "business",
	"buisness":   "business",
	"queston":    "question",
	"questin":    "question",
	"qustion":    "question",
	"informaton": "information",
	"informtion": "information",
	"infomation": "information",
	"avaliable":  "available",
	"availble":   "available",
	"avalable":   "available",
	"recieve":    "receive",
	"recive":     "receive",
	"responce":   "response",
	"reponse":    "response",
}

const (
	shortName     = "Githaf"
	canonicalName = "Githaf Consulting"
)

// Normalizer rewrites queries into a canonical form. It is stateless and
// safe for concurrent use; all patterns are compiled once at construction.
type Normalizer struct {
	typos  []typoRule
	entity *regexp.Regexp
}

type typoRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// New compiles the correction rules.
func New() *Normalizer {
	n := &Normalizer{
		// Optionally consumes the suffix so an already-expanded mention is
		// matched whole and left intact, which makes the rewrite idempotent.
		entity: regexp.MustCompile(`(?i)\b` + shortName + `(\s+consulting)?\b`),
	}
	for typo, fix := range misspellings {
		n.typos = append(n.typos, typoRule{
			pattern:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(typo) + `\b`),
			replacement: fix,
		})
	}
	return n
}

// Normalize returns the corrected query. It is idempotent: normalizing an
// already-normalized query returns it unchanged. Empty input passes through.
func (n *Normalizer) Normalize(query string) string {
	if strings.TrimSpace(query) == "" {
		return query
	}
	out := query
	for _, rule := range n.typos {
		out = rule.pattern.ReplaceAllString(out, rule.replacement)
	}
	return n.entity.ReplaceAllStringFunc(out, func(m string) string {
		if strings.Contains(strings.ToLower(m), "consulting") {
			return m
		}
		return canonicalName
	})
}
