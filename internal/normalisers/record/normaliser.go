// Package record implements the knowledge record normaliser and hygiene filter.
package record

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/similarity"
)

// Ensure Normaliser implements the interface.
var _ driven.RecordNormaliser = (*Normaliser)(nil)

// DefaultBorderlineLen is the answer length below which a pair is referred
// to the quality classifier.
const DefaultBorderlineLen = 40

// echoThreshold is the lexical similarity above which an answer is
// considered a restatement of its question.
const echoThreshold = 0.85

// Options configures a Normaliser.
type Options struct {
	// CanonicalName replaces every alias. Empty disables alias rewriting.
	CanonicalName string

	// Aliases are legacy organisation names, matched case-insensitively.
	Aliases []string

	// BlockedTerms make an answer ineligible when present.
	BlockedTerms []string

	// Abbreviations maps lower-case abbreviations to expansions.
	// Nil uses DefaultAbbreviations.
	Abbreviations map[string]string

	// BorderlineLen overrides DefaultBorderlineLen when positive.
	BorderlineLen int
}

// OptionsFromSettings builds Options from application settings.
func OptionsFromSettings(s domain.NormaliseSettings) Options {
	return Options{
		CanonicalName: s.CanonicalName,
		Aliases:       s.Aliases,
		BlockedTerms:  s.BlockedTerms,
	}
}

// Normaliser canonicalises record text. It is safe for concurrent use.
type Normaliser struct {
	canonical     string
	aliasRe       *regexp.Regexp
	blocked       []string
	abbreviations map[string]string
	boilerplateRe *regexp.Regexp
	borderlineLen int
}

// New creates a normaliser from options.
func New(opts Options) *Normaliser {
	n := &Normaliser{
		canonical:     opts.CanonicalName,
		abbreviations: opts.Abbreviations,
		borderlineLen: opts.BorderlineLen,
		boilerplateRe: compileBoilerplate(defaultBoilerplate),
	}
	if n.abbreviations == nil {
		n.abbreviations = DefaultAbbreviations()
	}
	if n.borderlineLen <= 0 {
		n.borderlineLen = DefaultBorderlineLen
	}
	if opts.CanonicalName != "" {
		n.aliasRe = compileAliases(opts.Aliases)
	}
	for _, term := range opts.BlockedTerms {
		if t := strings.ToLower(strings.TrimSpace(term)); t != "" {
			n.blocked = append(n.blocked, t)
		}
	}
	return n
}

// Normalise returns a copy of record with canonical display text.
func (n *Normaliser) Normalise(record domain.KnowledgeRecord) domain.KnowledgeRecord {
	out := record.Clone()
	if out.Kind == "" {
		out.Kind = domain.KindQA
	}
	out.Question = n.canonicalise(out.Question)
	out.Answer = n.canonicalise(out.Answer)
	out.Content = n.canonicalise(out.Content)
	return out
}

// MatchText returns text prepared for lexical comparison.
func (n *Normaliser) MatchText(text string) string {
	lowered := strings.ToLower(n.canonicalise(text))
	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if exp, ok := n.abbreviations[tok]; ok {
			out = append(out, exp)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// Key returns the comparison key used for upsert and deduplication:
// canonical text, lower-cased, without trailing punctuation.
func (n *Normaliser) Key(text string) string {
	key := strings.ToLower(n.canonicalise(text))
	return strings.TrimRight(key, " ?.!:;")
}

// Eligible reports whether a record may be scored at retrieval time.
// Context records need content; QA records need a non-garbage answer.
func (n *Normaliser) Eligible(record domain.KnowledgeRecord) bool {
	if record.IsContext() {
		return strings.TrimSpace(record.Content) != ""
	}
	return !n.IsGarbage(record.Answer) && !n.isBlocked(record.Answer)
}

// IsGarbage reports whether an answer is junk: empty, a single character
// or letter, a placeholder token, boilerplate, or punctuation only.
func (n *Normaliser) IsGarbage(answer string) bool {
	text := n.canonicalise(answer)
	switch {
	case text == "":
		return true
	case isPunctuationOnly(text):
		return true
	case isSingleLetter(text):
		return true
	case isPlaceholder(text):
		return true
	case n.boilerplateRe.MatchString(text):
		return true
	}
	return false
}

// IsBorderline reports whether a pair should be referred to the classifier:
// a short answer, or an answer that mostly restates its question.
func (n *Normaliser) IsBorderline(pair domain.QAPair) bool {
	answer := n.canonicalise(pair.Answer)
	if runeLen(answer) < n.borderlineLen {
		return true
	}
	q := n.MatchText(pair.Question)
	if q == "" {
		return false
	}
	return similarity.Lexical(q, n.MatchText(answer)) >= echoThreshold
}

func (n *Normaliser) canonicalise(text string) string {
	if text == "" {
		return ""
	}
	text = strings.Join(strings.Fields(stripInvisible(text)), " ")
	if n.aliasRe != nil {
		text = n.aliasRe.ReplaceAllString(text, n.canonical)
	}
	return text
}

func (n *Normaliser) isBlocked(answer string) bool {
	if len(n.blocked) == 0 {
		return false
	}
	lowered := strings.ToLower(answer)
	for _, term := range n.blocked {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// compileAliases builds one case-insensitive, word-bounded alternation.
// Longer aliases come first so they win over their own prefixes.
func compileAliases(aliases []string) *regexp.Regexp {
	var parts []string
	for _, a := range aliases {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, regexp.QuoteMeta(a))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	sort.SliceStable(parts, func(i, j int) bool { return len(parts[i]) > len(parts[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

// compileBoilerplate matches any marker anywhere in the text, ignoring case.
// "test" therefore also catches "Testing" and "latest".
func compileBoilerplate(markers []string) *regexp.Regexp {
	parts := make([]string, 0, len(markers))
	for _, m := range markers {
		parts = append(parts, regexp.QuoteMeta(m))
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(parts, "|") + `)`)
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
}
