package moderation

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// DefaultCensoredWords is the legacy denylist.
var DefaultCensoredWords = []string{"fuck", "shit", "bitch", "asshole", "nigga", "cunt", "retard", "dick"}

// DefaultPlaceholder replaces every censored occurrence.
const DefaultPlaceholder = "***"

// Moderator masks denylisted substrings. Matching is case-insensitive and
// ignores word boundaries, so a denylisted word inside a longer word is masked too.
type Moderator struct {
	matcher     *goahocorasick.Machine
	placeholder []rune
}

type span struct {
	start, end int
	word       string
}

// NewModerator initializes the Aho-Corasick automaton with the lower-cased denylist.
// The placeholder must not share any rune with a denylisted word, otherwise a
// second pass over filtered text could find new matches.
func NewModerator(censoredWords []string, placeholder string) (Moderator, error) {
	patterns := normalizeWords(censoredWords)
	for _, p := range patterns {
		if strings.ContainsAny(string(p), strings.ToLower(placeholder)) {
			return Moderator{}, fmt.Errorf("placeholder %q overlaps censored word %q", placeholder, string(p))
		}
	}
	mod := Moderator{placeholder: []rune(placeholder)}
	if len(patterns) == 0 {
		return mod, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	mod.matcher = m
	return mod, nil
}

// Filter returns text with every censored occurrence replaced by the placeholder.
func (m Moderator) Filter(text string) string {
	filtered, _ := m.Censor(text)
	return filtered
}

// Censor replaces leftmost-longest non-overlapping matches in a single pass over
// the original text and returns the matched denylist words in order.
func (m Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil || original == "" {
		return original, nil
	}
	origRunes := []rune(original)
	spans := m.spans(lowerRunes(origRunes))
	if len(spans) == 0 {
		return original, nil
	}

	var (
		out   = make([]rune, 0, len(origRunes))
		words = make([]string, 0, len(spans))
		last  int
	)
	for _, s := range spans {
		out = append(out, origRunes[last:s.start]...)
		out = append(out, m.placeholder...)
		words = append(words, s.word)
		last = s.end
	}
	out = append(out, origRunes[last:]...)
	return string(out), words
}

func (m Moderator) spans(normalized []rune) []span {
	terms := m.matcher.MultiPatternSearch(normalized, false)
	if len(terms) == 0 {
		return nil
	}
	candidates := make([]span, 0, len(terms))
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(normalized) {
			continue
		}
		candidates = append(candidates, span{start: start, end: end, word: string(term.Word)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].start != candidates[j].start {
			return candidates[i].start < candidates[j].start
		}
		return candidates[i].end > candidates[j].end
	})

	kept := candidates[:0]
	cursor := 0
	for _, c := range candidates {
		if c.start < cursor {
			continue
		}
		kept = append(kept, c)
		cursor = c.end
	}
	return kept
}

// normalizeWords lower-cases, drops empty entries and deduplicates; the
// double-array trie behind the automaton expects unique, sorted keys.
func normalizeWords(words []string) [][]rune {
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	slices.Sort(out)
	patterns := make([][]rune, len(out))
	for i, w := range out {
		patterns[i] = []rune(w)
	}
	return patterns
}

// lowerRunes keeps a one-to-one rune mapping with the input so spans can be
// applied to the original text.
func lowerRunes(input []rune) []rune {
	out := make([]rune, len(input))
	for i, r := range input {
		out[i] = unicode.ToLower(r)
	}
	return out
}
