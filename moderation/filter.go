// Package moderation masks blacklisted words in message content.
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Filter finds blacklisted words in a normalized view of the text (leet
// speak folded, punctuation and spaces skipped, lower case) and masks the
// matching runes of the original. The rune count never changes.
type Filter struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewFilter builds the automaton. Words that normalize to nothing are
// ignored; with no usable word the filter leaves content untouched.
func NewFilter(words []string, replacement rune) (*Filter, error) {
	patterns := lo.FilterMap(words, func(word string, _ int) ([]rune, bool) {
		p := fold([]rune(strings.TrimSpace(word)))
		return p, len(p) > 0
	})
	if len(patterns) == 0 {
		return &Filter{replacement: replacement}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{matcher: m, replacement: replacement}, nil
}

// Censor returns the masked content and the blacklisted words it found,
// in order of appearance.
func (f *Filter) Censor(content string) (string, []string) {
	if f == nil || f.matcher == nil {
		return content, nil
	}
	original := []rune(content)
	folded, positions := foldWithPositions(original)
	if len(folded) == 0 {
		return content, nil
	}

	terms := f.matcher.MultiPatternSearch(folded, false)
	if len(terms) == 0 {
		return content, nil
	}
	found := make([]string, 0, len(terms))
	for _, term := range terms {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(positions) {
			continue
		}
		for i := positions[term.Pos]; i <= positions[end-1]; i++ {
			original[i] = f.replacement
		}
		found = append(found, string(term.Word))
	}
	return string(original), found
}

func fold(runes []rune) []rune {
	folded, _ := foldWithPositions(runes)
	return folded
}

// foldWithPositions also returns, for each folded rune, its index in runes.
func foldWithPositions(runes []rune) ([]rune, []int) {
	folded := make([]rune, 0, len(runes))
	positions := make([]int, 0, len(runes))
	for i, r := range runes {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		positions = append(positions, i)
	}
	return folded, positions
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	}
	return r
}
