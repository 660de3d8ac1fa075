package level

import "unicode/utf8"

// Match is one occurrence of a reference word in a text.
type Match struct {
	Word   string
	Offset int // byte offset of the first rune
}

type node struct {
	children map[rune]*node
	// word is set when the path from the root spells a complete reference word.
	word string
	end  bool
}

// Matcher finds reference vocabulary in text, preferring the longest word at
// each start position. It is immutable once built and safe for concurrent use.
type Matcher struct {
	root  *node
	words int
}

// NewMatcher builds a Matcher over words. Empty strings are ignored.
func NewMatcher(words []string) *Matcher {
	m := &Matcher{root: &node{}}
	for _, w := range words {
		if w == "" {
			continue
		}
		n := m.root
		for _, r := range w {
			if n.children == nil {
				n.children = make(map[rune]*node)
			}
			next, ok := n.children[r]
			if !ok {
				next = &node{}
				n.children[r] = next
			}
			n = next
		}
		if !n.end {
			n.end = true
			n.word = w
			m.words++
		}
	}
	return m
}

// Len returns the number of distinct words in the Matcher.
func (m *Matcher) Len() int { return m.words }

// FindAll scans text one rune at a time and reports, for every start position,
// the longest reference word beginning there. The cursor never skips over a
// match, so "今日" yields 今日 at 0 and 日 at 3 when both are known words, but
// never 今 at 0.
func (m *Matcher) FindAll(text string) []Match {
	var out []Match
	for start := 0; start < len(text); {
		if w, ok := m.longestAt(text[start:]); ok {
			out = append(out, Match{Word: w, Offset: start})
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		start += size
	}
	return out
}

// longestAt walks the trie along s and returns the longest word that is a
// prefix of s.
func (m *Matcher) longestAt(s string) (string, bool) {
	n := m.root
	var best string
	found := false
	for _, r := range s {
		next, ok := n.children[r]
		if !ok {
			break
		}
		n = next
		if n.end {
			best = n.word
			found = true
		}
	}
	return best, found
}
