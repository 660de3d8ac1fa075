package level

import (
	"golang.org/x/text/unicode/norm"

	"github.com/japaniel/jplevel/pkg/wanikani"
)

// Version returns the current version of the package.
func Version() string { return "0.2.0" }

// Result holds both profiles for one text.
type Result struct {
	Kanji Profile `json:"kanji"`
	Vocab Profile `json:"vocab"`
	// KanjiCount and VocabCount are the number of matched items behind each profile.
	KanjiCount int `json:"-"`
	VocabCount int `json:"-"`
}

// Analyzer scores texts against one Reference. The vocabulary matcher is
// built once in NewAnalyzer; after that an Analyzer holds no mutable state and
// can be shared between goroutines.
type Analyzer struct {
	ref     *wanikani.Reference
	kanji   map[string]int
	vocab   map[string]int
	matcher *Matcher
}

// NewAnalyzer prepares an Analyzer for ref. Reference keys are compared in
// NFC form, the same form input text is brought to before scanning.
func NewAnalyzer(ref *wanikani.Reference) *Analyzer {
	vocab := normalizeKeys(ref.Vocab)
	words := make([]string, 0, len(vocab))
	for w := range vocab {
		words = append(words, w)
	}
	return &Analyzer{
		ref:     ref,
		kanji:   normalizeKeys(ref.Kanji),
		vocab:   vocab,
		matcher: NewMatcher(words),
	}
}

// normalizeKeys copies m with NFC keys. Keys that collapse onto the same
// normalized form keep the lowest level.
func normalizeKeys(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		nk := norm.NFC.String(k)
		if old, ok := out[nk]; ok && old <= v {
			continue
		}
		out[nk] = v
	}
	return out
}

// Reference returns the reference data the Analyzer was built with.
func (a *Analyzer) Reference() *wanikani.Reference { return a.ref }

// Analyze computes the kanji and vocabulary profiles of text.
func (a *Analyzer) Analyze(text string) Result {
	text = norm.NFC.String(text)

	kanjiLevels := KanjiLevels(text, a.kanji)
	vocabLevels := lookup(wordsOf(a.matcher.FindAll(text)), a.vocab)

	return Result{
		Kanji:      Aggregate(kanjiLevels),
		Vocab:      Aggregate(vocabLevels),
		KanjiCount: len(kanjiLevels),
		VocabCount: len(vocabLevels),
	}
}

// Analyze is the one-shot form of Analyzer.Analyze for callers holding plain
// lookup tables. It builds a fresh Matcher on every call.
func Analyze(text string, kanjiRef, vocabRef map[string]int) (kanji, vocab Profile) {
	r := NewAnalyzer(&wanikani.Reference{Kanji: kanjiRef, Vocab: vocabRef}).Analyze(text)
	return r.Kanji, r.Vocab
}

// KanjiLevels returns the level of every Han character in text.
func KanjiLevels(text string, ref map[string]int) []int {
	return lookup(ExtractKanji(text), ref)
}

// VocabLevels returns the level of every vocabulary match in text.
func VocabLevels(text string, ref map[string]int) []int {
	words := make([]string, 0, len(ref))
	for w := range ref {
		words = append(words, w)
	}
	return lookup(wordsOf(NewMatcher(words).FindAll(text)), ref)
}

func wordsOf(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Word
	}
	return out
}

func lookup(items []string, ref map[string]int) []int {
	if len(items) == 0 {
		return nil
	}
	levels := make([]int, len(items))
	for i, item := range items {
		lvl, ok := ref[item]
		if !ok {
			lvl = UnknownLevel
		}
		levels[i] = lvl
	}
	return levels
}
