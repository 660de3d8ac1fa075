package coverage

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"golang.org/x/text/unicode/norm"
)

// Token is a single morpheme of the input.
type Token struct {
	Surface  string // the text as it appears (e.g. "行っ")
	BaseForm string // the dictionary form (e.g. "行く")
	Reading  string // katakana reading
	POS      []string
}

// Entry is a lemma that the vocabulary reference does not cover.
type Entry struct {
	Lemma   string `json:"lemma"`
	Reading string `json:"reading"`
	Count   int    `json:"count"`
}

// Reporter finds words in a text that are missing from a vocabulary list.
// The kagome tokenizer is safe for concurrent use, so one Reporter can be shared.
type Reporter struct {
	t *tokenizer.Tokenizer
}

// NewReporter creates a Reporter backed by the IPA dictionary.
func NewReporter() (*Reporter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Reporter{t: t}, nil
}

// Tokenize breaks text into tokens with readings and base forms.
func (r *Reporter) Tokenize(text string) []Token {
	var result []Token
	for _, tok := range r.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(tok.Surface) == "" {
			continue
		}

		// IPA features: 0-3 POS levels, 4-5 conjugation, 6 base form, 7 reading.
		features := tok.Features()
		base := tok.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		result = append(result, Token{
			Surface:  tok.Surface,
			BaseForm: base,
			Reading:  reading,
			POS:      features,
		})
	}
	return result
}

var asciiOnly = regexp.MustCompile(`^[a-zA-Z0-9\s[:punct:]]+$`)

// skip reports whether a token carries no vocabulary worth checking.
func skip(t Token) bool {
	if len(t.POS) > 0 {
		switch t.POS[0] {
		case "記号", "補助記号", "助詞", "助動詞":
			return true
		}
	}
	if len(t.POS) > 1 && t.POS[1] == "数" {
		return true
	}
	if asciiOnly.MatchString(t.Surface) {
		return true
	}
	return !hasKanji(t.BaseForm)
}

func hasKanji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Report lists lemmas of text that contain kanji and are absent from vocab,
// most frequent first. A limit of zero or less returns every entry.
func (r *Reporter) Report(text string, vocab map[string]int, limit int) []Entry {
	text = norm.NFC.String(text)

	counts := make(map[string]*Entry)
	for _, t := range r.Tokenize(text) {
		if skip(t) {
			continue
		}
		lemma := t.BaseForm
		if _, ok := vocab[lemma]; ok {
			continue
		}
		// Conjugated surfaces can be listed even when the lemma is not.
		if _, ok := vocab[t.Surface]; ok {
			continue
		}
		e, ok := counts[lemma]
		if !ok {
			e = &Entry{Lemma: lemma}
			counts[lemma] = e
		}
		if e.Reading == "" && t.Reading != "" && t.Surface == lemma {
			e.Reading = ToHiragana(t.Reading)
		}
		e.Count++
	}

	out := make([]Entry, 0, len(counts))
	for _, e := range counts {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Lemma < out[j].Lemma
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
