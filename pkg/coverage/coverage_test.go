package coverage

import (
	"testing"
)

func newReporter(t *testing.T) *Reporter {
	t.Helper()
	r, err := NewReporter()
	if err != nil {
		t.Fatalf("NewReporter: %v", err)
	}
	return r
}

func TestTokenize(t *testing.T) {
	r := newReporter(t)
	tokens := r.Tokenize("猫が走った。")
	if len(tokens) == 0 {
		t.Fatal("no tokens")
	}
	found := false
	for _, tok := range tokens {
		if tok.Surface == "走っ" && tok.BaseForm == "走る" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 走っ with base form 走る, got %+v", tokens)
	}
}

func TestReport(t *testing.T) {
	r := newReporter(t)
	vocab := map[string]int{"猫": 3}

	got := r.Report("猫が犬を見た。犬は走った。123 abc", vocab, 0)
	byLemma := make(map[string]Entry)
	for _, e := range got {
		byLemma[e.Lemma] = e
	}
	if _, ok := byLemma["猫"]; ok {
		t.Errorf("猫 is in the reference and must not be reported")
	}
	dog, ok := byLemma["犬"]
	if !ok {
		t.Fatalf("expected 犬 in report, got %+v", got)
	}
	if dog.Count != 2 {
		t.Errorf("犬 count = %d, want 2", dog.Count)
	}
	if dog.Reading != "いぬ" {
		t.Errorf("犬 reading = %q, want いぬ", dog.Reading)
	}
	if got[0].Lemma != "犬" {
		t.Errorf("most frequent entry first, got %+v", got)
	}
	for _, e := range got {
		if !hasKanji(e.Lemma) {
			t.Errorf("entry without kanji reported: %+v", e)
		}
	}
}

func TestReportLimit(t *testing.T) {
	r := newReporter(t)
	got := r.Report("犬と猫と鳥と魚", nil, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(got), got)
	}
}

func TestReportEmpty(t *testing.T) {
	r := newReporter(t)
	if got := r.Report("Hello, world. ひらがなだけ", nil, 0); len(got) != 0 {
		t.Fatalf("expected empty report, got %+v", got)
	}
}

func TestToHiragana(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ア", "あ"},
		{"カ", "か"},
		{"ガ", "が"},
		{"パ", "ぱ"},
		{"ン", "ん"},
		{"ー", "ー"},
		{"abc", "abc"},
		{"あいう", "あいう"},
	}
	for _, tt := range tests {
		if got := ToHiragana(tt.in); got != tt.out {
			t.Errorf("ToHiragana(%q) = %q; want %q", tt.in, got, tt.out)
		}
	}
}
