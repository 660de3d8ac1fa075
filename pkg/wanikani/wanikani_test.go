package wanikani

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	kanjiPath := writeFile(t, dir, "kanji.json", `{"1": ["一", "二"], "3": ["今"]}`)
	vocabPath := writeFile(t, dir, "vocab.json", `{"1": ["一つ"], "3": ["今日", "今"]}`)

	ref, err := Load(kanjiPath, vocabPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantKanji := map[string]int{"一": 1, "二": 1, "今": 3}
	if !reflect.DeepEqual(ref.Kanji, wantKanji) {
		t.Errorf("Kanji = %v, want %v", ref.Kanji, wantKanji)
	}
	wantVocab := map[string]int{"一つ": 1, "今日": 3, "今": 3}
	if !reflect.DeepEqual(ref.Vocab, wantVocab) {
		t.Errorf("Vocab = %v, want %v", ref.Vocab, wantVocab)
	}
	if len(ref.Duplicates) != 0 {
		t.Errorf("unexpected duplicates: %v", ref.Duplicates)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	vocabPath := writeFile(t, dir, "vocab.json", `{}`)
	if _, err := Load(filepath.Join(dir, "nope.json"), vocabPath); err == nil {
		t.Fatal("expected error for missing kanji file")
	}
}

func TestDecodeLevels(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Levels
		wantErr bool
	}{
		{"object", `{"1": ["一"], "2": ["力"]}`, Levels{1: {"一"}, 2: {"力"}}, false},
		{"array", `[["一"], ["力", "山"]]`, Levels{1: {"一"}, 2: {"力", "山"}}, false},
		{"padded key", `{" 5 ": ["学"]}`, Levels{5: {"学"}}, false},
		{"level zero", `{"0": ["一"]}`, nil, true},
		{"level too high", `{"61": ["一"]}`, nil, true},
		{"non numeric", `{"one": ["一"]}`, nil, true},
		{"garbage", `not json`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeLevels(strings.NewReader(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLevels: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelErrorType(t *testing.T) {
	_, err := DecodeLevels(strings.NewReader(`{"99": ["一"]}`))
	var le *LevelError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LevelError, got %T (%v)", err, err)
	}
	if le.Key != "99" {
		t.Fatalf("Key = %q", le.Key)
	}
}

func TestInvertDuplicates(t *testing.T) {
	levels := Levels{5: {"上", "下"}, 2: {"上"}, 9: {"上"}}

	got, dups, err := Invert(levels, KeepLowest)
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	if got["上"] != 2 || got["下"] != 5 {
		t.Fatalf("Invert = %v", got)
	}
	want := []Duplicate{{Item: "上", Levels: []int{2, 5, 9}, Kept: 2}}
	if !reflect.DeepEqual(dups, want) {
		t.Fatalf("duplicates = %v, want %v", dups, want)
	}

	_, _, err = Invert(levels, RejectDuplicates)
	var de *DuplicateError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DuplicateError, got %v", err)
	}
	if de.Item != "上" {
		t.Fatalf("Item = %q", de.Item)
	}
}

func TestInvertSameLevelTwiceIsNotDuplicate(t *testing.T) {
	_, dups, err := Invert(Levels{4: {"木", "木"}}, RejectDuplicates)
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	if len(dups) != 0 {
		t.Fatalf("duplicates = %v", dups)
	}
}

func TestLoadStrict(t *testing.T) {
	dir := t.TempDir()
	kanjiPath := writeFile(t, dir, "kanji.json", `{"1": ["一"], "2": ["一"]}`)
	vocabPath := writeFile(t, dir, "vocab.json", `{}`)

	ref, err := Load(kanjiPath, vocabPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ref.Duplicates) != 1 {
		t.Fatalf("expected one duplicate, got %v", ref.Duplicates)
	}
	if _, err := Load(kanjiPath, vocabPath, WithPolicy(RejectDuplicates)); err == nil {
		t.Fatal("expected strict load to fail")
	}
}
