package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExample(t *testing.T) {
	doc := Example()
	if doc.Kind != KindExample {
		t.Errorf("Kind = %q", doc.Kind)
	}
	if !strings.Contains(doc.Text, "今日") {
		t.Errorf("example text missing expected content: %q", doc.Text)
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(p, []byte("今日はいい天気です。"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := FromFile(p)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if doc.Kind != KindText || doc.Title != "note.txt" || doc.Text != "今日はいい天気です。" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte{0xff, 0xfe, 0x00}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := FromFile(bad); err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	if _, err := FromFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFromFileHTMLStripsFurigana(t *testing.T) {
	doc, err := FromFile("testdata/furigana.html")
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if doc.Kind != KindHTML {
		t.Errorf("Kind = %q", doc.Kind)
	}
	if strings.Contains(doc.Text, "漢字かんじ") {
		t.Errorf("extracted text still contains furigana: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "漢字") {
		t.Errorf("extracted text lost the base text: %q", doc.Text)
	}
}

func TestFromURL(t *testing.T) {
	body, err := os.ReadFile("testdata/furigana.html")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/article" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("request without User-Agent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	doc, err := FromURL(context.Background(), srv.Client(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if doc.Kind != KindArticle || doc.Location != srv.URL+"/article" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if !strings.Contains(doc.Title, "ふりがな") {
		t.Errorf("Title = %q", doc.Title)
	}
	if strings.Contains(doc.Text, "べんきょう") {
		t.Errorf("extracted text still contains furigana: %q", doc.Text)
	}

	if _, err := FromURL(context.Background(), srv.Client(), srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
	if _, err := FromURL(context.Background(), srv.Client(), "ftp://example.com/x"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestSanitizeRuby(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple Ruby",
			input:    "<ruby>漢字<rt>かんじ</rt></ruby>",
			expected: "<ruby>漢字</ruby>",
		},
		{
			name:     "Ruby with RP",
			input:    "<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>",
			expected: "<ruby>漢字</ruby>",
		},
		{
			name:     "Multiple Ruby",
			input:    "<ruby>私<rt>わたし</rt></ruby>は<ruby>猫<rt>ねこ</rt></ruby>である",
			expected: "<ruby>私</ruby>は<ruby>猫</ruby>である",
		},
		{
			name:     "Attributes in tags",
			input:    "<ruby class='test'>漢字<rt class='reading'>かんじ</rt></ruby>",
			expected: "<ruby class='test'>漢字</ruby>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeRuby([]byte(tt.input))
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}
