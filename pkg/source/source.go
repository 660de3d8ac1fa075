package source

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

// Kinds of Document.
const (
	KindText    = "text_file"
	KindHTML    = "html_file"
	KindArticle = "website_article"
	KindExample = "example"
	KindInput   = "api_input"
)

// MaxBodySize limits fetched pages to prevent OOM from untrusted URLs.
const MaxBodySize = 10 * 1024 * 1024

//go:embed example_text.txt
var exampleText string

// Document is text ready for analysis together with where it came from.
type Document struct {
	Kind     string
	Title    string
	Location string
	Text     string
}

// Example returns the bundled example text.
func Example() Document {
	return Document{Kind: KindExample, Title: "Example text", Location: "example_text.txt", Text: exampleText}
}

// FromFile reads a UTF-8 text file. Files ending in .html or .htm are run
// through article extraction first.
func FromFile(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		abs, _ := filepath.Abs(path)
		doc, err := FromHTML(bytes.NewReader(content), &url.URL{Scheme: "file", Path: abs})
		if err != nil {
			return Document{}, err
		}
		doc.Kind = KindHTML
		doc.Location = path
		return doc, nil
	}
	if !utf8.Valid(content) {
		return Document{}, fmt.Errorf("%s is not valid UTF-8", path)
	}
	return Document{
		Kind:     KindText,
		Title:    filepath.Base(path),
		Location: path,
		Text:     string(content),
	}, nil
}

// FromHTML extracts the readable article text of an HTML page. Ruby
// annotations are removed first so furigana does not count as text.
func FromHTML(r io.Reader, pageURL *url.URL) (Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(content)), pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("failed to extract article: %w", err)
	}
	loc := ""
	if pageURL != nil {
		loc = pageURL.String()
	}
	return Document{
		Kind:     KindArticle,
		Title:    article.Title,
		Location: loc,
		Text:     article.TextContent,
	}, nil
}

// FromURL fetches a web page and extracts its article text.
func FromURL(ctx context.Context, client *http.Client, rawURL string) (Document, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Document{}, fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Document{}, fmt.Errorf("unsupported url scheme %q", parsedURL.Scheme)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create request: %w", err)
	}
	// Some news sites refuse requests without a browser User-Agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.8,en;q=0.7")

	resp, err := client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("got status code %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return Document{}, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, MaxBodySize)
	}

	// Read one byte past the limit to tell a truncated body from one that fits exactly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return Document{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxBodySize {
		return Document{}, fmt.Errorf("response body exceeded maximum size limit of %d bytes", MaxBodySize)
	}

	doc, err := FromHTML(bytes.NewReader(body), parsedURL)
	if err != nil {
		return Document{}, err
	}
	doc.Location = rawURL
	return doc, nil
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Without this, "漢字" with furigana is extracted as
// "漢字かんじ" and the reading is scored as vocabulary.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}
