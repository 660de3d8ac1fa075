package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/japaniel/jplevel/pkg/db"
	"github.com/japaniel/jplevel/pkg/level"
	"github.com/japaniel/jplevel/pkg/wanikani"
)

func testAnalyzer() *level.Analyzer {
	return level.NewAnalyzer(&wanikani.Reference{
		Kanji: map[string]int{"今": 3, "日": 2, "天": 2, "気": 4},
		Vocab: map[string]int{"今": 3, "日": 2, "今日": 3, "天": 2, "気": 4, "天気": 4},
	})
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":      "今日、いい天気ですね〜 今今今.",
		"b.txt":      "Hello world",
		"c.txt":      "天気",
		"notes.md":   "今日",
		"broken.txt": string([]byte{0xff, 0xfe}),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestCollect(t *testing.T) {
	dir := writeInputs(t)
	got, err := Collect(dir)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	want := []string{"a.txt", "b.txt", "broken.txt", "c.txt"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("Collect = %v, want %v", names, want)
	}
}

func TestRunPersistsResults(t *testing.T) {
	dir := writeInputs(t)
	paths, err := Collect(dir)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	r := NewRunner(testAnalyzer(), conn)
	r.Workers = 3
	r.BatchSize = 2
	var progress int32
	r.OnProgress = func(done, total int) {
		atomic.AddInt32(&progress, 1)
		if total != len(paths) {
			t.Errorf("total = %d, want %d", total, len(paths))
		}
	}

	items, err := r.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != len(paths) {
		t.Fatalf("got %d items, want %d", len(items), len(paths))
	}
	if got := int(atomic.LoadInt32(&progress)); got != len(paths) {
		t.Errorf("progress = %d, want %d", got, len(paths))
	}

	for i, it := range items {
		if it.Path != paths[i] {
			t.Fatalf("item %d path = %s, want %s", i, it.Path, paths[i])
		}
	}
	a := items[0]
	wantKanji := level.Profile{"80%": 3, "90%": 3, "95%": 3, "100%": 4}
	if !reflect.DeepEqual(a.Result.Kanji, wantKanji) {
		t.Errorf("a.txt kanji = %v, want %v", a.Result.Kanji, wantKanji)
	}
	if a.AnalysisID == 0 {
		t.Errorf("a.txt was not persisted")
	}
	if !items[1].Result.Kanji.Empty() {
		t.Errorf("b.txt should have an empty profile, got %v", items[1].Result.Kanji)
	}
	if items[2].Err == nil {
		t.Errorf("broken.txt should fail on its own")
	}
	if items[2].AnalysisID != 0 {
		t.Errorf("broken.txt must not be persisted")
	}

	stored, err := db.ListAnalyses(conn, 0)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored analyses, got %d", len(stored))
	}
}

func TestRunWithoutDB(t *testing.T) {
	dir := writeInputs(t)
	r := NewRunner(testAnalyzer(), nil)
	items, err := r.Run(context.Background(), []string{filepath.Join(dir, "c.txt")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := level.Profile{"80%": 4, "90%": 4, "95%": 4, "100%": 4}
	if !reflect.DeepEqual(items[0].Result.Vocab, want) {
		t.Fatalf("vocab = %v, want %v", items[0].Result.Vocab, want)
	}
}

type failingPool struct{}

func (failingPool) Start(ctx context.Context) {}
func (failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("pool unavailable")
}
func (failingPool) Close() {}

func TestRunSubmitError(t *testing.T) {
	dir := writeInputs(t)
	r := NewRunner(testAnalyzer(), nil)
	r.PoolFactory = func(workers, queue int) Pool { return failingPool{} }
	_, err := r.Run(context.Background(), []string{filepath.Join(dir, "a.txt")})
	if err == nil || err.Error() != "pool unavailable" {
		t.Fatalf("expected pool error, got %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	dir := writeInputs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(testAnalyzer(), nil)
	r.Workers = 1
	paths := make([]string, 50)
	for i := range paths {
		paths[i] = filepath.Join(dir, "a.txt")
	}
	if _, err := r.Run(ctx, paths); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
