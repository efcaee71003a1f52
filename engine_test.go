package previewhl

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cptaffe/previewhl/cachekey"
	"github.com/cptaffe/previewhl/config"
	"github.com/cptaffe/previewhl/diskcache"
	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/theme"
)

var goDoc = Document{
	Path:       "/src/main.go",
	Text:       "func f() { return 1 }",
	LanguageID: "go",
	ModTime:    time.Unix(1700000000, 0),
	Size:       21,
}

// fakeFallback is a scripted fallback engine.
type fakeFallback struct {
	calls atomic.Int32
	fn    func(ctx context.Context, text string, unit styled.Unit) (*styled.Result, error)
}

func (f *fakeFallback) Highlight(ctx context.Context, text, _ string, _ theme.Palette, unit styled.Unit) (*styled.Result, error) {
	f.calls.Add(1)
	return f.fn(ctx, text, unit)
}

func oneSpan(_ context.Context, text string, unit styled.Unit) (*styled.Result, error) {
	return &styled.Result{Text: text, Unit: unit, Spans: []styled.Span{{Start: 0, End: 1, Role: styled.RoleKeyword}}}, nil
}

func TestHighlightIdempotent(t *testing.T) {
	e := New(Options{})
	ctx := context.Background()

	first := e.Highlight(ctx, goDoc, theme.Default)
	if len(first.Spans) != 3 {
		t.Fatalf("spans = %+v", first.Spans)
	}
	second := e.Highlight(ctx, goDoc, theme.Default)
	if second != first {
		t.Error("second call did not return the cached result")
	}
	s := e.Stats()
	if s.FastRuns != 1 || s.MemoryHits != 1 {
		t.Errorf("Stats = %+v, want 1 fast run and 1 memory hit", s)
	}
}

func TestKeyChangesRecompute(t *testing.T) {
	other, _ := theme.New("other", map[string]string{"keyword": "#ff0000"})
	cases := []struct {
		name string
		doc  Document
		p    theme.Palette
	}{
		{"modtime", func() Document { d := goDoc; d.ModTime = d.ModTime.Add(time.Second); return d }(), theme.Default},
		{"size", func() Document { d := goDoc; d.Size++; return d }(), theme.Default},
		{"path", func() Document { d := goDoc; d.Path = "/src/other.go"; return d }(), theme.Default},
		{"theme", goDoc, other},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := New(Options{})
			e.Highlight(context.Background(), goDoc, theme.Default)
			r := e.Highlight(context.Background(), c.doc, c.p)
			if got := e.Stats().FastRuns; got != 2 {
				t.Errorf("FastRuns = %d, want 2", got)
			}
			if want := c.p.Color(styled.RoleKeyword); r.Spans[0].Color != want {
				t.Errorf("keyword color = %v, want %v", r.Spans[0].Color, want)
			}
		})
	}
}

func TestStaleTextIsMiss(t *testing.T) {
	e := New(Options{})
	e.Highlight(context.Background(), goDoc, theme.Default)
	d := goDoc
	d.Text = "var x = 2"
	if r := e.Highlight(context.Background(), d, theme.Default); r.Text != d.Text {
		t.Errorf("Text = %q, want %q", r.Text, d.Text)
	}
}

func TestFallbackUsed(t *testing.T) {
	fb := &fakeFallback{fn: oneSpan}
	e := New(Options{Fallback: fb})
	d := goDoc
	d.LanguageID = "ruby"
	r := e.Highlight(context.Background(), d, theme.Default)
	if len(r.Spans) != 1 {
		t.Errorf("spans = %+v", r.Spans)
	}
	e.Highlight(context.Background(), d, theme.Default)
	if fb.calls.Load() != 1 {
		t.Errorf("fallback called %d times, want 1", fb.calls.Load())
	}
	if s := e.Stats(); s.FallbackRuns != 1 || s.FastRuns != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestFallbackTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fb := &fakeFallback{fn: func(context.Context, string, styled.Unit) (*styled.Result, error) {
		// Ignores its context: the engine must not wait for it.
		<-release
		return nil, nil
	}}
	e := New(Options{Fallback: fb, FallbackTimeout: 50 * time.Millisecond})
	d := goDoc
	d.LanguageID = "ruby"

	start := time.Now()
	r := e.Highlight(context.Background(), d, theme.Default)
	if took := time.Since(start); took > time.Second {
		t.Errorf("Highlight took %v with a 50ms timeout", took)
	}
	if r.Text != d.Text || len(r.Spans) != 0 {
		t.Errorf("result = %+v, want plain text", r)
	}
	if s := e.Stats(); s.Timeouts != 1 || s.Plain != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestNoLanguageIsPlain(t *testing.T) {
	fb := &fakeFallback{fn: oneSpan}
	e := New(Options{Fallback: fb})
	d := Document{Path: "/notes/scratch.zzq", Text: "just words"}
	if got := e.Language(d); got != cachekey.NoLanguage {
		t.Fatalf("Language = %q, want %q", got, cachekey.NoLanguage)
	}
	r := e.Highlight(context.Background(), d, theme.Default)
	if len(r.Spans) != 0 || fb.calls.Load() != 0 {
		t.Errorf("spans = %+v, fallback calls = %d", r.Spans, fb.calls.Load())
	}
}

func TestUnsupportedWithoutFallback(t *testing.T) {
	e := New(Options{})
	d := goDoc
	d.LanguageID = "cobol"
	r := e.Highlight(context.Background(), d, theme.Default)
	if len(r.Spans) != 0 || r.Text != d.Text {
		t.Errorf("result = %+v", r)
	}
	if e.Stats().Plain != 1 {
		t.Errorf("Plain = %d", e.Stats().Plain)
	}
}

func TestFallbackFailuresArePlain(t *testing.T) {
	cases := []struct {
		name string
		fn   func(context.Context, string, styled.Unit) (*styled.Result, error)
	}{
		{"panic", func(context.Context, string, styled.Unit) (*styled.Result, error) {
			panic("grammar exploded")
		}},
		{"out of bounds", func(_ context.Context, text string, unit styled.Unit) (*styled.Result, error) {
			return &styled.Result{Text: text, Unit: unit, Spans: []styled.Span{{Start: 0, End: 9999}}}, nil
		}},
		{"nil result", func(context.Context, string, styled.Unit) (*styled.Result, error) {
			return nil, nil
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := New(Options{Fallback: &fakeFallback{fn: c.fn}})
			d := goDoc
			d.LanguageID = "ruby"
			r := e.Highlight(context.Background(), d, theme.Default)
			if r == nil || r.Text != d.Text || len(r.Spans) != 0 {
				t.Errorf("result = %+v, want plain", r)
			}
		})
	}
}

func openDisk(t *testing.T, dir string) *diskcache.Cache {
	t.Helper()
	d, err := diskcache.Open(diskcache.Options{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestDiskPromotion(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	diskA := openDisk(t, dir)
	a := New(Options{Disk: diskA})
	want := a.Highlight(ctx, goDoc, theme.Default)
	diskA.Flush()

	// A second process sharing the directory.
	b := New(Options{Disk: openDisk(t, dir)})
	got := b.Highlight(ctx, goDoc, theme.Default)
	if len(got.Spans) != len(want.Spans) || got.Text != want.Text {
		t.Fatalf("disk hit = %+v, want %+v", got, want)
	}
	b.Highlight(ctx, goDoc, theme.Default)
	s := b.Stats()
	if s.DiskHits != 1 || s.MemoryHits != 1 || s.FastRuns != 0 {
		t.Errorf("Stats = %+v, want 1 disk hit then 1 memory hit", s)
	}
}

func TestTimeoutNotPersisted(t *testing.T) {
	dir := t.TempDir()
	disk := openDisk(t, dir)
	fb := &fakeFallback{fn: func(ctx context.Context, _ string, _ styled.Unit) (*styled.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	e := New(Options{Disk: disk, Fallback: fb, FallbackTimeout: 20 * time.Millisecond})
	d := goDoc
	d.LanguageID = "ruby"
	e.Highlight(context.Background(), d, theme.Default)
	disk.Flush()
	if _, ok := disk.Get(e.Key(d, theme.Default)); ok {
		t.Error("timed-out result was written to disk")
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	cfg.PositionUnit = "utf16"
	cfg.FilenameHandlers = []config.FilenameHandler{{Pattern: `\.tmpl$`, LanguageID: "golang"}}

	e, closeFn, err := Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	d := Document{Path: "/x/page.tmpl", Text: "\"😀\" 1"}
	if got := e.Language(d); got != "go" {
		t.Errorf("Language = %q, want go", got)
	}
	r := e.Highlight(context.Background(), d, theme.Default)
	if r.Unit != styled.UnitUTF16 || len(r.Spans) != 2 || r.Spans[1].Start != 5 {
		t.Errorf("result = %+v", r)
	}
	if e.disk == nil {
		t.Error("disk cache not opened")
	}
}
