// Package previewhl is the highlighting-and-cache engine behind file
// previews.  Engine.Highlight is its only entry point: it resolves the
// document's language, consults the memory and disk caches, and on a miss
// runs the fast regex highlighter or, for languages without a pattern
// table, a time-bounded fallback engine.
package previewhl

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cptaffe/previewhl/cachekey"
	"github.com/cptaffe/previewhl/config"
	"github.com/cptaffe/previewhl/diskcache"
	"github.com/cptaffe/previewhl/fallback"
	"github.com/cptaffe/previewhl/fast"
	"github.com/cptaffe/previewhl/logger"
	"github.com/cptaffe/previewhl/memcache"
	"github.com/cptaffe/previewhl/styled"
	"github.com/cptaffe/previewhl/theme"
)

// Document is one file to preview.  Size and ModTime describe the file on
// disk and, with Path, identify the cached result.
type Document struct {
	Path       string
	Text       string
	LanguageID string // empty: detect from Path and Text
	ModTime    time.Time
	Size       int64
}

// Options configures an Engine.  The zero value is a memory-only engine
// with no fallback.
type Options struct {
	Memory memcache.Options

	// Disk is the shared persistent tier; nil disables it.  The Engine
	// does not close it.
	Disk *diskcache.Cache

	// Fallback highlights languages without a pattern table; nil means
	// such documents are returned plain.
	Fallback        fallback.Highlighter
	FallbackTimeout time.Duration

	Unit     styled.Unit
	Handlers []Handler
}

// DefaultFallbackTimeout applies when Options.FallbackTimeout is unset.
const DefaultFallbackTimeout = 2 * time.Second

// Stats is a snapshot of the engine counters.
type Stats struct {
	MemoryHits   uint64
	DiskHits     uint64
	FastRuns     uint64
	FallbackRuns uint64
	Timeouts     uint64
	Plain        uint64 // results returned uncolored after a miss

	Memory memcache.Stats
	Disk   diskcache.Stats
}

// Engine is safe for concurrent use.
type Engine struct {
	mem      *memcache.Cache
	disk     *diskcache.Cache
	fallback fallback.Highlighter
	timeout  time.Duration
	unit     styled.Unit
	handlers []Handler

	memoryHits   atomic.Uint64
	diskHits     atomic.Uint64
	fastRuns     atomic.Uint64
	fallbackRuns atomic.Uint64
	timeouts     atomic.Uint64
	plain        atomic.Uint64
}

// New returns an Engine for opts.
func New(opts Options) *Engine {
	if opts.FallbackTimeout <= 0 {
		opts.FallbackTimeout = DefaultFallbackTimeout
	}
	return &Engine{
		mem:      memcache.New(opts.Memory),
		disk:     opts.Disk,
		fallback: opts.Fallback,
		timeout:  opts.FallbackTimeout,
		unit:     opts.Unit,
		handlers: opts.Handlers,
	}
}

// Open builds an Engine from cfg with the standard fallback chain, opening
// the disk cache unless cfg disables it.  The returned close function
// drains and closes the disk cache.
func Open(cfg *config.Config, log *zap.Logger) (*Engine, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	unit, err := cfg.Unit()
	if err != nil {
		return nil, nil, err
	}
	handlers, err := CompileHandlers(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := Options{
		Memory:          memcache.Options{MaxEntries: cfg.MaxMemoryEntries, MaxBytes: cfg.MaxMemoryBytes},
		Fallback:        fallback.Default(),
		FallbackTimeout: cfg.FallbackTimeout(),
		Unit:            unit,
		Handlers:        handlers,
	}
	closeFn := func() {}
	if !cfg.DisableDiskCache {
		disk, err := diskcache.Open(diskcache.Options{
			Dir:             cfg.CacheDir,
			MaxBytes:        cfg.MaxDiskBytes,
			MaxFiles:        cfg.MaxDiskFiles,
			CleanupEvery:    cfg.CleanupEvery,
			CleanupInterval: cfg.CleanupInterval,
			Unit:            unit,
		}, log)
		if err != nil {
			// The engine still works from memory alone.
			log.Warn("disk cache unavailable", zap.String("dir", cfg.CacheDir), zap.Error(err))
		} else {
			opts.Disk = disk
			closeFn = disk.Close
		}
	}
	return New(opts), closeFn, nil
}

// Language returns the normalized language id Highlight uses for doc.
func (e *Engine) Language(doc Document) string {
	if doc.LanguageID != "" {
		return Normalize(doc.LanguageID)
	}
	return DetectLanguage(e.handlers, doc.Path, doc.Text)
}

// Key returns the cache key of doc highlighted with palette p.
func (e *Engine) Key(doc Document, p theme.Palette) cachekey.Key {
	return keyFor(doc, e.Language(doc), p)
}

func keyFor(doc Document, lang string, p theme.Palette) cachekey.Key {
	return cachekey.New(cachekey.Fields{
		Path:       doc.Path,
		ModTime:    doc.ModTime,
		Size:       doc.Size,
		ThemeID:    p.Fingerprint(),
		LanguageID: lang,
	})
}

// Highlight returns doc colored with palette p.  It never fails: a document
// that cannot be highlighted, or whose fallback run times out, comes back
// uncolored.
func (e *Engine) Highlight(ctx context.Context, doc Document, p theme.Palette) *styled.Result {
	lang := e.Language(doc)
	key := keyFor(doc, lang, p)
	log := logger.L(ctx).With(zap.String("path", doc.Path), zap.String("lang", lang))

	// An entry recorded for different text is stale; treat it as a miss.
	if r, ok := e.mem.Get(key); ok && r.Text == doc.Text {
		e.memoryHits.Add(1)
		log.Debug("memory cache hit")
		return r
	}
	if e.disk != nil {
		if r, ok := e.disk.Get(key); ok && r.Text == doc.Text {
			e.diskHits.Add(1)
			log.Debug("disk cache hit")
			e.mem.Set(key, r)
			return r
		}
	}

	r, durable := e.compute(ctx, log, doc.Text, lang, p)
	e.mem.Set(key, r)
	if durable && e.disk != nil {
		e.disk.Set(key, r)
	}
	return r
}

// compute runs the highlighters for a cache miss.  durable is false for a
// degraded result (timeout, engine error or panic) that a later process
// should retry rather than reuse from disk.
func (e *Engine) compute(ctx context.Context, log *zap.Logger, text, lang string, p theme.Palette) (r *styled.Result, durable bool) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("highlighter panic", zap.Any("panic", v), zap.Stack("stack"))
			r, durable = e.plainResult(text), false
		}
	}()

	if lang != cachekey.NoLanguage {
		start := time.Now()
		res, err := fast.Highlight(text, lang, p, e.unit)
		switch {
		case err == nil:
			e.fastRuns.Add(1)
			log.Debug("fast highlight", zap.Int("spans", len(res.Spans)), zap.Duration("took", time.Since(start)))
			return res, true
		case !errors.Is(err, fast.ErrUnsupported):
			log.Error("fast highlighter", zap.Error(err))
			return e.plainResult(text), false
		}
	}

	if lang == cachekey.NoLanguage || e.fallback == nil {
		return e.plainResult(text), true
	}

	e.fallbackRuns.Add(1)
	start := time.Now()
	res, err := e.runFallback(ctx, text, lang, p)
	switch {
	case err == nil:
		if verr := res.Validate(); verr != nil {
			log.Error("fallback produced invalid spans", zap.Error(verr))
			return e.plainResult(text), false
		}
		log.Debug("fallback highlight", zap.Int("spans", len(res.Spans)), zap.Duration("took", time.Since(start)))
		return res, true
	case errors.Is(err, fallback.ErrUnsupported):
		log.Debug("no highlighter for language")
		return e.plainResult(text), true
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		e.timeouts.Add(1)
		log.Warn("fallback highlight abandoned", zap.Duration("after", time.Since(start)), zap.Error(err))
		return e.plainResult(text), false
	default:
		log.Warn("fallback highlighter", zap.Error(err))
		return e.plainResult(text), false
	}
}

// runFallback runs the fallback engine on its own goroutine and stops
// waiting once the timeout passes.  The abandoned goroutine sees its context
// canceled and exits when the engine next checks it.
func (e *Engine) runFallback(ctx context.Context, text, lang string, p theme.Palette) (*styled.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		r   *styled.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- outcome{err: fmt.Errorf("fallback panic: %v", v)}
			}
		}()
		r, err := e.fallback.Highlight(ctx, text, lang, p, e.unit)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		if o.err == nil && o.r == nil {
			o.err = errors.New("fallback returned no result")
		}
		return o.r, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) plainResult(text string) *styled.Result {
	e.plain.Add(1)
	return styled.Plain(text, e.unit)
}

// Stats returns the engine and cache counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		MemoryHits:   e.memoryHits.Load(),
		DiskHits:     e.diskHits.Load(),
		FastRuns:     e.fastRuns.Load(),
		FallbackRuns: e.fallbackRuns.Load(),
		Timeouts:     e.timeouts.Load(),
		Plain:        e.plain.Load(),
		Memory:       e.mem.Stats(),
	}
	if e.disk != nil {
		s.Disk = e.disk.Stats()
	}
	return s
}
