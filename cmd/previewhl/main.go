// previewhl: preview a source file in the terminal with syntax coloring.
//
// The file is highlighted through the shared memory and disk caches, so a
// second preview of an unchanged file is served from the disk cache.  With
// -watch the preview is repainted whenever the file changes.
//
// Usage:
//
//	previewhl [-config ~/.config/previewhl/config.yaml] [-theme monokai] [-watch] file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/cptaffe/previewhl"
	"github.com/cptaffe/previewhl/config"
	"github.com/cptaffe/previewhl/logger"
	"github.com/cptaffe/previewhl/theme"
)

func main() {
	cfgPath := flag.String("config", "", "path to config.yaml (defaults apply when empty)")
	themeID := flag.String("theme", "", "theme id, overriding the config")
	langID := flag.String("lang", "", "language id, overriding detection")
	verbose := flag.Bool("v", false, "verbose logging")
	watch := flag.Bool("watch", false, "repaint when the file changes")
	maxBytes := flag.Int64("max-bytes", 1<<20, "preview at most this many bytes of the file")
	noColor := flag.Bool("no-color", false, "print the text without colors")
	stats := flag.Bool("stats", false, "print cache statistics to stderr on exit")
	listThemes := flag.Bool("list-themes", false, "list theme ids and exit")
	listLanguages := flag.Bool("list-languages", false, "list language ids and exit")
	flag.Parse()

	l, err := logger.New(*verbose)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zap.ReplaceGlobals(l)
	defer l.Sync() //nolint:errcheck

	cfg := config.Default()
	if *cfgPath != "" {
		if cfg, err = config.Load(*cfgPath); err != nil {
			l.Fatal("load config", zap.Error(err))
		}
	}
	if *themeID != "" {
		cfg.Theme = *themeID
	}

	themes, err := theme.NewRegistry(cfg.Themes)
	if err != nil {
		l.Fatal("compile themes", zap.Error(err))
	}
	if *listThemes {
		for _, name := range themes.Names() {
			fmt.Println(name)
		}
		return
	}
	if *listLanguages {
		for _, id := range previewhl.Languages() {
			fmt.Println(id)
		}
		return
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: previewhl [flags] file")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	palette, ok := themes.Resolve(cfg.Theme)
	if !ok {
		l.Warn("unknown theme, using default", zap.String("theme", cfg.Theme))
	}

	engine, closeEngine, err := previewhl.Open(cfg, l)
	if err != nil {
		l.Fatal("open engine", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	ctx = logger.NewContext(ctx, l)

	p := &printer{
		out:     os.Stdout,
		engine:  engine,
		palette: palette,
		lang:    *langID,
		color:   !*noColor,
		clear:   *watch,
	}
	if *watch {
		err = previewhl.Watch(ctx, path, *maxBytes, func(doc previewhl.Document) {
			p.show(ctx, doc)
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		var doc previewhl.Document
		if doc, err = previewhl.ReadDocument(path, *maxBytes); err == nil {
			p.show(ctx, doc)
		}
	}

	closeEngine()
	if *stats {
		printStats(os.Stderr, engine.Stats())
	}
	if err != nil {
		l.Fatal("preview", zap.String("path", path), zap.Error(err))
	}
}

func printStats(w io.Writer, s previewhl.Stats) {
	fmt.Fprintf(w, "memory hits %d, disk hits %d, fast %d, fallback %d, timeouts %d, plain %d\n",
		s.MemoryHits, s.DiskHits, s.FastRuns, s.FallbackRuns, s.Timeouts, s.Plain)
	fmt.Fprintf(w, "memory cache: %d hits, %d misses, %d evictions\n",
		s.Memory.Hits, s.Memory.Misses, s.Memory.Evictions)
	fmt.Fprintf(w, "disk cache: %d hits, %d misses, %d corrupt, %d writes (%d failed, %d dropped), %d sweeps removed %d\n",
		s.Disk.Hits, s.Disk.Misses, s.Disk.Corrupt, s.Disk.Writes, s.Disk.WriteErrors, s.Disk.Dropped, s.Disk.Sweeps, s.Disk.Removed)
}
