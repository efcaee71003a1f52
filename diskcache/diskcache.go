// Package diskcache is the persistent tier of the highlight cache.  Entries
// are single files named after their key and are shared by every process
// pointed at the same directory.
//
// Processes do not lock against each other.  Writes land in a temp file in
// the cache directory and are renamed over the entry, so a reader sees
// either the old entry, the new one, or none; anything unreadable or
// undecodable is reported as a miss.
package diskcache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/cptaffe/previewhl/cachekey"
	"github.com/cptaffe/previewhl/styled"
)

// Defaults applied when Options leaves a field unset.
const (
	DefaultMaxBytes        = 100 << 20
	DefaultMaxFiles        = 500
	DefaultCleanupEvery    = 10
	DefaultCleanupInterval = 30 * time.Second
	DefaultQueueSize       = 64
)

const (
	entryExt   = ".hl"
	tempPrefix = ".tmp-"
	// staleTempAge is how old a temp file must be before a sweep treats it
	// as abandoned by a crashed writer.
	staleTempAge = time.Minute
)

// Options configures a Cache.
type Options struct {
	// Dir holds the entry files.  Required.
	Dir string

	// MaxBytes and MaxFiles bound the directory after a sweep.
	MaxBytes int64
	MaxFiles int

	// A sweep runs after every CleanupEvery writes, but at most once per
	// CleanupInterval.
	CleanupEvery    int
	CleanupInterval time.Duration

	// QueueSize is the number of pending writes held before Set starts
	// dropping them.
	QueueSize int

	// Unit is the position unit of the results this process stores.
	// Entries recorded in another unit are misses.
	Unit styled.Unit
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Corrupt     uint64
	Writes      uint64
	WriteErrors uint64
	Dropped     uint64
	Sweeps      uint64
	Removed     uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time

	queue chan job
	done  chan struct{}

	// mu guards the fields below; it is never held across file I/O.
	mu          sync.Mutex
	idle        *sync.Cond
	closed      bool
	pending     int
	writes      int
	lastCleanup time.Time

	hits        atomic.Uint64
	misses      atomic.Uint64
	corrupt     atomic.Uint64
	written     atomic.Uint64
	writeErrors atomic.Uint64
	dropped     atomic.Uint64
	sweeps      atomic.Uint64
	removed     atomic.Uint64
}

type job struct {
	key    cachekey.Key
	result *styled.Result
}

// Open creates opts.Dir if needed and starts the background writer.
// log may be nil.
func Open(opts Options, log *zap.Logger) (*Cache, error) {
	if opts.Dir == "" {
		return nil, errors.New("diskcache: directory is required")
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.CleanupEvery <= 0 {
		opts.CleanupEvery = DefaultCleanupEvery
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: %w", err)
	}

	c := &Cache{
		opts:  opts,
		log:   log.With(zap.String("dir", opts.Dir)),
		now:   time.Now,
		queue: make(chan job, opts.QueueSize),
		done:  make(chan struct{}),
	}
	c.idle = sync.NewCond(&c.mu)
	go c.run()
	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.opts.Dir }

func (c *Cache) path(key cachekey.Key) string {
	return filepath.Join(c.opts.Dir, key.String()+entryExt)
}

// errForeignUnit marks an intact entry written in another position unit.
var errForeignUnit = errors.New("foreign unit")

// Get reads the entry for key.  Missing, unreadable, corrupt and
// foreign-unit entries are all misses; Get never returns an error.
// Corrupt entries are removed so the next Set rewrites them.
func (c *Cache) Get(key cachekey.Key) (*styled.Result, bool) {
	path := c.path(key)
	r, err := c.read(path)
	switch {
	case err == nil:
		c.hits.Add(1)
		return r, true
	case errors.Is(err, fs.ErrNotExist):
	case errors.Is(err, styled.ErrCorrupt):
		c.corrupt.Add(1)
		c.log.Debug("corrupt entry", zap.Stringer("key", key), zap.Error(err))
		if !errors.Is(err, errForeignUnit) {
			c.removeFile(filepath.Base(path))
		}
	default:
		c.log.Debug("read entry", zap.Stringer("key", key), zap.Error(err))
	}
	c.misses.Add(1)
	return nil, false
}

func (c *Cache) read(path string) (*styled.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 || fi.Size() > c.opts.MaxBytes {
		return nil, fmt.Errorf("%w: entry size %d", styled.ErrCorrupt, fi.Size())
	}

	var r *styled.Result
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		// Some filesystems refuse mappings; fall back to a plain read.
		data, rerr := io.ReadAll(f)
		if rerr != nil {
			return nil, rerr
		}
		r, err = styled.Decode(data)
	} else {
		r, err = styled.Decode(m)
		_ = m.Unmap()
	}
	if err != nil {
		return nil, err
	}
	if r.Unit != c.opts.Unit {
		return nil, fmt.Errorf("%w: %w: entry unit %v, want %v", styled.ErrCorrupt, errForeignUnit, r.Unit, c.opts.Unit)
	}
	return r, nil
}

// Set queues r to be written under key and returns immediately.  If the
// queue is full or the cache is closed the write is dropped.
func (c *Cache) Set(key cachekey.Key, r *styled.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.queue <- job{key: key, result: r}:
		c.pending++
	default:
		c.dropped.Add(1)
		c.log.Debug("write queue full, dropping entry", zap.Stringer("key", key))
	}
}

// Flush blocks until every write queued before the call has finished.
func (c *Cache) Flush() {
	c.mu.Lock()
	for c.pending > 0 {
		c.idle.Wait()
	}
	c.mu.Unlock()
}

// Close finishes queued writes and stops the writer.  Later Sets are
// dropped; Get keeps working.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()
	<-c.done
}

func (c *Cache) run() {
	defer close(c.done)
	for j := range c.queue {
		if err := c.write(j); err != nil {
			c.writeErrors.Add(1)
			c.log.Warn("write entry", zap.Stringer("key", j.key), zap.Error(err))
		} else {
			c.written.Add(1)
		}
		if c.sweepDue() {
			if _, err := c.Sweep(); err != nil {
				c.log.Warn("sweep", zap.Error(err))
			}
		}

		c.mu.Lock()
		c.pending--
		if c.pending == 0 {
			c.idle.Broadcast()
		}
		c.mu.Unlock()
	}
}

// sweepDue counts one write and reports whether a rate-limited sweep should
// run now.
func (c *Cache) sweepDue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	now := c.now()
	if c.writes < c.opts.CleanupEvery {
		return false
	}
	if !c.lastCleanup.IsZero() && now.Sub(c.lastCleanup) < c.opts.CleanupInterval {
		return false
	}
	c.writes = 0
	c.lastCleanup = now
	return true
}

// write replaces the entry for j.key atomically.
func (c *Cache) write(j job) error {
	data, err := styled.Encode(j.result)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.opts.Dir, tempPrefix+"*")
	if errors.Is(err, fs.ErrNotExist) {
		// The directory was removed from under us; recreate it once.
		if err := os.MkdirAll(c.opts.Dir, 0o755); err != nil {
			return err
		}
		tmp, err = os.CreateTemp(c.opts.Dir, tempPrefix+"*")
	}
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.path(j.key)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

// Sweep removes the oldest entries, by modification time, until the
// directory is within both MaxFiles and MaxBytes, and deletes temp files
// abandoned by crashed writers.  It returns the number of files removed.
func (c *Cache) Sweep() (int, error) {
	c.sweeps.Add(1)
	dirents, err := os.ReadDir(c.opts.Dir)
	if err != nil {
		return 0, err
	}
	now := c.now()
	removed := 0
	var entries []fileInfo
	var total int64
	for _, d := range dirents {
		if !d.Type().IsRegular() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue // removed by another process
		}
		name := d.Name()
		switch {
		case strings.HasPrefix(name, tempPrefix):
			if now.Sub(info.ModTime()) > staleTempAge && c.removeFile(name) {
				removed++
			}
		case strings.HasSuffix(name, entryExt):
			entries = append(entries, fileInfo{name: name, size: info.Size(), modTime: info.ModTime()})
			total += info.Size()
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].modTime.Before(entries[j].modTime)
		}
		return entries[i].name < entries[j].name
	})
	count := len(entries)
	for _, e := range entries {
		if count <= c.opts.MaxFiles && total <= c.opts.MaxBytes {
			break
		}
		if c.removeFile(e.name) {
			removed++
		}
		count--
		total -= e.size
	}
	if removed > 0 {
		c.log.Debug("sweep removed files", zap.Int("removed", removed), zap.Int("remaining", count))
	}
	return removed, nil
}

// removeFile deletes name from the cache directory.  A file already gone
// counts as removed by someone else and reports false.
func (c *Cache) removeFile(name string) bool {
	err := os.Remove(filepath.Join(c.opts.Dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Debug("remove", zap.String("file", name), zap.Error(err))
		}
		return false
	}
	c.removed.Add(1)
	return true
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Corrupt:     c.corrupt.Load(),
		Writes:      c.written.Load(),
		WriteErrors: c.writeErrors.Load(),
		Dropped:     c.dropped.Load(),
		Sweeps:      c.sweeps.Load(),
		Removed:     c.removed.Load(),
	}
}
