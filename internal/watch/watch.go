// Package watch re-runs diffs when watched files change on disk.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/interpretive-systems/diffkit/internal/config"
	"github.com/interpretive-systems/diffkit/internal/diffmodel"
	"github.com/interpretive-systems/diffkit/internal/session"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports debounced changes of files and directory trees.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	onChange func(path string)
	log      *slog.Logger

	mu      sync.Mutex
	files   map[string]bool // watched files, by absolute path
	trees   []string        // watched directory roots
	pending map[string]*time.Timer
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher calling onChange, from its own goroutine, once per settled change.
func New(debounce time.Duration, onChange func(path string), log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{
		fs:       fw,
		debounce: debounce,
		onChange: onChange,
		log:      log.With("component", "watch"),
		files:    make(map[string]bool),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// AddFile watches a single file. Its directory is watched so that editors saving through rename are seen.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.mu.Lock()
	w.files[abs] = true
	w.mu.Unlock()
	return nil
}

// AddTree watches every file below root, skipping .git and other hidden directories.
func (w *Watcher) AddTree(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.trees = append(w.trees, abs)
	w.mu.Unlock()
	return w.addDirs(abs)
}

func (w *Watcher) addDirs(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil // Skip errors
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.log.Warn("cannot watch directory", "path", path, "err", err)
		}
		return nil
	})
}

func (w *Watcher) interested(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[path] {
		return true
	}
	for _, t := range w.trees {
		if path == t || strings.HasPrefix(path, t+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			path, err := filepath.Abs(ev.Name)
			if err != nil || !w.interested(path) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					_ = w.addDirs(path)
					continue
				}
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				w.schedule(path)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.log.Debug("file changed", "path", path)
			w.onChange(path)
		}
	})
}

// Close stops watching. Pending notifications are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// Submitter accepts diff requests; *session.Scheduler implements it.
type Submitter interface {
	Submit(session.Request) (session.Ticket, error)
}

// Pair is an old/new file pair diffed as one session.
type Pair struct {
	Old string
	New string
}

// Session names the pair's scheduler session.
func (p Pair) Session() string {
	return p.Old + "\x00" + p.New
}

// Submit reads both files and submits their diff. A missing file diffs as empty, so creation and deletion show up as
// whole-file changes.
func Submit(s Submitter, p Pair, cfg config.Diff) (session.Ticket, error) {
	oldB, err := readOptional(p.Old)
	if err != nil {
		return session.Ticket{}, err
	}
	newB, err := readOptional(p.New)
	if err != nil {
		return session.Ticket{}, err
	}
	return s.Submit(session.Request{
		Session: p.Session(),
		Old:     diffmodel.Input{Path: p.Old, Content: oldB},
		New:     diffmodel.Input{Path: p.New, Content: newB},
		Config:  cfg,
	})
}

func readOptional(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// Pairs watches the files of every pair and resubmits a pair whenever one of its files changes. Each pair is submitted
// once up front. Resubmitting under the same session supersedes the older computation.
func Pairs(s Submitter, pairs []Pair, cfg config.Diff, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	var mu sync.Mutex
	byPath := make(map[string][]Pair)
	var w *Watcher
	w, err := New(debounce, func(path string) {
		mu.Lock()
		ps := byPath[path]
		mu.Unlock()
		for _, p := range ps {
			if _, err := Submit(s, p, cfg); err != nil {
				w.log.Warn("resubmit failed", "old", p.Old, "new", p.New, "err", err)
			}
		}
	}, log)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		for _, f := range []string{p.Old, p.New} {
			abs, err := filepath.Abs(f)
			if err != nil {
				w.Close()
				return nil, err
			}
			if err := w.AddFile(abs); err != nil {
				w.Close()
				return nil, err
			}
			mu.Lock()
			byPath[abs] = append(byPath[abs], p)
			mu.Unlock()
		}
		if _, err := Submit(s, p, cfg); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}
