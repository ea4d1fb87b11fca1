package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/storyweave/internal/logging"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/schema"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// graphExts lists recognised graph document extensions, in lookup order.
var graphExts = []string{".json", ".yaml", ".yml"}

// DefaultDebounce coalesces bursts of file events (editors often write twice).
const DefaultDebounce = 100 * time.Millisecond

// Source implements ports.GraphSource and ports.Watchable over a directory of
// graph documents. JSON and YAML documents are both parsed with yaml.v3.
type Source struct {
	Dir      string
	logger   *slog.Logger
	debounce time.Duration
	ignore   map[string]bool
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithLogger sets the logger used for watch errors.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) SourceOption {
	return func(s *Source) {
		s.debounce = d
	}
}

// WithIgnore hides files (by base name, e.g. "storyweave.yaml") that share
// the directory with graphs but are not graphs.
func WithIgnore(files ...string) SourceOption {
	return func(s *Source) {
		for _, f := range files {
			s.ignore[strings.ToLower(f)] = true
		}
	}
}

// NewSource creates a source reading graphs from dir.
func NewSource(dir string, opts ...SourceOption) *Source {
	s := &Source{Dir: dir, logger: logging.NewNop(), debounce: DefaultDebounce, ignore: map[string]bool{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadGraph reads the document named name (with or without extension).
// A document without a name takes its file name.
func (s *Source) LoadGraph(ctx context.Context, name string) (*domain.Graph, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses a single graph document from disk.
func LoadFile(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, path)
		}
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to parse %s: empty document", filepath.Base(path))
	}

	g, err := schema.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if g.Name == "" {
		g.Name = stem(path)
	}
	return g, nil
}

// ListGraphs returns the stems of all graph documents in the directory.
func (s *Source) ListGraphs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !isGraphFile(entry.Name()) || s.ignore[strings.ToLower(entry.Name())] {
			continue
		}
		n := stem(entry.Name())
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Source) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid graph name %q", name)
	}
	if isGraphFile(name) {
		return filepath.Join(s.Dir, name), nil
	}
	for _, ext := range graphExts {
		p := filepath.Join(s.Dir, name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrGraphNotFound, name)
}

// Watch signals after graph documents in the directory are written, created,
// removed or renamed. The channel is closed when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Dir, err)
	}

	ch := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, ch)
	return ch, nil
}

func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, ch chan struct{}) {
	defer close(ch)
	defer func() { _ = watcher.Close() }()

	var debounceTimer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isGraphFile(event.Name) {
				continue
			}
			s.logger.Debug("graph file changed", "file", filepath.Base(event.Name), "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(s.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			select {
			case ch <- struct{}{}:
			default:
				// A reload is already pending.
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func isGraphFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range graphExts {
		if ext == e {
			return true
		}
	}
	return false
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
