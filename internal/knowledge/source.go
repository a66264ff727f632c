package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// FileSuffix is appended to a city name to form its knowledge file name.
const FileSuffix = "_context.md"

// FileName returns the knowledge file name for city.
func FileName(city model.City) string {
	return string(model.NormalizeCity(string(city))) + FileSuffix
}

// CityFromFileName reverses FileName. ok is false for unrelated files.
func CityFromFileName(name string) (model.City, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, FileSuffix) {
		return "", false
	}
	city := strings.TrimSuffix(base, FileSuffix)
	if city == "" {
		return "", false
	}
	return model.NormalizeCity(city), true
}

// FileSource reads <dir>/<city>_context.md. Reads are cached for ttl and
// concurrent loads of the same city share one read.
type FileSource struct {
	cache    *cache.Cache
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	readFile func(string) ([]byte, error)
	// generations counts invalidations per city. A read only populates the
	// cache if no invalidation happened while it was in flight.
	generations map[string]uint64
	dir         string
	group       singleflight.Group
	wg          sync.WaitGroup
	mu          sync.Mutex
	cacheMu     sync.Mutex
}

// NewFileSource creates a file source rooted at dir. A ttl of zero disables
// caching.
func NewFileSource(dir string, ttl time.Duration, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileSource{
		dir:         dir,
		logger:      logger,
		readFile:    os.ReadFile,
		generations: make(map[string]uint64),
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Dir is the directory knowledge files are read from.
func (s *FileSource) Dir() string {
	return s.dir
}

// Path returns the knowledge file path for city.
func (s *FileSource) Path(city model.City) string {
	return filepath.Join(s.dir, FileName(city))
}

// Load returns the raw knowledge text for city.
func (s *FileSource) Load(ctx context.Context, city model.City) (string, error) {
	city = model.NormalizeCity(string(city))
	key := string(city)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if text, ok := cached.(string); ok {
				return text, nil
			}
		}
	}

	s.cacheMu.Lock()
	gen := s.generations[key]
	s.cacheMu.Unlock()

	result, err, _ := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.readFile(s.Path(city))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", common.ErrKnowledgeNotFound, s.Path(city))
			}
			return nil, fmt.Errorf("failed to read %s: %w", s.Path(city), err)
		}
		text := string(data)
		s.store(key, gen, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	text, _ := result.(string)
	return text, nil
}

func (s *FileSource) store(key string, gen uint64, text string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generations[key] != gen {
		return
	}
	s.cache.Set(key, text, cache.DefaultExpiration)
}

// Invalidate drops any cached text for city and discards reads of it that
// are still in flight.
func (s *FileSource) Invalidate(city model.City) {
	key := string(model.NormalizeCity(string(city)))
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generations[key]++
	if s.cache != nil {
		s.cache.Delete(key)
	}
}

// Available lists the cities that have a knowledge file in the directory.
func (s *FileSource) Available() ([]model.City, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrKnowledgeNotFound, s.dir)
		}
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var cities []model.City
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if city, ok := CityFromFileName(e.Name()); ok {
			cities = append(cities, city)
		}
	}
	return cities, nil
}

// Watch starts invalidating cached entries when their files change on disk.
// It returns once the watcher is registered; events are handled until ctx is
// done or Close is called.
func (s *FileSource) Watch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	s.watcher = watcher
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.watchLoop(ctx, watcher, s.stopCh)

	s.logger.Info("watching knowledge directory", "dir", s.dir)
	return nil
}

func (s *FileSource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stopCh <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("knowledge watcher error", "error", err)
		}
	}
}

func (s *FileSource) handleEvent(event fsnotify.Event) {
	city, ok := CityFromFileName(event.Name)
	if !ok {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	s.Invalidate(city)
	s.logger.Debug("knowledge file changed", "city", city, "op", event.Op.String())
}

// Close stops the watcher, if any.
func (s *FileSource) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	stopCh := s.stopCh
	s.watcher = nil
	s.stopCh = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(stopCh)
	err := watcher.Close()
	s.wg.Wait()
	return err
}

// MapSource serves knowledge from memory. It is used by tests and by the
// evaluation runner when suites carry inline knowledge.
type MapSource struct {
	texts map[model.City]string
	mu    sync.RWMutex
}

// NewMapSource creates a source from city name to text.
func NewMapSource(texts map[string]string) *MapSource {
	m := &MapSource{texts: make(map[model.City]string, len(texts))}
	for city, text := range texts {
		m.texts[model.NormalizeCity(city)] = text
	}
	return m
}

// Load returns the text for city or ErrKnowledgeNotFound.
func (m *MapSource) Load(ctx context.Context, city model.City) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	text, ok := m.texts[model.NormalizeCity(string(city))]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrKnowledgeNotFound, city)
	}
	return text, nil
}

// Set replaces the text for city.
func (m *MapSource) Set(city model.City, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[model.NormalizeCity(string(city))] = text
}

// Invalidate is a no-op; MapSource has no cache.
func (m *MapSource) Invalidate(model.City) {}
