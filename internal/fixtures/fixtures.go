package fixtures

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"kesurge.org/kesurge-web/internal/domain"
)

// Well-known fixture file names.
const (
	EventsFile         = "eventos.json"
	AgendaFile         = "agenda.json"
	LocalesFile        = "locales.json"
	FrontendPlacesFile = "lugares_frontend.json"
	MapFile            = "mapa.json"
)

var (
	// ErrNotFound is returned when a fixture file does not exist.
	ErrNotFound = errors.New("fixtures: file not found")
	// ErrMalformed is returned when a fixture file is not valid JSON for its shape.
	ErrMalformed = errors.New("fixtures: malformed json")
)

// Store reads fixture files from a filesystem. File contents are cached unless the store
// was opened in reload mode.
type Store struct {
	fsys   fs.FS
	reload bool

	mu    sync.Mutex
	cache map[string][]byte
}

// Open returns a store rooted at dir. When reload is true every read hits the filesystem,
// which keeps edits visible in development.
func Open(dir string, reload bool) *Store {
	return New(os.DirFS(dir), reload)
}

// New returns a store over fsys.
func New(fsys fs.FS, reload bool) *Store {
	return &Store{fsys: fsys, reload: reload, cache: map[string][]byte{}}
}

// Events decodes an event list (eventos.json or agenda.json).
func (s *Store) Events(name string) ([]domain.Event, error) {
	var events []domain.Event
	if err := s.load(name, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Places decodes a place list (locales.json or lugares_frontend.json).
func (s *Store) Places(name string) ([]domain.Place, error) {
	var places []domain.Place
	if err := s.load(name, &places); err != nil {
		return nil, err
	}
	return places, nil
}

// MapPoints decodes mapa.json.
func (s *Store) MapPoints() ([]domain.MapPoint, error) {
	var points []domain.MapPoint
	if err := s.load(MapFile, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) load(name string, out any) error {
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if !s.reload {
		s.mu.Lock()
		raw, ok := s.cache[name]
		s.mu.Unlock()
		if ok {
			return json.Unmarshal(raw, out)
		}
	}

	raw, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("fixtures: read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}

	if !s.reload {
		s.mu.Lock()
		s.cache[name] = raw
		s.mu.Unlock()
	}
	return nil
}
