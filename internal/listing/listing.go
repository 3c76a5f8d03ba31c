package listing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/apiclient"
	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/fixtures"
	"kesurge.org/kesurge-web/internal/textutil"
)

// User-facing failure messages.
const (
	LoadErrorMessage    = "Error al cargar lugares"
	FixtureErrorMessage = "Error: Verifica que tu locales.json no tenga errores de sintaxis."
)

// ErrSuperseded is returned by a load that finished after a newer load was issued. Its result
// was discarded.
var ErrSuperseded = errors.New("listing: superseded by a newer load")

// Fetcher lists places from the backend.
type Fetcher interface {
	Places(ctx context.Context, filters apiclient.PlaceFilters) (domain.PlaceList, error)
}

// PlaceSource reads place fixture files.
type PlaceSource interface {
	Places(name string) ([]domain.Place, error)
}

// Options tunes the backend query and search behaviour.
type Options struct {
	PageSize        int
	Order           string
	MinSearchLength int
}

// View is the outcome of a controller operation, ready to be rendered.
type View struct {
	Category string
	Term     string
	Places   []domain.Place
	Err      error
	// Message is the user-facing text shown instead of the list when Err is set.
	Message string
}

// Failed reports whether the view carries an error.
func (v View) Failed() bool { return v.Err != nil }

// Superseded reports whether the view was discarded in favour of a newer load.
func (v View) Superseded() bool { return errors.Is(v.Err, ErrSuperseded) }

// Controller owns one session's place list. Only the most recently issued load may replace
// the list.
type Controller struct {
	fetcher Fetcher
	opts    Options
	logger  *zap.Logger

	mu           sync.Mutex
	lastCategory string
	current      []domain.Place
	generation   uint64
	cancel       context.CancelFunc
	loading      bool
}

// New returns a controller with an empty list.
func New(fetcher Fetcher, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinSearchLength <= 0 {
		opts.MinSearchLength = 2
	}
	return &Controller{fetcher: fetcher, opts: opts, logger: logger, current: []domain.Place{}}
}

// begin starts a new generation and cancels the previous in-flight load.
func (c *Controller) begin(ctx context.Context) (context.Context, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	return loadCtx, c.generation
}

// finish reports whether gen is still current, releasing the load when it is. The caller
// must hold c.mu.
func (c *Controller) finish(gen uint64) bool {
	if gen != c.generation {
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
	return true
}

// Load fetches places for category ("" for all) and makes them the current list.
func (c *Controller) Load(ctx context.Context, category string) View {
	category = strings.TrimSpace(category)
	loadCtx, gen := c.begin(ctx)

	list, err := c.fetcher.Places(loadCtx, apiclient.PlaceFilters{
		Category: category,
		Limit:    c.opts.PageSize,
		Order:    c.opts.Order,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(gen) {
		c.logger.Debug("discarding stale place load", zap.String("category", category), zap.Uint64("generation", gen))
		return View{Category: category, Err: ErrSuperseded}
	}
	if err != nil {
		c.logger.Error("load places", zap.String("category", category), zap.Error(err))
		return View{Category: category, Err: err, Message: LoadErrorMessage}
	}

	places := list.Places
	if places == nil {
		places = []domain.Place{}
	}
	c.current = places
	c.lastCategory = category
	c.logger.Info("places loaded", zap.String("category", category), zap.Int("count", len(places)))
	return View{Category: category, Places: clonePlaces(places)}
}

// FilterByCategory reloads the list for category.
func (c *Controller) FilterByCategory(ctx context.Context, category string) View {
	return c.Load(ctx, category)
}

// LoadFixtures replaces the current list with a fixture file.
func (c *Controller) LoadFixtures(ctx context.Context, src PlaceSource, name string) View {
	if name == "" {
		name = fixtures.LocalesFile
	}
	loadCtx, gen := c.begin(ctx)
	places, err := src.Places(name)
	if err == nil {
		err = loadCtx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(gen) {
		return View{Err: ErrSuperseded}
	}
	if err != nil {
		c.logger.Error("load place fixtures", zap.String("file", name), zap.Error(err))
		return View{Err: err, Message: FixtureErrorMessage}
	}
	if places == nil {
		places = []domain.Place{}
	}
	c.current = places
	c.lastCategory = ""
	return View{Places: clonePlaces(places)}
}

// SearchByName filters the current list without fetching. Terms shorter than the minimum
// search length return the whole list. Matching ignores case and accents and checks the name
// and, when present, the address.
func (c *Controller) SearchByName(term string) View {
	c.mu.Lock()
	places := clonePlaces(c.current)
	category := c.lastCategory
	c.mu.Unlock()

	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < c.opts.MinSearchLength {
		return View{Category: category, Term: term, Places: places}
	}

	needle := textutil.Fold(term)
	out := make([]domain.Place, 0, len(places))
	for _, p := range places {
		if strings.Contains(textutil.Fold(p.Name), needle) ||
			(p.Address != "" && strings.Contains(textutil.Fold(p.Address), needle)) {
			out = append(out, p)
		}
	}
	c.logger.Debug("search places", zap.String("term", term), zap.Int("matches", len(out)))
	return View{Category: category, Term: term, Places: out}
}

// Current returns a copy of the current list.
func (c *Controller) Current() []domain.Place {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clonePlaces(c.current)
}

// LastCategory returns the category of the last successful load.
func (c *Controller) LastCategory() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCategory
}

// Loading reports whether a load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Close cancels any in-flight load.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
}

func clonePlaces(in []domain.Place) []domain.Place {
	out := make([]domain.Place, len(in))
	copy(out, in)
	return out
}
