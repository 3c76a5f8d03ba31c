package status

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kesurge.org/kesurge-web/internal/domain"
)

// Overall states reported by a Summary.
const (
	StateOperational = "operational"
	StateDegraded    = "degraded"
	StateDown        = "down"
)

// Component states.
const (
	ComponentOK    = "ok"
	ComponentError = "error"
)

// Summary captures an overview of the backend's health.
type Summary struct {
	State      string      `json:"state"`
	StateLabel string      `json:"state_label"`
	CheckedAt  time.Time   `json:"checked_at"`
	Components []Component `json:"components"`
}

// Component is the result of probing one backend endpoint.
type Component struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Backend is the subset of the API client the checker probes.
type Backend interface {
	Stats(ctx context.Context) (domain.Stats, error)
	Categories(ctx context.Context) (map[string]int, error)
}

// ErrNoBackend is returned when a checker has nothing to probe.
var ErrNoBackend = errors.New("status: backend not configured")

// Checker probes the backend endpoints concurrently.
type Checker struct {
	backend Backend
	timeout time.Duration
	now     func() time.Time
}

// NewChecker builds a checker. A non-positive timeout disables the per-probe deadline.
func NewChecker(backend Backend, timeout time.Duration) *Checker {
	return &Checker{backend: backend, timeout: timeout, now: time.Now}
}

type probe struct {
	name string
	run  func(context.Context) error
}

// Check runs every probe and folds the results into a Summary. Probe failures are
// recorded per component; the returned error is only set when no backend exists.
func (c *Checker) Check(ctx context.Context) (Summary, error) {
	if c == nil || c.backend == nil {
		return Summary{State: StateDown, StateLabel: label(StateDown)}, ErrNoBackend
	}
	probes := []probe{
		{name: "estadisticas", run: func(ctx context.Context) error { _, err := c.backend.Stats(ctx); return err }},
		{name: "categorias", run: func(ctx context.Context) error { _, err := c.backend.Categories(ctx); return err }},
	}

	var (
		mu         sync.Mutex
		components = make([]Component, 0, len(probes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			pctx := gctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(gctx, c.timeout)
				defer cancel()
			}
			start := c.now()
			err := p.run(pctx)
			comp := Component{Name: p.name, Status: ComponentOK, LatencyMS: c.now().Sub(start).Milliseconds()}
			if err != nil {
				comp.Status = ComponentError
				comp.Error = err.Error()
			}
			mu.Lock()
			components = append(components, comp)
			mu.Unlock()
			// Probe errors are data, not group failures; siblings keep running.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })
	state := fold(components)
	return Summary{
		State:      state,
		StateLabel: label(state),
		CheckedAt:  c.now().UTC(),
		Components: components,
	}, nil
}

func fold(components []Component) string {
	failed := 0
	for _, comp := range components {
		if comp.Status != ComponentOK {
			failed++
		}
	}
	switch {
	case failed == 0:
		return StateOperational
	case failed == len(components):
		return StateDown
	default:
		return StateDegraded
	}
}

func label(state string) string {
	switch state {
	case StateOperational:
		return "Todos los servicios operativos"
	case StateDegraded:
		return "Servicio parcialmente disponible"
	default:
		return "Servicio no disponible"
	}
}
