package mapview

import (
	"html/template"
	"sort"
	"sync"

	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/timers"
)

// Target names a map container on the page.
type Target string

const (
	Preview Target = "preview"
	Full    Target = "full"
)

// ParseTarget maps a URL segment to a Target.
func ParseTarget(s string) (Target, bool) {
	switch Target(s) {
	case Preview, Full:
		return Target(s), true
	}
	return "", false
}

// Marker is one pin on a map.
type Marker struct {
	Key      string        `json:"key"`
	Lat      float64       `json:"lat"`
	Lng      float64       `json:"lng"`
	Category string        `json:"category,omitempty"`
	Color    string        `json:"color"`
	Popup    template.HTML `json:"popup"`
}

// Instance mirrors one browser map widget.
type Instance struct {
	Target      Target        `json:"target"`
	Center      config.LatLng `json:"center"`
	Zoom        int           `json:"zoom"`
	TileURL     string        `json:"tileUrl"`
	Attribution string        `json:"attribution,omitempty"`
	Markers     []Marker      `json:"markers"`
	SizeValid   bool          `json:"sizeValid"`
	// Version increases on every change so the browser shim can skip redundant redraws.
	Version uint64 `json:"version"`
}

func (i *Instance) clone() Instance {
	out := *i
	out.Markers = append([]Marker(nil), i.Markers...)
	return out
}

// PopupRenderer renders the popup markup of a marker.
type PopupRenderer interface {
	MarkerPopup(place domain.Place) template.HTML
}

// Adapter owns the preview and full map instances of one session. Each instance is created
// at most once and has its own lifecycle.
type Adapter struct {
	cfg        config.MapConfig
	categories config.Categories
	popups     PopupRenderer
	logger     *zap.Logger

	mu        sync.Mutex
	instances map[Target]*Instance
}

// New returns an adapter with no instances.
func New(cfg config.MapConfig, categories config.Categories, popups PopupRenderer, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		cfg:        cfg,
		categories: categories,
		popups:     popups,
		logger:     logger,
		instances:  map[Target]*Instance{},
	}
}

// ensure returns the instance for target, creating it on first use. The caller must hold a.mu.
func (a *Adapter) ensure(target Target, zoom int, sizeValid bool) (*Instance, bool) {
	if inst, ok := a.instances[target]; ok {
		return inst, false
	}
	inst := &Instance{
		Target:      target,
		Center:      a.cfg.Center,
		Zoom:        zoom,
		TileURL:     a.cfg.TileURL,
		Attribution: a.cfg.Attribution,
		Markers:     []Marker{},
		SizeValid:   sizeValid,
		Version:     1,
	}
	a.instances[target] = inst
	a.logger.Debug("map instance created", zap.String("target", string(target)))
	return inst, true
}

// InitPreview creates the preview map. Later calls are no-ops; it reports whether an instance
// was created.
func (a *Adapter) InitPreview() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, created := a.ensure(Preview, a.cfg.PreviewZoom, true)
	return created
}

// OpenFull creates the full map when missing and schedules, after the configured resize
// delay, a size recalculation and a marker redraw from places. The full map lives in a modal
// that is hidden at creation, so its size is only known after it becomes visible.
func (a *Adapter) OpenFull(group *timers.Group, places func() []domain.Place) *timers.Timer {
	a.mu.Lock()
	inst, _ := a.ensure(Full, a.cfg.FullZoom, false)
	inst.SizeValid = false
	inst.Version++
	a.mu.Unlock()

	if group == nil {
		return nil
	}
	return group.AfterFunc(a.cfg.ResizeDelay, func() {
		a.mu.Lock()
		if inst, ok := a.instances[Full]; ok {
			inst.SizeValid = true
			inst.Version++
		}
		a.mu.Unlock()
		var list []domain.Place
		if places != nil {
			list = places()
		}
		a.DrawMarkers(Full, list)
	})
}

// DrawMarkers replaces the markers of target with one marker per place that has both
// coordinates. Places missing either coordinate are skipped. It returns the number of markers
// drawn, or 0 when target has not been created.
func (a *Adapter) DrawMarkers(target Target, places []domain.Place) int {
	markers := make([]Marker, 0, len(places))
	for i, p := range places {
		if !p.HasCoordinates() {
			continue
		}
		m := Marker{
			Key:      p.Key(i),
			Lat:      *p.Lat,
			Lng:      *p.Lng,
			Category: p.Category,
			Color:    a.categories.Color(p.Category),
		}
		if a.popups != nil {
			m.Popup = a.popups.MarkerPopup(p)
		}
		markers = append(markers, m)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.instances[target]
	if !ok {
		return 0
	}
	inst.Markers = markers
	inst.Version++
	return len(markers)
}

// State returns a snapshot of target.
func (a *Adapter) State(target Target) (Instance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.instances[target]
	if !ok {
		return Instance{}, false
	}
	return inst.clone(), true
}

// LogPoints records the contents of mapa.json. The points are not drawn.
func LogPoints(logger *zap.Logger, points []domain.MapPoint) {
	if logger == nil {
		return
	}
	kinds := map[string]int{}
	for _, p := range points {
		kinds[p.Kind]++
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	logger.Info("map points loaded", zap.Int("count", len(points)), zap.Strings("kinds", names))
}
