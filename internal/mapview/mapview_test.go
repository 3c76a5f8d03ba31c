package mapview

import (
	"encoding/json"
	"html/template"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/timers"
)

type popupStub struct{}

func (popupStub) MarkerPopup(p domain.Place) template.HTML {
	return template.HTML("<b>" + template.HTMLEscapeString(p.Name) + "</b>")
}

func testConfig() config.MapConfig {
	return config.MapConfig{
		Center:      config.LatLng{Lat: -25.2967, Lng: -57.6270},
		PreviewZoom: 13,
		FullZoom:    14,
		TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		ResizeDelay: 10 * time.Millisecond,
	}
}

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	cats, err := config.LoadCategories("")
	require.NoError(t, err)
	return New(testConfig(), cats, popupStub{}, nil)
}

func ptr(v float64) *float64 { return &v }

func TestInitPreviewIsIdempotent(t *testing.T) {
	a := newAdapter(t)
	require.True(t, a.InitPreview())
	require.False(t, a.InitPreview())

	inst, ok := a.State(Preview)
	require.True(t, ok)
	require.Equal(t, 13, inst.Zoom)
	require.Equal(t, -25.2967, inst.Center.Lat)
	require.Len(t, a.instances, 1)

	_, ok = a.State(Full)
	require.False(t, ok)
}

func TestDrawMarkersSkipsMissingCoordinates(t *testing.T) {
	a := newAdapter(t)
	a.InitPreview()
	places := []domain.Place{
		{Name: "Con coords", Category: "turismo", Lat: ptr(-25.28), Lng: ptr(-57.63)},
		{Name: "Sin lng", Lat: ptr(-25.28)},
		{Name: "Sin nada"},
	}

	require.NotPanics(t, func() {
		require.Equal(t, 1, a.DrawMarkers(Preview, places))
	})

	inst, _ := a.State(Preview)
	require.Len(t, inst.Markers, 1)
	require.Equal(t, "#2D5A27", inst.Markers[0].Color)
	require.Equal(t, template.HTML("<b>Con coords</b>"), inst.Markers[0].Popup)
}

func TestDrawMarkersSkipsNonFiniteCoordinates(t *testing.T) {
	var decoded []domain.Place
	require.NoError(t, json.Unmarshal([]byte(`[{"nombre":"a","lat":"NaN","lng":"-57.6"},{"nombre":"b","lat":-25.3,"lng":"Infinity"}]`), &decoded))
	places := append(decoded, domain.Place{Name: "c", Lat: ptr(math.Inf(1)), Lng: ptr(-57.6)},
		domain.Place{Name: "ok", Lat: ptr(-25.3), Lng: ptr(-57.6)})

	a := newAdapter(t)
	a.InitPreview()
	require.Equal(t, 1, a.DrawMarkers(Preview, places))

	inst, _ := a.State(Preview)
	_, err := json.Marshal(inst)
	require.NoError(t, err)
}

func TestDrawMarkersOnMissingInstance(t *testing.T) {
	a := newAdapter(t)
	require.Zero(t, a.DrawMarkers(Full, []domain.Place{{Lat: ptr(1), Lng: ptr(2)}}))
}

func TestOpenFullDefersResizeAndRedraw(t *testing.T) {
	a := newAdapter(t)
	group := timers.NewGroup()
	places := []domain.Place{{Name: "A", Lat: ptr(-25.3), Lng: ptr(-57.6)}}

	a.OpenFull(group, func() []domain.Place { return places })
	inst, ok := a.State(Full)
	require.True(t, ok)
	require.False(t, inst.SizeValid)
	require.Empty(t, inst.Markers)
	require.Equal(t, 14, inst.Zoom)

	require.Eventually(t, func() bool {
		inst, _ := a.State(Full)
		return inst.SizeValid && len(inst.Markers) == 1
	}, time.Second, 2*time.Millisecond)

	a.OpenFull(group, nil)
	require.Len(t, a.instances, 1)
}

func TestOpenFullCancelledWithGroup(t *testing.T) {
	a := newAdapter(t)
	group := timers.NewGroup()
	a.OpenFull(group, nil)
	group.Stop()

	time.Sleep(30 * time.Millisecond)
	inst, _ := a.State(Full)
	require.False(t, inst.SizeValid)
}

func TestStateIsSnapshot(t *testing.T) {
	a := newAdapter(t)
	a.InitPreview()
	a.DrawMarkers(Preview, []domain.Place{{Lat: ptr(1), Lng: ptr(2)}})

	inst, _ := a.State(Preview)
	inst.Markers[0].Lat = 99

	again, _ := a.State(Preview)
	require.Equal(t, 1.0, again.Markers[0].Lat)
}

func TestConcurrentDraws(t *testing.T) {
	a := newAdapter(t)
	a.InitPreview()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.DrawMarkers(Preview, []domain.Place{{Lat: ptr(1), Lng: ptr(2)}})
		}()
	}
	wg.Wait()
	inst, _ := a.State(Preview)
	require.Len(t, inst.Markers, 1)
}

func TestLogPoints(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	LogPoints(zap.New(core), []domain.MapPoint{{Kind: "comida"}, {Kind: "turismo"}, {Kind: "comida"}})
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, int64(3), entry.ContextMap()["count"])
}

func TestParseTarget(t *testing.T) {
	tg, ok := ParseTarget("full")
	require.True(t, ok)
	require.Equal(t, Full, tg)
	_, ok = ParseTarget("satellite")
	require.False(t, ok)
}
