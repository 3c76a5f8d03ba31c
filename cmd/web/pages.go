package main

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kesurge.org/kesurge-web/internal/appstate"
	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/events"
	"kesurge.org/kesurge-web/internal/fixtures"
	handlersPkg "kesurge.org/kesurge-web/internal/handlers"
	"kesurge.org/kesurge-web/internal/listing"
	"kesurge.org/kesurge-web/internal/mapview"
	mw "kesurge.org/kesurge-web/internal/middleware"
	"kesurge.org/kesurge-web/internal/observability"
	"kesurge.org/kesurge-web/internal/seo"
)

const defaultCity = "Asunción"

// HomeHandler renders the landing page. The events, featured places and stats panels load
// concurrently and fail independently.
func (s *server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	log := observability.FromContext(r.Context())
	st.Map.InitPreview()

	vm := s.pageData(r, "", "home.description")
	home := &handlersPkg.HomeView{MapStateURL: "/mapa/" + string(mapview.Preview)}
	var upcoming []domain.Event

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		list, err := s.feed.Upcoming()
		if err == nil {
			upcoming = list
		}
		home.Upcoming = s.cards.RenderEvents(list, events.EmptyMessage)
		return nil
	})
	g.Go(func() error {
		view := st.Listing.LoadFixtures(ctx, s.fixtures, fixtures.LocalesFile)
		home.Featured = s.placeListMarkup(st, view, "/fragmentos/lugares/destacados")
		return nil
	})
	g.Go(func() error {
		stats, err := s.api.Stats(ctx)
		if err != nil {
			log.Warn("home stats unavailable", zap.Error(err))
			home.StatsError = s.bundle.T(vm.Lang, "home.stats_error")
			return nil
		}
		home.Stats = &stats
		return nil
	})
	_ = g.Wait()

	if points, err := s.fixtures.MapPoints(); err == nil {
		mapview.LogPoints(log, points)
	} else {
		log.Warn("load map points", zap.String("file", fixtures.MapFile), zap.Error(err))
	}

	if !s.subscribed(r, st) {
		home.PopupURL = "/suscripcion/popup"
		home.PopupDelay = fmt.Sprintf("%dms", st.Popup.Delay().Milliseconds())
	}

	vm.SEO.AddJSONLD(seo.Organization(handlersPkg.SiteName, "https://"+r.Host, ""))
	vm.SEO.AddJSONLD(seo.WebSite(handlersPkg.SiteName, "https://"+r.Host, "https://"+r.Host+"/lugares?q="))
	for _, e := range upcoming {
		vm.SEO.AddJSONLD(seo.Event(e, defaultCity))
	}
	vm.Home = home
	s.renderPage(w, r, vm)
}

// AgendaHandler renders the full agenda.
func (s *server) AgendaHandler(w http.ResponseWriter, r *http.Request) {
	vm := s.pageData(r, "agenda.title", "agenda.description")
	rows, err := s.feed.Agenda()
	vm.Agenda = &handlersPkg.AgendaView{Rows: s.cards.RenderAgenda(rows, events.EmptyMessage)}
	if err == nil {
		for _, row := range rows {
			vm.SEO.AddJSONLD(seo.Event(row.Event, defaultCity))
		}
	}
	s.renderPage(w, r, vm)
}

// PlacesHandler renders the places directory with the list loaded for ?categoria=.
func (s *server) PlacesHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	st.Map.InitPreview()
	category := strings.TrimSpace(r.URL.Query().Get("categoria"))
	view := st.Listing.Load(r.Context(), category)

	vm := s.pageData(r, "places.title", "places.description")
	vm.Places = &handlersPkg.PlacesView{
		Category:    category,
		List:        s.placeListMarkup(st, view, "/fragmentos/lugares"),
		MapStateURL: "/mapa/" + string(mapview.Preview),
	}
	if !view.Failed() {
		for _, p := range view.Places {
			vm.SEO.AddJSONLD(seo.LocalBusiness(p, s.cards.View(p, 0).Price))
		}
	}
	s.renderPage(w, r, vm)
}

// placeListMarkup renders a list view: cards on success, the view's message with a retry on
// failure, and the session's current list when the load was superseded. Successful loads
// redraw the preview map.
func (s *server) placeListMarkup(st *appstate.State, view listing.View, retryURL string) template.HTML {
	switch {
	case view.Superseded():
		return s.cards.RenderMultiple(st.Listing.Current())
	case view.Failed():
		return s.cards.ErrorPanel(view.Message, retryURL)
	}
	st.Map.DrawMarkers(mapview.Preview, view.Places)
	return s.cards.RenderMultiple(view.Places)
}
