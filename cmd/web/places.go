package main

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/events"
	"kesurge.org/kesurge-web/internal/fixtures"
	mw "kesurge.org/kesurge-web/internal/middleware"
	"kesurge.org/kesurge-web/internal/observability"
)

// PlacesFrag reloads the place grid for ?categoria= ("" for all).
func (s *server) PlacesFrag(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("categoria"))
	view := st.Listing.FilterByCategory(r.Context(), category)
	if view.Superseded() {
		// A newer load of this session owns the grid.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if mw.IsHTMX(r.Context()) {
		w.Header().Set("HX-Push-Url", placesURL(category))
	}
	if !view.Failed() {
		mw.HXTrigger(w, map[string]any{"kesurge:map-refresh": map[string]string{"target": "preview"}})
	}
	writeHTML(w, s.placeListMarkup(st, view, "/fragmentos/lugares"))
}

// PlacesSearchFrag filters the session's current list by ?q= without fetching.
func (s *server) PlacesSearchFrag(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	view := st.Listing.SearchByName(r.URL.Query().Get("q"))
	writeHTML(w, s.cards.RenderMultiple(view.Places))
}

// FeaturedPlacesFrag reloads the home page's featured places from fixtures.
func (s *server) FeaturedPlacesFrag(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	name := fixtures.LocalesFile
	if r.URL.Query().Get("fuente") == "frontend" {
		name = fixtures.FrontendPlacesFile
	}
	view := st.Listing.LoadFixtures(r.Context(), s.fixtures, name)
	writeHTML(w, s.placeListMarkup(st, view, "/fragmentos/lugares/destacados"))
}

// PlaceDetailFrag fetches one place and renders the detail panel. Failures render a distinct
// message and leave the list untouched.
func (s *server) PlaceDetailFrag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeHTML(w, s.cards.RenderDetailError())
		return
	}
	place, err := s.api.Place(r.Context(), id)
	if err != nil {
		observability.FromContext(r.Context()).Warn("load place detail", zap.Int("id", id), zap.Error(err))
		writeHTML(w, s.cards.RenderDetailError())
		return
	}
	writeHTML(w, s.cards.RenderDetail(place))
}

// EventsFrag renders the upcoming featured events.
func (s *server) EventsFrag(w http.ResponseWriter, r *http.Request) {
	list, _ := s.feed.Upcoming()
	writeHTML(w, s.cards.RenderEvents(list, events.EmptyMessage))
}

// AgendaFrag renders the numbered agenda rows.
func (s *server) AgendaFrag(w http.ResponseWriter, r *http.Request) {
	rows, _ := s.feed.Agenda()
	writeHTML(w, s.cards.RenderAgenda(rows, events.EmptyMessage))
}

func placesURL(category string) string {
	if category == "" {
		return "/lugares"
	}
	return "/lugares?categoria=" + url.QueryEscape(category)
}
