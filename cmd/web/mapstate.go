package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kesurge.org/kesurge-web/internal/mapview"
	mw "kesurge.org/kesurge-web/internal/middleware"
	"kesurge.org/kesurge-web/internal/popup"
	"kesurge.org/kesurge-web/internal/status"
)

// MapStateHandler serves the JSON snapshot of a map instance for the browser shim.
func (s *server) MapStateHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	target, ok := mapview.ParseTarget(chi.URLParam(r, "target"))
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "unknown map")
		return
	}
	inst, ok := st.Map.State(target)
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "map not initialized")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	mw.WriteJSON(w, http.StatusOK, inst)
}

// MapOpenHandler opens the full-map modal and returns the instance before its deferred redraw.
func (s *server) MapOpenHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	st.Popup.Open(popup.Map)
	triggerScrollLock(w, st, s.openFullMap(st))
	inst, _ := st.Map.State(mapview.Full)
	mw.WriteJSON(w, http.StatusOK, inst)
}

// StatusHandler reports backend health.
func (s *server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.status.Check(r.Context())
	code := http.StatusOK
	if err != nil || summary.State == status.StateDown {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	mw.WriteJSON(w, code, summary)
}
