package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kesurge.org/kesurge-web/internal/appstate"
	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/mapview"
	mw "kesurge.org/kesurge-web/internal/middleware"
	"kesurge.org/kesurge-web/internal/popup"
)

// The flag never expires; ten years is as close as cookies get.
const flagMaxAge = 10 * 365 * 24 * time.Hour

// modalData is the view model of the modal fragments.
type modalData struct {
	Lang       string
	CSRFToken  string
	Modal      popup.Modal
	Open       bool
	Categories config.Categories
	Values     map[string]string
	Errors     map[string]string
	Message    string
	Reference  string
}

func (s *server) modalData(r *http.Request, m popup.Modal, open bool) modalData {
	return modalData{
		Lang:       mw.Lang(r),
		CSRFToken:  mw.CSRFToken(r),
		Modal:      m,
		Open:       open,
		Categories: s.cfg.Categories,
		Values:     map[string]string{},
		Errors:     map[string]string{},
	}
}

// subscribed reports whether the browser carries the durable subscription flag.
func (s *server) subscribed(r *http.Request, st *appstate.State) bool {
	c, err := r.Cookie(st.Popup.FlagName())
	return err == nil && c.Value != ""
}

// triggerScrollLock tells the page whether to lock body scrolling.
func triggerScrollLock(w http.ResponseWriter, st *appstate.State, extra map[string]any) {
	events := map[string]any{"kesurge:scroll-lock": map[string]bool{"locked": st.Popup.ScrollLocked()}}
	for k, v := range extra {
		events[k] = v
	}
	mw.HXTrigger(w, events)
}

// PopupFrag is requested by the page after the popup delay. It returns the registration modal
// unless the durable flag is set.
func (s *server) PopupFrag(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	if !st.Popup.ShowRegistration(s.subscribed(r, st)) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	triggerScrollLock(w, st, nil)
	s.renderTemplate(w, r, "frag_modal_registro", s.modalData(r, popup.Registration, true))
}

// SubscribeHandler handles the registration popup form.
func (s *server) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	email := r.PostFormValue("email")
	sub, err := st.Popup.Subscribe(email)
	if err != nil {
		data := s.modalData(r, popup.Registration, true)
		data.Values["email"] = email
		data.Errors["email"] = s.bundle.T(data.Lang, "popup.invalid_email")
		s.renderTemplate(w, r, "frag_modal_registro", data)
		return
	}
	if sub.PersistFlag {
		http.SetCookie(w, &http.Cookie{
			Name:     st.Popup.FlagName(),
			Value:    "true",
			Path:     "/",
			MaxAge:   int(flagMaxAge.Seconds()),
			Secure:   s.cfg.Session.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	triggerScrollLock(w, st, nil)
	data := s.modalData(r, popup.Registration, false)
	data.Message = sub.Message
	s.renderTemplate(w, r, "frag_subscribe_thanks", data)
}

// ModalToggleHandler flips a modal and returns its markup, empty when it closed. Opening the
// map modal schedules the full map's resize and redraw.
func (s *server) ModalToggleHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	m, ok := popup.ParseModal(chi.URLParam(r, "modal"))
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "unknown modal")
		return
	}
	open := st.Popup.Toggle(m)
	var extra map[string]any
	if m == popup.Map && open {
		extra = s.openFullMap(st)
	}
	triggerScrollLock(w, st, extra)
	s.renderModal(w, r, m, open)
}

// ModalClickHandler closes a modal when the click landed on its backdrop.
func (s *server) ModalClickHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	m, ok := popup.ParseModal(chi.URLParam(r, "modal"))
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "unknown modal")
		return
	}
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	if st.Popup.Click(m, popup.ClickTarget(r.PostFormValue("target"))) {
		// Still open: nothing to swap.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	triggerScrollLock(w, st, nil)
	s.renderModal(w, r, m, false)
}

func (s *server) renderModal(w http.ResponseWriter, r *http.Request, m popup.Modal, open bool) {
	if !open {
		writeHTML(w, "")
		return
	}
	s.renderTemplate(w, r, "frag_modal_"+string(m), s.modalData(r, m, true))
}

// LocalRegistrationHandler validates the local-business form. Invalid submissions re-render
// the open modal with field errors.
func (s *server) LocalRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	if st == nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "shutting down")
		return
	}
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	sub := popup.LocalSubmission{
		Name:     r.PostFormValue("nombre"),
		Category: r.PostFormValue("categoria"),
		Contact:  r.PostFormValue("contacto"),
		Address:  r.PostFormValue("direccion"),
		Message:  r.PostFormValue("mensaje"),
	}
	receipt, err := st.Popup.SubmitLocal(sub, s.cfg.Categories)
	var fieldErrs popup.FieldErrors
	if errors.As(err, &fieldErrs) {
		data := s.modalData(r, popup.Local, true)
		data.Values = map[string]string{
			"nombre":    sub.Name,
			"categoria": sub.Category,
			"contacto":  sub.Contact,
			"direccion": sub.Address,
			"mensaje":   sub.Message,
		}
		data.Errors = fieldErrs
		s.renderTemplate(w, r, "frag_modal_local", data)
		return
	}
	if err != nil {
		mw.WriteError(w, r, http.StatusInternalServerError, "registration failed")
		return
	}
	triggerScrollLock(w, st, nil)
	data := s.modalData(r, popup.Local, false)
	data.Message = receipt.Message
	data.Reference = receipt.Reference
	s.renderTemplate(w, r, "frag_local_receipt", data)
}

// openFullMap creates the full map and schedules its redraw from the session's current list.
// The returned client event tells the shim when to fetch the redrawn state.
func (s *server) openFullMap(st *appstate.State) map[string]any {
	st.Map.OpenFull(st.Timers, st.Listing.Current)
	return map[string]any{"kesurge:map-open": map[string]any{
		"target":  string(mapview.Full),
		"delayMs": s.cfg.Map.ResizeDelay.Milliseconds(),
	}}
}
