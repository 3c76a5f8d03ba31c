package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/apiclient"
	"kesurge.org/kesurge-web/internal/appstate"
	"kesurge.org/kesurge-web/internal/cards"
	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/events"
	"kesurge.org/kesurge-web/internal/fixtures"
	handlersPkg "kesurge.org/kesurge-web/internal/handlers"
	"kesurge.org/kesurge-web/internal/i18n"
	"kesurge.org/kesurge-web/internal/listing"
	"kesurge.org/kesurge-web/internal/mapview"
	mw "kesurge.org/kesurge-web/internal/middleware"
	"kesurge.org/kesurge-web/internal/popup"
	"kesurge.org/kesurge-web/internal/status"
	"kesurge.org/kesurge-web/internal/timers"
)

const (
	requestTimeout = 30 * time.Second
	assetsMaxAge   = 24 * time.Hour
	statusTimeout  = 5 * time.Second
)

// server owns the process-wide collaborators. Everything a browser session mutates lives in
// the appstate store.
type server struct {
	cfg       config.Config
	logger    *zap.Logger
	api       *apiclient.Client
	fixtures  *fixtures.Store
	cards     *cards.Renderer
	feed      *events.Feed
	store     *appstate.Store
	bundle    *i18n.Bundle
	status    *status.Checker
	analytics handlersPkg.Analytics
	templates *templateSet
}

func newServer(cfg config.Config, logger *zap.Logger) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := apiclient.New(cfg.API.BaseURL,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(logger.Named("api")),
	)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	renderer, err := cards.NewRenderer(cfg.Categories, cfg.Map.PhotoAPIKey, logger.Named("cards"))
	if err != nil {
		return nil, fmt.Errorf("card renderer: %w", err)
	}
	bundle, err := i18n.Load(cfg.Server.LocalesDir, "es", []string{"es", "en"})
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}

	s := &server{
		cfg:       cfg,
		logger:    logger,
		api:       api,
		fixtures:  fixtures.Open(cfg.Fixtures.Dir, cfg.Server.DevMode),
		cards:     renderer,
		bundle:    bundle,
		status:    status.NewChecker(api, statusTimeout),
		analytics: handlersPkg.AnalyticsFrom(cfg.Analytics),
	}
	s.feed = events.NewFeed(s.fixtures, logger.Named("events"))
	s.store = appstate.NewStore(s.newState, cfg.Session.IdleTTL, logger.Named("appstate"))
	s.templates = newTemplateSet(cfg.Server.TemplatesDir, cfg.Server.DevMode, s.funcMap())
	if !cfg.Server.DevMode {
		// Parse templates once in production
		if err := s.templates.load(); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
	}
	return s, nil
}

func (s *server) newState(id string) *appstate.State {
	logger := s.logger.With(zap.String("session", id))
	return &appstate.State{
		ID: id,
		Listing: listing.New(s.api, listing.Options{
			PageSize:        s.cfg.Listing.PageSize,
			Order:           s.cfg.Listing.Order,
			MinSearchLength: s.cfg.Listing.MinSearchLength,
		}, logger.Named("listing")),
		Map:    mapview.New(s.cfg.Map, s.cfg.Categories, s.cards, logger.Named("map")),
		Popup:  popup.New(s.cfg.Popup, logger.Named("popup")),
		Timers: timers.NewGroup(),
	}
}

// Close tears down every session state.
func (s *server) Close() {
	s.store.Close()
}

// state returns the application state of the request's session.
func (s *server) state(r *http.Request) *appstate.State {
	return s.store.Get(mw.SessionID(r.Context()))
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that overwrites it.
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.HTMX)
	r.Use(mw.Session(mw.SessionOptions{
		SigningKey: s.cfg.Session.SigningKey,
		Secure:     s.cfg.Session.Secure,
		Logger:     s.logger,
	}))
	r.Use(mw.Logger(s.logger))
	r.Use(mw.CSRF(s.cfg.Session.Secure))
	r.Use(mw.Locale(s.bundle))
	r.Use(mw.VaryLocale)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Get("/estado", s.StatusHandler)

	maxAge := assetsMaxAge
	if s.cfg.Server.DevMode {
		maxAge = 0
	}
	assets := http.StripPrefix("/assets", mw.AssetsWithCache(filepath.Join(s.cfg.Server.PublicDir, "assets"), maxAge))
	r.Handle("/assets/*", assets)

	r.Get("/", s.HomeHandler)
	r.Get("/agenda", s.AgendaHandler)
	r.Get("/lugares", s.PlacesHandler)
	r.Get("/lugares/{id}/detalle", s.PlaceDetailFrag)

	r.Route("/fragmentos", func(r chi.Router) {
		r.Get("/lugares", s.PlacesFrag)
		r.Get("/lugares/buscar", s.PlacesSearchFrag)
		r.Get("/lugares/destacados", s.FeaturedPlacesFrag)
		r.Get("/eventos", s.EventsFrag)
		r.Get("/agenda", s.AgendaFrag)
	})

	r.Get("/mapa/{target}", s.MapStateHandler)
	r.Post("/mapa/full/abrir", s.MapOpenHandler)

	r.Get("/suscripcion/popup", s.PopupFrag)
	r.Post("/suscripcion", s.SubscribeHandler)
	r.Post("/modales/{modal}/toggle", s.ModalToggleHandler)
	r.Post("/modales/{modal}/click", s.ModalClickHandler)
	r.Post("/locales/registro", s.LocalRegistrationHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		mw.WriteError(w, r, http.StatusNotFound, "not found")
	})
	return r
}
