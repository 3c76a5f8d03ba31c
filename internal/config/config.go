package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPrefix = "KESURGE_"

	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultLocalesDir      = "locales"
	defaultAPIBaseURL      = "http://localhost:5000/api"
	defaultFixturesDir     = "fixtures"
	defaultMapLat          = -25.2967
	defaultMapLng          = -57.6270
	defaultPreviewZoom     = 13
	defaultFullZoom        = 14
	defaultTileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	defaultAttribution     = "&copy; OpenStreetMap"
	defaultResizeDelay     = 200 * time.Millisecond
	defaultPopupDelay      = 8 * time.Second
	defaultPopupFlag       = "usuario_suscrito"
	defaultSessionIdleTTL  = 30 * time.Minute
	defaultListingPageSize = 50
	defaultListingOrder    = "rating"
	defaultMinSearchLength = 2
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	API        APIConfig
	Fixtures   FixturesConfig
	Map        MapConfig
	Popup      PopupConfig
	Session    SessionConfig
	Listing    ListingConfig
	Analytics  AnalyticsConfig
	Categories Categories
}

// ServerConfig configures HTTP server parameters and template locations.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TemplatesDir string
	PublicDir    string
	LocalesDir   string
	DevMode      bool
}

// Addr returns the listen address derived from Port.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// APIConfig points at the places backend. A zero Timeout means no client timeout.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// FixturesConfig locates the static JSON files served to the home and agenda pages.
type FixturesConfig struct {
	Dir string
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MapConfig holds map provider settings shared by the preview and full maps.
type MapConfig struct {
	Center      LatLng
	PreviewZoom int
	FullZoom    int
	TileURL     string
	Attribution string
	ResizeDelay time.Duration
	PhotoAPIKey string
}

// PopupConfig controls the one-time registration popup.
type PopupConfig struct {
	Delay           time.Duration
	FlagName        string
	PersistOnSubmit bool
}

// SessionConfig controls the signed session cookie and per-session state lifetime.
type SessionConfig struct {
	SigningKey string
	Secure     bool
	IdleTTL    time.Duration
}

// ListingConfig drives the place list controller.
type ListingConfig struct {
	PageSize        int
	Order           string
	MinSearchLength int
}

// AnalyticsConfig holds client instrumentation identifiers surfaced to templates.
type AnalyticsConfig struct {
	GA4MeasurementID string
	Debug            bool
}

// ValidationError is returned when configuration values are missing or cannot be parsed.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile        string
	envMap         map[string]string
	useSystemEnv   bool
	categoriesFile string
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithCategoriesFile loads category metadata from a YAML file instead of the embedded defaults.
func WithCategoriesFile(path string) Option {
	return func(o *loaderOptions) {
		o.categoriesFile = path
	}
}

// Load assembles the configuration from defaults, .env overrides, the process environment and
// an explicit map, in increasing order of precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	_ = ctx
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		key = envPrefix + key
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}
	p := parser{lookup: lookup}

	cfg := Config{
		Server: ServerConfig{
			Port:         p.str("PORT", portFallback(options.useSystemEnv)),
			ReadTimeout:  p.duration("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: p.duration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  p.duration("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			TemplatesDir: p.str("TEMPLATES_DIR", defaultTemplatesDir),
			PublicDir:    p.str("PUBLIC_DIR", defaultPublicDir),
			LocalesDir:   p.str("LOCALES_DIR", defaultLocalesDir),
			DevMode:      p.boolean("DEV", false),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(p.str("API_BASE_URL", defaultAPIBaseURL), "/"),
			Timeout: p.duration("API_TIMEOUT", 0),
		},
		Fixtures: FixturesConfig{
			Dir: p.str("FIXTURES_DIR", defaultFixturesDir),
		},
		Map: MapConfig{
			Center: LatLng{
				Lat: p.float("MAP_CENTER_LAT", defaultMapLat),
				Lng: p.float("MAP_CENTER_LNG", defaultMapLng),
			},
			PreviewZoom: p.integer("MAP_PREVIEW_ZOOM", defaultPreviewZoom),
			FullZoom:    p.integer("MAP_FULL_ZOOM", defaultFullZoom),
			TileURL:     p.str("MAP_TILE_URL", defaultTileURL),
			Attribution: p.str("MAP_ATTRIBUTION", defaultAttribution),
			ResizeDelay: p.duration("MAP_RESIZE_DELAY", defaultResizeDelay),
			PhotoAPIKey: p.str("MAP_PHOTO_API_KEY", ""),
		},
		Popup: PopupConfig{
			Delay:           p.duration("POPUP_DELAY", defaultPopupDelay),
			FlagName:        p.str("POPUP_FLAG_NAME", defaultPopupFlag),
			PersistOnSubmit: p.boolean("POPUP_PERSIST_ON_SUBMIT", false),
		},
		Session: SessionConfig{
			SigningKey: p.str("SESSION_SIGNING_KEY", ""),
			Secure:     strings.EqualFold(p.str("ENV", "local"), "prod"),
			IdleTTL:    p.duration("SESSION_IDLE_TTL", defaultSessionIdleTTL),
		},
		Listing: ListingConfig{
			PageSize:        p.integer("LISTING_PAGE_SIZE", defaultListingPageSize),
			Order:           p.str("LISTING_ORDER", defaultListingOrder),
			MinSearchLength: p.integer("LISTING_MIN_SEARCH", defaultMinSearchLength),
		},
		Analytics: AnalyticsConfig{
			GA4MeasurementID: p.str("GA_MEASUREMENT_ID", ""),
			Debug:            p.boolean("ANALYTICS_DEBUG", false),
		},
	}

	categoriesFile := options.categoriesFile
	if categoriesFile == "" {
		categoriesFile = p.str("CATEGORIES_FILE", "")
	}
	cats, err := LoadCategories(categoriesFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Categories = cats

	if err := validateConfig(cfg, p.invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// portFallback honours the platform-provided PORT when KESURGE_PORT is unset.
func portFallback(useSystemEnv bool) string {
	if useSystemEnv {
		if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
			return v
		}
	}
	return defaultPort
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.API.BaseURL == "" {
		missing = append(missing, "API.BaseURL")
	}
	if cfg.API.Timeout < 0 {
		missing = append(missing, "API.Timeout")
	}
	if cfg.Map.Center.Lat < -90 || cfg.Map.Center.Lat > 90 {
		missing = append(missing, "Map.Center.Lat")
	}
	if cfg.Map.Center.Lng < -180 || cfg.Map.Center.Lng > 180 {
		missing = append(missing, "Map.Center.Lng")
	}
	if strings.TrimSpace(cfg.Popup.FlagName) == "" {
		missing = append(missing, "Popup.FlagName")
	}
	if cfg.Listing.PageSize <= 0 {
		missing = append(missing, "Listing.PageSize")
	}
	if cfg.Session.IdleTTL <= 0 {
		missing = append(missing, "Session.IdleTTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

// parser wraps the env lookup and records keys whose values fail to parse.
type parser struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (p *parser) str(key, fallback string) string {
	if value, ok := p.lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, envPrefix+key)
		return fallback
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, envPrefix+key)
		return fallback
	}
	return parsed
}

func (p *parser) float(key string, fallback float64) float64 {
	value, ok := p.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		p.invalid = append(p.invalid, envPrefix+key)
		return fallback
	}
	return parsed
}

func (p *parser) boolean(key string, fallback bool) bool {
	value, ok := p.lookup(key)
	if !ok || value == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	p.invalid = append(p.invalid, envPrefix+key)
	return fallback
}
