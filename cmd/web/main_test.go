package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"kesurge.org/kesurge-web/internal/cards"
	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/listing"
	"kesurge.org/kesurge-web/internal/mapview"
	"kesurge.org/kesurge-web/internal/popup"
	"kesurge.org/kesurge-web/internal/status"
)

const backendPlaces = `{"total": 2, "lugares": [
  {"id": 1, "nombre": "Café Central", "direccion": "Palma 520", "categoria": "comida", "rating": 4.6, "total_ratings": 120, "precio_nivel": 2, "lat": -25.2822, "lng": -57.6351},
  {"id": 2, "nombre": "Bar Luna", "direccion": "Loma San Jerónimo", "categoria": "cultura", "rating": 4.2, "total_ratings": 45}
]}`

// fakeBackend stands in for the places API.
type fakeBackend struct {
	mu           sync.Mutex
	placeQueries []url.Values
	placesStatus int
	statsStatus  int
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lugares", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.placeQueries = append(f.placeQueries, r.URL.Query())
		code := f.placesStatus
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			_, _ = io.WriteString(w, "<html>boom</html>")
			return
		}
		_, _ = io.WriteString(w, backendPlaces)
	})
	mux.HandleFunc("/api/lugares/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id": 1, "nombre": "Café Central", "direccion": "Palma 520", "categoria": "comida", "rating": 4.6, "telefono": "+595 21 000 000"}`)
	})
	mux.HandleFunc("/api/lugares/99", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": "not found"}`)
	})
	mux.HandleFunc("/api/estadisticas", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		code := f.statsStatus
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			return
		}
		_, _ = io.WriteString(w, `{"total_lugares": 128, "promedio_rating": 4.3, "por_categoria": {"comida": 60}}`)
	})
	mux.HandleFunc("/api/categorias", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"categorias": {"comida": 60, "cultura": 30}}`)
	})
	return mux
}

func (f *fakeBackend) failPlaces(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placesStatus = code
}

func (f *fakeBackend) failStats(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsStatus = code
}

func (f *fakeBackend) queries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.placeQueries...)
}

// testSite is a running web server with a cookie-aware client, like a browser tab.
type testSite struct {
	t       *testing.T
	srv     *server
	http    *httptest.Server
	client  *http.Client
	backend *fakeBackend
}

func newTestSite(t *testing.T, env map[string]string) *testSite {
	t.Helper()
	backend := &fakeBackend{}
	api := httptest.NewServer(backend.handler())
	t.Cleanup(api.Close)

	values := map[string]string{
		"KESURGE_API_BASE_URL":     api.URL + "/api",
		"KESURGE_TEMPLATES_DIR":    "../../templates",
		"KESURGE_PUBLIC_DIR":       "../../public",
		"KESURGE_LOCALES_DIR":      "../../locales",
		"KESURGE_FIXTURES_DIR":     "../../fixtures",
		"KESURGE_MAP_RESIZE_DELAY": "10ms",
	}
	for k, v := range env {
		values[k] = v
	}
	cfg, err := config.Load(context.Background(), config.WithEnvMap(values), config.WithoutSystemEnv(), config.WithEnvFile(""))
	require.NoError(t, err)

	srv, err := newServer(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	site := httptest.NewServer(srv.routes())
	t.Cleanup(site.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testSite{
		t:       t,
		srv:     srv,
		http:    site,
		client:  &http.Client{Jar: jar},
		backend: backend,
	}
}

func (s *testSite) do(req *http.Request) (*http.Response, string) {
	s.t.Helper()
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, string(body)
}

func (s *testSite) get(path string, headers ...string) (*http.Response, string) {
	s.t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.http.URL+path, nil)
	require.NoError(s.t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return s.do(req)
}

// post submits a form as htmx would, with the CSRF token issued to this client.
func (s *testSite) post(path string, form url.Values) (*http.Response, string) {
	s.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", s.csrfToken())
	}
	req, err := http.NewRequest(http.MethodPost, s.http.URL+path, strings.NewReader(form.Encode()))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return s.do(req)
}

func (s *testSite) csrfToken() string {
	s.t.Helper()
	u, _ := url.Parse(s.http.URL)
	if tok := s.cookie(u, "csrf_token"); tok != "" {
		return tok
	}
	s.get("/healthz")
	tok := s.cookie(u, "csrf_token")
	require.NotEmpty(s.t, tok)
	return tok
}

func (s *testSite) cookie(u *url.URL, name string) string {
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func parseDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func hxTrigger(t *testing.T, resp *http.Response) map[string]json.RawMessage {
	t.Helper()
	raw := resp.Header.Get("HX-Trigger")
	require.NotEmpty(t, raw)
	var events map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &events))
	return events
}

func TestHealthzOK(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", strings.TrimSpace(body))
}

func TestHomeRendersPanels(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := parseDoc(t, body)
	require.Equal(t, 3, doc.Find("#lista-eventos .event-card").Length())
	require.Equal(t, "Festival de la Sopa Paraguaya", strings.TrimSpace(doc.Find("#lista-eventos .event-title").First().Text()))
	require.Equal(t, 3, doc.Find("#lista-destacados .place-card").Length())
	require.Equal(t, "128", strings.TrimSpace(doc.Find(".stats-total").Text()))
	require.Equal(t, "4,3", strings.TrimSpace(doc.Find(".stats-avg").Text()))
	category := doc.Find(`.stats-category[data-category="comida"]`)
	require.Contains(t, category.Text(), "Gastronomía")
	require.Equal(t, "60", strings.TrimSpace(category.Find(".stats-category-count").Text()))

	trigger := doc.Find("#popup-trigger")
	require.Equal(t, 1, trigger.Length())
	require.Equal(t, "load delay:8000ms", trigger.AttrOr("hx-trigger", ""))
	require.GreaterOrEqual(t, doc.Find(`script[type="application/ld+json"]`).Length(), 2)
	require.Contains(t, body, `"@type":"Event"`)
}

func TestHomeStatsFailureIsIndependent(t *testing.T) {
	site := newTestSite(t, nil)
	site.backend.failStats(http.StatusInternalServerError)

	resp, body := site.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, body)
	require.Equal(t, 1, doc.Find(".stats-error").Length())
	require.Equal(t, 3, doc.Find("#lista-eventos .event-card").Length())
	require.Equal(t, 3, doc.Find("#lista-destacados .place-card").Length())
}

func TestHomeLocalizedNavEN(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/", "Accept-Language", "en")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, ">Places<")
	require.Equal(t, "en", resp.Header.Get("Content-Language"))
}

func TestPopupOpensOnceFlagAbsent(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/suscripcion/popup", "HX-Request", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, parseDoc(t, body).Find(".subscribe-form").Length())
	require.JSONEq(t, `{"locked": true}`, string(hxTrigger(t, resp)["kesurge:scroll-lock"]))
}

func TestPopupSuppressedByFlag(t *testing.T) {
	site := newTestSite(t, nil)
	u, _ := url.Parse(site.http.URL)
	site.client.Jar.SetCookies(u, []*http.Cookie{{Name: "usuario_suscrito", Value: "true", Path: "/"}})

	_, body := site.get("/")
	require.Equal(t, 0, parseDoc(t, body).Find("#popup-trigger").Length())

	resp, body := site.get("/suscripcion/popup", "HX-Request", "true")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, body)
}

func TestSubscribeDoesNotPersistFlagByDefault(t *testing.T) {
	site := newTestSite(t, nil)
	site.get("/suscripcion/popup", "HX-Request", "true")

	resp, body := site.post("/suscripcion", url.Values{"email": {"ana@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, popup.ThanksMessage)
	require.JSONEq(t, `{"locked": false}`, string(hxTrigger(t, resp)["kesurge:scroll-lock"]))

	u, _ := url.Parse(site.http.URL)
	require.Empty(t, site.cookie(u, "usuario_suscrito"))
}

func TestSubscribePersistsFlagWhenEnabled(t *testing.T) {
	site := newTestSite(t, map[string]string{"KESURGE_POPUP_PERSIST_ON_SUBMIT": "true"})
	resp, _ := site.post("/suscripcion", url.Values{"email": {"ana@example.com"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, _ := url.Parse(site.http.URL)
	require.Equal(t, "true", site.cookie(u, "usuario_suscrito"))

	resp, _ = site.get("/suscripcion/popup", "HX-Request", "true")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.post("/suscripcion", url.Values{"email": {"not-an-email"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, body)
	require.Equal(t, 1, doc.Find(".subscribe-form .field-error").Length())
	require.Equal(t, "not-an-email", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	site := newTestSite(t, nil)
	site.get("/healthz")
	req, err := http.NewRequest(http.MethodPost, site.http.URL+"/suscripcion", strings.NewReader("email=ana%40example.com"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	resp, body := site.do(req)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Contains(t, body, `"status":403`)
}

func TestPlacesFragmentByCategory(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/fragmentos/lugares?categoria=comida", "HX-Request", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/lugares?categoria=comida", resp.Header.Get("HX-Push-Url"))
	require.Contains(t, hxTrigger(t, resp), "kesurge:map-refresh")

	doc := parseDoc(t, body)
	require.Equal(t, 2, doc.Find(".place-card").Length())
	require.Equal(t, "/lugares/1/detalle", doc.Find(".place-detail-btn").First().AttrOr("hx-get", ""))

	queries := site.backend.queries()
	require.Len(t, queries, 1)
	require.Equal(t, "comida", queries[0].Get("categoria"))
	require.Equal(t, "50", queries[0].Get("limite"))
	require.Equal(t, "rating", queries[0].Get("orden"))
}

func TestPlacesFragmentErrorOffersRetry(t *testing.T) {
	site := newTestSite(t, nil)
	site.backend.failPlaces(http.StatusInternalServerError)

	resp, body := site.get("/fragmentos/lugares?categoria=comida", "HX-Request", "true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, body)
	require.Contains(t, doc.Find(".error-panel").Text(), listing.LoadErrorMessage)
	require.Equal(t, "/fragmentos/lugares", doc.Find(".retry-btn").AttrOr("hx-get", ""))
}

func TestSearchFiltersCurrentListWithoutFetching(t *testing.T) {
	site := newTestSite(t, nil)
	resp, _ := site.get("/lugares")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, site.backend.queries(), 1)

	_, body := site.get("/fragmentos/lugares/buscar?q=cafe", "HX-Request", "true")
	names := parseDoc(t, body).Find(".place-name")
	require.Equal(t, 1, names.Length())
	require.Equal(t, "Café Central", strings.TrimSpace(names.Text()))

	_, body = site.get("/fragmentos/lugares/buscar?q=c", "HX-Request", "true")
	require.Equal(t, 2, parseDoc(t, body).Find(".place-card").Length())

	_, body = site.get("/fragmentos/lugares/buscar?q=zzz", "HX-Request", "true")
	require.Contains(t, body, cards.EmptyListMessage)

	require.Len(t, site.backend.queries(), 1)
}

func TestPlaceDetailFragment(t *testing.T) {
	site := newTestSite(t, nil)
	_, body := site.get("/lugares/1/detalle", "HX-Request", "true")
	doc := parseDoc(t, body)
	require.Equal(t, "Café Central", strings.TrimSpace(doc.Find(".place-detail .place-name").Text()))
	require.Contains(t, doc.Find(".place-phone").Text(), "+595")

	_, body = site.get("/lugares/99/detalle", "HX-Request", "true")
	require.Contains(t, body, cards.DetailErrorMessage)

	_, body = site.get("/lugares/abc/detalle", "HX-Request", "true")
	require.Contains(t, body, cards.DetailErrorMessage)
}

func TestAgendaPage(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/agenda")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, body)
	rows := doc.Find(".agenda-row")
	require.Equal(t, 5, rows.Length())
	require.Equal(t, "01", strings.TrimSpace(rows.First().Find(".agenda-number").Text()))
	require.Contains(t, rows.Eq(1).AttrOr("style", ""), "150ms")
	require.Equal(t, "page", doc.Find(`.nav-link[href="/agenda"]`).AttrOr("aria-current", ""))
}

func TestEventsFragment(t *testing.T) {
	site := newTestSite(t, nil)
	_, body := site.get("/fragmentos/eventos", "HX-Request", "true")
	require.Equal(t, 3, parseDoc(t, body).Find(".event-card").Length())
}

func TestPreviewMapSkipsPlacesWithoutCoordinates(t *testing.T) {
	site := newTestSite(t, nil)
	site.get("/")

	resp, body := site.get("/mapa/preview")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inst mapview.Instance
	require.NoError(t, json.Unmarshal([]byte(body), &inst))
	require.Equal(t, mapview.Preview, inst.Target)
	require.Equal(t, 13, inst.Zoom)
	require.Len(t, inst.Markers, 2)
	require.Contains(t, string(inst.Markers[0].Popup), "<b>Café Central</b>")

	resp, _ = site.get("/mapa/full")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = site.get("/mapa/satelite")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenFullMapRedrawsAfterDelay(t *testing.T) {
	site := newTestSite(t, nil)
	site.get("/lugares")

	resp, body := site.post("/mapa/full/abrir", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inst mapview.Instance
	require.NoError(t, json.Unmarshal([]byte(body), &inst))
	require.False(t, inst.SizeValid)
	require.Contains(t, hxTrigger(t, resp), "kesurge:map-open")

	require.Eventually(t, func() bool {
		_, body := site.get("/mapa/full")
		var full mapview.Instance
		if err := json.Unmarshal([]byte(body), &full); err != nil {
			return false
		}
		return full.SizeValid && len(full.Markers) == 1 && full.Zoom == 14
	}, 2*time.Second, 20*time.Millisecond)
}

func TestLocalModalToggleAndBackdropClick(t *testing.T) {
	site := newTestSite(t, nil)

	resp, body := site.post("/modales/local/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, body)
	require.Equal(t, 1, doc.Find(".local-form").Length())
	require.Equal(t, 4, doc.Find(`select[name="categoria"] option`).Length())
	require.JSONEq(t, `{"locked": true}`, string(hxTrigger(t, resp)["kesurge:scroll-lock"]))

	resp, _ = site.post("/modales/local/click", url.Values{"target": {"content"}})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = site.post("/modales/local/click", url.Values{"target": {"backdrop"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, strings.TrimSpace(body))
	require.JSONEq(t, `{"locked": false}`, string(hxTrigger(t, resp)["kesurge:scroll-lock"]))

	resp, _ = site.post("/modales/nada/toggle", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLocalRegistration(t *testing.T) {
	site := newTestSite(t, nil)
	site.post("/modales/local/toggle", nil)

	_, body := site.post("/locales/registro", url.Values{"categoria": {"nocturno"}, "contacto": {"mal@"}})
	doc := parseDoc(t, body)
	require.Equal(t, 1, doc.Find(`.field-error[data-field="nombre"]`).Length())
	require.Equal(t, 1, doc.Find(`.field-error[data-field="categoria"]`).Length())
	require.Equal(t, 1, doc.Find(`.field-error[data-field="contacto"]`).Length())
	require.Equal(t, "mal@", doc.Find(`input[name="contacto"]`).AttrOr("value", ""))

	resp, body := site.post("/locales/registro", url.Values{
		"nombre":    {"Lomitería Don Ramón"},
		"categoria": {"comida"},
		"contacto":  {"+595 981 000 000"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = parseDoc(t, body)
	require.Contains(t, doc.Text(), popup.LocalThanksMessage)
	require.Len(t, strings.TrimSpace(doc.Find(".receipt-ref").Text()), 26)
	require.JSONEq(t, `{"locked": false}`, string(hxTrigger(t, resp)["kesurge:scroll-lock"]))
}

func TestStatusEndpoint(t *testing.T) {
	site := newTestSite(t, nil)
	resp, body := site.get("/estado")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary status.Summary
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	require.Equal(t, status.StateOperational, summary.State)
	require.Len(t, summary.Components, 2)

	site.backend.failStats(http.StatusBadGateway)
	_, body = site.get("/estado")
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	require.Equal(t, status.StateDegraded, summary.State)
}

func TestSessionStateIsPerBrowser(t *testing.T) {
	site := newTestSite(t, nil)
	site.get("/lugares")

	other := &http.Client{}
	resp, err := other.Get(site.http.URL + "/fragmentos/lugares/buscar?q=cafe")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), cards.EmptyListMessage)
	require.Equal(t, 2, site.srv.store.Len())
}
