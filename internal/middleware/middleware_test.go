package middleware

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sessionHandler(t *testing.T, seen *string) http.Handler {
	t.Helper()
	return Session(SessionOptions{SigningKey: "test-key"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = SessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", sessionCookieName)
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	var first, second string
	h := sessionHandler(t, &first)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, first)
	cookie := sessionCookie(t, rec)
	require.True(t, cookie.HttpOnly)

	h = sessionHandler(t, &second)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, first, second)
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	var first, second string
	h := sessionHandler(t, &first)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, rec)

	payload, _, ok := strings.Cut(cookie.Value, ".")
	require.True(t, ok)
	cookie.Value = payload + ".AAAA"

	h = sessionHandler(t, &second)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEmpty(t, second)
	require.NotEqual(t, first, second)
}

func TestCSRFRequiresMatchingToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Session(SessionOptions{SigningKey: "test-key"})(CSRF(false)(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var session, csrf *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case sessionCookieName:
			session = c
		case csrfCookieName:
			csrf = c
		}
	}
	require.NotNil(t, session)
	require.NotNil(t, csrf)
	require.False(t, csrf.HttpOnly)

	post := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.AddCookie(session)
		req.AddCookie(csrf)
		if token != "" {
			req.Header.Set(csrfHeaderName, token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusForbidden, post(""))
	require.Equal(t, http.StatusForbidden, post("wrong"))
	require.Equal(t, http.StatusNoContent, post(csrf.Value))
}

func TestHXTriggerEncodesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	HXTrigger(rec, map[string]any{"kesurge:scroll-lock": map[string]bool{"locked": true}})
	require.JSONEq(t, `{"kesurge:scroll-lock":{"locked":true}}`, rec.Header().Get("HX-Trigger"))

	rec = httptest.NewRecorder()
	HXTrigger(rec, nil)
	require.Empty(t, rec.Header().Get("HX-Trigger"))
}

func TestHTMXDetection(t *testing.T) {
	var is bool
	h := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { is = IsHTMX(r.Context()) }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.True(t, is)
	require.Equal(t, "HX-Request", rec.Header().Get("Vary"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, is)
}

func TestWriteJSONFailsCleanly(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]float64{"lat": math.NaN()})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"n":1}`, rec.Body.String())
}
