package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/format"
	handlersPkg "kesurge.org/kesurge-web/internal/handlers"
	mw "kesurge.org/kesurge-web/internal/middleware"
	"kesurge.org/kesurge-web/internal/nav"
	"kesurge.org/kesurge-web/internal/observability"
	"kesurge.org/kesurge-web/internal/seo"
)

// templateSet parses every .tmpl file under dir. In dev mode templates are reparsed on each
// request.
type templateSet struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	mu    sync.RWMutex
	cache *template.Template
}

func newTemplateSet(dir string, dev bool, funcs template.FuncMap) *templateSet {
	return &templateSet{dir: dir, dev: dev, funcs: funcs}
}

func (ts *templateSet) parse() (*template.Template, error) {
	// ParseGlob doesn't support **, walk instead.
	var files []string
	if err := filepath.WalkDir(ts.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", ts.dir)
	}
	return template.New("_root").Funcs(ts.funcs).ParseFiles(files...)
}

func (ts *templateSet) load() error {
	t, err := ts.parse()
	if err != nil {
		return err
	}
	ts.mu.Lock()
	ts.cache = t
	ts.mu.Unlock()
	return nil
}

func (ts *templateSet) get() (*template.Template, error) {
	if ts.dev {
		return ts.parse()
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.cache == nil {
		return nil, fmt.Errorf("template not initialized")
	}
	return ts.cache, nil
}

func (s *server) funcMap() template.FuncMap {
	return template.FuncMap{
		"now": time.Now,
		"t": func(lang, key string) string {
			return s.bundle.T(lang, key)
		},
		"rating":       format.Rating,
		"count":        format.Count,
		"categoryName": s.cfg.Categories.Name,
		"categoryIcon": s.cfg.Categories.Icon,
	}
}

// renderPage executes the base layout with a page view model.
func (s *server) renderPage(w http.ResponseWriter, r *http.Request, vm handlersPkg.PageData) {
	s.execute(w, r, http.StatusOK, "base", vm)
}

// renderTemplate executes a named fragment.
func (s *server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.execute(w, r, http.StatusOK, name, data)
}

// execute buffers the output so a failing template never leaves a half-written response.
func (s *server) execute(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	log := observability.FromContext(r.Context())
	t, err := s.templates.get()
	if err != nil {
		log.Error("template parse", zap.Error(err))
		http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error("template exec", zap.String("template", name), zap.Error(err))
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// writeHTML writes pre-rendered markup, typically from the card renderer.
func writeHTML(w http.ResponseWriter, markup template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}

// pageData fills the layout fields shared by every page.
func (s *server) pageData(r *http.Request, titleKey, descriptionKey string) handlersPkg.PageData {
	lang := mw.Lang(r)
	title := ""
	if titleKey != "" {
		title = s.bundle.T(lang, titleKey)
	}
	vm := handlersPkg.NewPageData(lang, r.URL.Path, title, s.bundle.T(lang, descriptionKey))
	vm.Analytics = s.analytics
	vm.CSRFToken = mw.CSRFToken(r)
	vm.Categories = s.cfg.Categories
	vm.SEO.Canonical = absoluteURL(r)
	vm.SEO.OG.URL = vm.SEO.Canonical
	vm.SEO.Alternates = s.buildAlternates(r)
	if len(vm.Breadcrumbs) > 1 {
		vm.SEO.AddJSONLD(seo.BreadcrumbList(s.breadcrumbItems(r, lang, vm.Breadcrumbs)))
	}
	return vm
}

func (s *server) breadcrumbItems(r *http.Request, lang string, crumbs []nav.Crumb) []seo.BreadcrumbItem {
	base := strings.TrimSuffix(absoluteURL(r), r.URL.Path)
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		name := c.Label
		if c.LabelKey != "" {
			name = s.bundle.T(lang, c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: base + c.Href})
	}
	return items
}

func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}

func (s *server) buildAlternates(r *http.Request) []seo.Alternate {
	base := absoluteURL(r)
	langs := s.bundle.Supported()
	out := make([]seo.Alternate, 0, len(langs)+1)
	for _, l := range langs {
		out = append(out, seo.Alternate{Href: base + "?hl=" + l, Hreflang: l})
	}
	out = append(out, seo.Alternate{Href: base, Hreflang: "x-default"})
	return out
}
