package handlers

import (
	"html/template"

	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/nav"
	"kesurge.org/kesurge-web/internal/seo"
)

// SiteName is the brand used in titles and structured data.
const SiteName = "Kesurge"

// PageData is the view model shared by every page rendered through the base layout.
type PageData struct {
	Title     string
	Lang      string
	SEO       seo.Meta
	Analytics Analytics
	CSRFToken string

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Categories  []config.Category

	// Per-page payloads, at most one is set.
	Home   *HomeView
	Agenda *AgendaView
	Places *PlacesView
}

// HomeView holds the independently loaded panels of the landing page.
type HomeView struct {
	Upcoming    template.HTML
	Featured    template.HTML
	Stats       *domain.Stats
	StatsError  string
	PopupURL    string
	PopupDelay  string
	MapStateURL string
}

// AgendaView is the full agenda page.
type AgendaView struct {
	Rows template.HTML
}

// PlacesView is the places directory page.
type PlacesView struct {
	Category    string
	List        template.HTML
	MapStateURL string
}

// NewPageData fills the layout fields common to all pages.
func NewPageData(lang, path, title, description string) PageData {
	full := title
	if full == "" {
		full = SiteName
	} else if title != SiteName {
		full = title + " | " + SiteName
	}
	return PageData{
		Title:       full,
		Lang:        lang,
		Path:        path,
		Nav:         nav.Build(path),
		Breadcrumbs: nav.Breadcrumbs(path),
		SEO: seo.Meta{
			Title:       full,
			Description: description,
			Robots:      "index,follow",
			OG: seo.OpenGraph{
				Title:       full,
				Description: description,
				Type:        "website",
				SiteName:    SiteName,
				Locale:      ogLocale(lang),
			},
			Twitter: seo.Twitter{Card: "summary_large_image"},
		},
	}
}

func ogLocale(lang string) string {
	if lang == "en" {
		return "en_US"
	}
	return "es_PY"
}
