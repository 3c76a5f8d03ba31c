package cards

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"kesurge.org/kesurge-web/internal/config"
	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/textutil"
)

// Fixed user-facing messages.
const (
	EmptyListMessage   = "No se encontraron lugares"
	NoAddressMessage   = "Dirección no disponible"
	DetailErrorMessage = "Error al cargar los detalles del lugar"
	RetryLabel         = "Reintentar"
)

const googlePhotoURL = "https://maps.googleapis.com/maps/api/place/photo"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns view models into HTML fragments. It holds no per-request state and is safe
// for concurrent use.
type Renderer struct {
	categories  config.Categories
	photoAPIKey string
	markdown    goldmark.Markdown
	policy      *bluemonday.Policy
	tmpl        *template.Template
	logger      *zap.Logger
}

// NewRenderer parses the embedded card templates.
func NewRenderer(categories config.Categories, photoAPIKey string, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{
		categories:  categories,
		photoAPIKey: photoAPIKey,
		markdown:    goldmark.New(),
		policy:      bluemonday.UGCPolicy(),
		logger:      logger,
	}
	tmpl, err := template.New("cards").Funcs(template.FuncMap{
		"stars":     StarsHTML,
		"eventDate": eventDate,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("cards: parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// PlaceView is the data a card template sees.
type PlaceView struct {
	Key          string
	ID           string
	Name         string
	Address      string
	Category     string
	CategoryName string
	CategoryIcon string
	Photo        string
	RatingText   string
	Rating       float64
	Price        string
	Summary      template.HTML
	DetailURL    string
}

// View builds the card view model for place at position index.
func (r *Renderer) View(place domain.Place, index int) PlaceView {
	v := PlaceView{
		Key:          place.Key(index),
		Name:         place.Name,
		Address:      place.Address,
		Category:     place.Category,
		CategoryName: r.categories.Name(place.Category),
		CategoryIcon: r.categories.Icon(place.Category),
		Photo:        r.photo(place),
		Rating:       place.Rating,
		RatingText:   fmt.Sprintf("%.1f (%d)", place.Rating, place.TotalRatings),
		Price:        placePrice(place),
		Summary:      r.Markdown(place.Summary()),
	}
	if v.Address == "" {
		v.Address = NoAddressMessage
	}
	if place.ID != nil {
		v.ID = strconv.Itoa(*place.ID)
		v.DetailURL = "/lugares/" + v.ID + "/detalle"
	}
	return v
}

func (r *Renderer) photo(place domain.Place) string {
	if place.PhotoURL != "" {
		return place.PhotoURL
	}
	if place.PhotoReference == "" {
		return ""
	}
	q := url.Values{}
	q.Set("maxwidth", "600")
	q.Set("photo_reference", place.PhotoReference)
	if r.photoAPIKey != "" {
		q.Set("key", r.photoAPIKey)
	}
	return googlePhotoURL + "?" + q.Encode()
}

// Markdown renders src as sanitized HTML. Plain text passes through as a paragraph.
func (r *Renderer) Markdown(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// Render returns the card markup for one place.
func (r *Renderer) Render(place domain.Place) template.HTML {
	return r.exec("place_card", r.View(place, 0))
}

// RenderMultiple concatenates the cards of places in input order, or the empty-list message.
func (r *Renderer) RenderMultiple(places []domain.Place) template.HTML {
	if len(places) == 0 {
		return r.exec("place_list_empty", EmptyListMessage)
	}
	views := make([]PlaceView, 0, len(places))
	for i, p := range places {
		views = append(views, r.View(p, i))
	}
	return r.exec("place_list", views)
}

// DetailView is the data of the detail panel.
type DetailView struct {
	PlaceView
	Hours   string
	Phone   string
	Website string
}

// RenderDetail returns the non-blocking detail panel for a single place.
func (r *Renderer) RenderDetail(place domain.Place) template.HTML {
	v := DetailView{
		PlaceView: r.View(place, 0),
		Hours:     place.Hours,
		Phone:     place.Phone,
		Website:   place.Website,
	}
	return r.exec("place_detail", v)
}

// RenderDetailError returns the panel shown when a detail fetch fails.
func (r *Renderer) RenderDetailError() template.HTML {
	return r.exec("place_detail_error", DetailErrorMessage)
}

// Loader returns the loading indicator.
func (r *Renderer) Loader() template.HTML {
	return r.exec("loader", nil)
}

// ErrorPanel returns an error message with a retry button that issues GET retryURL.
func (r *Renderer) ErrorPanel(message, retryURL string) template.HTML {
	return r.exec("error_panel", map[string]string{
		"Message":  message,
		"RetryURL": retryURL,
		"Retry":    RetryLabel,
	})
}

// popupExcerptLen bounds the summary shown under a marker.
const popupExcerptLen = 80

// MarkerPopup returns the popup of a map marker: bold name, category and a short plain-text
// excerpt of the summary.
func (r *Renderer) MarkerPopup(place domain.Place) template.HTML {
	return r.exec("marker_popup", map[string]string{
		"Name":     place.Name,
		"Category": r.categories.Name(place.Category),
		"Excerpt":  textutil.Truncate(textutil.PlainText(place.Summary()), popupExcerptLen),
	})
}

// exec runs a named template. Templates are fixed and their data is plain values, so a failure
// here is a programming error; it is logged and yields empty markup.
func (r *Renderer) exec(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("render fragment", zap.String("template", name), zap.Error(err))
		return ""
	}
	return template.HTML(buf.String())
}
