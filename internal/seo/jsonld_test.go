package seo

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"kesurge.org/kesurge-web/internal/domain"
)

func TestEventSchema(t *testing.T) {
	m := Event(domain.Event{Title: "Noche de Museos", Date: "2026-11-14", Time: "19:30", Venue: "Centro Histórico"}, "Asunción")
	require.Equal(t, "Event", m["@type"])
	require.Equal(t, "2026-11-14T19:30", m["startDate"])
	require.Contains(t, JSON(m), `"addressLocality":"Asunción"`)

	loose := Event(domain.Event{Title: "Feria", Date: "29 NOV"}, "")
	require.NotContains(t, loose, "startDate")
	require.NotContains(t, loose, "location")
}

func TestLocalBusinessSchema(t *testing.T) {
	lat, lng := -25.28, -57.63
	m := LocalBusiness(domain.Place{Name: "Café Central", Rating: 4.6, TotalRatings: 12, Lat: &lat, Lng: &lng}, "$$")
	require.Equal(t, "$$", m["priceRange"])
	require.Contains(t, m, "geo")
	require.Contains(t, m, "aggregateRating")

	bare := LocalBusiness(domain.Place{Name: "Sin datos"}, "N/A")
	require.NotContains(t, bare, "priceRange")
	require.NotContains(t, bare, "aggregateRating")
	require.NotContains(t, bare, "description")
}

func TestLocalBusinessDescriptionIsPlainText(t *testing.T) {
	m := LocalBusiness(domain.Place{Name: "Tierra", ShortDescription: "<p>Comida <b>típica</b> &amp; música</p>"}, "")
	require.Equal(t, "Comida típica & música", m["description"])

	long := LocalBusiness(domain.Place{Name: "Largo", ShortDescription: strings.Repeat("palabra ", 40)}, "")
	d, ok := long["description"].(string)
	require.True(t, ok)
	require.True(t, strings.HasSuffix(d, "…"))
	require.LessOrEqual(t, utf8.RuneCountInString(d), descriptionLen+1)
}

func TestMetaAddJSONLDEscapesMarkup(t *testing.T) {
	var m Meta
	m.AddJSONLD(Organization("Kesurge </script>", "https://kesurge.org", ""))
	require.Len(t, m.JSONLD, 1)
	require.False(t, strings.Contains(string(m.JSONLD[0]), "</script>"))

	m.AddJSONLD(func() {})
	require.Len(t, m.JSONLD, 1)
}
