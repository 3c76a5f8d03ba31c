package seo

import (
	"encoding/json"
	"strings"

	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/textutil"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// WebSite returns a minimal WebSite schema with optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// Event returns a schema.org Event for an agenda entry. The start date is emitted only when
// the source date is ISO formatted.
func Event(e domain.Event, city string) map[string]any {
	m := map[string]any{
		"@context":            "https://schema.org",
		"@type":               "Event",
		"name":                e.Title,
		"eventAttendanceMode": "https://schema.org/OfflineEventAttendanceMode",
	}
	if start := isoStart(e.Date, e.Time); start != "" {
		m["startDate"] = start
	}
	if e.Venue != "" {
		loc := map[string]any{"@type": "Place", "name": e.Venue}
		if city != "" {
			loc["address"] = map[string]any{"@type": "PostalAddress", "addressLocality": city}
		}
		m["location"] = loc
	}
	if e.Image != "" {
		m["image"] = []string{e.Image}
	}
	return m
}

func isoStart(date, clock string) string {
	date = strings.TrimSpace(date)
	if len(date) != 10 || date[4] != '-' || date[7] != '-' {
		return ""
	}
	clock = strings.TrimSpace(clock)
	if len(clock) == 5 && clock[2] == ':' {
		return date + "T" + clock
	}
	return date
}

// descriptionLen matches the length search engines show for snippets.
const descriptionLen = 160

// LocalBusiness returns a schema.org LocalBusiness for a place.
func LocalBusiness(p domain.Place, priceRange string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "LocalBusiness",
		"name":     p.Name,
	}
	if p.Address != "" {
		m["address"] = p.Address
	}
	if d := textutil.Truncate(textutil.PlainText(p.Summary()), descriptionLen); d != "" {
		m["description"] = d
	}
	if p.Rating > 0 {
		agg := map[string]any{"@type": "AggregateRating", "ratingValue": p.Rating, "bestRating": domain.MaxRating}
		if p.TotalRatings > 0 {
			agg["reviewCount"] = p.TotalRatings
		}
		m["aggregateRating"] = agg
	}
	if priceRange != "" && priceRange != "N/A" {
		m["priceRange"] = priceRange
	}
	if p.HasCoordinates() {
		m["geo"] = map[string]any{"@type": "GeoCoordinates", "latitude": *p.Lat, "longitude": *p.Lng}
	}
	if p.PhotoURL != "" {
		m["image"] = p.PhotoURL
	}
	if p.Phone != "" {
		m["telephone"] = p.Phone
	}
	return m
}
