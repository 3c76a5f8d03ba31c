package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MaxRating is the upper bound of the rating scale.
const MaxRating = 5.0

// Place is a venue listed by the backend or shipped in a fixture file.
type Place struct {
	ID               *int     `json:"id,omitempty"`
	PlaceID          string   `json:"place_id,omitempty"`
	Name             string   `json:"nombre"`
	Address          string   `json:"direccion,omitempty"`
	Category         string   `json:"categoria"`
	Rating           float64  `json:"rating"`
	TotalRatings     int      `json:"total_ratings"`
	PriceLevel       int      `json:"precio_nivel,omitempty"`
	PriceSymbol      string   `json:"precio_simbolo,omitempty"`
	PhotoURL         string   `json:"foto_url,omitempty"`
	PhotoReference   string   `json:"foto_referencia,omitempty"`
	Lat              *float64 `json:"lat,omitempty"`
	Lng              *float64 `json:"lng,omitempty"`
	Hours            string   `json:"horarios,omitempty"`
	ShortDescription string   `json:"descripcion_corta,omitempty"`
	Phone            string   `json:"telefono,omitempty"`
	Website          string   `json:"sitio_web,omitempty"`
}

type placeWire struct {
	ID               json.RawMessage `json:"id"`
	PlaceID          string          `json:"place_id"`
	Name             string          `json:"nombre"`
	Address          string          `json:"direccion"`
	Venue            string          `json:"lugar"`
	Category         string          `json:"categoria"`
	Rating           json.RawMessage `json:"rating"`
	TotalRatings     json.RawMessage `json:"total_ratings"`
	PriceLevel       json.RawMessage `json:"precio_nivel"`
	PriceSymbol      string          `json:"precio_simbolo"`
	PhotoURL         string          `json:"foto_url"`
	PhotoReference   string          `json:"foto_referencia"`
	Lat              json.RawMessage `json:"lat"`
	Lng              json.RawMessage `json:"lng"`
	Hours            json.RawMessage `json:"horarios"`
	ShortDescription string          `json:"descripcion_corta"`
	Phone            string          `json:"telefono"`
	Website          string          `json:"sitio_web"`
}

// UnmarshalJSON accepts the field-name variants found across the backend and fixture files.
func (p *Place) UnmarshalJSON(data []byte) error {
	var w placeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Place{
		PlaceID:          strings.TrimSpace(w.PlaceID),
		Name:             strings.TrimSpace(w.Name),
		Address:          firstNonEmpty(w.Address, w.Venue),
		Category:         strings.TrimSpace(w.Category),
		Rating:           ClampRating(numberOrZero(w.Rating)),
		TotalRatings:     int(numberOrZero(w.TotalRatings)),
		PriceLevel:       int(numberOrZero(w.PriceLevel)),
		PriceSymbol:      strings.TrimSpace(w.PriceSymbol),
		PhotoURL:         strings.TrimSpace(w.PhotoURL),
		PhotoReference:   strings.TrimSpace(w.PhotoReference),
		Lat:              optionalNumber(w.Lat),
		Lng:              optionalNumber(w.Lng),
		Hours:            textOrJSON(w.Hours),
		ShortDescription: strings.TrimSpace(w.ShortDescription),
		Phone:            strings.TrimSpace(w.Phone),
		Website:          strings.TrimSpace(w.Website),
	}
	if id := optionalNumber(w.ID); id != nil && validID(*id) {
		v := int(*id)
		out.ID = &v
	}
	*p = out
	return nil
}

// Key returns the place identity: its id when present, otherwise its position in the list.
func (p Place) Key(index int) string {
	if p.ID != nil {
		return strconv.Itoa(*p.ID)
	}
	return "idx-" + strconv.Itoa(index)
}

// HasCoordinates reports whether both lat and lng are known.
func (p Place) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil && isFinite(*p.Lat) && isFinite(*p.Lng)
}

// Summary returns the short description, falling back to the opening hours.
func (p Place) Summary() string {
	return firstNonEmpty(p.ShortDescription, p.Hours)
}

// ClampRating bounds r to [0, MaxRating]. NaN becomes 0.
func ClampRating(r float64) float64 {
	switch {
	case math.IsNaN(r), r < 0:
		return 0
	case r > MaxRating:
		return MaxRating
	}
	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// validID reports whether f is a whole number usable as a place id.
func validID(f float64) bool {
	return f == math.Trunc(f) && f >= 0 && f <= math.MaxInt32
}

// optionalNumber parses a JSON number, or a string holding one. Non-finite values and
// anything else are nil.
func optionalNumber(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && isFinite(parsed) {
			return &parsed
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func numberOrZero(raw json.RawMessage) float64 {
	if v := optionalNumber(raw); v != nil {
		return *v
	}
	return 0
}

// textOrJSON keeps strings as-is and re-encodes structured values compactly.
func textOrJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}
