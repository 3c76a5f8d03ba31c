package cards

import (
	"html/template"
	"math"
	"strings"

	"kesurge.org/kesurge-web/internal/domain"
)

// Star is one glyph of a five-star rating.
type Star int

const (
	StarEmpty Star = iota
	StarHalf
	StarFull
)

// TotalStars is the fixed length of every rating row.
const TotalStars = 5

// Stars maps a rating to floor(r) full stars, one half star when the fraction is at least 0.5,
// and empty stars up to five. Out-of-range ratings clamp to [0,5].
func Stars(rating float64) []Star {
	r := domain.ClampRating(rating)
	full := int(math.Floor(r))
	half := r-float64(full) >= 0.5

	out := make([]Star, 0, TotalStars)
	for i := 0; i < full; i++ {
		out = append(out, StarFull)
	}
	if half {
		out = append(out, StarHalf)
	}
	for len(out) < TotalStars {
		out = append(out, StarEmpty)
	}
	return out
}

// StarsHTML renders Stars as glyph spans.
func StarsHTML(rating float64) template.HTML {
	var b strings.Builder
	for _, s := range Stars(rating) {
		switch s {
		case StarFull:
			b.WriteString(`<span class="star star-full text-ocaso">★</span>`)
		case StarHalf:
			b.WriteString(`<span class="star star-half text-ocaso">⯨</span>`)
		default:
			b.WriteString(`<span class="star star-empty text-gray-300">★</span>`)
		}
	}
	return template.HTML(b.String())
}

var priceSymbols = map[int]string{1: "$", 2: "$$", 3: "$$$", 4: "$$$$"}

// PriceSymbol maps a 1..4 price level to dollar signs. Anything else is "N/A".
func PriceSymbol(level int) string {
	if s, ok := priceSymbols[level]; ok {
		return s
	}
	return "N/A"
}

// placePrice prefers a symbol shipped with the record over the numeric level.
func placePrice(p domain.Place) string {
	if s := strings.TrimSpace(p.PriceSymbol); s != "" {
		return s
	}
	return PriceSymbol(p.PriceLevel)
}
