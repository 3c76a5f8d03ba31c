package domain

import (
	"encoding/json"
)

// PlaceList is the payload of GET /lugares.
type PlaceList struct {
	Total    int     `json:"total"`
	Category string  `json:"categoria,omitempty"`
	Places   []Place `json:"lugares"`
}

// Stats is the payload of GET /estadisticas. Fields the model does not name are kept in Raw.
type Stats struct {
	TotalPlaces   int                        `json:"total_lugares"`
	ByCategory    map[string]int             `json:"por_categoria"`
	AverageRating float64                    `json:"promedio_rating"`
	Raw           map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and retains the rest in Raw.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Stats{ByCategory: map[string]int{}}
	if v, ok := raw["total_lugares"]; ok {
		out.TotalPlaces = int(numberOrZero(v))
		delete(raw, "total_lugares")
	}
	if v, ok := raw["promedio_rating"]; ok {
		out.AverageRating = numberOrZero(v)
		delete(raw, "promedio_rating")
	}
	if v, ok := raw["por_categoria"]; ok {
		var counts map[string]json.RawMessage
		if err := json.Unmarshal(v, &counts); err == nil {
			for k, n := range counts {
				out.ByCategory[k] = int(numberOrZero(n))
			}
			delete(raw, "por_categoria")
		}
	}
	if len(raw) > 0 {
		out.Raw = raw
	}
	*s = out
	return nil
}

// ScraperResult is the payload of POST /scraper/ejecutar.
type ScraperResult struct {
	Status string         `json:"status"`
	Stats  map[string]any `json:"estadisticas,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// CategoryCounts is the payload of GET /categorias.
type CategoryCounts struct {
	Categories map[string]int `json:"categorias"`
}
