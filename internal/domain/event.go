package domain

// Event is an agenda entry from eventos.json or agenda.json. Events have no identity; their
// order is the order of the source file.
type Event struct {
	Title    string `json:"titulo"`
	Date     string `json:"fecha"`
	Time     string `json:"hora,omitempty"`
	Venue    string `json:"lugar,omitempty"`
	Image    string `json:"imagen,omitempty"`
	Category string `json:"categoria,omitempty"`
	Featured bool   `json:"es_destacado"`
}

// MapPoint is an entry of mapa.json.
type MapPoint struct {
	Name string  `json:"nombre"`
	Kind string  `json:"tipo"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}
