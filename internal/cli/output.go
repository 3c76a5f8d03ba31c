package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"kesurge.org/kesurge-web/internal/domain"
	"kesurge.org/kesurge-web/internal/format"
	"kesurge.org/kesurge-web/internal/status"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

const lang = "es"

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writePlaces(w io.Writer, list domain.PlaceList, f OutputFormat) error {
	if f == FormatJSON {
		return writeJSON(w, list)
	}
	if len(list.Places) == 0 {
		fmt.Fprintln(w, "No places found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNOMBRE\tCATEGORIA\tRATING\tRESEÑAS")
	for _, p := range list.Places {
		id := "-"
		if p.ID != nil {
			id = strconv.Itoa(*p.ID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id, p.Name, p.Category, format.Rating(p.Rating, lang), format.Count(p.TotalRatings, lang))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	total := list.Total
	if total == 0 {
		total = len(list.Places)
	}
	fmt.Fprintf(w, "\nTotal: %s\n", format.Count(total, lang))
	return nil
}

func writePlace(w io.Writer, p domain.Place, f OutputFormat) error {
	if f == FormatJSON {
		return writeJSON(w, p)
	}
	tw := newTable(w)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", label, value)
		}
	}
	if p.ID != nil {
		row("ID", strconv.Itoa(*p.ID))
	}
	row("Nombre", p.Name)
	row("Categoría", p.Category)
	row("Rating", format.Rating(p.Rating, lang)+" "+format.Reviews(p.TotalRatings, lang))
	row("Dirección", p.Address)
	row("Teléfono", p.Phone)
	row("Sitio web", p.Website)
	row("Horarios", p.Hours)
	if p.HasCoordinates() {
		row("Coordenadas", fmt.Sprintf("%.6f, %.6f", *p.Lat, *p.Lng))
	}
	row("Descripción", p.Summary())
	return tw.Flush()
}

func writeCategories(w io.Writer, counts map[string]int, f OutputFormat) error {
	if f == FormatJSON {
		return writeJSON(w, counts)
	}
	if len(counts) == 0 {
		fmt.Fprintln(w, "No categories found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORIA\tLUGARES")
	for _, key := range sortedKeys(counts) {
		fmt.Fprintf(tw, "%s\t%s\n", key, format.Count(counts[key], lang))
	}
	return tw.Flush()
}

func writeStats(w io.Writer, s domain.Stats, f OutputFormat) error {
	if f == FormatJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "Total de lugares: %s\n", format.Count(s.TotalPlaces, lang))
	fmt.Fprintf(w, "Rating promedio: %s\n", format.Rating(s.AverageRating, lang))
	if len(s.ByCategory) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := newTable(w)
	for _, key := range sortedKeys(s.ByCategory) {
		fmt.Fprintf(tw, "  %s\t%s\n", key, format.Count(s.ByCategory[key], lang))
	}
	return tw.Flush()
}

func writeScraper(w io.Writer, r domain.ScraperResult, f OutputFormat) error {
	if f == FormatJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Estado: %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	if len(r.Stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Stats))
	for k := range r.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := newTable(w)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%v\n", k, r.Stats[k])
	}
	return tw.Flush()
}

func writeStatus(w io.Writer, s status.Summary, f OutputFormat) error {
	if f == FormatJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "%s (%s)\n\n", s.StateLabel, s.State)
	tw := newTable(w)
	fmt.Fprintln(tw, "COMPONENTE\tESTADO\tLATENCIA\tERROR")
	for _, c := range s.Components {
		fmt.Fprintf(tw, "%s\t%s\t%dms\t%s\n", c.Name, c.Status, c.LatencyMS, c.Error)
	}
	return tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
