package format

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var monthsES = [...]string{"ENE", "FEB", "MAR", "ABR", "MAY", "JUN", "JUL", "AGO", "SEP", "OCT", "NOV", "DIC"}

// Rating formats a rating with one decimal. Spanish uses a decimal comma.
// Example: Rating(4.56, "es") => "4,6"
func Rating(r float64, lang string) string {
	s := strconv.FormatFloat(r, 'f', 1, 64)
	if isSpanish(lang) {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

// Count formats an integer with locale thousand separators.
// Example: Count(12345, "es") => "12.345"
func Count(n int, lang string) string {
	tag := language.English
	if isSpanish(lang) {
		tag = language.Spanish
	}
	return message.NewPrinter(tag).Sprintf("%d", n)
}

// Reviews formats a total ratings count as "(N reseñas)".
func Reviews(n int, lang string) string {
	if n <= 0 {
		return ""
	}
	word := "reseñas"
	if !isSpanish(lang) {
		word = "reviews"
	}
	if n == 1 {
		word = strings.TrimSuffix(word, "s")
	}
	return "(" + Count(n, lang) + " " + word + ")"
}

// Date formats time in a locale-friendly short form.
func Date(t time.Time, lang string) string {
	if isSpanish(lang) {
		return strconv.Itoa(t.Day()) + " " + monthsES[t.Month()-1] + " " + strconv.Itoa(t.Year())
	}
	return t.Format("Jan 2, 2006")
}

// EventDate renders an agenda date field. ISO dates are reformatted; anything else is
// returned as written by the source.
func EventDate(raw, lang string) string {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return Date(t, lang)
}

func isSpanish(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	return lang == "" || strings.HasPrefix(lang, "es")
}
