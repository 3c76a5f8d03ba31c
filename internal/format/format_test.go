package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRating(t *testing.T) {
	require.Equal(t, "4,6", Rating(4.56, "es"))
	require.Equal(t, "4.6", Rating(4.56, "en"))
	require.Equal(t, "0,0", Rating(0, ""))
}

func TestCountAndReviews(t *testing.T) {
	require.Equal(t, "12.345", Count(12345, "es"))
	require.Equal(t, "12,345", Count(12345, "en"))
	require.Equal(t, "(1 reseña)", Reviews(1, "es"))
	require.Equal(t, "(230 reseñas)", Reviews(230, "es"))
	require.Equal(t, "(2 reviews)", Reviews(2, "en"))
	require.Empty(t, Reviews(0, "es"))
}

func TestDates(t *testing.T) {
	d := time.Date(2026, time.November, 14, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "14 NOV 2026", Date(d, "es"))
	require.Equal(t, "Nov 14, 2026", Date(d, "en"))
	require.Equal(t, "14 NOV 2026", EventDate("2026-11-14", "es"))
	require.Equal(t, "Sábado 29", EventDate(" Sábado 29 ", "es"))
}
