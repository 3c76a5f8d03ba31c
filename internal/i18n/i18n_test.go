package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveHonorsQValues(t *testing.T) {
	b, err := Load("../../locales", "es", []string{"es", "en"})
	require.NoError(t, err)

	require.Equal(t, "en", b.Resolve("es;q=0.8, en;q=0.9"))
	require.Equal(t, "es", b.Resolve("es-PY,es;q=0.9"))
	require.Equal(t, "es", b.Resolve("de-DE, fr;q=0.5"))
	require.Equal(t, "es", b.Resolve("en;q=0"))
}

func TestTranslateFallsBack(t *testing.T) {
	b, err := Load("../../locales", "es", []string{"es", "en"})
	require.NoError(t, err)

	require.Equal(t, "Agenda", b.T("es", "nav.agenda"))
	require.Equal(t, "Places", b.T("en", "nav.places"))
	require.Equal(t, "Lugares", b.T("de", "nav.places"))
	require.Equal(t, "missing.key", b.T("en", "missing.key"))
	require.True(t, b.IsSupported("en"))
	require.Equal(t, []string{"en", "es"}, b.Supported())
}

func TestLoadRequiresFallback(t *testing.T) {
	_, err := Load(t.TempDir(), "es", nil)
	require.Error(t, err)
}
