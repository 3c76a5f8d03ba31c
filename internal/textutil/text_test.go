package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	require.Equal(t, "Música en vivo todos los viernes", PlainText("<p>Música en <strong>vivo</strong>\n todos los viernes</p>"))
	require.Equal(t, "hola", PlainText("<script>alert(1)</script>hola"))
	require.Equal(t, "a & b", PlainText("a &amp; b"))
	require.Equal(t, "sin marcas", PlainText("  sin   marcas "))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "Ñandutí", Truncate("Ñandutí", 7))
	require.Equal(t, "Ñand…", Truncate("Ñandutí", 4))
	require.Equal(t, "abc", Truncate("abc", 0))
}

func TestContainsFold(t *testing.T) {
	require.True(t, ContainsFold("Café Central", "cafe"))
	require.True(t, ContainsFold("PANTEÓN", "panteon"))
	require.False(t, ContainsFold("Bar Luna", "cafe"))
	require.Equal(t, "nandu", Fold("Ñandú"))
}
