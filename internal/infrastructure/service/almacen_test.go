package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
)

func TestAlmacen_GuardarYAbrir(t *testing.T) {
	almacen, err := NewAlmacenDocumentos(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	tesisID := uuid.New()

	ref, err := almacen.Guardar(ctx, tesisID, "proyecto.pdf", strings.NewReader("contenido"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, tesisID.String()+"/"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	f, err := almacen.Abrir(ctx, ref)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "contenido", string(data))
}

func TestAlmacen_ExtensionDesconocidaSeDescarta(t *testing.T) {
	almacen, err := NewAlmacenDocumentos(t.TempDir())
	require.NoError(t, err)

	ref, err := almacen.Guardar(context.Background(), uuid.New(), "script.exe", strings.NewReader("x"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(ref, ".exe"))
}

func TestAlmacen_ReferenciasInvalidas(t *testing.T) {
	almacen, err := NewAlmacenDocumentos(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, ref := range []string{"", "../fuera.pdf", "/etc/passwd", "a/../../b.pdf"} {
		_, err := almacen.Abrir(ctx, ref)
		assert.ErrorIs(t, err, shared.ErrValidation, "ref %q", ref)
	}
}

func TestAlmacen_EliminarEsIdempotente(t *testing.T) {
	almacen, err := NewAlmacenDocumentos(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := almacen.Guardar(ctx, uuid.New(), "voucher.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, almacen.Eliminar(ctx, ref))
	require.NoError(t, almacen.Eliminar(ctx, ref))

	_, err = almacen.Abrir(ctx, ref)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
