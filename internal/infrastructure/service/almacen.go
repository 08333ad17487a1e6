package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
)

// ErrReferenciaInvalida marks a storage reference this almacén did not issue.
var ErrReferenciaInvalida = shared.NewDomainError("almacen", "Resolver",
	shared.ErrValidation, "referencia de almacenamiento inválida")

// AlmacenDocumentos stores uploaded files and issues the opaque references
// recorded on Documento.StorageRef. The workflow core never reads file bytes;
// it only carries these references.
type AlmacenDocumentos struct {
	raiz string
}

// NewAlmacenDocumentos creates a filesystem-backed store rooted at raiz.
func NewAlmacenDocumentos(raiz string) (*AlmacenDocumentos, error) {
	if err := os.MkdirAll(raiz, 0o755); err != nil {
		return nil, fmt.Errorf("almacen: crear raíz: %w", err)
	}
	return &AlmacenDocumentos{raiz: raiz}, nil
}

// Guardar writes the file and returns its reference.
func (a *AlmacenDocumentos) Guardar(ctx context.Context, tesisID uuid.UUID, nombre string, contenido io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := fmt.Sprintf("%s/%s%s", tesisID, uuid.New(), extensionSegura(nombre))
	destino := filepath.Join(a.raiz, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(destino), 0o755); err != nil {
		return "", fmt.Errorf("almacen: crear directorio: %w", err)
	}

	f, err := os.Create(destino)
	if err != nil {
		return "", fmt.Errorf("almacen: crear archivo: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, contenido); err != nil {
		os.Remove(destino)
		return "", fmt.Errorf("almacen: escribir archivo: %w", err)
	}
	return ref, nil
}

// Abrir returns the file behind a reference.
func (a *AlmacenDocumentos) Abrir(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	destino, err := a.resolver(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(destino)
	if os.IsNotExist(err) {
		return nil, shared.NewDomainError("almacen", "Abrir", shared.ErrNotFound,
			"el documento no existe en el almacén")
	}
	if err != nil {
		return nil, fmt.Errorf("almacen: abrir archivo: %w", err)
	}
	return f, nil
}

// Eliminar removes the file behind a reference. Missing files are not an
// error: references of soft-deleted theses may be purged more than once.
func (a *AlmacenDocumentos) Eliminar(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	destino, err := a.resolver(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(destino); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("almacen: eliminar archivo: %w", err)
	}
	return nil
}

// resolver maps a reference to a path, refusing anything that escapes the
// storage root.
func (a *AlmacenDocumentos) resolver(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "..") || strings.HasPrefix(ref, "/") {
		return "", ErrReferenciaInvalida
	}
	return filepath.Join(a.raiz, filepath.FromSlash(ref)), nil
}

func extensionSegura(nombre string) string {
	ext := strings.ToLower(filepath.Ext(nombre))
	switch ext {
	case ".pdf", ".doc", ".docx", ".png", ".jpg", ".jpeg":
		return ext
	default:
		return ""
	}
}
