package tesis

import (
	"context"

	"github.com/google/uuid"
)

// ListOptions contains pagination and filter parameters for listings.
type ListOptions struct {
	Offset int
	Limit  int

	// Estado filters by lifecycle state when non-empty.
	Estado Estado

	// IncluirEliminadas includes soft-deleted records when true.
	IncluirEliminadas bool
}

// Repository defines the read-side access to thesis aggregates. Implementations
// live in infrastructure/persistence. Reads are non-blocking snapshots; the
// write path goes through the transactional workflow store owned by the
// application layer.
type Repository interface {
	// Create persists a new thesis with its participants.
	// Returns ErrCodigoDuplicado when the código is taken.
	Create(ctx context.Context, t *Tesis) error

	// GetByID returns the full aggregate (participants, documents).
	// Returns ErrTesisNotFound when missing.
	GetByID(ctx context.Context, id uuid.UUID) (*Tesis, error)

	// GetByCodigo returns the aggregate by institutional code.
	GetByCodigo(ctx context.Context, codigo string) (*Tesis, error)

	// List returns theses matching the options, most recent first.
	List(ctx context.Context, opts ListOptions) ([]*Tesis, error)

	// Count returns the number of theses matching the options.
	Count(ctx context.Context, opts ListOptions) (int, error)
}

// HistorialRepository provides access to the append-only transition history.
// There is deliberately no update or delete.
type HistorialRepository interface {
	// Append stores one history record.
	Append(ctx context.Context, r *RegistroHistorial) error

	// ListByTesis returns the full history of a thesis, oldest first.
	ListByTesis(ctx context.Context, tesisID uuid.UUID) ([]RegistroHistorial, error)
}
