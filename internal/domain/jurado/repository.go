package jurado

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage access for jury evaluations. Implementations
// live in infrastructure/persistence. The (juror, round) uniqueness invariant
// is enforced both here (RegistrarEvaluacion) and by a database constraint.
type Repository interface {
	// Create persists an evaluation.
	// Returns ErrEvaluacionDuplicada on a (juror, round) conflict.
	Create(ctx context.Context, e *Evaluacion) error

	// ListByTesis returns every evaluation of a thesis, oldest first.
	ListByTesis(ctx context.Context, tesisID uuid.UUID) ([]Evaluacion, error)

	// ListByRonda returns the evaluations of one round of a thesis.
	ListByRonda(ctx context.Context, tesisID uuid.UUID, ronda int) ([]Evaluacion, error)
}
