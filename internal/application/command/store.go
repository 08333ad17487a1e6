// Package command contains write operations (CQRS - Commands). Every
// workflow mutation goes through one handler here: load the thesis under a
// row lock, run the state machine, persist the aggregate and its history
// record in the same transaction, then invalidate the cache and publish
// events after commit.
package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// Scope is the transactional view a handler works with inside ConTesis. The
// thesis is loaded with a row lock held until the transaction ends, which
// makes each handler the single writer of its aggregate.
type Scope interface {
	// Tesis returns the locked aggregate. Mutations become durable only
	// after Guardar.
	Tesis() *tesis.Tesis

	// Guardar persists the current aggregate (estado, fase, ronda,
	// deadlines, participants, documents).
	Guardar(ctx context.Context) error

	// AgregarHistorial appends a transition record. History is append-only;
	// there is deliberately no update or delete.
	AgregarHistorial(ctx context.Context, reg *tesis.RegistroHistorial) error

	// AgregarEvaluacion persists a jury verdict. A (juror, round) conflict
	// surfaces as jurado.ErrEvaluacionDuplicada.
	AgregarEvaluacion(ctx context.Context, e *jurado.Evaluacion) error

	// EvaluacionesDeRonda returns the verdicts recorded for a round of the
	// locked thesis.
	EvaluacionesDeRonda(ctx context.Context, ronda int) ([]jurado.Evaluacion, error)
}

// UnitOfWork opens transactional scopes against storage.
type UnitOfWork interface {
	// CrearTesis inserts a new aggregate plus its creation history record
	// atomically. A duplicate código surfaces as tesis.ErrCodigoDuplicado.
	CrearTesis(ctx context.Context, t *tesis.Tesis, reg *tesis.RegistroHistorial) error

	// ConTesis loads the thesis under a row lock and runs fn inside the
	// transaction. fn returning an error rolls everything back.
	ConTesis(ctx context.Context, tesisID uuid.UUID, fn func(ctx context.Context, s Scope) error) error
}

// Cache invalidates read-side snapshots after a committed write. Invalidation
// failures are logged and swallowed: the snapshot carries a TTL, so a stale
// entry heals itself.
type Cache interface {
	InvalidarExpediente(ctx context.Context, tesisID uuid.UUID) error
}
