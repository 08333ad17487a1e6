package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENVIAR A REVISION
// An author submits the dossier to mesa de partes. Every invited participant
// must have accepted and every mandatory document must be present.
// ══════════════════════════════════════════════════════════════════════════════

// EnviarRevisionCommand submits a thesis dossier for review.
type EnviarRevisionCommand struct {
	TesisID uuid.UUID
	ActorID uuid.UUID
	Rol     tesis.Rol
}

// Validate checks the command.
func (c EnviarRevisionCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "EnviarRevision", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	return nil
}

// EnviarRevisionHandler handles EnviarRevisionCommand.
type EnviarRevisionHandler struct {
	transicionador
}

// NewEnviarRevisionHandler creates the handler.
func NewEnviarRevisionHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *EnviarRevisionHandler {
	return &EnviarRevisionHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle executes the submission.
func (h *EnviarRevisionHandler) Handle(ctx context.Context, cmd EnviarRevisionCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{Accion: tesis.AccionEnviarRevision})
}
