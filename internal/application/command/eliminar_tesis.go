package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ELIMINAR / RESTAURAR TESIS
// Soft delete for administrators. The estado is untouched: a deleted thesis
// disappears from listings and rejects workflow actions until restored, then
// resumes exactly where it stopped.
// ══════════════════════════════════════════════════════════════════════════════

// EliminarTesisCommand soft-deletes or restores a thesis.
type EliminarTesisCommand struct {
	TesisID   uuid.UUID
	ActorID   uuid.UUID
	Restaurar bool
}

// Validate checks the command.
func (c EliminarTesisCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "EliminarTesis", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	return nil
}

// EliminarTesisHandler handles EliminarTesisCommand.
type EliminarTesisHandler struct {
	store  UnitOfWork
	cache  Cache
	events shared.EventPublisher
	log    *logger.Logger
}

// NewEliminarTesisHandler creates the handler.
func NewEliminarTesisHandler(store UnitOfWork, cache Cache,
	events shared.EventPublisher, log *logger.Logger) *EliminarTesisHandler {
	if log == nil {
		log = logger.Default()
	}
	return &EliminarTesisHandler{store: store, cache: cache, events: events, log: log}
}

// Handle flips the deletion flag under the row lock.
func (h *EliminarTesisHandler) Handle(ctx context.Context, cmd EliminarTesisCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		t := s.Tesis()
		if cmd.Restaurar {
			if !t.Eliminada {
				return shared.NewDomainError("command", "RestaurarTesis",
					shared.ErrPreconditionFailed, "la tesis no está eliminada")
			}
			t.Restaurar()
		} else {
			if t.Eliminada {
				return shared.NewDomainError("command", "EliminarTesis",
					shared.ErrPreconditionFailed, "la tesis ya está eliminada")
			}
			t.Eliminar()
		}
		return s.Guardar(ctx)
	})
	if err != nil {
		return err
	}

	if h.cache != nil {
		_ = h.cache.InvalidarExpediente(ctx, cmd.TesisID)
	}
	if h.events != nil {
		eventType := shared.EventTesisEliminada
		if cmd.Restaurar {
			eventType = shared.EventTesisRestaurada
		}
		_ = h.events.Publish(shared.NewGenericEvent(eventType, cmd.TesisID.String(),
			map[string]interface{}{"actor_id": cmd.ActorID.String()}))
	}

	h.log.Info("tesis eliminada/restaurada",
		logger.TesisID(cmd.TesisID.String()),
		logger.Bool("restaurada", cmd.Restaurar),
	)
	return nil
}
