package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASIGNAR JURADO
// Seats one jury member while the thesis sits in ASIGNANDO_JURADOS.
// Reassigning an occupied seat replaces and deactivates the previous holder.
// ══════════════════════════════════════════════════════════════════════════════

// AsignarJuradoCommand seats a jury member.
type AsignarJuradoCommand struct {
	TesisID      uuid.UUID
	ActorID      uuid.UUID
	JuradoUserID uuid.UUID
	Nombre       string
	Cargo        tesis.TipoParticipante
}

// Validate checks the command.
func (c AsignarJuradoCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.JuradoUserID == uuid.Nil {
		return shared.NewDomainError("command", "AsignarJurado", shared.ErrValidation,
			"tesis_id y jurado_user_id son obligatorios")
	}
	if !c.Cargo.EsJurado() {
		return shared.NewDomainError("command", "AsignarJurado", shared.ErrValidation,
			"el cargo debe ser PRESIDENTE, VOCAL, SECRETARIO o ACCESITARIO")
	}
	return nil
}

// AsignarJuradoHandler handles AsignarJuradoCommand.
type AsignarJuradoHandler struct {
	store  UnitOfWork
	cache  Cache
	events shared.EventPublisher
	log    *logger.Logger
}

// NewAsignarJuradoHandler creates the handler.
func NewAsignarJuradoHandler(store UnitOfWork, cache Cache,
	events shared.EventPublisher, log *logger.Logger) *AsignarJuradoHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AsignarJuradoHandler{store: store, cache: cache, events: events, log: log}
}

// Handle seats the jury member under the row lock.
func (h *AsignarJuradoHandler) Handle(ctx context.Context, cmd AsignarJuradoCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		if err := s.Tesis().AsignarJurado(cmd.JuradoUserID, cmd.Nombre, cmd.Cargo); err != nil {
			return err
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
		_ = h.events.Publish(shared.NewGenericEvent(shared.EventJuradoAsignado,
			cmd.TesisID.String(), map[string]interface{}{
				"jurado_user_id": cmd.JuradoUserID.String(),
				"cargo":          string(cmd.Cargo),
			}))
	}

	h.log.Info("jurado asignado",
		logger.TesisID(cmd.TesisID.String()),
		logger.String("cargo", string(cmd.Cargo)),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIRMAR JURADOS
// Validates the full voting panel and opens the first evaluation round.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmarJuradosCommand confirms the assembled panel.
type ConfirmarJuradosCommand struct {
	TesisID uuid.UUID
	ActorID uuid.UUID
	Rol     tesis.Rol
}

// Validate checks the command.
func (c ConfirmarJuradosCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "ConfirmarJurados", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	return nil
}

// ConfirmarJuradosHandler handles ConfirmarJuradosCommand.
type ConfirmarJuradosHandler struct {
	transicionador
}

// NewConfirmarJuradosHandler creates the handler.
func NewConfirmarJuradosHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *ConfirmarJuradosHandler {
	return &ConfirmarJuradosHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle opens the evaluation round.
func (h *ConfirmarJuradosHandler) Handle(ctx context.Context, cmd ConfirmarJuradosCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{Accion: tesis.AccionConfirmarJurados})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMOVER ACCESITARIO
// Administrative override: the alternate juror takes a vacated voting seat
// mid-round. The estado never changes; the panel composition does.
// ══════════════════════════════════════════════════════════════════════════════

// PromoverAccesitarioCommand promotes the alternate juror.
type PromoverAccesitarioCommand struct {
	TesisID uuid.UUID
	ActorID uuid.UUID

	// Cargo is the vacated voting seat the accesitario takes.
	Cargo tesis.TipoParticipante
}

// Validate checks the command.
func (c PromoverAccesitarioCommand) Validate() error {
	if c.TesisID == uuid.Nil {
		return shared.NewDomainError("command", "PromoverAccesitario", shared.ErrValidation,
			"tesis_id es obligatorio")
	}
	if !c.Cargo.EsVotante() {
		return shared.NewDomainError("command", "PromoverAccesitario", shared.ErrValidation,
			"el cargo destino debe ser votante")
	}
	return nil
}

// PromoverAccesitarioHandler handles PromoverAccesitarioCommand.
type PromoverAccesitarioHandler struct {
	store  UnitOfWork
	cache  Cache
	events shared.EventPublisher
	log    *logger.Logger
}

// NewPromoverAccesitarioHandler creates the handler.
func NewPromoverAccesitarioHandler(store UnitOfWork, cache Cache,
	events shared.EventPublisher, log *logger.Logger) *PromoverAccesitarioHandler {
	if log == nil {
		log = logger.Default()
	}
	return &PromoverAccesitarioHandler{store: store, cache: cache, events: events, log: log}
}

// Handle promotes the accesitario under the row lock.
func (h *PromoverAccesitarioHandler) Handle(ctx context.Context, cmd PromoverAccesitarioCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		if err := s.Tesis().PromoverAccesitario(cmd.Cargo); err != nil {
			return err
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
		_ = h.events.Publish(shared.NewGenericEvent(shared.EventAccesitarioPromovido,
			cmd.TesisID.String(), map[string]interface{}{
				"cargo": string(cmd.Cargo),
			}))
	}

	h.log.Info("accesitario promovido",
		logger.TesisID(cmd.TesisID.String()),
		logger.String("cargo", string(cmd.Cargo)),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RETIRAR JURADO
// Deactivates a jury member (resignation, conflict of interest). The seat
// stays vacant until reassignment or promotion of the accesitario.
// ══════════════════════════════════════════════════════════════════════════════

// RetirarJuradoCommand removes a jury member.
type RetirarJuradoCommand struct {
	TesisID      uuid.UUID
	ActorID      uuid.UUID
	JuradoUserID uuid.UUID
}

// Validate checks the command.
func (c RetirarJuradoCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.JuradoUserID == uuid.Nil {
		return shared.NewDomainError("command", "RetirarJurado", shared.ErrValidation,
			"tesis_id y jurado_user_id son obligatorios")
	}
	return nil
}

// RetirarJuradoHandler handles RetirarJuradoCommand.
type RetirarJuradoHandler struct {
	store UnitOfWork
	cache Cache
	log   *logger.Logger
}

// NewRetirarJuradoHandler creates the handler.
func NewRetirarJuradoHandler(store UnitOfWork, cache Cache, log *logger.Logger) *RetirarJuradoHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RetirarJuradoHandler{store: store, cache: cache, log: log}
}

// Handle deactivates the jury member under the row lock.
func (h *RetirarJuradoHandler) Handle(ctx context.Context, cmd RetirarJuradoCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		if err := s.Tesis().RetirarJurado(cmd.JuradoUserID); err != nil {
			return err
		}
		return s.Guardar(ctx)
	})
	if err != nil {
		return err
	}

	if h.cache != nil {
		_ = h.cache.InvalidarExpediente(ctx, cmd.TesisID)
	}
	return nil
}
