package command

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBSANAR OBSERVACIONES
// The author resubmits the corrected document after a jury observation,
// opening a new evaluation round against the same panel. Must happen within
// the correction window.
// ══════════════════════════════════════════════════════════════════════════════

// SubsanarObservacionesCommand resubmits the corrected document.
type SubsanarObservacionesCommand struct {
	TesisID uuid.UUID
	ActorID uuid.UUID

	// ArchivoRef points at the corrected document in storage. The expected
	// type (proyecto or informe final) follows from the current estado.
	ArchivoRef string

	Comentario string
}

// Validate checks the command.
func (c SubsanarObservacionesCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "SubsanarObservaciones", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	if strings.TrimSpace(c.ArchivoRef) == "" {
		return shared.NewDomainError("command", "SubsanarObservaciones", shared.ErrValidation,
			"debe adjuntar el documento corregido")
	}
	return nil
}

// SubsanarObservacionesHandler handles SubsanarObservacionesCommand.
type SubsanarObservacionesHandler struct {
	transicionador
}

// NewSubsanarObservacionesHandler creates the handler.
func NewSubsanarObservacionesHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *SubsanarObservacionesHandler {
	return &SubsanarObservacionesHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle resubmits the correction. The document type is derived from the
// estado under the lock, so a race with a phase change cannot attach the
// wrong type.
func (h *SubsanarObservacionesHandler) Handle(ctx context.Context, cmd SubsanarObservacionesCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor := tesis.Actor{UserID: cmd.ActorID, Rol: tesis.RolEstudiante}
	var res *ResultadoTransicion

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		t := s.Tesis()

		tipo := tesis.DocProyecto
		if t.Estado == tesis.EstadoObservadaInforme {
			tipo = tesis.DocInformeFinal
		}

		reg, err := h.maquina.Ejecutar(t, actor, tesis.Peticion{
			Accion:     tesis.AccionSubsanarObservaciones,
			Comentario: cmd.Comentario,
			Documento: &tesis.Documento{
				Tipo:       tipo,
				StorageRef: cmd.ArchivoRef,
				SubidoPor:  cmd.ActorID,
			},
		})
		if err != nil {
			return err
		}
		if err := s.Guardar(ctx); err != nil {
			return err
		}
		if err := s.AgregarHistorial(ctx, reg); err != nil {
			return err
		}
		res = &ResultadoTransicion{
			TesisID:        t.ID,
			EstadoAnterior: reg.EstadoAnterior,
			EstadoNuevo:    reg.EstadoNuevo,
			Ronda:          t.RondaActual,
			Registro:       *reg,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.despuesDeCommit(ctx, res, cmd.ActorID.String())
	return res, nil
}
