package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBIR DICTAMEN
// The presidente closes the open round with the signed collective dictamen.
// The handler recomputes round completeness and the majority from the stored
// verdicts inside the same transaction, so the machine receives ground truth
// rather than client-supplied claims.
// ══════════════════════════════════════════════════════════════════════════════

// SustentacionInput carries defense scheduling for an approving final-report
// dictamen.
type SustentacionInput struct {
	Fecha     time.Time
	Hora      string
	Lugar     string
	Modalidad string
}

// SubirDictamenCommand closes an evaluation round.
type SubirDictamenCommand struct {
	TesisID uuid.UUID
	ActorID uuid.UUID

	// ArchivoRef points at the signed dictamen PDF in document storage.
	ArchivoRef string
	FechaFirma time.Time

	// Sustentacion is required when the final-report round resolves APROBADO.
	Sustentacion *SustentacionInput

	Comentario string
}

// Validate checks the command.
func (c SubirDictamenCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "SubirDictamen", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	if strings.TrimSpace(c.ArchivoRef) == "" {
		return shared.NewDomainError("command", "SubirDictamen", shared.ErrValidation,
			"debe adjuntar el dictamen firmado")
	}
	if c.FechaFirma.IsZero() {
		return shared.NewDomainError("command", "SubirDictamen", shared.ErrValidation,
			"la fecha de firma es obligatoria")
	}
	return nil
}

// SubirDictamenResult extends the transition result with the resolved round.
type SubirDictamenResult struct {
	ResultadoTransicion
	RondaResuelta int
	Mayoria       tesis.Resultado
}

// SubirDictamenHandler handles SubirDictamenCommand.
type SubirDictamenHandler struct {
	transicionador
}

// NewSubirDictamenHandler creates the handler.
func NewSubirDictamenHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *SubirDictamenHandler {
	return &SubirDictamenHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle closes the round. Load, progress computation, machine execution and
// persistence all happen under the same row lock.
func (h *SubirDictamenHandler) Handle(ctx context.Context, cmd SubirDictamenCommand) (*SubirDictamenResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor := tesis.Actor{UserID: cmd.ActorID, Rol: tesis.RolJurado}
	var res *SubirDictamenResult

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		t := s.Tesis()
		ronda := t.RondaActual

		evaluaciones, err := s.EvaluacionesDeRonda(ctx, ronda)
		if err != nil {
			return err
		}
		progreso := jurado.ComputarProgreso(t, evaluaciones, ronda)

		firma := cmd.FechaFirma
		p := tesis.Peticion{
			Accion:     tesis.AccionSubirDictamen,
			Comentario: cmd.Comentario,
			Documento: &tesis.Documento{
				Tipo:       tesis.DocDictamen,
				Firmado:    true,
				FechaFirma: &firma,
				StorageRef: cmd.ArchivoRef,
				SubidoPor:  cmd.ActorID,
			},
			RondaCompleta:  progreso.Completa,
			ResultadoRonda: progreso.Mayoria,
		}
		if cmd.Sustentacion != nil {
			p.Sustentacion = &tesis.Sustentacion{
				Fecha:     cmd.Sustentacion.Fecha,
				Hora:      cmd.Sustentacion.Hora,
				Lugar:     cmd.Sustentacion.Lugar,
				Modalidad: cmd.Sustentacion.Modalidad,
			}
		}

		reg, err := h.maquina.Ejecutar(t, actor, p)
		if err != nil {
			return err
		}
		if err := s.Guardar(ctx); err != nil {
			return err
		}
		if err := s.AgregarHistorial(ctx, reg); err != nil {
			return err
		}

		res = &SubirDictamenResult{
			ResultadoTransicion: ResultadoTransicion{
				TesisID:        t.ID,
				EstadoAnterior: reg.EstadoAnterior,
				EstadoNuevo:    reg.EstadoNuevo,
				Ronda:          t.RondaActual,
				Registro:       *reg,
			},
			RondaResuelta: ronda,
			Mayoria:       *progreso.Mayoria,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.despuesDeCommit(ctx, &res.ResultadoTransicion, cmd.ActorID.String())
	if h.events != nil {
		_ = h.events.Publish(shared.NewGenericEvent(shared.EventDictamenEmitido,
			cmd.TesisID.String(), map[string]interface{}{
				"ronda":     res.RondaResuelta,
				"resultado": string(res.Mayoria),
			}))
	}
	return res, nil
}
