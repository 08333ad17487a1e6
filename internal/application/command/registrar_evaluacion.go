package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRAR EVALUACION
// One juror records a verdict for the open round. The verdict never moves the
// estado by itself; the presidente closes the round via SUBIR_DICTAMEN once
// every voting juror has evaluated.
// ══════════════════════════════════════════════════════════════════════════════

// RegistrarEvaluacionCommand records a juror's verdict.
type RegistrarEvaluacionCommand struct {
	TesisID       uuid.UUID
	JuradoUserID  uuid.UUID
	Resultado     tesis.Resultado
	Observaciones string
	ArchivoRef    string
}

// Validate checks the command.
func (c RegistrarEvaluacionCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.JuradoUserID == uuid.Nil {
		return shared.NewDomainError("command", "RegistrarEvaluacion", shared.ErrValidation,
			"tesis_id y jurado_user_id son obligatorios")
	}
	if !c.Resultado.IsValid() {
		return shared.NewDomainError("command", "RegistrarEvaluacion", shared.ErrValidation,
			"el resultado debe ser APROBADO u OBSERVADO")
	}
	return nil
}

// RegistrarEvaluacionResult reports the round progress after the verdict.
type RegistrarEvaluacionResult struct {
	EvaluacionID uuid.UUID
	Ronda        int
	Progreso     jurado.Progreso
}

// RegistrarEvaluacionHandler handles RegistrarEvaluacionCommand.
type RegistrarEvaluacionHandler struct {
	store  UnitOfWork
	cache  Cache
	events shared.EventPublisher
	log    *logger.Logger
}

// NewRegistrarEvaluacionHandler creates the handler.
func NewRegistrarEvaluacionHandler(store UnitOfWork, cache Cache,
	events shared.EventPublisher, log *logger.Logger) *RegistrarEvaluacionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RegistrarEvaluacionHandler{store: store, cache: cache, events: events, log: log}
}

// Handle records the verdict and reports round completeness. The duplicate
// check runs in memory against the locked round records and again as a
// database constraint.
func (h *RegistrarEvaluacionHandler) Handle(ctx context.Context, cmd RegistrarEvaluacionCommand) (*RegistrarEvaluacionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var res *RegistrarEvaluacionResult

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		t := s.Tesis()
		if !t.Estado.EnEvaluacion() {
			return shared.NewDomainError("command", "RegistrarEvaluacion",
				shared.ErrInvalidTransition,
				"la tesis no tiene una ronda de evaluación abierta")
		}

		existentes, err := s.EvaluacionesDeRonda(ctx, t.RondaActual)
		if err != nil {
			return err
		}

		e, err := jurado.RegistrarEvaluacion(t, existentes, jurado.NewEvaluacionParams{
			TesisID:       t.ID,
			JuradoUserID:  cmd.JuradoUserID,
			Ronda:         t.RondaActual,
			Fase:          t.Fase,
			Resultado:     cmd.Resultado,
			Observaciones: cmd.Observaciones,
			ArchivoRef:    cmd.ArchivoRef,
		})
		if err != nil {
			return err
		}
		if err := s.AgregarEvaluacion(ctx, e); err != nil {
			return err
		}

		progreso := jurado.ComputarProgreso(t, append(existentes, *e), t.RondaActual)
		res = &RegistrarEvaluacionResult{
			EvaluacionID: e.ID,
			Ronda:        e.Ronda,
			Progreso:     progreso,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.InvalidarExpediente(ctx, cmd.TesisID)
	}
	if h.events != nil {
		_ = h.events.Publish(shared.NewEvaluacionRegistradaEvent(
			cmd.TesisID.String(), cmd.JuradoUserID.String(),
			res.Ronda, string(cmd.Resultado), res.Progreso.Completa))
		if res.Progreso.Completa {
			_ = h.events.Publish(shared.NewGenericEvent(shared.EventRondaCompleta,
				cmd.TesisID.String(), map[string]interface{}{
					"ronda":   res.Ronda,
					"mayoria": string(*res.Progreso.Mayoria),
				}))
		}
	}

	h.log.Info("evaluación registrada",
		logger.TesisID(cmd.TesisID.String()),
		logger.Int("ronda", res.Ronda),
		logger.String("resultado", string(cmd.Resultado)),
		logger.Bool("ronda_completa", res.Progreso.Completa),
	)
	return res, nil
}
