package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ResultadoTransicion is the common result of a workflow transition command.
type ResultadoTransicion struct {
	TesisID        uuid.UUID
	EstadoAnterior tesis.Estado
	EstadoNuevo    tesis.Estado
	Ronda          int
	Registro       tesis.RegistroHistorial
}

// transicionador bundles the dependencies every transition handler shares:
// storage, the state machine, the snapshot cache and the event bus. Handlers
// embed it rather than re-wiring the same four fields each time.
type transicionador struct {
	store   UnitOfWork
	cache   Cache
	events  shared.EventPublisher
	maquina *tesis.Maquina
	log     *logger.Logger
}

func newTransicionador(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) transicionador {
	if log == nil {
		log = logger.Default()
	}
	return transicionador{
		store:   store,
		cache:   cache,
		events:  events,
		maquina: maquina,
		log:     log,
	}
}

// ejecutar runs one state transition end to end: lock, validate, mutate,
// persist aggregate and history in one transaction. On commit it invalidates
// the expediente snapshot and publishes the estado-cambiado event; both are
// fire-and-forget.
func (tr *transicionador) ejecutar(ctx context.Context, tesisID uuid.UUID,
	actor tesis.Actor, p tesis.Peticion) (*ResultadoTransicion, error) {

	var res *ResultadoTransicion

	err := tr.store.ConTesis(ctx, tesisID, func(ctx context.Context, s Scope) error {
		t := s.Tesis()
		reg, err := tr.maquina.Ejecutar(t, actor, p)
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

	tr.despuesDeCommit(ctx, res, actor.UserID.String())
	return res, nil
}

// despuesDeCommit runs the post-commit side effects of a transition.
func (tr *transicionador) despuesDeCommit(ctx context.Context, res *ResultadoTransicion, actorID string) {
	if tr.cache != nil {
		if err := tr.cache.InvalidarExpediente(ctx, res.TesisID); err != nil {
			tr.log.Warn("no se pudo invalidar el expediente en caché",
				logger.TesisID(res.TesisID.String()), logger.Err(err))
		}
	}
	if tr.events != nil {
		event := shared.NewEstadoCambiadoEvent(
			res.TesisID.String(),
			string(res.EstadoAnterior),
			string(res.EstadoNuevo),
			string(res.Registro.Accion),
			actorID,
			res.Ronda,
		)
		if err := tr.events.Publish(event); err != nil {
			tr.log.Warn("no se pudo publicar el evento de transición",
				logger.TesisID(res.TesisID.String()), logger.Err(err))
		}
	}

	tr.log.Info("transición aplicada",
		logger.TesisID(res.TesisID.String()),
		logger.Accion(string(res.Registro.Accion)),
		logger.String("estado_anterior", string(res.EstadoAnterior)),
		logger.Estado(string(res.EstadoNuevo)),
		logger.Int("ronda", res.Ronda),
	)
}
