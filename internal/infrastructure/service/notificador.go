// Package service contains outbound collaborators of the workflow:
// notification delivery and document storage.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// Mensajero delivers a rendered notification to one recipient. Implementations
// may send email, push or institutional inbox messages.
type Mensajero interface {
	Enviar(ctx context.Context, destinatario uuid.UUID, asunto, cuerpo string) error
}

// MensajeroLog is the default delivery channel: it only logs. Used in
// development and as a safe fallback when no real channel is configured.
type MensajeroLog struct {
	log *logger.Logger
}

// NewMensajeroLog creates the logging channel.
func NewMensajeroLog(log *logger.Logger) *MensajeroLog {
	if log == nil {
		log = logger.Default()
	}
	return &MensajeroLog{log: log}
}

// Enviar logs the message instead of delivering it.
func (m *MensajeroLog) Enviar(_ context.Context, destinatario uuid.UUID, asunto, _ string) error {
	m.log.Info("notificación (canal de log)",
		logger.String("destinatario", destinatario.String()),
		logger.String("asunto", asunto))
	return nil
}

// Suscriptor registers event handlers on a bus.
type Suscriptor interface {
	Subscribe(eventType shared.EventType, handler shared.EventHandler) error
}

// Notificador listens to committed workflow events and notifies the thesis
// participants affected by each one. Delivery failures are logged and
// reported as notificacion.fallida; they never propagate.
type Notificador struct {
	tesisRepo tesis.Repository
	mensajero Mensajero
	events    shared.EventPublisher
	log       *logger.Logger
}

// NewNotificador creates the notifier.
func NewNotificador(tesisRepo tesis.Repository, mensajero Mensajero,
	events shared.EventPublisher, log *logger.Logger) *Notificador {
	if log == nil {
		log = logger.Default()
	}
	if mensajero == nil {
		mensajero = NewMensajeroLog(log)
	}
	return &Notificador{
		tesisRepo: tesisRepo,
		mensajero: mensajero,
		events:    events,
		log:       log,
	}
}

// Registrar subscribes the notifier to every event type it reacts to.
func (n *Notificador) Registrar(bus Suscriptor) error {
	tipos := []shared.EventType{
		shared.EventEstadoCambiado,
		shared.EventInvitacionRespondida,
		shared.EventJuradoAsignado,
		shared.EventAccesitarioPromovido,
		shared.EventEvaluacionRegistrada,
		shared.EventRondaCompleta,
		shared.EventDictamenEmitido,
		shared.EventVoucherConfirmado,
	}
	for _, tipo := range tipos {
		if err := bus.Subscribe(tipo, n.manejar); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notificador) manejar(ctx context.Context, event shared.Event) error {
	tesisID, err := uuid.Parse(event.AggregateID())
	if err != nil {
		return fmt.Errorf("notificador: aggregate id inválido: %w", err)
	}

	t, err := n.tesisRepo.GetByID(ctx, tesisID)
	if err != nil {
		n.log.Warn("notificador: no se pudo cargar la tesis",
			logger.TesisID(event.AggregateID()), logger.Err(err))
		return err
	}

	asunto, cuerpo := n.redactar(t, event)
	destinatarios := n.destinatarios(t, event)

	for _, userID := range destinatarios {
		if err := n.mensajero.Enviar(ctx, userID, asunto, cuerpo); err != nil {
			n.log.Error("notificador: entrega fallida",
				logger.TesisID(t.ID.String()),
				logger.String("destinatario", userID.String()),
				logger.Err(err))
			n.reportar(shared.EventNotificacionFallida, t.ID, userID, event)
			continue
		}
		n.reportar(shared.EventNotificacionEnviada, t.ID, userID, event)
	}
	return nil
}

// destinatarios resolves who should hear about an event. Authors and advisors
// follow the whole lifecycle; jurors are only notified while a round is open
// or being scheduled.
func (n *Notificador) destinatarios(t *tesis.Tesis, event shared.Event) []uuid.UUID {
	participantes := t.ParticipantesActivos(
		tesis.ParticipanteAutorPrincipal, tesis.ParticipanteAutor,
		tesis.ParticipanteAsesor, tesis.ParticipanteCoasesor)

	switch event.EventType() {
	case shared.EventJuradoAsignado, shared.EventRondaCompleta, shared.EventDictamenEmitido:
		participantes = append(participantes, t.Jurados()...)
	case shared.EventEvaluacionRegistrada:
		// Juror verdicts stay confidential until the round resolves.
		participantes = t.ParticipantesActivos(tesis.ParticipanteAsesor)
	}

	vistos := make(map[uuid.UUID]bool, len(participantes))
	out := make([]uuid.UUID, 0, len(participantes))
	for _, p := range participantes {
		if !vistos[p.UserID] {
			vistos[p.UserID] = true
			out = append(out, p.UserID)
		}
	}
	return out
}

func (n *Notificador) redactar(t *tesis.Tesis, event shared.Event) (asunto, cuerpo string) {
	switch event.EventType() {
	case shared.EventEstadoCambiado:
		p := event.Payload()
		asunto = fmt.Sprintf("Tesis %s: %v", t.Codigo, p["estado_nuevo"])
		cuerpo = fmt.Sprintf("La tesis %q pasó de %v a %v.", t.Titulo, p["estado_anterior"], p["estado_nuevo"])
	case shared.EventJuradoAsignado:
		asunto = fmt.Sprintf("Tesis %s: jurado asignado", t.Codigo)
		cuerpo = fmt.Sprintf("Se asignó un miembro del jurado a la tesis %q.", t.Titulo)
	case shared.EventRondaCompleta:
		asunto = fmt.Sprintf("Tesis %s: ronda %d completa", t.Codigo, t.RondaActual)
		cuerpo = fmt.Sprintf("Todos los jurados registraron su evaluación de la tesis %q.", t.Titulo)
	case shared.EventDictamenEmitido:
		asunto = fmt.Sprintf("Tesis %s: dictamen emitido", t.Codigo)
		cuerpo = fmt.Sprintf("El presidente del jurado emitió el dictamen de la tesis %q.", t.Titulo)
	case shared.EventVoucherConfirmado:
		asunto = fmt.Sprintf("Tesis %s: voucher confirmado", t.Codigo)
		cuerpo = "Mesa de partes confirmó la entrega del voucher físico."
	case shared.EventInvitacionRespondida:
		asunto = fmt.Sprintf("Tesis %s: invitación respondida", t.Codigo)
		cuerpo = fmt.Sprintf("Un participante respondió su invitación en la tesis %q.", t.Titulo)
	case shared.EventAccesitarioPromovido:
		asunto = fmt.Sprintf("Tesis %s: accesitario promovido", t.Codigo)
		cuerpo = fmt.Sprintf("El accesitario asumió un puesto votante en la tesis %q.", t.Titulo)
	default:
		asunto = fmt.Sprintf("Tesis %s: novedad", t.Codigo)
		cuerpo = fmt.Sprintf("Hay una novedad en la tesis %q.", t.Titulo)
	}
	return asunto, cuerpo
}

func (n *Notificador) reportar(tipo shared.EventType, tesisID, destinatario uuid.UUID, origen shared.Event) {
	if n.events == nil {
		return
	}
	_ = n.events.Publish(shared.NewGenericEvent(tipo, tesisID.String(), map[string]interface{}{
		"destinatario": destinatario.String(),
		"origen":       string(origen.EventType()),
	}))
}
