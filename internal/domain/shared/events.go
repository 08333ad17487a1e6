// Package shared contains common domain types, errors, and events.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents a committed fact about a thesis;
// notification delivery is driven entirely by these.
const (
	// Lifecycle events
	EventTesisCreada      EventType = "tesis.creada"
	EventEstadoCambiado   EventType = "tesis.estado_cambiado"
	EventTesisEliminada   EventType = "tesis.eliminada"
	EventTesisRestaurada  EventType = "tesis.restaurada"
	EventVoucherConfirmado EventType = "tesis.voucher_confirmado"

	// Participant events
	EventInvitacionRespondida EventType = "participante.invitacion_respondida"
	EventJuradoAsignado       EventType = "participante.jurado_asignado"
	EventAccesitarioPromovido EventType = "participante.accesitario_promovido"

	// Evaluation events
	EventEvaluacionRegistrada EventType = "jurado.evaluacion_registrada"
	EventRondaCompleta        EventType = "jurado.ronda_completa"
	EventDictamenEmitido      EventType = "jurado.dictamen_emitido"

	// Notification events
	EventNotificacionEnviada EventType = "notificacion.enviada"
	EventNotificacionFallida EventType = "notificacion.fallida"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the thesis that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event. Handlers must be safe for
// concurrent use; a handler error never affects the publisher.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher publishes domain events. Publishing happens strictly after
// the transition transaction commits and is fire-and-forget from the
// orchestrator's perspective.
type EventPublisher interface {
	Publish(event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// EstadoCambiadoEvent is emitted on every successful state transition.
type EstadoCambiadoEvent struct {
	BaseEvent
	EstadoAnterior string `json:"estado_anterior"`
	EstadoNuevo    string `json:"estado_nuevo"`
	Accion         string `json:"accion"`
	ActorID        string `json:"actor_id"`
	Ronda          int    `json:"ronda"`
}

// Payload implements Event interface.
func (e EstadoCambiadoEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"estado_anterior": e.EstadoAnterior,
		"estado_nuevo":    e.EstadoNuevo,
		"accion":          e.Accion,
		"actor_id":        e.ActorID,
		"ronda":           e.Ronda,
	}
}

// NewEstadoCambiadoEvent creates a new EstadoCambiadoEvent.
func NewEstadoCambiadoEvent(tesisID, estadoAnterior, estadoNuevo, accion, actorID string, ronda int) EstadoCambiadoEvent {
	return EstadoCambiadoEvent{
		BaseEvent:      NewBaseEvent(EventEstadoCambiado, tesisID),
		EstadoAnterior: estadoAnterior,
		EstadoNuevo:    estadoNuevo,
		Accion:         accion,
		ActorID:        actorID,
		Ronda:          ronda,
	}
}

// EvaluacionRegistradaEvent is emitted when a juror records a verdict.
type EvaluacionRegistradaEvent struct {
	BaseEvent
	JuradoID  string `json:"jurado_id"`
	Ronda     int    `json:"ronda"`
	Resultado string `json:"resultado"`
	Completa  bool   `json:"ronda_completa"`
}

// Payload implements Event interface.
func (e EvaluacionRegistradaEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"jurado_id":      e.JuradoID,
		"ronda":          e.Ronda,
		"resultado":      e.Resultado,
		"ronda_completa": e.Completa,
	}
}

// NewEvaluacionRegistradaEvent creates a new EvaluacionRegistradaEvent.
func NewEvaluacionRegistradaEvent(tesisID, juradoID string, ronda int, resultado string, completa bool) EvaluacionRegistradaEvent {
	return EvaluacionRegistradaEvent{
		BaseEvent: NewBaseEvent(EventEvaluacionRegistrada, tesisID),
		JuradoID:  juradoID,
		Ronda:     ronda,
		Resultado: resultado,
		Completa:  completa,
	}
}

// GenericEvent carries an event type with an arbitrary payload. Used for
// low-volume administrative events that do not justify a dedicated type.
type GenericEvent struct {
	BaseEvent
	Data map[string]interface{} `json:"data,omitempty"`
}

// Payload implements Event interface.
func (e GenericEvent) Payload() map[string]interface{} {
	return e.Data
}

// NewGenericEvent creates a new GenericEvent.
func NewGenericEvent(eventType EventType, aggregateID string, data map[string]interface{}) GenericEvent {
	return GenericEvent{
		BaseEvent: NewBaseEvent(eventType, aggregateID),
		Data:      data,
	}
}
