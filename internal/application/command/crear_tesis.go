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
// CREAR TESIS
// Registers a new thesis draft with its authors and advisor. The dossier
// starts in BORRADOR; invited participants must accept before submission.
// ══════════════════════════════════════════════════════════════════════════════

// ParticipanteInput identifies one participant in a creation request.
type ParticipanteInput struct {
	UserID uuid.UUID
	Nombre string
}

// CrearTesisCommand contains the data to register a thesis.
type CrearTesisCommand struct {
	Codigo             string
	Titulo             string
	Resumen            string
	PalabrasClave      []string
	LineaInvestigacion string

	// AutorPrincipal registers the thesis and is auto-accepted.
	AutorPrincipal ParticipanteInput

	// Coautor is the optional second author.
	Coautor *ParticipanteInput

	Asesor   ParticipanteInput
	Coasesor *ParticipanteInput
}

// Validate checks the command before it reaches the domain.
func (c CrearTesisCommand) Validate() error {
	if strings.TrimSpace(c.Codigo) == "" {
		return shared.NewDomainError("command", "CrearTesis", shared.ErrValidation,
			"el código de la tesis es obligatorio")
	}
	if strings.TrimSpace(c.Titulo) == "" {
		return shared.NewDomainError("command", "CrearTesis", shared.ErrValidation,
			"el título es obligatorio")
	}
	if c.AutorPrincipal.UserID == uuid.Nil {
		return shared.NewDomainError("command", "CrearTesis", shared.ErrValidation,
			"el autor principal es obligatorio")
	}
	if c.Asesor.UserID == uuid.Nil {
		return shared.NewDomainError("command", "CrearTesis", shared.ErrValidation,
			"el asesor es obligatorio")
	}
	return nil
}

// CrearTesisResult contains the result of registering a thesis.
type CrearTesisResult struct {
	TesisID uuid.UUID
	Codigo  string
	Estado  tesis.Estado
}

// CrearTesisHandler handles CrearTesisCommand.
type CrearTesisHandler struct {
	store  UnitOfWork
	events shared.EventPublisher
	log    *logger.Logger
}

// NewCrearTesisHandler creates the handler.
func NewCrearTesisHandler(store UnitOfWork, events shared.EventPublisher, log *logger.Logger) *CrearTesisHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CrearTesisHandler{store: store, events: events, log: log}
}

// Handle registers the thesis and its creation history record atomically.
func (h *CrearTesisHandler) Handle(ctx context.Context, cmd CrearTesisCommand) (*CrearTesisResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	autores := []tesis.Participante{{
		UserID: cmd.AutorPrincipal.UserID,
		Nombre: cmd.AutorPrincipal.Nombre,
		Tipo:   tesis.ParticipanteAutorPrincipal,
	}}
	if cmd.Coautor != nil {
		autores = append(autores, tesis.Participante{
			UserID: cmd.Coautor.UserID,
			Nombre: cmd.Coautor.Nombre,
			Tipo:   tesis.ParticipanteAutor,
		})
	}

	params := tesis.NewTesisParams{
		Codigo:             cmd.Codigo,
		Titulo:             cmd.Titulo,
		Resumen:            cmd.Resumen,
		PalabrasClave:      cmd.PalabrasClave,
		LineaInvestigacion: cmd.LineaInvestigacion,
		Autores:            autores,
		Asesor: tesis.Participante{
			UserID: cmd.Asesor.UserID,
			Nombre: cmd.Asesor.Nombre,
			Tipo:   tesis.ParticipanteAsesor,
		},
	}
	if cmd.Coasesor != nil {
		params.Coasesor = &tesis.Participante{
			UserID: cmd.Coasesor.UserID,
			Nombre: cmd.Coasesor.Nombre,
			Tipo:   tesis.ParticipanteCoasesor,
		}
	}

	t, err := tesis.NewTesis(params)
	if err != nil {
		return nil, err
	}

	reg := &tesis.RegistroHistorial{
		ID:             uuid.New(),
		TesisID:        t.ID,
		EstadoAnterior: tesis.EstadoBorrador,
		EstadoNuevo:    tesis.EstadoBorrador,
		Accion:         "CREAR",
		ActorID:        cmd.AutorPrincipal.UserID,
		ActorRol:       tesis.RolEstudiante,
		CreatedAt:      t.CreatedAt,
	}

	if err := h.store.CrearTesis(ctx, t, reg); err != nil {
		return nil, err
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NewGenericEvent(shared.EventTesisCreada, t.ID.String(),
			map[string]interface{}{
				"codigo": t.Codigo,
				"titulo": t.Titulo,
			}))
	}

	h.log.Info("tesis registrada",
		logger.TesisID(t.ID.String()),
		logger.String("codigo", t.Codigo),
	)

	return &CrearTesisResult{TesisID: t.ID, Codigo: t.Codigo, Estado: t.Estado}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONDER INVITACION
// An invited author, advisor or co-advisor accepts or declines.
// ══════════════════════════════════════════════════════════════════════════════

// ResponderInvitacionCommand records an invitation answer.
type ResponderInvitacionCommand struct {
	TesisID uuid.UUID
	UserID  uuid.UUID
	Acepta  bool
}

// Validate checks the command.
func (c ResponderInvitacionCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.UserID == uuid.Nil {
		return shared.NewDomainError("command", "ResponderInvitacion", shared.ErrValidation,
			"tesis_id y user_id son obligatorios")
	}
	return nil
}

// ResponderInvitacionHandler handles ResponderInvitacionCommand.
type ResponderInvitacionHandler struct {
	store  UnitOfWork
	cache  Cache
	events shared.EventPublisher
	log    *logger.Logger
}

// NewResponderInvitacionHandler creates the handler.
func NewResponderInvitacionHandler(store UnitOfWork, cache Cache,
	events shared.EventPublisher, log *logger.Logger) *ResponderInvitacionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ResponderInvitacionHandler{store: store, cache: cache, events: events, log: log}
}

// Handle records the answer under the row lock.
func (h *ResponderInvitacionHandler) Handle(ctx context.Context, cmd ResponderInvitacionCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	err := h.store.ConTesis(ctx, cmd.TesisID, func(ctx context.Context, s Scope) error {
		if err := s.Tesis().ResponderInvitacion(cmd.UserID, cmd.Acepta); err != nil {
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
		_ = h.events.Publish(shared.NewGenericEvent(shared.EventInvitacionRespondida,
			cmd.TesisID.String(), map[string]interface{}{
				"user_id": cmd.UserID.String(),
				"acepta":  cmd.Acepta,
			}))
	}
	return nil
}
