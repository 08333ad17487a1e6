package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRAMAR SUSTENTACION
// Schedules the defense for records that reached APROBADA without scheduling
// attached to the dictamen (migrated expedientes). New workflows schedule
// atomically with the approving final-report dictamen instead.
// ══════════════════════════════════════════════════════════════════════════════

// ProgramarSustentacionCommand schedules the defense.
type ProgramarSustentacionCommand struct {
	TesisID   uuid.UUID
	ActorID   uuid.UUID
	Rol       tesis.Rol
	Fecha     time.Time
	Hora      string
	Lugar     string
	Modalidad string
}

// Validate checks the command.
func (c ProgramarSustentacionCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "ProgramarSustentacion", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	return nil
}

// ProgramarSustentacionHandler handles ProgramarSustentacionCommand.
type ProgramarSustentacionHandler struct {
	transicionador
}

// NewProgramarSustentacionHandler creates the handler.
func NewProgramarSustentacionHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *ProgramarSustentacionHandler {
	return &ProgramarSustentacionHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle schedules the defense.
func (h *ProgramarSustentacionHandler) Handle(ctx context.Context, cmd ProgramarSustentacionCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{
			Accion: tesis.AccionProgramarSustentacion,
			Sustentacion: &tesis.Sustentacion{
				Fecha:     cmd.Fecha,
				Hora:      cmd.Hora,
				Lugar:     cmd.Lugar,
				Modalidad: cmd.Modalidad,
			},
		})
}

// ══════════════════════════════════════════════════════════════════════════════
// CERRAR SUSTENTACION
// Closes the lifecycle after the defense: SUSTENTADA on completion, ARCHIVADA
// when the expediente is shelved. Both estados are terminal.
// ══════════════════════════════════════════════════════════════════════════════

// CierreSustentacion is the closing outcome.
type CierreSustentacion string

const (
	CierreSustentada CierreSustentacion = "SUSTENTADA"
	CierreArchivada  CierreSustentacion = "ARCHIVADA"
)

// CerrarSustentacionCommand closes the thesis lifecycle.
type CerrarSustentacionCommand struct {
	TesisID    uuid.UUID
	ActorID    uuid.UUID
	Rol        tesis.Rol
	Cierre     CierreSustentacion
	Comentario string
}

// Validate checks the command.
func (c CerrarSustentacionCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "CerrarSustentacion", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	if c.Cierre != CierreSustentada && c.Cierre != CierreArchivada {
		return shared.NewDomainError("command", "CerrarSustentacion", shared.ErrValidation,
			"el cierre debe ser SUSTENTADA o ARCHIVADA")
	}
	return nil
}

// CerrarSustentacionHandler handles CerrarSustentacionCommand.
type CerrarSustentacionHandler struct {
	transicionador
}

// NewCerrarSustentacionHandler creates the handler.
func NewCerrarSustentacionHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *CerrarSustentacionHandler {
	return &CerrarSustentacionHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle closes the lifecycle.
func (h *CerrarSustentacionHandler) Handle(ctx context.Context, cmd CerrarSustentacionCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	accion := tesis.AccionMarcarSustentada
	if cmd.Cierre == CierreArchivada {
		accion = tesis.AccionArchivar
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{Accion: accion, Comentario: cmd.Comentario})
}
