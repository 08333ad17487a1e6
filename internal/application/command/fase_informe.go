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
// SUBIR RESOLUCION
// Mesa de partes records the formal approval resolution after the project
// phase resolves. This flips the fase to INFORME_FINAL exactly once.
// ══════════════════════════════════════════════════════════════════════════════

// SubirResolucionCommand attaches the approval resolution.
type SubirResolucionCommand struct {
	TesisID    uuid.UUID
	ActorID    uuid.UUID
	Rol        tesis.Rol
	ArchivoRef string
	Comentario string
}

// Validate checks the command.
func (c SubirResolucionCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "SubirResolucion", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	if strings.TrimSpace(c.ArchivoRef) == "" {
		return shared.NewDomainError("command", "SubirResolucion", shared.ErrValidation,
			"debe adjuntar la resolución de aprobación")
	}
	return nil
}

// SubirResolucionHandler handles SubirResolucionCommand.
type SubirResolucionHandler struct {
	transicionador
}

// NewSubirResolucionHandler creates the handler.
func NewSubirResolucionHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *SubirResolucionHandler {
	return &SubirResolucionHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle records the resolution and opens the final-report stage.
func (h *SubirResolucionHandler) Handle(ctx context.Context, cmd SubirResolucionCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{
			Accion:     tesis.AccionSubirResolucion,
			Comentario: cmd.Comentario,
			Documento: &tesis.Documento{
				Tipo:       tesis.DocResolucionAprobacion,
				StorageRef: cmd.ArchivoRef,
				SubidoPor:  cmd.ActorID,
			},
		})
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTAR INFORME
// The author submits the final report. The project-phase panel evaluates it
// in a fresh round.
// ══════════════════════════════════════════════════════════════════════════════

// PresentarInformeCommand submits the final report.
type PresentarInformeCommand struct {
	TesisID    uuid.UUID
	ActorID    uuid.UUID
	ArchivoRef string
	Comentario string
}

// Validate checks the command.
func (c PresentarInformeCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "PresentarInforme", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	if strings.TrimSpace(c.ArchivoRef) == "" {
		return shared.NewDomainError("command", "PresentarInforme", shared.ErrValidation,
			"debe adjuntar el informe final")
	}
	return nil
}

// PresentarInformeHandler handles PresentarInformeCommand.
type PresentarInformeHandler struct {
	transicionador
}

// NewPresentarInformeHandler creates the handler.
func NewPresentarInformeHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *PresentarInformeHandler {
	return &PresentarInformeHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle opens the final-report evaluation round.
func (h *PresentarInformeHandler) Handle(ctx context.Context, cmd PresentarInformeCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: tesis.RolEstudiante},
		tesis.Peticion{
			Accion:     tesis.AccionPresentarInforme,
			Comentario: cmd.Comentario,
			Documento: &tesis.Documento{
				Tipo:       tesis.DocInformeFinal,
				StorageRef: cmd.ArchivoRef,
				SubidoPor:  cmd.ActorID,
			},
		})
}
