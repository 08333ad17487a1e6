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
// REVISAR DOCUMENTOS
// Mesa de partes resolves an intake review: approve (gated by the physical
// voucher), observe with a mandatory comentario, or reject terminally.
// ══════════════════════════════════════════════════════════════════════════════

// VeredictoRevision is the registrar's decision over a submitted dossier.
type VeredictoRevision string

const (
	VeredictoAprobar  VeredictoRevision = "APROBAR"
	VeredictoObservar VeredictoRevision = "OBSERVAR"
	VeredictoRechazar VeredictoRevision = "RECHAZAR"
)

// RevisarDocumentosCommand resolves an intake review.
type RevisarDocumentosCommand struct {
	TesisID    uuid.UUID
	ActorID    uuid.UUID
	Rol        tesis.Rol
	Veredicto  VeredictoRevision
	Comentario string
}

// Validate checks the command.
func (c RevisarDocumentosCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "RevisarDocumentos", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	switch c.Veredicto {
	case VeredictoAprobar, VeredictoObservar, VeredictoRechazar:
		return nil
	default:
		return shared.NewDomainError("command", "RevisarDocumentos", shared.ErrValidation,
			"el veredicto debe ser APROBAR, OBSERVAR o RECHAZAR")
	}
}

func (c RevisarDocumentosCommand) accion() tesis.Accion {
	switch c.Veredicto {
	case VeredictoObservar:
		return tesis.AccionObservar
	case VeredictoRechazar:
		return tesis.AccionRechazar
	default:
		return tesis.AccionAprobar
	}
}

// RevisarDocumentosHandler handles RevisarDocumentosCommand.
type RevisarDocumentosHandler struct {
	transicionador
}

// NewRevisarDocumentosHandler creates the handler.
func NewRevisarDocumentosHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *RevisarDocumentosHandler {
	return &RevisarDocumentosHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle executes the review decision.
func (h *RevisarDocumentosHandler) Handle(ctx context.Context, cmd RevisarDocumentosCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{Accion: cmd.accion(), Comentario: strings.TrimSpace(cmd.Comentario)})
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIRMAR VOUCHER
// Records that the physical payment voucher was received at the front desk.
// Self-transition: the estado stays put, but approval is gated on this fact.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmarVoucherCommand confirms physical voucher delivery.
type ConfirmarVoucherCommand struct {
	TesisID uuid.UUID
	ActorID uuid.UUID
	Rol     tesis.Rol
}

// Validate checks the command.
func (c ConfirmarVoucherCommand) Validate() error {
	if c.TesisID == uuid.Nil || c.ActorID == uuid.Nil {
		return shared.NewDomainError("command", "ConfirmarVoucher", shared.ErrValidation,
			"tesis_id y actor_id son obligatorios")
	}
	return nil
}

// ConfirmarVoucherHandler handles ConfirmarVoucherCommand.
type ConfirmarVoucherHandler struct {
	transicionador
}

// NewConfirmarVoucherHandler creates the handler.
func NewConfirmarVoucherHandler(store UnitOfWork, cache Cache, events shared.EventPublisher,
	maquina *tesis.Maquina, log *logger.Logger) *ConfirmarVoucherHandler {
	return &ConfirmarVoucherHandler{newTransicionador(store, cache, events, maquina, log)}
}

// Handle records the confirmation.
func (h *ConfirmarVoucherHandler) Handle(ctx context.Context, cmd ConfirmarVoucherCommand) (*ResultadoTransicion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	res, err := h.ejecutar(ctx, cmd.TesisID,
		tesis.Actor{UserID: cmd.ActorID, Rol: cmd.Rol},
		tesis.Peticion{Accion: tesis.AccionConfirmarVoucher})
	if err != nil {
		return nil, err
	}
	if h.events != nil {
		_ = h.events.Publish(shared.NewGenericEvent(shared.EventVoucherConfirmado,
			cmd.TesisID.String(), map[string]interface{}{
				"actor_id": cmd.ActorID.String(),
			}))
	}
	return res, nil
}
