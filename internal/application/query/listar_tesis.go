package query

import (
	"context"
	"time"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// ══════════════════════════════════════════════════════════════════════════════
// LISTAR TESIS
// Paginated listing for dashboards. Soft-deleted records stay out unless the
// caller is an administrator asking for them.
// ══════════════════════════════════════════════════════════════════════════════

// ListarTesisQuery contains listing filters.
type ListarTesisQuery struct {
	Estado            tesis.Estado
	IncluirEliminadas bool
	Offset            int
	Limit             int
}

// Validate normalizes pagination and checks filters.
func (q *ListarTesisQuery) Validate() error {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Estado != "" && !q.Estado.IsValid() {
		return shared.NewDomainError("query", "ListarTesis", shared.ErrValidation,
			"estado de filtro desconocido")
	}
	return nil
}

// TesisResumenDTO is one row of the listing.
type TesisResumenDTO struct {
	TesisID        string    `json:"tesis_id"`
	Codigo         string    `json:"codigo"`
	Titulo         string    `json:"titulo"`
	Estado         string    `json:"estado"`
	EstadoEtiqueta string    `json:"estado_etiqueta"`
	Fase           string    `json:"fase"`
	RondaActual    int       `json:"ronda_actual"`
	Eliminada      bool      `json:"eliminada,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListarTesisResult is the paginated listing.
type ListarTesisResult struct {
	Items  []TesisResumenDTO `json:"items"`
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}

// ListarTesisHandler handles ListarTesisQuery.
type ListarTesisHandler struct {
	tesisRepo tesis.Repository
}

// NewListarTesisHandler creates the handler.
func NewListarTesisHandler(tesisRepo tesis.Repository) *ListarTesisHandler {
	return &ListarTesisHandler{tesisRepo: tesisRepo}
}

// Handle runs the listing.
func (h *ListarTesisHandler) Handle(ctx context.Context, q ListarTesisQuery) (*ListarTesisResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	opts := tesis.ListOptions{
		Offset:            q.Offset,
		Limit:             q.Limit,
		Estado:            q.Estado,
		IncluirEliminadas: q.IncluirEliminadas,
	}

	items, err := h.tesisRepo.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	total, err := h.tesisRepo.Count(ctx, opts)
	if err != nil {
		return nil, err
	}

	res := &ListarTesisResult{
		Items:  make([]TesisResumenDTO, 0, len(items)),
		Total:  total,
		Offset: q.Offset,
		Limit:  q.Limit,
	}
	for _, t := range items {
		res.Items = append(res.Items, TesisResumenDTO{
			TesisID:        t.ID.String(),
			Codigo:         t.Codigo,
			Titulo:         t.Titulo,
			Estado:         string(t.Estado),
			EstadoEtiqueta: t.Estado.Etiqueta(),
			Fase:           string(t.Fase),
			RondaActual:    t.RondaActual,
			Eliminada:      t.Eliminada,
			UpdatedAt:      t.UpdatedAt,
		})
	}
	return res, nil
}
