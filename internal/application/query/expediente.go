// Package query contains read operations (CQRS - Queries). Reads never touch
// the state machine; anything time-dependent (an expired deadline) is derived
// at read time instead of being written back.
package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/logger"
	"github.com/tesis-hub/tesis-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET EXPEDIENTE
// The full dossier view: aggregate, participants, documents, history, round
// progress and derived deadline flags. This is the hot read of the system,
// backed by a snapshot cache.
// ══════════════════════════════════════════════════════════════════════════════

// ExpedienteCache reads and writes dossier snapshots. A miss returns
// (nil, nil).
type ExpedienteCache interface {
	GetExpediente(ctx context.Context, tesisID uuid.UUID) (*ExpedienteDTO, error)
	SetExpediente(ctx context.Context, dto *ExpedienteDTO) error
}

// GetExpedienteQuery asks for one dossier by ID or código.
type GetExpedienteQuery struct {
	TesisID uuid.UUID
	Codigo  string

	// IncluirEliminadas lets administrators inspect soft-deleted records.
	IncluirEliminadas bool
}

// Validate checks the query.
func (q GetExpedienteQuery) Validate() error {
	if q.TesisID == uuid.Nil && q.Codigo == "" {
		return shared.NewDomainError("query", "GetExpediente", shared.ErrValidation,
			"debe indicar tesis_id o código")
	}
	return nil
}

// ParticipanteDTO is one participant in the dossier view.
type ParticipanteDTO struct {
	UserID     string `json:"user_id"`
	Nombre     string `json:"nombre"`
	Tipo       string `json:"tipo"`
	Invitacion string `json:"invitacion,omitempty"`
}

// DocumentoDTO is one document in the dossier view.
type DocumentoDTO struct {
	ID         string     `json:"id"`
	Tipo       string     `json:"tipo"`
	Version    int        `json:"version"`
	Ronda      int        `json:"ronda"`
	Firmado    bool       `json:"firmado"`
	FechaFirma *time.Time `json:"fecha_firma,omitempty"`
	StorageRef string     `json:"storage_ref"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HistorialDTO is one transition record in the timeline.
type HistorialDTO struct {
	EstadoAnterior string    `json:"estado_anterior"`
	EstadoNuevo    string    `json:"estado_nuevo"`
	Accion         string    `json:"accion"`
	Comentario     string    `json:"comentario,omitempty"`
	ActorID        string    `json:"actor_id"`
	ActorRol       string    `json:"actor_rol"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProgresoDTO is the open round's progress.
type ProgresoDTO struct {
	Ronda      int    `json:"ronda"`
	Evaluadas  int    `json:"evaluadas"`
	Requeridas int    `json:"requeridas"`
	Completa   bool   `json:"completa"`
	Mayoria    string `json:"mayoria,omitempty"`
}

// SustentacionDTO is the defense scheduling view.
type SustentacionDTO struct {
	Fecha     time.Time `json:"fecha"`
	Hora      string    `json:"hora"`
	Lugar     string    `json:"lugar"`
	Modalidad string    `json:"modalidad"`
}

// ExpedienteDTO is the complete dossier view.
type ExpedienteDTO struct {
	TesisID            string   `json:"tesis_id"`
	Codigo             string   `json:"codigo"`
	Titulo             string   `json:"titulo"`
	Resumen            string   `json:"resumen,omitempty"`
	PalabrasClave      []string `json:"palabras_clave,omitempty"`
	LineaInvestigacion string   `json:"linea_investigacion,omitempty"`

	Estado         string `json:"estado"`
	EstadoEtiqueta string `json:"estado_etiqueta"`
	Fase           string `json:"fase"`
	RondaActual    int    `json:"ronda_actual"`
	Editable       bool   `json:"editable"`
	Eliminada      bool   `json:"eliminada"`

	// Deadlines plus their read-time expiry flags. An expired deadline never
	// mutates the estado by itself; it surfaces here and blocks the related
	// action when attempted.
	FechaLimiteEvaluacion *time.Time `json:"fecha_limite_evaluacion,omitempty"`
	EvaluacionVencida     bool       `json:"evaluacion_vencida,omitempty"`
	FechaLimiteCorreccion *time.Time `json:"fecha_limite_correccion,omitempty"`
	CorreccionVencida     bool       `json:"correccion_vencida,omitempty"`

	// DocumentosFaltantes lists what still blocks ENVIAR_REVISION, empty once
	// the dossier is complete.
	DocumentosFaltantes []string `json:"documentos_faltantes,omitempty"`

	VoucherFisicoEntregado bool `json:"voucher_fisico_entregado"`

	Participantes []ParticipanteDTO `json:"participantes"`
	Documentos    []DocumentoDTO    `json:"documentos"`
	Historial     []HistorialDTO    `json:"historial"`
	Progreso      *ProgresoDTO      `json:"progreso,omitempty"`
	Sustentacion  *SustentacionDTO  `json:"sustentacion,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GetExpedienteHandler handles GetExpedienteQuery.
type GetExpedienteHandler struct {
	tesisRepo     tesis.Repository
	historialRepo tesis.HistorialRepository
	juradoRepo    jurado.Repository
	cache         ExpedienteCache
	reloj         func() time.Time
	log           *logger.Logger
}

// NewGetExpedienteHandler creates the handler. cache may be nil.
func NewGetExpedienteHandler(
	tesisRepo tesis.Repository,
	historialRepo tesis.HistorialRepository,
	juradoRepo jurado.Repository,
	cache ExpedienteCache,
	log *logger.Logger,
) *GetExpedienteHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetExpedienteHandler{
		tesisRepo:     tesisRepo,
		historialRepo: historialRepo,
		juradoRepo:    juradoRepo,
		cache:         cache,
		reloj:         timeutil.Now,
		log:           log,
	}
}

// ConReloj pins the clock, used by tests for the derived expiry flags.
func (h *GetExpedienteHandler) ConReloj(reloj func() time.Time) *GetExpedienteHandler {
	h.reloj = reloj
	return h
}

// Handle builds the dossier view, cache-first when queried by ID.
func (h *GetExpedienteHandler) Handle(ctx context.Context, q GetExpedienteQuery) (*ExpedienteDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil && q.TesisID != uuid.Nil {
		if dto, err := h.cache.GetExpediente(ctx, q.TesisID); err == nil && dto != nil {
			if !dto.Eliminada || q.IncluirEliminadas {
				h.refrescarDerivados(dto)
				return dto, nil
			}
		}
	}

	var t *tesis.Tesis
	var err error
	if q.TesisID != uuid.Nil {
		t, err = h.tesisRepo.GetByID(ctx, q.TesisID)
	} else {
		t, err = h.tesisRepo.GetByCodigo(ctx, q.Codigo)
	}
	if err != nil {
		return nil, err
	}
	if t.Eliminada && !q.IncluirEliminadas {
		return nil, tesis.ErrTesisNotFound
	}

	historial, err := h.historialRepo.ListByTesis(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	var progreso *ProgresoDTO
	if t.Estado.EnEvaluacion() {
		evaluaciones, err := h.juradoRepo.ListByRonda(ctx, t.ID, t.RondaActual)
		if err != nil {
			return nil, err
		}
		p := jurado.ComputarProgreso(t, evaluaciones, t.RondaActual)
		progreso = &ProgresoDTO{
			Ronda:      t.RondaActual,
			Evaluadas:  p.Evaluadas,
			Requeridas: p.Requeridas,
			Completa:   p.Completa,
		}
		if p.Mayoria != nil {
			progreso.Mayoria = string(*p.Mayoria)
		}
	}

	dto := h.construirDTO(t, historial, progreso)

	if h.cache != nil {
		if err := h.cache.SetExpediente(ctx, dto); err != nil {
			h.log.Warn("no se pudo guardar el expediente en caché",
				logger.TesisID(t.ID.String()), logger.Err(err))
		}
	}
	return dto, nil
}

func (h *GetExpedienteHandler) construirDTO(t *tesis.Tesis,
	historial []tesis.RegistroHistorial, progreso *ProgresoDTO) *ExpedienteDTO {

	dto := &ExpedienteDTO{
		TesisID:                t.ID.String(),
		Codigo:                 t.Codigo,
		Titulo:                 t.Titulo,
		Resumen:                t.Resumen,
		PalabrasClave:          t.PalabrasClave,
		LineaInvestigacion:     t.LineaInvestigacion,
		Estado:                 string(t.Estado),
		EstadoEtiqueta:         t.Estado.Etiqueta(),
		Fase:                   string(t.Fase),
		RondaActual:            t.RondaActual,
		Editable:               t.Estado.EsEditable(),
		Eliminada:              t.Eliminada,
		FechaLimiteEvaluacion:  t.FechaLimiteEvaluacion,
		FechaLimiteCorreccion:  t.FechaLimiteCorreccion,
		VoucherFisicoEntregado: t.VoucherFisicoEntregado,
		Progreso:               progreso,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
		GeneratedAt:            h.reloj().UTC(),
	}

	if t.Estado == tesis.EstadoBorrador || t.Estado == tesis.EstadoObservada {
		for _, f := range tesis.DossierCompleto(t).Faltantes {
			dto.DocumentosFaltantes = append(dto.DocumentosFaltantes, f.Descripcion)
		}
	}

	for _, p := range t.Participantes {
		if !p.Activo {
			continue
		}
		dto.Participantes = append(dto.Participantes, ParticipanteDTO{
			UserID:     p.UserID.String(),
			Nombre:     p.Nombre,
			Tipo:       string(p.Tipo),
			Invitacion: string(p.Invitacion),
		})
	}

	for _, d := range t.Documentos {
		dto.Documentos = append(dto.Documentos, DocumentoDTO{
			ID:         d.ID.String(),
			Tipo:       string(d.Tipo),
			Version:    d.Version,
			Ronda:      d.Ronda,
			Firmado:    d.Firmado,
			FechaFirma: d.FechaFirma,
			StorageRef: d.StorageRef,
			CreatedAt:  d.CreatedAt,
		})
	}

	for _, r := range historial {
		dto.Historial = append(dto.Historial, HistorialDTO{
			EstadoAnterior: string(r.EstadoAnterior),
			EstadoNuevo:    string(r.EstadoNuevo),
			Accion:         string(r.Accion),
			Comentario:     r.Comentario,
			ActorID:        r.ActorID.String(),
			ActorRol:       string(r.ActorRol),
			CreatedAt:      r.CreatedAt,
		})
	}

	if t.Sustentacion != nil {
		dto.Sustentacion = &SustentacionDTO{
			Fecha:     t.Sustentacion.Fecha,
			Hora:      t.Sustentacion.Hora,
			Lugar:     t.Sustentacion.Lugar,
			Modalidad: t.Sustentacion.Modalidad,
		}
	}

	h.refrescarDerivados(dto)
	return dto
}

// refrescarDerivados recomputes the time-dependent flags against the current
// clock. Cached snapshots go through this too, so a snapshot written before a
// deadline passed still reads as expired after it.
func (h *GetExpedienteHandler) refrescarDerivados(dto *ExpedienteDTO) {
	now := h.reloj()
	dto.EvaluacionVencida = dto.FechaLimiteEvaluacion != nil &&
		timeutil.Vencido(*dto.FechaLimiteEvaluacion, now)
	dto.CorreccionVencida = dto.FechaLimiteCorreccion != nil &&
		timeutil.Vencido(*dto.FechaLimiteCorreccion, now)
}
