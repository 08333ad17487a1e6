package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
	"github.com/tesis-hub/tesis-tracker/pkg/timeutil"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memTesisRepo struct {
	tesis map[uuid.UUID]*tesis.Tesis

	// lecturas counts GetByID calls, for cache-hit assertions.
	lecturas int
}

func newMemTesisRepo() *memTesisRepo {
	return &memTesisRepo{tesis: make(map[uuid.UUID]*tesis.Tesis)}
}

func (m *memTesisRepo) Create(_ context.Context, t *tesis.Tesis) error {
	m.tesis[t.ID] = t
	return nil
}

func (m *memTesisRepo) GetByID(_ context.Context, id uuid.UUID) (*tesis.Tesis, error) {
	m.lecturas++
	t, ok := m.tesis[id]
	if !ok {
		return nil, tesis.ErrTesisNotFound
	}
	return t.Clone(), nil
}

func (m *memTesisRepo) GetByCodigo(_ context.Context, codigo string) (*tesis.Tesis, error) {
	for _, t := range m.tesis {
		if t.Codigo == codigo {
			return t.Clone(), nil
		}
	}
	return nil, tesis.ErrTesisNotFound
}

func (m *memTesisRepo) List(_ context.Context, opts tesis.ListOptions) ([]*tesis.Tesis, error) {
	var out []*tesis.Tesis
	for _, t := range m.tesis {
		if opts.Estado != "" && t.Estado != opts.Estado {
			continue
		}
		if t.Eliminada && !opts.IncluirEliminadas {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *memTesisRepo) Count(ctx context.Context, opts tesis.ListOptions) (int, error) {
	items, err := m.List(ctx, opts)
	return len(items), err
}

type memHistorialRepo struct {
	registros []tesis.RegistroHistorial
}

func (m *memHistorialRepo) Append(_ context.Context, r *tesis.RegistroHistorial) error {
	m.registros = append(m.registros, *r)
	return nil
}

func (m *memHistorialRepo) ListByTesis(_ context.Context, tesisID uuid.UUID) ([]tesis.RegistroHistorial, error) {
	var out []tesis.RegistroHistorial
	for _, r := range m.registros {
		if r.TesisID == tesisID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memEvaluacionRepo struct {
	evaluaciones []jurado.Evaluacion
}

func (m *memEvaluacionRepo) Create(_ context.Context, e *jurado.Evaluacion) error {
	m.evaluaciones = append(m.evaluaciones, *e)
	return nil
}

func (m *memEvaluacionRepo) ListByTesis(_ context.Context, tesisID uuid.UUID) ([]jurado.Evaluacion, error) {
	var out []jurado.Evaluacion
	for _, e := range m.evaluaciones {
		if e.TesisID == tesisID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvaluacionRepo) ListByRonda(ctx context.Context, tesisID uuid.UUID, ronda int) ([]jurado.Evaluacion, error) {
	todas, _ := m.ListByTesis(ctx, tesisID)
	var out []jurado.Evaluacion
	for _, e := range todas {
		if e.Ronda == ronda {
			out = append(out, e)
		}
	}
	return out, nil
}

type memSnapshotCache struct {
	snapshots  map[uuid.UUID]*ExpedienteDTO
	escrituras int
}

func newMemSnapshotCache() *memSnapshotCache {
	return &memSnapshotCache{snapshots: make(map[uuid.UUID]*ExpedienteDTO)}
}

func (c *memSnapshotCache) GetExpediente(_ context.Context, tesisID uuid.UUID) (*ExpedienteDTO, error) {
	return c.snapshots[tesisID], nil
}

func (c *memSnapshotCache) SetExpediente(_ context.Context, dto *ExpedienteDTO) error {
	id, err := uuid.Parse(dto.TesisID)
	if err != nil {
		return err
	}
	copia := *dto
	c.snapshots[id] = &copia
	c.escrituras++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

func relojFijo() time.Time { return timeutil.Date(2025, 6, 10) }

// semillaEnEvaluacion seeds a thesis sitting in EN_EVALUACION_JURADO with a
// confirmed three-member panel and an evaluation deadline already in the past
// relative to relojFijo.
func semillaEnEvaluacion(t *testing.T, repo *memTesisRepo) (*tesis.Tesis, uuid.UUID) {
	t.Helper()

	autor := uuid.New()
	asesor := uuid.New()
	tes, err := tesis.NewTesis(tesis.NewTesisParams{
		Codigo: "TES-2025-300",
		Titulo: "Optimización de rutas de transporte urbano",
		Autores: []tesis.Participante{
			{UserID: autor, Nombre: "Lucía Quispe", Tipo: tesis.ParticipanteAutorPrincipal},
		},
		Asesor: tesis.Participante{UserID: asesor, Nombre: "Dr. Huamán", Tipo: tesis.ParticipanteAsesor},
	})
	require.NoError(t, err)

	tes.Estado = tesis.EstadoAsignandoJurados
	require.NoError(t, tes.AsignarJurado(uuid.New(), "Presidente", tesis.ParticipantePresidente))
	require.NoError(t, tes.AsignarJurado(uuid.New(), "Vocal", tesis.ParticipanteVocal))
	require.NoError(t, tes.AsignarJurado(uuid.New(), "Secretario", tesis.ParticipanteSecretario))

	vencida := timeutil.Date(2025, 6, 2)
	tes.Estado = tesis.EstadoEnEvaluacionJurado
	tes.RondaActual = 1
	tes.FechaLimiteEvaluacion = &vencida

	repo.tesis[tes.ID] = tes
	return tes, autor
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestGetExpediente_ConstruyeVistaCompleta(t *testing.T) {
	repo := newMemTesisRepo()
	historial := &memHistorialRepo{}
	evaluaciones := &memEvaluacionRepo{}
	tes, _ := semillaEnEvaluacion(t, repo)

	presidente := tes.JuradosVotantes()[0]
	require.NoError(t, evaluaciones.Create(context.Background(), &jurado.Evaluacion{
		ID: uuid.New(), TesisID: tes.ID, JuradoUserID: presidente.UserID,
		Ronda: 1, Resultado: tesis.ResultadoAprobado,
	}))

	h := NewGetExpedienteHandler(repo, historial, evaluaciones, nil, nil).ConReloj(relojFijo)
	dto, err := h.Handle(context.Background(), GetExpedienteQuery{TesisID: tes.ID})
	require.NoError(t, err)

	assert.Equal(t, "TES-2025-300", dto.Codigo)
	assert.Equal(t, string(tesis.EstadoEnEvaluacionJurado), dto.Estado)
	assert.Len(t, dto.Participantes, 5)

	require.NotNil(t, dto.Progreso)
	assert.Equal(t, 1, dto.Progreso.Evaluadas)
	assert.Equal(t, 3, dto.Progreso.Requeridas)
	assert.False(t, dto.Progreso.Completa)

	// The deadline passed before relojFijo: the flag is derived at read time.
	assert.True(t, dto.EvaluacionVencida)
	assert.False(t, dto.CorreccionVencida)
}

func TestGetExpediente_CacheHitRefrescaDerivados(t *testing.T) {
	repo := newMemTesisRepo()
	cache := newMemSnapshotCache()
	tes, _ := semillaEnEvaluacion(t, repo)

	h := NewGetExpedienteHandler(repo, &memHistorialRepo{}, &memEvaluacionRepo{}, cache, nil).
		ConReloj(relojFijo)

	ctx := context.Background()
	_, err := h.Handle(ctx, GetExpedienteQuery{TesisID: tes.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lecturas)
	assert.Equal(t, 1, cache.escrituras)

	// Second read is served from the snapshot; the repo is not touched again.
	dto, err := h.Handle(ctx, GetExpedienteQuery{TesisID: tes.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lecturas)
	assert.True(t, dto.EvaluacionVencida)
}

func TestGetExpediente_PorCodigo(t *testing.T) {
	repo := newMemTesisRepo()
	tes, _ := semillaEnEvaluacion(t, repo)

	h := NewGetExpedienteHandler(repo, &memHistorialRepo{}, &memEvaluacionRepo{}, nil, nil).
		ConReloj(relojFijo)

	dto, err := h.Handle(context.Background(), GetExpedienteQuery{Codigo: tes.Codigo})
	require.NoError(t, err)
	assert.Equal(t, tes.ID.String(), dto.TesisID)

	_, err = h.Handle(context.Background(), GetExpedienteQuery{Codigo: "TES-0000-000"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetExpediente_EliminadaOcultaSalvoAdmin(t *testing.T) {
	repo := newMemTesisRepo()
	tes, _ := semillaEnEvaluacion(t, repo)
	tes.Eliminada = true

	h := NewGetExpedienteHandler(repo, &memHistorialRepo{}, &memEvaluacionRepo{}, nil, nil).
		ConReloj(relojFijo)

	_, err := h.Handle(context.Background(), GetExpedienteQuery{TesisID: tes.ID})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	dto, err := h.Handle(context.Background(),
		GetExpedienteQuery{TesisID: tes.ID, IncluirEliminadas: true})
	require.NoError(t, err)
	assert.True(t, dto.Eliminada)
}

func TestGetExpediente_Validacion(t *testing.T) {
	h := NewGetExpedienteHandler(newMemTesisRepo(), &memHistorialRepo{}, &memEvaluacionRepo{}, nil, nil)
	_, err := h.Handle(context.Background(), GetExpedienteQuery{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestListarTesis(t *testing.T) {
	repo := newMemTesisRepo()
	tes, _ := semillaEnEvaluacion(t, repo)

	h := NewListarTesisHandler(repo)
	res, err := h.Handle(context.Background(), ListarTesisQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 20, res.Limit)
	assert.Equal(t, tes.Codigo, res.Items[0].Codigo)

	// Filter by a state the thesis is not in.
	res, err = h.Handle(context.Background(), ListarTesisQuery{Estado: tesis.EstadoBorrador})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	// Unknown state filter.
	_, err = h.Handle(context.Background(), ListarTesisQuery{Estado: "INEXISTENTE"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
