package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesis-hub/tesis-tracker/internal/application/command"
	"github.com/tesis-hub/tesis-tracker/internal/application/query"
	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory backend: one store serves the unit of work and the read side.
// ─────────────────────────────────────────────────────────────────────────────

type memStore struct {
	tesis        map[uuid.UUID]*tesis.Tesis
	historial    []tesis.RegistroHistorial
	evaluaciones []jurado.Evaluacion
}

func newMemStore() *memStore {
	return &memStore{tesis: make(map[uuid.UUID]*tesis.Tesis)}
}

func (m *memStore) CrearTesis(_ context.Context, t *tesis.Tesis, reg *tesis.RegistroHistorial) error {
	for _, existing := range m.tesis {
		if existing.Codigo == t.Codigo {
			return tesis.ErrCodigoDuplicado
		}
	}
	m.tesis[t.ID] = t.Clone()
	if reg != nil {
		m.historial = append(m.historial, *reg)
	}
	return nil
}

func (m *memStore) ConTesis(ctx context.Context, tesisID uuid.UUID,
	fn func(ctx context.Context, s command.Scope) error) error {

	stored, ok := m.tesis[tesisID]
	if !ok {
		return tesis.ErrTesisNotFound
	}
	scope := &memScope{store: m, trabajo: stored.Clone()}
	if err := fn(ctx, scope); err != nil {
		return err
	}
	if scope.guardado {
		m.tesis[tesisID] = scope.trabajo
	}
	m.historial = append(m.historial, scope.nuevoHistorial...)
	m.evaluaciones = append(m.evaluaciones, scope.nuevasEvaluaciones...)
	return nil
}

func (m *memStore) Create(_ context.Context, t *tesis.Tesis) error {
	m.tesis[t.ID] = t.Clone()
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*tesis.Tesis, error) {
	t, ok := m.tesis[id]
	if !ok {
		return nil, tesis.ErrTesisNotFound
	}
	return t.Clone(), nil
}

func (m *memStore) GetByCodigo(_ context.Context, codigo string) (*tesis.Tesis, error) {
	for _, t := range m.tesis {
		if t.Codigo == codigo {
			return t.Clone(), nil
		}
	}
	return nil, tesis.ErrTesisNotFound
}

func (m *memStore) List(_ context.Context, opts tesis.ListOptions) ([]*tesis.Tesis, error) {
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

func (m *memStore) Count(ctx context.Context, opts tesis.ListOptions) (int, error) {
	items, err := m.List(ctx, opts)
	return len(items), err
}

type memScope struct {
	store              *memStore
	trabajo            *tesis.Tesis
	guardado           bool
	nuevoHistorial     []tesis.RegistroHistorial
	nuevasEvaluaciones []jurado.Evaluacion
}

func (s *memScope) Tesis() *tesis.Tesis { return s.trabajo }

func (s *memScope) Guardar(context.Context) error {
	s.guardado = true
	return nil
}

func (s *memScope) AgregarHistorial(_ context.Context, reg *tesis.RegistroHistorial) error {
	s.nuevoHistorial = append(s.nuevoHistorial, *reg)
	return nil
}

func (s *memScope) AgregarEvaluacion(_ context.Context, e *jurado.Evaluacion) error {
	s.nuevasEvaluaciones = append(s.nuevasEvaluaciones, *e)
	return nil
}

func (s *memScope) EvaluacionesDeRonda(_ context.Context, ronda int) ([]jurado.Evaluacion, error) {
	var out []jurado.Evaluacion
	for _, e := range s.store.evaluaciones {
		if e.TesisID == s.trabajo.ID && e.Ronda == ronda {
			out = append(out, e)
		}
	}
	return out, nil
}

// historialVista and evaluacionVista expose the store under the read-side
// interfaces whose method names collide with the aggregate repository.

type historialVista struct{ m *memStore }

func (v historialVista) Append(_ context.Context, r *tesis.RegistroHistorial) error {
	v.m.historial = append(v.m.historial, *r)
	return nil
}

func (v historialVista) ListByTesis(_ context.Context, tesisID uuid.UUID) ([]tesis.RegistroHistorial, error) {
	var out []tesis.RegistroHistorial
	for _, r := range v.m.historial {
		if r.TesisID == tesisID {
			out = append(out, r)
		}
	}
	return out, nil
}

type evaluacionVista struct{ m *memStore }

func (v evaluacionVista) Create(_ context.Context, e *jurado.Evaluacion) error {
	v.m.evaluaciones = append(v.m.evaluaciones, *e)
	return nil
}

func (v evaluacionVista) ListByTesis(_ context.Context, tesisID uuid.UUID) ([]jurado.Evaluacion, error) {
	var out []jurado.Evaluacion
	for _, e := range v.m.evaluaciones {
		if e.TesisID == tesisID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (v evaluacionVista) ListByRonda(ctx context.Context, tesisID uuid.UUID, ronda int) ([]jurado.Evaluacion, error) {
	todas, _ := v.ListByTesis(ctx, tesisID)
	var out []jurado.Evaluacion
	for _, e := range todas {
		if e.Ronda == ronda {
			out = append(out, e)
		}
	}
	return out, nil
}

type pingFake struct{ err error }

func (p pingFake) Ping(context.Context) error { return p.err }

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	store  *memStore
	server *Server
}

func newAPIFixture(checkers map[string]HealthChecker) *apiFixture {
	store := newMemStore()
	maquina := tesis.NewMaquina(tesis.DefaultPlazos())

	deps := Dependencies{
		CrearTesis:            command.NewCrearTesisHandler(store, nil, nil),
		ResponderInvitacion:   command.NewResponderInvitacionHandler(store, nil, nil, nil),
		EnviarRevision:        command.NewEnviarRevisionHandler(store, nil, nil, maquina, nil),
		RevisarDocumentos:     command.NewRevisarDocumentosHandler(store, nil, nil, maquina, nil),
		ConfirmarVoucher:      command.NewConfirmarVoucherHandler(store, nil, nil, maquina, nil),
		AsignarJurado:         command.NewAsignarJuradoHandler(store, nil, nil, nil),
		ConfirmarJurados:      command.NewConfirmarJuradosHandler(store, nil, nil, maquina, nil),
		RetirarJurado:         command.NewRetirarJuradoHandler(store, nil, nil),
		PromoverAccesitario:   command.NewPromoverAccesitarioHandler(store, nil, nil, nil),
		RegistrarEvaluacion:   command.NewRegistrarEvaluacionHandler(store, nil, nil, nil),
		SubirDictamen:         command.NewSubirDictamenHandler(store, nil, nil, maquina, nil),
		SubsanarObservaciones: command.NewSubsanarObservacionesHandler(store, nil, nil, maquina, nil),
		SubirResolucion:       command.NewSubirResolucionHandler(store, nil, nil, maquina, nil),
		PresentarInforme:      command.NewPresentarInformeHandler(store, nil, nil, maquina, nil),
		ProgramarSustentacion: command.NewProgramarSustentacionHandler(store, nil, nil, maquina, nil),
		CerrarSustentacion:    command.NewCerrarSustentacionHandler(store, nil, nil, maquina, nil),
		EliminarTesis:         command.NewEliminarTesisHandler(store, nil, nil, nil),
		GetExpediente:         query.NewGetExpedienteHandler(store, historialVista{store}, evaluacionVista{store}, nil, nil),
		ListarTesis:           query.NewListarTesisHandler(store),
		HealthCheckers:        checkers,
	}

	cfg := DefaultConfig()
	cfg.EnableCORS = false
	return &apiFixture{store: store, server: NewServer(cfg, deps)}
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *APIError              `json:"error,omitempty"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func cuerpoCrear(codigo string, autor, asesor uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"codigo": codigo,
		"titulo": "Predicción de demanda eléctrica con series de tiempo",
		"autor_principal": map[string]string{
			"user_id": autor.String(), "nombre": "Rosa Mendoza",
		},
		"asesor": map[string]string{
			"user_id": asesor.String(), "nombre": "Dr. Salas",
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestAPI_RegistroYLectura(t *testing.T) {
	f := newAPIFixture(nil)
	autor, asesor := uuid.New(), uuid.New()

	rec, env := f.do(t, http.MethodPost, "/api/v1/tesis", cuerpoCrear("TES-2025-400", autor, asesor))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)
	tesisID := env.Data["tesis_id"].(string)

	rec, env = f.do(t, http.MethodGet, "/api/v1/tesis/"+tesisID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TES-2025-400", env.Data["codigo"])
	assert.Equal(t, string(tesis.EstadoBorrador), env.Data["estado"])

	rec, env = f.do(t, http.MethodGet, "/api/v1/tesis/codigo/TES-2025-400", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tesisID, env.Data["tesis_id"])

	rec, env = f.do(t, http.MethodGet, "/api/v1/tesis?estado=BORRADOR", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), env.Data["total"])

	// Duplicate código.
	rec, env = f.do(t, http.MethodPost, "/api/v1/tesis", cuerpoCrear("TES-2025-400", autor, asesor))
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "already_exists", env.Error.Code)
}

func TestAPI_IdentificadoresInvalidos(t *testing.T) {
	f := newAPIFixture(nil)

	rec, env := f.do(t, http.MethodGet, "/api/v1/tesis/no-es-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", env.Error.Code)

	rec, env = f.do(t, http.MethodGet, "/api/v1/tesis/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestAPI_CuerpoInvalido(t *testing.T) {
	f := newAPIFixture(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tesis", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, "invalid_body", env.Error.Code)
}

func TestAPI_ErroresDelDominio(t *testing.T) {
	f := newAPIFixture(nil)
	autor, asesor := uuid.New(), uuid.New()

	_, env := f.do(t, http.MethodPost, "/api/v1/tesis", cuerpoCrear("TES-2025-401", autor, asesor))
	tesisID := env.Data["tesis_id"].(string)

	// A stranger cannot submit the dossier.
	rec, env := f.do(t, http.MethodPost, "/api/v1/tesis/"+tesisID+"/enviar-revision",
		map[string]string{"actor_id": uuid.NewString(), "rol": "ESTUDIANTE"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized_action", env.Error.Code)

	// The author can, but the dossier is incomplete.
	rec, env = f.do(t, http.MethodPost, "/api/v1/tesis/"+tesisID+"/enviar-revision",
		map[string]string{"actor_id": autor.String(), "rol": "ESTUDIANTE"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "precondition_failed", env.Error.Code)

	// Reviewing a draft is not a legal transition.
	rec, env = f.do(t, http.MethodPost, "/api/v1/tesis/"+tesisID+"/voucher",
		map[string]string{"actor_id": uuid.NewString(), "rol": "MESA_DE_PARTES"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", env.Error.Code)
}

func TestAPI_Health(t *testing.T) {
	sano := newAPIFixture(map[string]HealthChecker{"postgres": pingFake{}})
	rec, env := sano.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", env.Data["status"])

	caido := newAPIFixture(map[string]HealthChecker{
		"postgres": pingFake{},
		"redis":    pingFake{err: errors.New("connection refused")},
	})
	rec, env = caido.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", env.Data["status"])

	rec, env = caido.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", env.Data["status"])
}
