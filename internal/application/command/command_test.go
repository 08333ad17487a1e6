package command

import (
	"context"
	"errors"
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
// In-memory fakes. The store mimics transactional semantics: handlers work on
// a clone and nothing reaches the maps unless fn returns nil.
// ─────────────────────────────────────────────────────────────────────────────

type memStore struct {
	tesis        map[uuid.UUID]*tesis.Tesis
	historial    []tesis.RegistroHistorial
	evaluaciones []jurado.Evaluacion

	// failGuardar forces Guardar to fail, for rollback tests.
	failGuardar bool
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
	m.historial = append(m.historial, *reg)
	return nil
}

func (m *memStore) ConTesis(ctx context.Context, tesisID uuid.UUID,
	fn func(ctx context.Context, s Scope) error) error {

	stored, ok := m.tesis[tesisID]
	if !ok {
		return tesis.ErrTesisNotFound
	}

	scope := &memScope{store: m, trabajo: stored.Clone()}
	if err := fn(ctx, scope); err != nil {
		return err
	}

	// Commit.
	if scope.guardado {
		m.tesis[tesisID] = scope.trabajo
	}
	m.historial = append(m.historial, scope.nuevoHistorial...)
	m.evaluaciones = append(m.evaluaciones, scope.nuevasEvaluaciones...)
	return nil
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
	if s.store.failGuardar {
		return errors.New("storage unavailable")
	}
	s.guardado = true
	return nil
}

func (s *memScope) AgregarHistorial(_ context.Context, reg *tesis.RegistroHistorial) error {
	s.nuevoHistorial = append(s.nuevoHistorial, *reg)
	return nil
}

func (s *memScope) AgregarEvaluacion(_ context.Context, e *jurado.Evaluacion) error {
	for _, existing := range s.store.evaluaciones {
		if existing.TesisID == e.TesisID && existing.JuradoUserID == e.JuradoUserID &&
			existing.Ronda == e.Ronda {
			return jurado.ErrEvaluacionDuplicada
		}
	}
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

type memCache struct {
	invalidaciones int
}

func (c *memCache) InvalidarExpediente(context.Context, uuid.UUID) error {
	c.invalidaciones++
	return nil
}

type memBus struct {
	eventos []shared.Event
}

func (b *memBus) Publish(e shared.Event) error {
	b.eventos = append(b.eventos, e)
	return nil
}

func (b *memBus) tipos() []shared.EventType {
	out := make([]shared.EventType, 0, len(b.eventos))
	for _, e := range b.eventos {
		out = append(out, e.EventType())
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store   *memStore
	cache   *memCache
	bus     *memBus
	maquina *tesis.Maquina

	tesisID    uuid.UUID
	autor      uuid.UUID
	asesor     uuid.UUID
	mesa       uuid.UUID
	presidente uuid.UUID
	vocal      uuid.UUID
	secretario uuid.UUID
}

func relojLunes() time.Time { return timeutil.Date(2025, 6, 2) }

// newFixture seeds a thesis in EN_REVISION with a complete dossier.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:      newMemStore(),
		cache:      &memCache{},
		bus:        &memBus{},
		maquina:    tesis.NewMaquina(tesis.DefaultPlazos()).ConReloj(relojLunes),
		autor:      uuid.New(),
		asesor:     uuid.New(),
		mesa:       uuid.New(),
		presidente: uuid.New(),
		vocal:      uuid.New(),
		secretario: uuid.New(),
	}

	tes, err := tesis.NewTesis(tesis.NewTesisParams{
		Codigo: "TES-2025-100",
		Titulo: "Clasificación de cultivos con imágenes satelitales",
		Autores: []tesis.Participante{
			{UserID: f.autor, Nombre: "María López", Tipo: tesis.ParticipanteAutorPrincipal},
		},
		Asesor: tesis.Participante{UserID: f.asesor, Nombre: "Dr. Campos", Tipo: tesis.ParticipanteAsesor},
	})
	require.NoError(t, err)
	require.NoError(t, tes.ResponderInvitacion(f.asesor, true))
	tes.AgregarDocumento(tesis.Documento{Tipo: tesis.DocProyecto, StorageRef: "s/proyecto.pdf"})
	tes.AgregarDocumento(tesis.Documento{Tipo: tesis.DocCartaAceptacionAsesor, StorageRef: "s/carta.pdf"})
	tes.AgregarDocumento(tesis.Documento{Tipo: tesis.DocVoucherPago, StorageRef: "s/voucher.pdf"})
	tes.Estado = tesis.EstadoEnRevision

	f.tesisID = tes.ID
	f.store.tesis[tes.ID] = tes
	return f
}

// avanzarAEvaluacion moves the seeded thesis into EN_EVALUACION_JURADO.
func (f *fixture) avanzarAEvaluacion(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := NewConfirmarVoucherHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, ConfirmarVoucherCommand{TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes})
	require.NoError(t, err)

	_, err = NewRevisarDocumentosHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, RevisarDocumentosCommand{
			TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes,
			Veredicto: VeredictoAprobar,
		})
	require.NoError(t, err)

	asignar := NewAsignarJuradoHandler(f.store, f.cache, f.bus, nil)
	for _, seat := range []struct {
		id    uuid.UUID
		cargo tesis.TipoParticipante
	}{
		{f.presidente, tesis.ParticipantePresidente},
		{f.vocal, tesis.ParticipanteVocal},
		{f.secretario, tesis.ParticipanteSecretario},
	} {
		require.NoError(t, asignar.Handle(ctx, AsignarJuradoCommand{
			TesisID: f.tesisID, ActorID: f.mesa,
			JuradoUserID: seat.id, Nombre: "Jurado", Cargo: seat.cargo,
		}))
	}

	_, err = NewConfirmarJuradosHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, ConfirmarJuradosCommand{TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes})
	require.NoError(t, err)
}

func (f *fixture) evaluar(t *testing.T, jurorID uuid.UUID, res tesis.Resultado, obs string) *RegistrarEvaluacionResult {
	t.Helper()
	r, err := NewRegistrarEvaluacionHandler(f.store, f.cache, f.bus, nil).
		Handle(context.Background(), RegistrarEvaluacionCommand{
			TesisID: f.tesisID, JuradoUserID: jurorID,
			Resultado: res, Observaciones: obs,
		})
	require.NoError(t, err)
	return r
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestCrearTesis(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	bus := &memBus{}
	h := NewCrearTesisHandler(store, bus, nil)

	cmd := CrearTesisCommand{
		Codigo: "TES-2025-200",
		Titulo: "Detección de fraude en pagos móviles",
		AutorPrincipal: ParticipanteInput{UserID: uuid.New(), Nombre: "Pedro Inca"},
		Asesor:         ParticipanteInput{UserID: uuid.New(), Nombre: "Dra. Ramos"},
	}
	res, err := h.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, tesis.EstadoBorrador, res.Estado)
	assert.Len(t, store.historial, 1)
	assert.Equal(t, []shared.EventType{shared.EventTesisCreada}, bus.tipos())

	// Same código again: duplicate.
	_, err = h.Handle(ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestCrearTesis_Validacion(t *testing.T) {
	h := NewCrearTesisHandler(newMemStore(), nil, nil)
	_, err := h.Handle(context.Background(), CrearTesisCommand{Titulo: "Sin código"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRevisarDocumentos_VoucherYLuegoAprobar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	revisar := NewRevisarDocumentosHandler(f.store, f.cache, f.bus, f.maquina, nil)

	_, err := revisar.Handle(ctx, RevisarDocumentosCommand{
		TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes,
		Veredicto: VeredictoAprobar,
	})
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
	// The failed attempt left nothing behind.
	assert.Empty(t, f.store.historial)
	assert.Equal(t, tesis.EstadoEnRevision, f.store.tesis[f.tesisID].Estado)

	_, err = NewConfirmarVoucherHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, ConfirmarVoucherCommand{TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes})
	require.NoError(t, err)

	res, err := revisar.Handle(ctx, RevisarDocumentosCommand{
		TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes,
		Veredicto: VeredictoAprobar,
	})
	require.NoError(t, err)
	assert.Equal(t, tesis.EstadoAsignandoJurados, res.EstadoNuevo)
	assert.Len(t, f.store.historial, 2)
	assert.Greater(t, f.cache.invalidaciones, 0)
}

func TestTransicion_RollbackSiGuardarFalla(t *testing.T) {
	f := newFixture(t)
	f.store.failGuardar = true

	_, err := NewConfirmarVoucherHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(context.Background(), ConfirmarVoucherCommand{
			TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes,
		})
	require.Error(t, err)

	// Nothing committed, nothing published.
	assert.False(t, f.store.tesis[f.tesisID].VoucherFisicoEntregado)
	assert.Empty(t, f.store.historial)
	assert.Empty(t, f.bus.eventos)
}

func TestRegistrarEvaluacion_ProgresoYDuplicado(t *testing.T) {
	f := newFixture(t)
	f.avanzarAEvaluacion(t)

	r1 := f.evaluar(t, f.presidente, tesis.ResultadoAprobado, "")
	assert.Equal(t, 1, r1.Progreso.Evaluadas)
	assert.False(t, r1.Progreso.Completa)

	_, err := NewRegistrarEvaluacionHandler(f.store, f.cache, f.bus, nil).
		Handle(context.Background(), RegistrarEvaluacionCommand{
			TesisID: f.tesisID, JuradoUserID: f.presidente,
			Resultado: tesis.ResultadoAprobado,
		})
	assert.ErrorIs(t, err, shared.ErrDuplicateEvaluation)

	f.evaluar(t, f.vocal, tesis.ResultadoAprobado, "")
	r3 := f.evaluar(t, f.secretario, tesis.ResultadoObservado, "Revisar instrumentos")
	assert.True(t, r3.Progreso.Completa)
	require.NotNil(t, r3.Progreso.Mayoria)
	assert.Equal(t, tesis.ResultadoAprobado, *r3.Progreso.Mayoria)

	// The completed round published the round-complete event.
	assert.Contains(t, f.bus.tipos(), shared.EventRondaCompleta)
}

func TestRegistrarEvaluacion_SinRondaAbierta(t *testing.T) {
	f := newFixture(t)

	_, err := NewRegistrarEvaluacionHandler(f.store, f.cache, f.bus, nil).
		Handle(context.Background(), RegistrarEvaluacionCommand{
			TesisID: f.tesisID, JuradoUserID: f.presidente,
			Resultado: tesis.ResultadoAprobado,
		})
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestSubirDictamen_UsaMayoriaAlmacenada(t *testing.T) {
	f := newFixture(t)
	f.avanzarAEvaluacion(t)
	ctx := context.Background()
	dictamen := NewSubirDictamenHandler(f.store, f.cache, f.bus, f.maquina, nil)

	// Round not complete yet: the dictamen is refused regardless of what the
	// client claims.
	_, err := dictamen.Handle(ctx, SubirDictamenCommand{
		TesisID: f.tesisID, ActorID: f.presidente,
		ArchivoRef: "s/dictamen.pdf", FechaFirma: relojLunes(),
	})
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	f.evaluar(t, f.presidente, tesis.ResultadoAprobado, "")
	f.evaluar(t, f.vocal, tesis.ResultadoAprobado, "")
	f.evaluar(t, f.secretario, tesis.ResultadoObservado, "Faltan anexos")

	res, err := dictamen.Handle(ctx, SubirDictamenCommand{
		TesisID: f.tesisID, ActorID: f.presidente,
		ArchivoRef: "s/dictamen.pdf", FechaFirma: relojLunes(),
	})
	require.NoError(t, err)
	assert.Equal(t, tesis.ResultadoAprobado, res.Mayoria)
	assert.Equal(t, tesis.EstadoProyectoAprobado, res.EstadoNuevo)
	assert.Equal(t, 1, res.RondaResuelta)
	assert.Contains(t, f.bus.tipos(), shared.EventDictamenEmitido)
}

func TestCicloInformeFinal(t *testing.T) {
	f := newFixture(t)
	f.avanzarAEvaluacion(t)
	ctx := context.Background()

	f.evaluar(t, f.presidente, tesis.ResultadoAprobado, "")
	f.evaluar(t, f.vocal, tesis.ResultadoAprobado, "")
	f.evaluar(t, f.secretario, tesis.ResultadoAprobado, "")

	dictamen := NewSubirDictamenHandler(f.store, f.cache, f.bus, f.maquina, nil)
	_, err := dictamen.Handle(ctx, SubirDictamenCommand{
		TesisID: f.tesisID, ActorID: f.presidente,
		ArchivoRef: "s/dictamen-1.pdf", FechaFirma: relojLunes(),
	})
	require.NoError(t, err)

	_, err = NewSubirResolucionHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, SubirResolucionCommand{
			TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes,
			ArchivoRef: "s/resolucion.pdf",
		})
	require.NoError(t, err)
	assert.Equal(t, tesis.FaseInformeFinal, f.store.tesis[f.tesisID].Fase)

	res, err := NewPresentarInformeHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, PresentarInformeCommand{
			TesisID: f.tesisID, ActorID: f.autor, ArchivoRef: "s/informe.pdf",
		})
	require.NoError(t, err)
	assert.Equal(t, tesis.EstadoEnEvaluacionInforme, res.EstadoNuevo)
	assert.Equal(t, 2, res.Ronda)

	f.evaluar(t, f.presidente, tesis.ResultadoAprobado, "")
	f.evaluar(t, f.vocal, tesis.ResultadoAprobado, "")
	f.evaluar(t, f.secretario, tesis.ResultadoAprobado, "")

	// Approving final-report dictamen requires the defense scheduling.
	_, err = dictamen.Handle(ctx, SubirDictamenCommand{
		TesisID: f.tesisID, ActorID: f.presidente,
		ArchivoRef: "s/dictamen-2.pdf", FechaFirma: relojLunes(),
	})
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	final, err := dictamen.Handle(ctx, SubirDictamenCommand{
		TesisID: f.tesisID, ActorID: f.presidente,
		ArchivoRef: "s/dictamen-2.pdf", FechaFirma: relojLunes(),
		Sustentacion: &SustentacionInput{
			Fecha: timeutil.Date(2025, 7, 7), Hora: "11:00",
			Lugar: "Auditorio central", Modalidad: "PRESENCIAL",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, tesis.EstadoEnSustentacion, final.EstadoNuevo)

	cierre, err := NewCerrarSustentacionHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, CerrarSustentacionCommand{
			TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes,
			Cierre: CierreSustentada, Comentario: "Nota 18",
		})
	require.NoError(t, err)
	assert.Equal(t, tesis.EstadoSustentada, cierre.EstadoNuevo)
	assert.True(t, f.store.tesis[f.tesisID].Estado.EsTerminal())
}

func TestEliminarYRestaurar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := uuid.New()
	h := NewEliminarTesisHandler(f.store, f.cache, f.bus, nil)

	require.NoError(t, h.Handle(ctx, EliminarTesisCommand{TesisID: f.tesisID, ActorID: admin}))
	assert.True(t, f.store.tesis[f.tesisID].Eliminada)

	// Workflow actions are refused while deleted.
	_, err := NewConfirmarVoucherHandler(f.store, f.cache, f.bus, f.maquina, nil).
		Handle(ctx, ConfirmarVoucherCommand{TesisID: f.tesisID, ActorID: f.mesa, Rol: tesis.RolMesaDePartes})
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	// Deleting twice fails; restoring brings it back with estado intact.
	err = h.Handle(ctx, EliminarTesisCommand{TesisID: f.tesisID, ActorID: admin})
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	require.NoError(t, h.Handle(ctx, EliminarTesisCommand{TesisID: f.tesisID, ActorID: admin, Restaurar: true}))
	assert.False(t, f.store.tesis[f.tesisID].Eliminada)
	assert.Equal(t, tesis.EstadoEnRevision, f.store.tesis[f.tesisID].Estado)
	assert.Contains(t, f.bus.tipos(), shared.EventTesisRestaurada)
}

func TestResponderInvitacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := NewResponderInvitacionHandler(f.store, f.cache, f.bus, nil)

	// The seeded advisor already accepted; a stranger has no invitation.
	err := h.Handle(ctx, ResponderInvitacionCommand{
		TesisID: f.tesisID, UserID: uuid.New(), Acepta: true,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRetirarYPromover(t *testing.T) {
	f := newFixture(t)
	f.avanzarAEvaluacion(t)
	ctx := context.Background()

	// Seed the accesitario before confirmation is not possible anymore, so
	// exercise the vacancy path: retire the vocal and verify the panel breaks.
	require.NoError(t, NewRetirarJuradoHandler(f.store, f.cache, nil).
		Handle(ctx, RetirarJuradoCommand{TesisID: f.tesisID, ActorID: f.mesa, JuradoUserID: f.vocal}))
	assert.Len(t, f.store.tesis[f.tesisID].JuradosVotantes(), 2)

	// No accesitario seated: promotion fails.
	err := NewPromoverAccesitarioHandler(f.store, f.cache, f.bus, nil).
		Handle(ctx, PromoverAccesitarioCommand{
			TesisID: f.tesisID, ActorID: f.mesa, Cargo: tesis.ParticipanteVocal,
		})
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
}
