package jurado

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

type panelFixture struct {
	tes        *tesis.Tesis
	presidente uuid.UUID
	vocal      uuid.UUID
	secretario uuid.UUID
}

func panelDePrueba(t *testing.T) panelFixture {
	t.Helper()

	tes, err := tesis.NewTesis(tesis.NewTesisParams{
		Codigo: "TES-2025-010",
		Titulo: "Sistema de riego automatizado",
		Autores: []tesis.Participante{
			{UserID: uuid.New(), Nombre: "Carla Núñez", Tipo: tesis.ParticipanteAutorPrincipal},
		},
		Asesor: tesis.Participante{UserID: uuid.New(), Nombre: "Dr. Vega", Tipo: tesis.ParticipanteAsesor},
	})
	require.NoError(t, err)

	f := panelFixture{
		tes:        tes,
		presidente: uuid.New(),
		vocal:      uuid.New(),
		secretario: uuid.New(),
	}
	tes.Estado = tesis.EstadoAsignandoJurados
	require.NoError(t, tes.AsignarJurado(f.presidente, "Dr. Paredes", tesis.ParticipantePresidente))
	require.NoError(t, tes.AsignarJurado(f.vocal, "Dra. Salas", tesis.ParticipanteVocal))
	require.NoError(t, tes.AsignarJurado(f.secretario, "Dr. Rojas", tesis.ParticipanteSecretario))
	tes.Estado = tesis.EstadoEnEvaluacionJurado
	tes.RondaActual = 1
	return f
}

func evaluacion(t *testing.T, f panelFixture, jurado uuid.UUID, ronda int, res tesis.Resultado, obs string) Evaluacion {
	t.Helper()
	e, err := NewEvaluacion(NewEvaluacionParams{
		TesisID:       f.tes.ID,
		JuradoUserID:  jurado,
		Ronda:         ronda,
		Fase:          tesis.FaseProyecto,
		Resultado:     res,
		Observaciones: obs,
	})
	require.NoError(t, err)
	return *e
}

// Two of three jurors approve: the round is complete and the majority is
// APROBADO.
func TestComputarProgreso_MayoriaAprueba(t *testing.T) {
	f := panelDePrueba(t)
	evals := []Evaluacion{
		evaluacion(t, f, f.presidente, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.vocal, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.secretario, 1, tesis.ResultadoObservado, "Falta la matriz de consistencia"),
	}

	p := ComputarProgreso(f.tes, evals, 1)
	assert.Equal(t, 3, p.Evaluadas)
	assert.Equal(t, 3, p.Requeridas)
	assert.True(t, p.Completa)
	require.NotNil(t, p.Mayoria)
	assert.Equal(t, tesis.ResultadoAprobado, *p.Mayoria)
}

func TestComputarProgreso_MayoriaObserva(t *testing.T) {
	f := panelDePrueba(t)
	evals := []Evaluacion{
		evaluacion(t, f, f.presidente, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.vocal, 1, tesis.ResultadoObservado, "Revisar el marco teórico"),
		evaluacion(t, f, f.secretario, 1, tesis.ResultadoObservado, "Citas incompletas"),
	}

	p := ComputarProgreso(f.tes, evals, 1)
	require.NotNil(t, p.Mayoria)
	assert.Equal(t, tesis.ResultadoObservado, *p.Mayoria)
}

func TestComputarProgreso_RondaIncompleta(t *testing.T) {
	f := panelDePrueba(t)
	evals := []Evaluacion{
		evaluacion(t, f, f.presidente, 1, tesis.ResultadoAprobado, ""),
	}

	p := ComputarProgreso(f.tes, evals, 1)
	assert.Equal(t, 1, p.Evaluadas)
	assert.Equal(t, 3, p.Requeridas)
	assert.False(t, p.Completa)
	assert.Nil(t, p.Mayoria)
}

func TestComputarProgreso_IgnoraOtrasRondas(t *testing.T) {
	f := panelDePrueba(t)
	evals := []Evaluacion{
		evaluacion(t, f, f.presidente, 1, tesis.ResultadoObservado, "Ronda anterior"),
		evaluacion(t, f, f.vocal, 1, tesis.ResultadoObservado, "Ronda anterior"),
		evaluacion(t, f, f.secretario, 1, tesis.ResultadoObservado, "Ronda anterior"),
		evaluacion(t, f, f.presidente, 2, tesis.ResultadoAprobado, ""),
	}

	p := ComputarProgreso(f.tes, evals, 2)
	assert.Equal(t, 1, p.Evaluadas)
	assert.False(t, p.Completa)
}

// Half-and-half never happens with an odd panel, but a juror replacement can
// leave stale verdicts. A replaced juror's verdict stops counting.
func TestComputarProgreso_IgnoraJuradosRetirados(t *testing.T) {
	f := panelDePrueba(t)
	evals := []Evaluacion{
		evaluacion(t, f, f.presidente, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.vocal, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.secretario, 1, tesis.ResultadoObservado, "obs"),
	}
	require.NoError(t, f.tes.RetirarJurado(f.vocal))

	p := ComputarProgreso(f.tes, evals, 1)
	assert.Equal(t, 2, p.Evaluadas)
	assert.Equal(t, 2, p.Requeridas)
	assert.True(t, p.Completa)
	// 1 of 2 approved is not strictly more than half: the tie observes.
	require.NotNil(t, p.Mayoria)
	assert.Equal(t, tesis.ResultadoObservado, *p.Mayoria)
}

func TestComputarProgreso_EsIdempotente(t *testing.T) {
	f := panelDePrueba(t)
	evals := []Evaluacion{
		evaluacion(t, f, f.presidente, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.vocal, 1, tesis.ResultadoAprobado, ""),
		evaluacion(t, f, f.secretario, 1, tesis.ResultadoAprobado, ""),
	}

	p1 := ComputarProgreso(f.tes, evals, 1)
	p2 := ComputarProgreso(f.tes, evals, 1)
	assert.Equal(t, p1, p2)
}

func TestRegistrarEvaluacion_JuradoInvalido(t *testing.T) {
	f := panelDePrueba(t)

	_, err := RegistrarEvaluacion(f.tes, nil, NewEvaluacionParams{
		TesisID:      f.tes.ID,
		JuradoUserID: uuid.New(),
		Ronda:        1,
		Fase:         tesis.FaseProyecto,
		Resultado:    tesis.ResultadoAprobado,
	})
	assert.ErrorIs(t, err, ErrJuradoInvalido)
}

func TestRegistrarEvaluacion_Duplicada(t *testing.T) {
	f := panelDePrueba(t)
	existentes := []Evaluacion{
		evaluacion(t, f, f.vocal, 1, tesis.ResultadoAprobado, ""),
	}

	_, err := RegistrarEvaluacion(f.tes, existentes, NewEvaluacionParams{
		TesisID:      f.tes.ID,
		JuradoUserID: f.vocal,
		Ronda:        1,
		Fase:         tesis.FaseProyecto,
		Resultado:    tesis.ResultadoObservado,
	})
	assert.ErrorIs(t, err, ErrEvaluacionDuplicada)

	// The same juror may evaluate a later round.
	e, err := RegistrarEvaluacion(f.tes, existentes, NewEvaluacionParams{
		TesisID:      f.tes.ID,
		JuradoUserID: f.vocal,
		Ronda:        2,
		Fase:         tesis.FaseProyecto,
		Resultado:    tesis.ResultadoAprobado,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Ronda)
}

func TestRegistrarEvaluacion_ObservadoRequiereObservaciones(t *testing.T) {
	f := panelDePrueba(t)

	_, err := RegistrarEvaluacion(f.tes, nil, NewEvaluacionParams{
		TesisID:      f.tes.ID,
		JuradoUserID: f.secretario,
		Ronda:        1,
		Fase:         tesis.FaseProyecto,
		Resultado:    tesis.ResultadoObservado,
		Observaciones: "   ",
	})
	assert.ErrorIs(t, err, ErrObservacionesRequeridas)

	e, err := RegistrarEvaluacion(f.tes, nil, NewEvaluacionParams{
		TesisID:       f.tes.ID,
		JuradoUserID:  f.secretario,
		Ronda:         1,
		Fase:          tesis.FaseProyecto,
		Resultado:     tesis.ResultadoObservado,
		Observaciones: "  Corregir la hipótesis general  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Corregir la hipótesis general", e.Observaciones)
}

func TestNewEvaluacion_ResultadoInvalido(t *testing.T) {
	_, err := NewEvaluacion(NewEvaluacionParams{
		TesisID:      uuid.New(),
		JuradoUserID: uuid.New(),
		Ronda:        1,
		Fase:         tesis.FaseProyecto,
		Resultado:    tesis.Resultado("DESAPROBADO"),
	})
	assert.ErrorIs(t, err, ErrResultadoInvalido)
}
