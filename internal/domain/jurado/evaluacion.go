// Package jurado contains the jury evaluation records and the per-round
// aggregation rules: quorum, duplicate protection and majority resolution.
package jurado

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// Domain errors for evaluation recording.
var (
	ErrEvaluacionDuplicada = shared.NewDomainError("jurado", "RegistrarEvaluacion",
		shared.ErrDuplicateEvaluation, "el jurado ya registró su evaluación en esta ronda")
	ErrJuradoInvalido = shared.NewDomainError("jurado", "RegistrarEvaluacion",
		shared.ErrInvalidJuror, "el usuario no es jurado activo de esta tesis")
	ErrObservacionesRequeridas = shared.NewDomainError("jurado", "RegistrarEvaluacion",
		shared.ErrMissingObservations, "una evaluación OBSERVADO requiere observaciones")
	ErrResultadoInvalido = shared.NewDomainError("jurado", "RegistrarEvaluacion",
		shared.ErrValidation, "el resultado debe ser APROBADO u OBSERVADO")
	ErrEvaluacionNotFound = shared.NewDomainError("jurado", "Find",
		shared.ErrNotFound, "evaluación no encontrada")
)

// Evaluacion is one juror's verdict for a (thesis, round, phase) triple.
// At most one evaluation exists per (juror, round); prior-round evaluations
// are retained forever, never overwritten.
type Evaluacion struct {
	ID            uuid.UUID
	TesisID       uuid.UUID
	JuradoUserID  uuid.UUID
	Ronda         int
	Fase          tesis.Fase
	Resultado     tesis.Resultado
	Observaciones string
	ArchivoRef    string // optional attachment in document storage
	CreatedAt     time.Time
}

// NewEvaluacionParams contains the parameters to record a verdict.
type NewEvaluacionParams struct {
	TesisID       uuid.UUID
	JuradoUserID  uuid.UUID
	Ronda         int
	Fase          tesis.Fase
	Resultado     tesis.Resultado
	Observaciones string
	ArchivoRef    string
}

// NewEvaluacion validates and builds an evaluation record. Duplicate and
// active-juror checks happen in RegistrarEvaluacion, which sees the panel
// and the existing round records.
func NewEvaluacion(params NewEvaluacionParams) (*Evaluacion, error) {
	if !params.Resultado.IsValid() {
		return nil, ErrResultadoInvalido
	}
	if params.Resultado == tesis.ResultadoObservado && strings.TrimSpace(params.Observaciones) == "" {
		return nil, ErrObservacionesRequeridas
	}

	return &Evaluacion{
		ID:            uuid.New(),
		TesisID:       params.TesisID,
		JuradoUserID:  params.JuradoUserID,
		Ronda:         params.Ronda,
		Fase:          params.Fase,
		Resultado:     params.Resultado,
		Observaciones: strings.TrimSpace(params.Observaciones),
		ArchivoRef:    params.ArchivoRef,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// RegistrarEvaluacion applies the aggregator-level rules for a new verdict:
// the juror must hold an active voting seat on the thesis, and must not have
// evaluated this round already. Returns the validated record to persist.
func RegistrarEvaluacion(t *tesis.Tesis, existentes []Evaluacion, params NewEvaluacionParams) (*Evaluacion, error) {
	if !t.EsJuradoActivo(params.JuradoUserID) {
		return nil, ErrJuradoInvalido
	}
	for _, e := range existentes {
		if e.JuradoUserID == params.JuradoUserID && e.Ronda == params.Ronda {
			return nil, ErrEvaluacionDuplicada
		}
	}
	return NewEvaluacion(params)
}
