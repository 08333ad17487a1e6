package jurado

import (
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// Progreso describes how far a jury round has advanced.
type Progreso struct {
	// Evaluadas is the number of verdicts recorded for the round.
	Evaluadas int

	// Requeridas is the number of voting jurors that must evaluate.
	Requeridas int

	// Completa is true once every voting juror has evaluated.
	Completa bool

	// Mayoria is the round result, nil until Completa. APROBADO only when
	// strictly more than half of the voting jurors approved; ties and
	// OBSERVADO majorities resolve to OBSERVADO.
	Mayoria *tesis.Resultado
}

// ComputarProgreso aggregates the verdicts of one round against the current
// voting panel. Accesitario votes never reach this function: an accesitario
// only votes after being promoted to a voting seat, at which point the panel
// itself reflects it. The computation is pure; calling it twice on the same
// inputs yields the same result.
func ComputarProgreso(t *tesis.Tesis, evaluaciones []Evaluacion, ronda int) Progreso {
	votantes := t.JuradosVotantes()
	p := Progreso{Requeridas: len(votantes)}

	aprobados := 0
	for _, e := range evaluaciones {
		if e.Ronda != ronda {
			continue
		}
		// Only count verdicts from jurors still holding a voting seat.
		if !t.EsJuradoActivo(e.JuradoUserID) {
			continue
		}
		p.Evaluadas++
		if e.Resultado == tesis.ResultadoAprobado {
			aprobados++
		}
	}

	if p.Requeridas == 0 || p.Evaluadas < p.Requeridas {
		return p
	}

	p.Completa = true
	resultado := tesis.ResultadoObservado
	if aprobados*2 > p.Requeridas {
		resultado = tesis.ResultadoAprobado
	}
	p.Mayoria = &resultado
	return p
}
