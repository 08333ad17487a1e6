package tesis

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
)

// Jury panel management. Assignments happen while the thesis sits in
// ASIGNANDO_JURADOS; promotion of the accesitario is an administrative
// override that never touches the estado.

func errPanel(op string, kind error, msg string) error {
	return shared.NewDomainError("tesis", op, kind, msg)
}

// AsignarJurado seats a jury member. Re-assigning an occupied seat replaces
// the previous holder (deactivated, kept for the record).
func (t *Tesis) AsignarJurado(userID uuid.UUID, nombre string, seat TipoParticipante) error {
	if !seat.EsJurado() {
		return errPanel("AsignarJurado", shared.ErrValidation,
			fmt.Sprintf("%s no es un cargo de jurado", seat))
	}
	if t.Estado != EstadoAsignandoJurados {
		return errPanel("AsignarJurado", shared.ErrInvalidTransition,
			"los jurados solo pueden asignarse mientras la tesis está en asignación de jurados")
	}
	for _, j := range t.Jurados() {
		if j.UserID == userID {
			return errPanel("AsignarJurado", shared.ErrPreconditionFailed,
				fmt.Sprintf("%s ya integra el jurado de esta tesis", j.Nombre))
		}
	}
	for _, p := range t.ParticipantesActivos(ParticipanteAutorPrincipal, ParticipanteAutor,
		ParticipanteAsesor, ParticipanteCoasesor) {
		if p.UserID == userID {
			return errPanel("AsignarJurado", shared.ErrPreconditionFailed,
				"un autor o asesor de la tesis no puede ser su jurado")
		}
	}

	now := time.Now().UTC()
	for i := range t.Participantes {
		p := &t.Participantes[i]
		if p.Activo && p.Tipo == seat {
			p.Activo = false
		}
	}
	t.Participantes = append(t.Participantes, Participante{
		ID:        uuid.New(),
		TesisID:   t.ID,
		UserID:    userID,
		Nombre:    nombre,
		Tipo:      seat,
		Activo:    true,
		CreatedAt: now,
	})
	t.UpdatedAt = now
	return nil
}

// PromoverAccesitario re-types the accesitario into a vacated voting seat.
// Only legal while an evaluation round is open and the seat is actually
// vacant; the absent juror must have been deactivated first.
func (t *Tesis) PromoverAccesitario(seat TipoParticipante) error {
	if !seat.EsVotante() {
		return errPanel("PromoverAccesitario", shared.ErrValidation,
			fmt.Sprintf("%s no es un cargo votante", seat))
	}
	if !t.Estado.EnEvaluacion() {
		return errPanel("PromoverAccesitario", shared.ErrInvalidTransition,
			"la promoción solo procede durante una ronda de evaluación")
	}
	if len(t.ParticipantesActivos(seat)) > 0 {
		return errPanel("PromoverAccesitario", shared.ErrPreconditionFailed,
			fmt.Sprintf("el cargo %s no está vacante", seat))
	}

	for i := range t.Participantes {
		p := &t.Participantes[i]
		if p.Activo && p.Tipo == ParticipanteAccesitario {
			p.Tipo = seat
			t.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errPanel("PromoverAccesitario", shared.ErrPreconditionFailed,
		"la tesis no tiene jurado accesitario activo")
}

// RetirarJurado deactivates a jury member (resignation, conflict of
// interest). The seat stays vacant until reassignment or promotion.
func (t *Tesis) RetirarJurado(userID uuid.UUID) error {
	for i := range t.Participantes {
		p := &t.Participantes[i]
		if p.Activo && p.Tipo.EsJurado() && p.UserID == userID {
			p.Activo = false
			t.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errPanel("RetirarJurado", shared.ErrNotFound,
		"el usuario no integra el jurado de esta tesis")
}
