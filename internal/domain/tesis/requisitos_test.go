package tesis

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tesisConCoasesor(t *testing.T, conCoasesor bool) *Tesis {
	t.Helper()

	params := NewTesisParams{
		Codigo: "TES-2025-002",
		Titulo: "Optimización de rutas de transporte urbano",
		Autores: []Participante{
			{UserID: uuid.New(), Nombre: "Luis Mamani", Tipo: ParticipanteAutorPrincipal},
		},
		Asesor: Participante{UserID: uuid.New(), Nombre: "Dra. Torres", Tipo: ParticipanteAsesor},
	}
	if conCoasesor {
		params.Coasesor = &Participante{UserID: uuid.New(), Nombre: "Mg. Flores", Tipo: ParticipanteCoasesor}
	}
	tes, err := NewTesis(params)
	require.NoError(t, err)
	return tes
}

func TestRequisitosParaEnvio_SinCoasesor(t *testing.T) {
	tes := tesisConCoasesor(t, false)
	req := RequisitosParaEnvio(tes)
	assert.ElementsMatch(t, []TipoDocumento{DocProyecto, DocCartaAceptacionAsesor, DocVoucherPago}, req)
}

func TestRequisitosParaEnvio_ConCoasesor(t *testing.T) {
	tes := tesisConCoasesor(t, true)
	req := RequisitosParaEnvio(tes)
	assert.Contains(t, req, DocCartaCoasesor)
	assert.Len(t, req, 4)
}

func TestVerificarRequisitos_ReportaFaltantes(t *testing.T) {
	tes := tesisConCoasesor(t, false)
	tes.AgregarDocumento(Documento{Tipo: DocProyecto})

	res := DossierCompleto(tes)
	assert.False(t, res.Completa)
	require.Len(t, res.Faltantes, 2)

	tipos := []TipoDocumento{res.Faltantes[0].Tipo, res.Faltantes[1].Tipo}
	assert.ElementsMatch(t, []TipoDocumento{DocCartaAceptacionAsesor, DocVoucherPago}, tipos)
	for _, f := range res.Faltantes {
		assert.NotEmpty(t, f.Descripcion)
	}
}

func TestVerificarRequisitos_Completo(t *testing.T) {
	tes := tesisConCoasesor(t, true)
	tes.AgregarDocumento(Documento{Tipo: DocProyecto})
	tes.AgregarDocumento(Documento{Tipo: DocCartaAceptacionAsesor})
	tes.AgregarDocumento(Documento{Tipo: DocCartaCoasesor})
	tes.AgregarDocumento(Documento{Tipo: DocVoucherPago})

	res := DossierCompleto(tes)
	assert.True(t, res.Completa)
	assert.Empty(t, res.Faltantes)
}

func TestVerificarRequisitos_UsaUltimaVersion(t *testing.T) {
	tes := tesisConCoasesor(t, false)
	d1 := tes.AgregarDocumento(Documento{Tipo: DocProyecto})
	d2 := tes.AgregarDocumento(Documento{Tipo: DocProyecto})

	assert.Equal(t, 1, d1.Version)
	assert.Equal(t, 2, d2.Version)
	assert.Equal(t, 2, tes.UltimoDocumento(DocProyecto).Version)
	assert.Equal(t, 3, tes.SiguienteVersion(DocProyecto))
}

func TestNewTesis_Validaciones(t *testing.T) {
	asesor := Participante{UserID: uuid.New(), Tipo: ParticipanteAsesor}

	_, err := NewTesis(NewTesisParams{Titulo: "  ", Autores: []Participante{
		{UserID: uuid.New(), Tipo: ParticipanteAutorPrincipal}}, Asesor: asesor})
	assert.ErrorIs(t, err, ErrTituloRequerido)

	_, err = NewTesis(NewTesisParams{Titulo: "T", Autores: nil, Asesor: asesor})
	assert.ErrorIs(t, err, ErrAutoresInvalidos)

	// Two primary authors.
	_, err = NewTesis(NewTesisParams{Titulo: "T", Autores: []Participante{
		{UserID: uuid.New(), Tipo: ParticipanteAutorPrincipal},
		{UserID: uuid.New(), Tipo: ParticipanteAutorPrincipal},
	}, Asesor: asesor})
	assert.ErrorIs(t, err, ErrAutoresInvalidos)

	_, err = NewTesis(NewTesisParams{Titulo: "T", Autores: []Participante{
		{UserID: uuid.New(), Tipo: ParticipanteAutorPrincipal}},
		Asesor: Participante{UserID: uuid.New(), Tipo: ParticipanteVocal}})
	assert.ErrorIs(t, err, ErrAsesorRequerido)

	tes, err := NewTesis(NewTesisParams{Titulo: "T", Autores: []Participante{
		{UserID: uuid.New(), Tipo: ParticipanteAutorPrincipal},
		{UserID: uuid.New(), Tipo: ParticipanteAutor},
	}, Asesor: asesor})
	require.NoError(t, err)
	assert.Equal(t, EstadoBorrador, tes.Estado)
	assert.Equal(t, FaseProyecto, tes.Fase)
	assert.Equal(t, 0, tes.RondaActual)

	// The primary author is auto-accepted; everyone else starts pending.
	for _, p := range tes.Participantes {
		if p.Tipo == ParticipanteAutorPrincipal {
			assert.Equal(t, InvitacionAceptada, p.Invitacion)
		} else {
			assert.Equal(t, InvitacionPendiente, p.Invitacion)
		}
	}
}

func TestResponderInvitacion(t *testing.T) {
	tes := tesisConCoasesor(t, false)
	var asesorID uuid.UUID
	for _, p := range tes.Participantes {
		if p.Tipo == ParticipanteAsesor {
			asesorID = p.UserID
		}
	}

	require.NoError(t, tes.ResponderInvitacion(asesorID, true))
	// Answering twice is rejected.
	err := tes.ResponderInvitacion(asesorID, false)
	require.Error(t, err)

	// Unknown users hold no invitation.
	err = tes.ResponderInvitacion(uuid.New(), true)
	require.Error(t, err)
}
