package tesis

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
	"github.com/tesis-hub/tesis-tracker/pkg/timeutil"
)

// Plazos holds the business-day windows used to compute deadlines.
type Plazos struct {
	// DiasEvaluacion is the evaluation window granted to the jury after a
	// round opens.
	DiasEvaluacion int

	// DiasCorreccion is the correction window granted to the student after
	// an OBSERVADA_* transition.
	DiasCorreccion int
}

// DefaultPlazos returns the institutional defaults.
func DefaultPlazos() Plazos {
	return Plazos{
		DiasEvaluacion: 15,
		DiasCorreccion: 10,
	}
}

// Actor identifies who is requesting an action. The role comes from the
// authorization oracle; the machine treats it as ground truth.
type Actor struct {
	UserID uuid.UUID
	Rol    Rol
}

// Peticion is the payload of a transition request. Which fields are required
// depends on the action; the machine validates presence before mutating.
type Peticion struct {
	Accion     Accion
	Comentario string

	// Documento accompanies actions that attach a file (dictamen,
	// resolución, corrected documents, final report).
	Documento *Documento

	// Sustentacion carries defense scheduling, required atomically with an
	// approving final-report dictamen.
	Sustentacion *Sustentacion

	// ResultadoRonda is the majority result computed by the evaluation
	// aggregator. Required for SUBIR_DICTAMEN.
	ResultadoRonda *Resultado

	// RondaCompleta reports whether every voting juror evaluated the current
	// round. Required true for SUBIR_DICTAMEN.
	RondaCompleta bool
}

// Maquina validates and executes every thesis state transition. It is the
// only writer of Estado, Fase, RondaActual, the deadline fields and the
// sustentación record.
type Maquina struct {
	plazos Plazos
	reloj  func() time.Time
}

// NewMaquina creates a state machine with the given deadline windows.
func NewMaquina(plazos Plazos) *Maquina {
	return &Maquina{
		plazos: plazos,
		reloj:  timeutil.Now,
	}
}

// ConReloj returns a copy of the machine using the given clock. Used by tests
// to pin deadline arithmetic.
func (m *Maquina) ConReloj(reloj func() time.Time) *Maquina {
	return &Maquina{plazos: m.plazos, reloj: reloj}
}

func errTransicion(kind error, msg string) error {
	return shared.NewDomainError("tesis", "Transitar", kind, msg)
}

// Ejecutar runs one transition against the aggregate. On success it mutates
// the aggregate and returns the history record to persist alongside it. On
// any failure the aggregate is left untouched and a typed error is returned:
// all validation happens before the first write.
func (m *Maquina) Ejecutar(t *Tesis, actor Actor, p Peticion) (*RegistroHistorial, error) {
	if t.Eliminada {
		return nil, errTransicion(shared.ErrPreconditionFailed,
			"la tesis está eliminada; debe restaurarse antes de continuar")
	}
	if t.Estado.EsTerminal() {
		return nil, errTransicion(shared.ErrInvalidTransition,
			fmt.Sprintf("la tesis está en estado terminal %s", t.Estado))
	}
	if !Autorizado(p.Accion, actor.Rol) {
		return nil, errTransicion(shared.ErrUnauthorizedAction,
			fmt.Sprintf("el rol %s no puede ejecutar %s", actor.Rol, p.Accion))
	}
	if !AccionLegalDesde(p.Accion, t.Estado) {
		return nil, errTransicion(shared.ErrInvalidTransition,
			fmt.Sprintf("la acción %s no es válida en el estado %s", p.Accion, t.Estado))
	}

	// Each case validates its structural preconditions and returns the target
	// state plus a mutation to apply. Nothing mutates until validation is done.
	var (
		estadoNuevo Estado
		aplicar     func()
		err         error
	)

	switch p.Accion {
	case AccionEnviarRevision:
		estadoNuevo, aplicar, err = m.enviarRevision(t, actor)
	case AccionAprobar:
		estadoNuevo, aplicar, err = m.aprobarDocumentos(t)
	case AccionObservar:
		estadoNuevo, aplicar, err = m.observarDocumentos(t, p)
	case AccionRechazar:
		estadoNuevo, aplicar, err = m.rechazar(t, p)
	case AccionConfirmarVoucher:
		estadoNuevo, aplicar, err = m.confirmarVoucher(t)
	case AccionConfirmarJurados:
		estadoNuevo, aplicar, err = m.confirmarJurados(t)
	case AccionSubirDictamen:
		estadoNuevo, aplicar, err = m.subirDictamen(t, actor, p)
	case AccionSubsanarObservaciones:
		estadoNuevo, aplicar, err = m.subsanarObservaciones(t, actor, p)
	case AccionSubirResolucion:
		estadoNuevo, aplicar, err = m.subirResolucion(t, p)
	case AccionPresentarInforme:
		estadoNuevo, aplicar, err = m.presentarInforme(t, actor, p)
	case AccionProgramarSustentacion:
		estadoNuevo, aplicar, err = m.programarSustentacion(t, p)
	case AccionMarcarSustentada:
		estadoNuevo, aplicar = EstadoSustentada, func() {}
	case AccionArchivar:
		estadoNuevo, aplicar = EstadoArchivada, func() {}
	default:
		return nil, errTransicion(shared.ErrInvalidTransition,
			fmt.Sprintf("acción desconocida %s", p.Accion))
	}
	if err != nil {
		return nil, err
	}

	estadoAnterior := t.Estado
	aplicar()
	t.Estado = estadoNuevo
	t.UpdatedAt = m.reloj().UTC()

	return &RegistroHistorial{
		ID:             uuid.New(),
		TesisID:        t.ID,
		EstadoAnterior: estadoAnterior,
		EstadoNuevo:    estadoNuevo,
		Accion:         p.Accion,
		Comentario:     strings.TrimSpace(p.Comentario),
		ActorID:        actor.UserID,
		ActorRol:       actor.Rol,
		CreatedAt:      t.UpdatedAt,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Per-action preconditions
// ─────────────────────────────────────────────────────────────────────────────

func (m *Maquina) enviarRevision(t *Tesis, actor Actor) (Estado, func(), error) {
	if !t.EsAutor(actor.UserID) {
		return "", nil, errTransicion(shared.ErrUnauthorizedAction,
			"solo un autor de la tesis puede enviarla a revisión")
	}

	for _, p := range t.ParticipantesActivos(ParticipanteAsesor, ParticipanteCoasesor, ParticipanteAutor) {
		if p.Invitacion != InvitacionAceptada {
			return "", nil, errTransicion(shared.ErrPreconditionFailed,
				fmt.Sprintf("%s (%s) aún no aceptó su participación", p.Nombre, p.Tipo))
		}
	}

	if res := DossierCompleto(t); !res.Completa {
		faltan := make([]string, 0, len(res.Faltantes))
		for _, f := range res.Faltantes {
			faltan = append(faltan, f.Descripcion)
		}
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"faltan documentos obligatorios: "+strings.Join(faltan, ", "))
	}

	return EstadoEnRevision, func() {}, nil
}

func (m *Maquina) aprobarDocumentos(t *Tesis) (Estado, func(), error) {
	// The physical voucher gates approval independently of the uploaded copy.
	// The error is specific so the UI can tell the registrar exactly what to do.
	if !t.VoucherFisicoEntregado {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"Debe confirmar el voucher físico para aprobar")
	}
	return EstadoAsignandoJurados, func() {}, nil
}

func (m *Maquina) observarDocumentos(t *Tesis, p Peticion) (Estado, func(), error) {
	if strings.TrimSpace(p.Comentario) == "" {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"comentario requerido para observar la tesis")
	}
	return EstadoObservada, func() {}, nil
}

func (m *Maquina) rechazar(t *Tesis, p Peticion) (Estado, func(), error) {
	if strings.TrimSpace(p.Comentario) == "" {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"comentario requerido para rechazar la tesis")
	}
	return EstadoRechazada, func() {}, nil
}

func (m *Maquina) confirmarVoucher(t *Tesis) (Estado, func(), error) {
	if t.VoucherFisicoEntregado {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"el voucher físico ya fue confirmado")
	}
	// Self-transition: the estado does not change but the confirmation is a
	// gating fact worth a history record.
	return t.Estado, func() {
		t.VoucherFisicoEntregado = true
	}, nil
}

func (m *Maquina) confirmarJurados(t *Tesis) (Estado, func(), error) {
	if err := m.validarPanel(t); err != nil {
		return "", nil, err
	}

	vence := timeutil.AddBusinessDays(m.reloj(), m.plazos.DiasEvaluacion)
	return EstadoEnEvaluacionJurado, func() {
		t.RondaActual++
		t.FechaLimiteEvaluacion = &vence
		t.FechaLimiteCorreccion = nil
	}, nil
}

func (m *Maquina) validarPanel(t *Tesis) error {
	for _, seat := range []TipoParticipante{ParticipantePresidente, ParticipanteVocal, ParticipanteSecretario} {
		n := len(t.ParticipantesActivos(seat))
		switch {
		case n == 0:
			return errTransicion(shared.ErrPreconditionFailed,
				fmt.Sprintf("falta asignar el jurado %s", seat))
		case n > 1:
			return errTransicion(shared.ErrPreconditionFailed,
				fmt.Sprintf("hay más de un jurado %s asignado", seat))
		}
	}
	if len(t.ParticipantesActivos(ParticipanteAccesitario)) > 1 {
		return errTransicion(shared.ErrPreconditionFailed,
			"hay más de un jurado accesitario asignado")
	}
	return nil
}

func (m *Maquina) subirDictamen(t *Tesis, actor Actor, p Peticion) (Estado, func(), error) {
	presidente := t.Presidente()
	if presidente == nil || presidente.UserID != actor.UserID {
		return "", nil, errTransicion(shared.ErrUnauthorizedAction,
			"solo el presidente del jurado puede emitir el dictamen")
	}
	if !p.RondaCompleta {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"aún hay jurados sin registrar su evaluación en esta ronda")
	}
	if p.ResultadoRonda == nil || !p.ResultadoRonda.IsValid() {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"no se pudo determinar el resultado de la ronda")
	}
	if p.Documento == nil || p.Documento.Tipo != DocDictamen || !p.Documento.Firmado {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"el dictamen debe adjuntarse en PDF con firma digital")
	}

	resultado := *p.ResultadoRonda
	venceCorreccion := timeutil.AddBusinessDays(m.reloj(), m.plazos.DiasCorreccion)

	adjuntar := func() {
		t.AgregarDocumento(*p.Documento)
		t.FechaLimiteEvaluacion = nil
	}

	if t.Estado == EstadoEnEvaluacionJurado {
		// Resolving the PROYECTO phase.
		if resultado == ResultadoAprobado {
			return EstadoProyectoAprobado, func() {
				adjuntar()
				t.FechaLimiteCorreccion = nil
			}, nil
		}
		return EstadoObservadaJurado, func() {
			adjuntar()
			t.FechaLimiteCorreccion = &venceCorreccion
		}, nil
	}

	// Resolving the INFORME_FINAL phase.
	if resultado == ResultadoAprobado {
		// Defense scheduling travels atomically with the approving dictamen.
		if p.Sustentacion == nil || !p.Sustentacion.Completa() {
			return "", nil, errTransicion(shared.ErrPreconditionFailed,
				"debe programar la sustentación: fecha, hora, lugar y modalidad")
		}
		sust := *p.Sustentacion
		return EstadoEnSustentacion, func() {
			adjuntar()
			t.Sustentacion = &sust
			t.FechaLimiteCorreccion = nil
		}, nil
	}
	return EstadoObservadaInforme, func() {
		adjuntar()
		t.FechaLimiteCorreccion = &venceCorreccion
	}, nil
}

func (m *Maquina) subsanarObservaciones(t *Tesis, actor Actor, p Peticion) (Estado, func(), error) {
	if !t.EsAutor(actor.UserID) {
		return "", nil, errTransicion(shared.ErrUnauthorizedAction,
			"solo un autor puede subsanar las observaciones")
	}

	esperado := DocProyecto
	destino := EstadoEnEvaluacionJurado
	if t.Estado == EstadoObservadaInforme {
		esperado = DocInformeFinal
		destino = EstadoEnEvaluacionInforme
	}
	if p.Documento == nil || p.Documento.Tipo != esperado {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			fmt.Sprintf("debe adjuntar el documento corregido (%s)", esperado))
	}
	if t.FechaLimiteCorreccion != nil && timeutil.Vencido(*t.FechaLimiteCorreccion, m.reloj()) {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"el plazo de corrección venció el "+timeutil.FormatPeruvian(*t.FechaLimiteCorreccion))
	}
	if err := m.validarPanel(t); err != nil {
		return "", nil, err
	}

	venceEvaluacion := timeutil.AddBusinessDays(m.reloj(), m.plazos.DiasEvaluacion)
	return destino, func() {
		// A new round opens; prior-round evaluations stay untouched in their
		// round's records.
		t.RondaActual++
		t.AgregarDocumento(*p.Documento)
		t.FechaLimiteEvaluacion = &venceEvaluacion
		t.FechaLimiteCorreccion = nil
	}, nil
}

func (m *Maquina) subirResolucion(t *Tesis, p Peticion) (Estado, func(), error) {
	if p.Documento == nil || p.Documento.Tipo != DocResolucionAprobacion {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"debe adjuntar la resolución de aprobación")
	}
	if t.Fase != FaseProyecto {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"la fase de informe final ya fue iniciada")
	}

	return EstadoInformeFinal, func() {
		t.AgregarDocumento(*p.Documento)
		// One-way flip: the phase never returns to PROYECTO.
		t.Fase = FaseInformeFinal
	}, nil
}

func (m *Maquina) presentarInforme(t *Tesis, actor Actor, p Peticion) (Estado, func(), error) {
	if !t.EsAutor(actor.UserID) {
		return "", nil, errTransicion(shared.ErrUnauthorizedAction,
			"solo un autor puede presentar el informe final")
	}
	if p.Documento == nil || p.Documento.Tipo != DocInformeFinal {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"debe adjuntar el informe final")
	}
	// The project-phase panel is reused for the report; it must still be whole.
	if err := m.validarPanel(t); err != nil {
		return "", nil, err
	}

	vence := timeutil.AddBusinessDays(m.reloj(), m.plazos.DiasEvaluacion)
	return EstadoEnEvaluacionInforme, func() {
		t.RondaActual++
		t.AgregarDocumento(*p.Documento)
		t.FechaLimiteEvaluacion = &vence
		t.FechaLimiteCorreccion = nil
	}, nil
}

func (m *Maquina) programarSustentacion(t *Tesis, p Peticion) (Estado, func(), error) {
	if p.Sustentacion == nil || !p.Sustentacion.Completa() {
		return "", nil, errTransicion(shared.ErrPreconditionFailed,
			"debe indicar fecha, hora, lugar y modalidad de la sustentación")
	}
	sust := *p.Sustentacion
	return EstadoEnSustentacion, func() {
		t.Sustentacion = &sust
	}, nil
}
