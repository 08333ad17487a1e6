package tesis

// Estado is the lifecycle state of a thesis project. The full pipeline runs
// registration, document review, jury assignment, multi-round jury
// evaluation, final report, and defense scheduling.
type Estado string

const (
	// EstadoBorrador - the student is still editing the draft.
	EstadoBorrador Estado = "BORRADOR"
	// EstadoEnRevision - mesa de partes is reviewing the submitted documents.
	EstadoEnRevision Estado = "EN_REVISION"
	// EstadoObservada - mesa de partes returned the dossier with observations.
	EstadoObservada Estado = "OBSERVADA"
	// EstadoAsignandoJurados - documents approved, jury panel being assembled.
	EstadoAsignandoJurados Estado = "ASIGNANDO_JURADOS"
	// EstadoEnEvaluacionJurado - jury evaluating the project phase.
	EstadoEnEvaluacionJurado Estado = "EN_EVALUACION_JURADO"
	// EstadoObservadaJurado - jury observed the project; correction window open.
	EstadoObservadaJurado Estado = "OBSERVADA_JURADO"
	// EstadoProyectoAprobado - jury approved the project.
	EstadoProyectoAprobado Estado = "PROYECTO_APROBADO"
	// EstadoInformeFinal - approval resolution issued; final report expected.
	EstadoInformeFinal Estado = "INFORME_FINAL"
	// EstadoEnEvaluacionInforme - jury evaluating the final report.
	EstadoEnEvaluacionInforme Estado = "EN_EVALUACION_INFORME"
	// EstadoObservadaInforme - jury observed the final report.
	EstadoObservadaInforme Estado = "OBSERVADA_INFORME"
	// EstadoAprobada - final report approved, defense not yet scheduled.
	EstadoAprobada Estado = "APROBADA"
	// EstadoEnSustentacion - defense scheduled.
	EstadoEnSustentacion Estado = "EN_SUSTENTACION"
	// EstadoSustentada - defense completed. Terminal.
	EstadoSustentada Estado = "SUSTENTADA"
	// EstadoArchivada - administratively archived. Terminal.
	EstadoArchivada Estado = "ARCHIVADA"
	// EstadoRechazada - rejected by mesa de partes. Terminal.
	EstadoRechazada Estado = "RECHAZADA"
)

// IsValid checks that the estado is one of the known states.
func (e Estado) IsValid() bool {
	switch e {
	case EstadoBorrador, EstadoEnRevision, EstadoObservada,
		EstadoAsignandoJurados, EstadoEnEvaluacionJurado, EstadoObservadaJurado,
		EstadoProyectoAprobado, EstadoInformeFinal, EstadoEnEvaluacionInforme,
		EstadoObservadaInforme, EstadoAprobada, EstadoEnSustentacion,
		EstadoSustentada, EstadoArchivada, EstadoRechazada:
		return true
	default:
		return false
	}
}

// EsTerminal reports whether no further transitions are possible.
func (e Estado) EsTerminal() bool {
	return e == EstadoSustentada || e == EstadoArchivada || e == EstadoRechazada
}

// EsEditable reports whether the student may still modify the dossier
// (upload or replace documents). This is the single source of truth for the
// "can edit" question; callers must not re-derive it from state membership.
func (e Estado) EsEditable() bool {
	switch e {
	case EstadoBorrador, EstadoObservada, EstadoObservadaJurado,
		EstadoInformeFinal, EstadoObservadaInforme:
		return true
	default:
		return false
	}
}

// EnEvaluacion reports whether a jury round is currently open.
func (e Estado) EnEvaluacion() bool {
	return e == EstadoEnEvaluacionJurado || e == EstadoEnEvaluacionInforme
}

// Etiqueta returns the human-readable Spanish label for the estado.
// Presentation concerns (colors, icons) stay out of the core; the UI keys off
// the estado value itself.
func (e Estado) Etiqueta() string {
	switch e {
	case EstadoBorrador:
		return "Borrador"
	case EstadoEnRevision:
		return "En revisión por Mesa de Partes"
	case EstadoObservada:
		return "Observada por Mesa de Partes"
	case EstadoAsignandoJurados:
		return "Asignando jurados"
	case EstadoEnEvaluacionJurado:
		return "En evaluación del jurado"
	case EstadoObservadaJurado:
		return "Observada por el jurado"
	case EstadoProyectoAprobado:
		return "Proyecto aprobado"
	case EstadoInformeFinal:
		return "Informe final pendiente"
	case EstadoEnEvaluacionInforme:
		return "Informe en evaluación"
	case EstadoObservadaInforme:
		return "Informe observado"
	case EstadoAprobada:
		return "Aprobada"
	case EstadoEnSustentacion:
		return "En sustentación"
	case EstadoSustentada:
		return "Sustentada"
	case EstadoArchivada:
		return "Archivada"
	case EstadoRechazada:
		return "Rechazada"
	default:
		return string(e)
	}
}

// Fase is the evaluation phase. It moves PROYECTO -> INFORME_FINAL exactly
// once, never backwards.
type Fase string

const (
	// FaseProyecto - the thesis proposal is under evaluation.
	FaseProyecto Fase = "PROYECTO"
	// FaseInformeFinal - the final report is under evaluation.
	FaseInformeFinal Fase = "INFORME_FINAL"
)

// IsValid checks that the fase is known.
func (f Fase) IsValid() bool {
	return f == FaseProyecto || f == FaseInformeFinal
}

// Resultado is a jury verdict, either for an individual evaluation or for a
// resolved round.
type Resultado string

const (
	// ResultadoAprobado - the juror (or the round majority) approved.
	ResultadoAprobado Resultado = "APROBADO"
	// ResultadoObservado - the juror (or the round majority) observed.
	ResultadoObservado Resultado = "OBSERVADO"
)

// IsValid checks that the resultado is known.
func (r Resultado) IsValid() bool {
	return r == ResultadoAprobado || r == ResultadoObservado
}

// Rol is the role an actor exercises when requesting an action.
type Rol string

const (
	// RolEstudiante - thesis author.
	RolEstudiante Rol = "ESTUDIANTE"
	// RolAsesor - advisor or co-advisor.
	RolAsesor Rol = "ASESOR"
	// RolMesaDePartes - registrar performing intake review and approval gating.
	RolMesaDePartes Rol = "MESA_DE_PARTES"
	// RolJurado - assigned jury member.
	RolJurado Rol = "JURADO"
	// RolAdministrador - system administrator.
	RolAdministrador Rol = "ADMINISTRADOR"
)

// IsValid checks that the rol is known.
func (r Rol) IsValid() bool {
	switch r {
	case RolEstudiante, RolAsesor, RolMesaDePartes, RolJurado, RolAdministrador:
		return true
	default:
		return false
	}
}

// Accion identifies a workflow action requested against a thesis.
type Accion string

const (
	AccionEnviarRevision        Accion = "ENVIAR_REVISION"
	AccionAprobar               Accion = "APROBAR"
	AccionObservar              Accion = "OBSERVAR"
	AccionRechazar              Accion = "RECHAZAR"
	AccionConfirmarVoucher      Accion = "CONFIRMAR_VOUCHER"
	AccionConfirmarJurados      Accion = "CONFIRMAR_JURADOS"
	AccionSubirDictamen         Accion = "SUBIR_DICTAMEN"
	AccionSubsanarObservaciones Accion = "SUBSANAR_OBSERVACIONES"
	AccionSubirResolucion       Accion = "SUBIR_RESOLUCION"
	AccionPresentarInforme      Accion = "PRESENTAR_INFORME"
	AccionProgramarSustentacion Accion = "PROGRAMAR_SUSTENTACION"
	AccionMarcarSustentada      Accion = "MARCAR_SUSTENTADA"
	AccionArchivar              Accion = "ARCHIVAR"
)

// rolesPermitidos maps each action to the roles allowed to request it,
// independent of the current state. An administrator may additionally perform
// any registrar action.
var rolesPermitidos = map[Accion][]Rol{
	AccionEnviarRevision:        {RolEstudiante},
	AccionAprobar:               {RolMesaDePartes},
	AccionObservar:              {RolMesaDePartes},
	AccionRechazar:              {RolMesaDePartes},
	AccionConfirmarVoucher:      {RolMesaDePartes},
	AccionConfirmarJurados:      {RolMesaDePartes},
	AccionSubirDictamen:         {RolJurado},
	AccionSubsanarObservaciones: {RolEstudiante},
	AccionSubirResolucion:       {RolMesaDePartes},
	AccionPresentarInforme:      {RolEstudiante},
	AccionProgramarSustentacion: {RolMesaDePartes},
	AccionMarcarSustentada:      {RolMesaDePartes},
	AccionArchivar:              {RolMesaDePartes},
}

// Autorizado reports whether the rol may request the accion at all.
// State-dependent checks happen later, in the transition itself.
func Autorizado(accion Accion, rol Rol) bool {
	roles, ok := rolesPermitidos[accion]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == rol {
			return true
		}
		if rol == RolAdministrador && r == RolMesaDePartes {
			return true
		}
	}
	return false
}

// estadosOrigen maps each action to the states it may be requested from.
var estadosOrigen = map[Accion][]Estado{
	AccionEnviarRevision:        {EstadoBorrador, EstadoObservada},
	AccionAprobar:               {EstadoEnRevision, EstadoObservada},
	AccionObservar:              {EstadoEnRevision, EstadoObservada},
	AccionRechazar:              {EstadoEnRevision, EstadoObservada},
	AccionConfirmarVoucher:      {EstadoEnRevision, EstadoObservada},
	AccionConfirmarJurados:      {EstadoAsignandoJurados},
	AccionSubirDictamen:         {EstadoEnEvaluacionJurado, EstadoEnEvaluacionInforme},
	AccionSubsanarObservaciones: {EstadoObservadaJurado, EstadoObservadaInforme},
	AccionSubirResolucion:       {EstadoProyectoAprobado},
	AccionPresentarInforme:      {EstadoInformeFinal},
	AccionProgramarSustentacion: {EstadoAprobada},
	AccionMarcarSustentada:      {EstadoEnSustentacion},
	AccionArchivar:              {EstadoEnSustentacion},
}

// AccionLegalDesde reports whether the accion may be requested while the
// thesis sits in estado.
func AccionLegalDesde(accion Accion, estado Estado) bool {
	for _, e := range estadosOrigen[accion] {
		if e == estado {
			return true
		}
	}
	return false
}
