package tesis

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesis-hub/tesis-tracker/internal/domain/shared"
)

// TipoParticipante is the role a person holds within a thesis dossier.
type TipoParticipante string

const (
	// ParticipanteAutorPrincipal - the designated primary author.
	ParticipanteAutorPrincipal TipoParticipante = "AUTOR_PRINCIPAL"
	// ParticipanteAutor - a second author.
	ParticipanteAutor TipoParticipante = "AUTOR"
	// ParticipanteAsesor - the required advisor.
	ParticipanteAsesor TipoParticipante = "ASESOR"
	// ParticipanteCoasesor - an optional co-advisor.
	ParticipanteCoasesor TipoParticipante = "COASESOR"
	// ParticipantePresidente - presiding jury member.
	ParticipantePresidente TipoParticipante = "PRESIDENTE"
	// ParticipanteVocal - voting jury member.
	ParticipanteVocal TipoParticipante = "VOCAL"
	// ParticipanteSecretario - voting jury member, keeps the record.
	ParticipanteSecretario TipoParticipante = "SECRETARIO"
	// ParticipanteAccesitario - alternate jury member, non-voting unless promoted.
	ParticipanteAccesitario TipoParticipante = "ACCESITARIO"
)

// EsJurado reports whether the participant type is a jury seat.
func (t TipoParticipante) EsJurado() bool {
	switch t {
	case ParticipantePresidente, ParticipanteVocal, ParticipanteSecretario, ParticipanteAccesitario:
		return true
	default:
		return false
	}
}

// EsVotante reports whether the seat counts toward quorum and majority.
// Accesitarios only vote after an explicit promotion to a voting seat.
func (t TipoParticipante) EsVotante() bool {
	switch t {
	case ParticipantePresidente, ParticipanteVocal, ParticipanteSecretario:
		return true
	default:
		return false
	}
}

// EstadoInvitacion tracks whether an invited author/advisor accepted.
// Jury members are assigned, not invited, and carry no invitation state.
type EstadoInvitacion string

const (
	InvitacionPendiente EstadoInvitacion = "PENDIENTE"
	InvitacionAceptada  EstadoInvitacion = "ACEPTADO"
	InvitacionRechazada EstadoInvitacion = "RECHAZADO"
)

// Participante links a user to a thesis in a specific role.
type Participante struct {
	ID         uuid.UUID
	TesisID    uuid.UUID
	UserID     uuid.UUID
	Nombre     string
	Tipo       TipoParticipante
	Invitacion EstadoInvitacion // empty for jury seats
	Activo     bool             // false once removed or replaced
	CreatedAt  time.Time
}

// TipoDocumento classifies an uploaded document.
type TipoDocumento string

const (
	DocProyecto              TipoDocumento = "PROYECTO"
	DocCartaAceptacionAsesor TipoDocumento = "CARTA_ACEPTACION_ASESOR"
	DocCartaCoasesor         TipoDocumento = "CARTA_ACEPTACION_COASESOR"
	DocVoucherPago           TipoDocumento = "VOUCHER_PAGO"
	DocInformeFinal          TipoDocumento = "INFORME_FINAL_DOC"
	DocSustentatorio         TipoDocumento = "DOCUMENTO_SUSTENTATORIO"
	DocResolucionAprobacion  TipoDocumento = "RESOLUCION_APROBACION"
	DocDictamen              TipoDocumento = "DICTAMEN"
)

// Documento is a versioned file attached to a thesis. The core never reads
// file bytes; StorageRef is an opaque handle issued by the storage
// collaborator.
type Documento struct {
	ID         uuid.UUID
	TesisID    uuid.UUID
	Tipo       TipoDocumento
	Version    int
	Ronda      int // round the document belongs to, 0 for pre-jury documents
	Firmado    bool
	FechaFirma *time.Time
	StorageRef string
	SubidoPor  uuid.UUID
	CreatedAt  time.Time
}

// Sustentacion holds the defense scheduling data recorded with an approving
// final-report dictamen.
type Sustentacion struct {
	Fecha     time.Time
	Hora      string
	Lugar     string
	Modalidad string // PRESENCIAL or VIRTUAL
}

// Completa reports whether every scheduling field is present.
func (s Sustentacion) Completa() bool {
	return !s.Fecha.IsZero() &&
		strings.TrimSpace(s.Hora) != "" &&
		strings.TrimSpace(s.Lugar) != "" &&
		strings.TrimSpace(s.Modalidad) != ""
}

// RegistroHistorial is an immutable, append-only record of a state
// transition. Records are never updated or deleted; they feed the audit
// trail and the UI timeline.
type RegistroHistorial struct {
	ID             uuid.UUID
	TesisID        uuid.UUID
	EstadoAnterior Estado
	EstadoNuevo    Estado
	Accion         Accion
	Comentario     string
	ActorID        uuid.UUID
	ActorRol       Rol
	CreatedAt      time.Time
}

// Tesis is the aggregate root. Estado, Fase, RondaActual, deadlines and the
// sustentación record are written exclusively by the state machine
// (maquina.go); everything else in the codebase treats them as read-only.
type Tesis struct {
	ID                     uuid.UUID
	Codigo                 string
	Titulo                 string
	Resumen                string
	PalabrasClave          []string
	LineaInvestigacion     string
	Estado                 Estado
	Fase                   Fase
	RondaActual            int
	FechaLimiteEvaluacion  *time.Time
	FechaLimiteCorreccion  *time.Time
	VoucherFisicoEntregado bool
	Sustentacion           *Sustentacion
	Participantes          []Participante
	Documentos             []Documento
	Eliminada              bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Domain errors for aggregate construction and participant management.
var (
	ErrTesisNotFound = shared.NewDomainError("tesis", "Find", shared.ErrNotFound,
		"tesis no encontrada")
	ErrCodigoDuplicado = shared.NewDomainError("tesis", "Create", shared.ErrAlreadyExists,
		"ya existe una tesis con ese código")
	ErrTituloRequerido = shared.NewDomainError("tesis", "Validate", shared.ErrValidation,
		"el título es obligatorio")
	ErrAutoresInvalidos = shared.NewDomainError("tesis", "Validate", shared.ErrValidation,
		"la tesis debe tener uno o dos autores, con un autor principal")
	ErrAsesorRequerido = shared.NewDomainError("tesis", "Validate", shared.ErrValidation,
		"la tesis debe tener exactamente un asesor")
)

// NewTesisParams contains the parameters to register a new thesis draft.
type NewTesisParams struct {
	Codigo             string
	Titulo             string
	Resumen            string
	PalabrasClave      []string
	LineaInvestigacion string
	Autores            []Participante // 1-2, exactly one AUTOR_PRINCIPAL
	Asesor             Participante
	Coasesor           *Participante
}

// NewTesis creates a thesis in BORRADOR with validated participants.
// The primary author is recorded as accepted; every other invited participant
// starts PENDIENTE and must accept before the dossier can be submitted.
func NewTesis(params NewTesisParams) (*Tesis, error) {
	if strings.TrimSpace(params.Titulo) == "" {
		return nil, ErrTituloRequerido
	}
	if len(params.Autores) < 1 || len(params.Autores) > 2 {
		return nil, ErrAutoresInvalidos
	}

	principales := 0
	for _, a := range params.Autores {
		switch a.Tipo {
		case ParticipanteAutorPrincipal:
			principales++
		case ParticipanteAutor:
		default:
			return nil, ErrAutoresInvalidos
		}
	}
	if principales != 1 {
		return nil, ErrAutoresInvalidos
	}

	if params.Asesor.Tipo != ParticipanteAsesor {
		return nil, ErrAsesorRequerido
	}
	if params.Coasesor != nil && params.Coasesor.Tipo != ParticipanteCoasesor {
		return nil, ErrAsesorRequerido
	}

	now := time.Now().UTC()
	id := uuid.New()

	t := &Tesis{
		ID:                 id,
		Codigo:             strings.TrimSpace(params.Codigo),
		Titulo:             strings.TrimSpace(params.Titulo),
		Resumen:            params.Resumen,
		PalabrasClave:      params.PalabrasClave,
		LineaInvestigacion: params.LineaInvestigacion,
		Estado:             EstadoBorrador,
		Fase:               FaseProyecto,
		RondaActual:        0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	addParticipante := func(p Participante, invitacion EstadoInvitacion) {
		p.ID = uuid.New()
		p.TesisID = id
		p.Invitacion = invitacion
		p.Activo = true
		p.CreatedAt = now
		t.Participantes = append(t.Participantes, p)
	}

	for _, a := range params.Autores {
		if a.Tipo == ParticipanteAutorPrincipal {
			addParticipante(a, InvitacionAceptada)
		} else {
			addParticipante(a, InvitacionPendiente)
		}
	}
	addParticipante(params.Asesor, InvitacionPendiente)
	if params.Coasesor != nil {
		addParticipante(*params.Coasesor, InvitacionPendiente)
	}

	return t, nil
}

// ParticipantesActivos returns the active participants of the given types.
func (t *Tesis) ParticipantesActivos(tipos ...TipoParticipante) []Participante {
	var out []Participante
	for _, p := range t.Participantes {
		if !p.Activo {
			continue
		}
		for _, tipo := range tipos {
			if p.Tipo == tipo {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Jurados returns the active jury panel.
func (t *Tesis) Jurados() []Participante {
	return t.ParticipantesActivos(ParticipantePresidente, ParticipanteVocal,
		ParticipanteSecretario, ParticipanteAccesitario)
}

// JuradosVotantes returns the active voting jurors (accesitario excluded).
func (t *Tesis) JuradosVotantes() []Participante {
	return t.ParticipantesActivos(ParticipantePresidente, ParticipanteVocal,
		ParticipanteSecretario)
}

// Presidente returns the active presiding juror, or nil.
func (t *Tesis) Presidente() *Participante {
	for i := range t.Participantes {
		p := &t.Participantes[i]
		if p.Activo && p.Tipo == ParticipantePresidente {
			return p
		}
	}
	return nil
}

// EsJuradoActivo reports whether userID holds an active voting jury seat.
func (t *Tesis) EsJuradoActivo(userID uuid.UUID) bool {
	for _, p := range t.JuradosVotantes() {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// EsAutor reports whether userID is an active author of the thesis.
func (t *Tesis) EsAutor(userID uuid.UUID) bool {
	for _, p := range t.ParticipantesActivos(ParticipanteAutorPrincipal, ParticipanteAutor) {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// UltimoDocumento returns the most recent document of the given type, or nil.
// "Most recent" follows version order; requirement checks use the latest
// version unless explicitly round-scoped.
func (t *Tesis) UltimoDocumento(tipo TipoDocumento) *Documento {
	var latest *Documento
	for i := range t.Documentos {
		d := &t.Documentos[i]
		if d.Tipo != tipo {
			continue
		}
		if latest == nil || d.Version > latest.Version {
			latest = d
		}
	}
	return latest
}

// SiguienteVersion returns the next version number for a document type.
func (t *Tesis) SiguienteVersion(tipo TipoDocumento) int {
	if d := t.UltimoDocumento(tipo); d != nil {
		return d.Version + 1
	}
	return 1
}

// AgregarDocumento attaches a document to the aggregate, assigning version
// and round. Permitted only while the dossier is editable for the uploader's
// role; registrar-uploaded resolutions and jury dictámenes bypass the
// editability gate because the machine validates them per transition.
func (t *Tesis) AgregarDocumento(d Documento) *Documento {
	d.ID = uuid.New()
	d.TesisID = t.ID
	d.Version = t.SiguienteVersion(d.Tipo)
	d.Ronda = t.RondaActual
	d.CreatedAt = time.Now().UTC()
	t.Documentos = append(t.Documentos, d)
	return &t.Documentos[len(t.Documentos)-1]
}

// ResponderInvitacion records an invited participant's answer.
func (t *Tesis) ResponderInvitacion(userID uuid.UUID, acepta bool) error {
	for i := range t.Participantes {
		p := &t.Participantes[i]
		if !p.Activo || p.UserID != userID || p.Tipo.EsJurado() {
			continue
		}
		if p.Invitacion != InvitacionPendiente {
			return shared.NewDomainError("tesis", "ResponderInvitacion",
				shared.ErrPreconditionFailed, "la invitación ya fue respondida")
		}
		if acepta {
			p.Invitacion = InvitacionAceptada
		} else {
			p.Invitacion = InvitacionRechazada
		}
		t.UpdatedAt = time.Now().UTC()
		return nil
	}
	return shared.NewDomainError("tesis", "ResponderInvitacion",
		shared.ErrNotFound, "el usuario no tiene una invitación en esta tesis")
}

// Eliminar marks the thesis as soft-deleted. The estado is untouched; a
// deleted thesis simply stops accepting workflow actions until restored.
func (t *Tesis) Eliminar() {
	t.Eliminada = true
	t.UpdatedAt = time.Now().UTC()
}

// Restaurar reverses a soft delete.
func (t *Tesis) Restaurar() {
	t.Eliminada = false
	t.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the aggregate.
func (t *Tesis) Clone() *Tesis {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Participantes = append([]Participante(nil), t.Participantes...)
	clone.Documentos = append([]Documento(nil), t.Documentos...)
	clone.PalabrasClave = append([]string(nil), t.PalabrasClave...)
	if t.Sustentacion != nil {
		s := *t.Sustentacion
		clone.Sustentacion = &s
	}
	if t.FechaLimiteEvaluacion != nil {
		d := *t.FechaLimiteEvaluacion
		clone.FechaLimiteEvaluacion = &d
	}
	if t.FechaLimiteCorreccion != nil {
		d := *t.FechaLimiteCorreccion
		clone.FechaLimiteCorreccion = &d
	}
	return &clone
}
