package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tesis-hub/tesis-tracker/internal/application/command"
	"github.com/tesis-hub/tesis-tracker/internal/application/query"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

type participanteRequest struct {
	UserID string `json:"user_id"`
	Nombre string `json:"nombre"`
}

type crearTesisRequest struct {
	Codigo             string               `json:"codigo"`
	Titulo             string               `json:"titulo"`
	Resumen            string               `json:"resumen"`
	PalabrasClave      []string             `json:"palabras_clave"`
	LineaInvestigacion string               `json:"linea_investigacion"`
	AutorPrincipal     participanteRequest  `json:"autor_principal"`
	Coautor            *participanteRequest `json:"coautor,omitempty"`
	Asesor             participanteRequest  `json:"asesor"`
	Coasesor           *participanteRequest `json:"coasesor,omitempty"`
}

type actorRequest struct {
	ActorID    string `json:"actor_id"`
	Rol        string `json:"rol"`
	Comentario string `json:"comentario,omitempty"`
}

type revisionRequest struct {
	actorRequest
	Veredicto string `json:"veredicto"`
}

type invitacionRequest struct {
	UserID string `json:"user_id"`
	Acepta bool   `json:"acepta"`
}

type juradoRequest struct {
	ActorID      string `json:"actor_id"`
	JuradoUserID string `json:"jurado_user_id"`
	Nombre       string `json:"nombre"`
	Cargo        string `json:"cargo"`
}

type promoverRequest struct {
	ActorID string `json:"actor_id"`
	Cargo   string `json:"cargo"`
}

type evaluacionRequest struct {
	JuradoUserID  string `json:"jurado_user_id"`
	Resultado     string `json:"resultado"`
	Observaciones string `json:"observaciones,omitempty"`
	ArchivoRef    string `json:"archivo_ref,omitempty"`
}

type sustentacionRequest struct {
	Fecha     time.Time `json:"fecha"`
	Hora      string    `json:"hora"`
	Lugar     string    `json:"lugar"`
	Modalidad string    `json:"modalidad"`
}

type dictamenRequest struct {
	ActorID      string               `json:"actor_id"`
	ArchivoRef   string               `json:"archivo_ref"`
	FechaFirma   time.Time            `json:"fecha_firma"`
	Sustentacion *sustentacionRequest `json:"sustentacion,omitempty"`
	Comentario   string               `json:"comentario,omitempty"`
}

type archivoRequest struct {
	ActorID    string `json:"actor_id"`
	Rol        string `json:"rol,omitempty"`
	ArchivoRef string `json:"archivo_ref"`
	Comentario string `json:"comentario,omitempty"`
}

type programarRequest struct {
	actorRequest
	sustentacionRequest
}

type cierreRequest struct {
	actorRequest
	Cierre string `json:"cierre"`
}

type eliminarRequest struct {
	ActorID string `json:"actor_id"`
}

type transicionResponse struct {
	TesisID        string `json:"tesis_id"`
	EstadoAnterior string `json:"estado_anterior"`
	EstadoNuevo    string `json:"estado_nuevo"`
	Ronda          int    `json:"ronda"`
}

func newTransicionResponse(res *command.ResultadoTransicion) transicionResponse {
	return transicionResponse{
		TesisID:        res.TesisID.String(),
		EstadoAnterior: string(res.EstadoAnterior),
		EstadoNuevo:    string(res.EstadoNuevo),
		Ronda:          res.Ronda,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body",
			"el cuerpo de la petición no es JSON válido")
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_id",
			"el identificador no es un UUID válido")
		return uuid.Nil, false
	}
	return id, true
}

func bodyUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_id",
			field+" no es un UUID válido")
		return uuid.Nil, false
	}
	return id, true
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetExpediente(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dto, err := s.deps.GetExpediente.Handle(r.Context(), query.GetExpedienteQuery{
		TesisID:           id,
		IncluirEliminadas: getQueryParamBool(r, "incluir_eliminadas"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleGetExpedientePorCodigo(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetExpediente.Handle(r.Context(), query.GetExpedienteQuery{
		Codigo:            mux.Vars(r)["codigo"],
		IncluirEliminadas: getQueryParamBool(r, "incluir_eliminadas"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleListarTesis(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListarTesis.Handle(r.Context(), query.ListarTesisQuery{
		Estado:            tesis.Estado(r.URL.Query().Get("estado")),
		IncluirEliminadas: getQueryParamBool(r, "incluir_eliminadas"),
		Offset:            getQueryParamInt(r, "offset", 0),
		Limit:             getQueryParamInt(r, "limit", 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCrearTesis(w http.ResponseWriter, r *http.Request) {
	var req crearTesisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	autor, ok := bodyUUID(w, req.AutorPrincipal.UserID, "autor_principal.user_id")
	if !ok {
		return
	}
	asesor, ok := bodyUUID(w, req.Asesor.UserID, "asesor.user_id")
	if !ok {
		return
	}

	cmd := command.CrearTesisCommand{
		Codigo:             req.Codigo,
		Titulo:             req.Titulo,
		Resumen:            req.Resumen,
		PalabrasClave:      req.PalabrasClave,
		LineaInvestigacion: req.LineaInvestigacion,
		AutorPrincipal:     command.ParticipanteInput{UserID: autor, Nombre: req.AutorPrincipal.Nombre},
		Asesor:             command.ParticipanteInput{UserID: asesor, Nombre: req.Asesor.Nombre},
	}
	if req.Coautor != nil {
		id, ok := bodyUUID(w, req.Coautor.UserID, "coautor.user_id")
		if !ok {
			return
		}
		cmd.Coautor = &command.ParticipanteInput{UserID: id, Nombre: req.Coautor.Nombre}
	}
	if req.Coasesor != nil {
		id, ok := bodyUUID(w, req.Coasesor.UserID, "coasesor.user_id")
		if !ok {
			return
		}
		cmd.Coasesor = &command.ParticipanteInput{UserID: id, Nombre: req.Coasesor.Nombre}
	}

	res, err := s.deps.CrearTesis.Handle(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"tesis_id": res.TesisID.String(),
		"codigo":   res.Codigo,
		"estado":   string(res.Estado),
	})
}

func (s *Server) handleResponderInvitacion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req invitacionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, ok := bodyUUID(w, req.UserID, "user_id")
	if !ok {
		return
	}
	if err := s.deps.ResponderInvitacion.Handle(r.Context(), command.ResponderInvitacionCommand{
		TesisID: id,
		UserID:  userID,
		Acepta:  req.Acepta,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"acepta": req.Acepta})
}

// ══════════════════════════════════════════════════════════════════════════════
// INTAKE REVIEW
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEnviarRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req actorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.EnviarRevision.Handle(r.Context(), command.EnviarRevisionCommand{
		TesisID: id,
		ActorID: actorID,
		Rol:     tesis.Rol(req.Rol),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

func (s *Server) handleRevisarDocumentos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req revisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.RevisarDocumentos.Handle(r.Context(), command.RevisarDocumentosCommand{
		TesisID:    id,
		ActorID:    actorID,
		Rol:        tesis.Rol(req.Rol),
		Veredicto:  command.VeredictoRevision(req.Veredicto),
		Comentario: req.Comentario,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

func (s *Server) handleConfirmarVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req actorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.ConfirmarVoucher.Handle(r.Context(), command.ConfirmarVoucherCommand{
		TesisID: id,
		ActorID: actorID,
		Rol:     tesis.Rol(req.Rol),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

// ══════════════════════════════════════════════════════════════════════════════
// JURY MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleAsignarJurado(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req juradoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	juradoID, ok := bodyUUID(w, req.JuradoUserID, "jurado_user_id")
	if !ok {
		return
	}
	if err := s.deps.AsignarJurado.Handle(r.Context(), command.AsignarJuradoCommand{
		TesisID:      id,
		ActorID:      actorID,
		JuradoUserID: juradoID,
		Nombre:       req.Nombre,
		Cargo:        tesis.TipoParticipante(req.Cargo),
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cargo": req.Cargo})
}

func (s *Server) handleConfirmarJurados(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req actorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.ConfirmarJurados.Handle(r.Context(), command.ConfirmarJuradosCommand{
		TesisID: id,
		ActorID: actorID,
		Rol:     tesis.Rol(req.Rol),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

func (s *Server) handleRetirarJurado(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	juradoID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	actorID, err := uuid.Parse(r.URL.Query().Get("actor_id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_id", "actor_id no es un UUID válido")
		return
	}
	if err := s.deps.RetirarJurado.Handle(r.Context(), command.RetirarJuradoCommand{
		TesisID:      id,
		ActorID:      actorID,
		JuradoUserID: juradoID,
	}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePromoverAccesitario(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req promoverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	if err := s.deps.PromoverAccesitario.Handle(r.Context(), command.PromoverAccesitarioCommand{
		TesisID: id,
		ActorID: actorID,
		Cargo:   tesis.TipoParticipante(req.Cargo),
	}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cargo": req.Cargo})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION ROUNDS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRegistrarEvaluacion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req evaluacionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	juradoID, ok := bodyUUID(w, req.JuradoUserID, "jurado_user_id")
	if !ok {
		return
	}
	res, err := s.deps.RegistrarEvaluacion.Handle(r.Context(), command.RegistrarEvaluacionCommand{
		TesisID:       id,
		JuradoUserID:  juradoID,
		Resultado:     tesis.Resultado(req.Resultado),
		Observaciones: req.Observaciones,
		ArchivoRef:    req.ArchivoRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"evaluacion_id":  res.EvaluacionID.String(),
		"ronda":          res.Ronda,
		"ronda_completa": res.Progreso.Completa,
	})
}

func (s *Server) handleSubirDictamen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dictamenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	cmd := command.SubirDictamenCommand{
		TesisID:    id,
		ActorID:    actorID,
		ArchivoRef: req.ArchivoRef,
		FechaFirma: req.FechaFirma,
		Comentario: req.Comentario,
	}
	if req.Sustentacion != nil {
		cmd.Sustentacion = &command.SustentacionInput{
			Fecha:     req.Sustentacion.Fecha,
			Hora:      req.Sustentacion.Hora,
			Lugar:     req.Sustentacion.Lugar,
			Modalidad: req.Sustentacion.Modalidad,
		}
	}
	res, err := s.deps.SubirDictamen.Handle(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transicion":     newTransicionResponse(&res.ResultadoTransicion),
		"ronda_resuelta": res.RondaResuelta,
		"mayoria":        string(res.Mayoria),
	})
}

func (s *Server) handleSubsanarObservaciones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req archivoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.SubsanarObservaciones.Handle(r.Context(), command.SubsanarObservacionesCommand{
		TesisID:    id,
		ActorID:    actorID,
		ArchivoRef: req.ArchivoRef,
		Comentario: req.Comentario,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

// ══════════════════════════════════════════════════════════════════════════════
// FINAL REPORT AND DEFENSE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleSubirResolucion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req archivoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.SubirResolucion.Handle(r.Context(), command.SubirResolucionCommand{
		TesisID:    id,
		ActorID:    actorID,
		Rol:        tesis.Rol(req.Rol),
		ArchivoRef: req.ArchivoRef,
		Comentario: req.Comentario,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

func (s *Server) handlePresentarInforme(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req archivoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.PresentarInforme.Handle(r.Context(), command.PresentarInformeCommand{
		TesisID:    id,
		ActorID:    actorID,
		ArchivoRef: req.ArchivoRef,
		Comentario: req.Comentario,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

func (s *Server) handleProgramarSustentacion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req programarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.ProgramarSustentacion.Handle(r.Context(), command.ProgramarSustentacionCommand{
		TesisID:   id,
		ActorID:   actorID,
		Rol:       tesis.Rol(req.Rol),
		Fecha:     req.Fecha,
		Hora:      req.Hora,
		Lugar:     req.Lugar,
		Modalidad: req.Modalidad,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

func (s *Server) handleCerrarSustentacion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req cierreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	res, err := s.deps.CerrarSustentacion.Handle(r.Context(), command.CerrarSustentacionCommand{
		TesisID:    id,
		ActorID:    actorID,
		Rol:        tesis.Rol(req.Rol),
		Cierre:     command.CierreSustentacion(req.Cierre),
		Comentario: req.Comentario,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransicionResponse(res))
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETION
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEliminarTesis(w http.ResponseWriter, r *http.Request) {
	s.flipEliminada(w, r, false)
}

func (s *Server) handleRestaurarTesis(w http.ResponseWriter, r *http.Request) {
	s.flipEliminada(w, r, true)
}

func (s *Server) flipEliminada(w http.ResponseWriter, r *http.Request, restaurar bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req eliminarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actorID, ok := bodyUUID(w, req.ActorID, "actor_id")
	if !ok {
		return
	}
	if err := s.deps.EliminarTesis.Handle(r.Context(), command.EliminarTesisCommand{
		TesisID:   id,
		ActorID:   actorID,
		Restaurar: restaurar,
	}); err != nil {
		writeError(w, err)
		return
	}
	if restaurar {
		writeJSON(w, http.StatusOK, map[string]bool{"eliminada": false})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
