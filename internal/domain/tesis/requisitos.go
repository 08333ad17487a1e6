package tesis

// RequisitoDocumento describes one mandatory document that is missing from
// the dossier.
type RequisitoDocumento struct {
	Tipo        TipoDocumento
	Descripcion string
}

// ResultadoRequisitos is the outcome of a completeness check.
type ResultadoRequisitos struct {
	Completa  bool
	Faltantes []RequisitoDocumento
}

// descripcionesRequisito maps a document type to the user-facing description
// shown when the document is missing.
var descripcionesRequisito = map[TipoDocumento]string{
	DocProyecto:              "Proyecto de tesis en PDF",
	DocCartaAceptacionAsesor: "Carta de aceptación del asesor",
	DocCartaCoasesor:         "Carta de aceptación del coasesor",
	DocVoucherPago:           "Voucher de pago",
	DocInformeFinal:          "Informe final en PDF",
}

// RequisitosParaEnvio returns the mandatory document set to submit the
// dossier for review. The set depends on the participant composition: the
// co-advisor letter is only required when a co-advisor is assigned.
func RequisitosParaEnvio(t *Tesis) []TipoDocumento {
	req := []TipoDocumento{
		DocProyecto,
		DocCartaAceptacionAsesor,
		DocVoucherPago,
	}
	if len(t.ParticipantesActivos(ParticipanteCoasesor)) > 0 {
		req = append(req, DocCartaCoasesor)
	}
	return req
}

// VerificarRequisitos checks whether every mandatory document for the given
// requirement set is present, using the latest version of each type. It never
// mutates the aggregate.
func VerificarRequisitos(t *Tesis, requeridos []TipoDocumento) ResultadoRequisitos {
	res := ResultadoRequisitos{Completa: true}
	for _, tipo := range requeridos {
		if t.UltimoDocumento(tipo) == nil {
			res.Completa = false
			res.Faltantes = append(res.Faltantes, RequisitoDocumento{
				Tipo:        tipo,
				Descripcion: descripcionesRequisito[tipo],
			})
		}
	}
	return res
}

// DossierCompleto is the completeness check the state machine runs before
// accepting ENVIAR_REVISION.
func DossierCompleto(t *Tesis) ResultadoRequisitos {
	return VerificarRequisitos(t, RequisitosParaEnvio(t))
}
