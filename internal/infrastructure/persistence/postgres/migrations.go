package postgres

// GetMigrations returns the embedded schema, applied in order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_tesis", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_participantes_documentos", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_evaluaciones_historial", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

const migration001Up = `
CREATE TABLE tesis (
    id UUID PRIMARY KEY,
    codigo TEXT NOT NULL UNIQUE,
    titulo TEXT NOT NULL,
    resumen TEXT NOT NULL DEFAULT '',
    palabras_clave TEXT[] NOT NULL DEFAULT '{}',
    linea_investigacion TEXT NOT NULL DEFAULT '',

    estado TEXT NOT NULL DEFAULT 'BORRADOR'
        CHECK (estado IN (
            'BORRADOR', 'EN_REVISION', 'OBSERVADA', 'ASIGNANDO_JURADOS',
            'EN_EVALUACION_JURADO', 'OBSERVADA_JURADO', 'PROYECTO_APROBADO',
            'INFORME_FINAL', 'EN_EVALUACION_INFORME', 'OBSERVADA_INFORME',
            'APROBADA', 'EN_SUSTENTACION', 'SUSTENTADA', 'ARCHIVADA', 'RECHAZADA'
        )),
    fase TEXT NOT NULL DEFAULT 'PROYECTO'
        CHECK (fase IN ('PROYECTO', 'INFORME_FINAL')),
    ronda_actual INTEGER NOT NULL DEFAULT 0 CHECK (ronda_actual >= 0),

    fecha_limite_evaluacion TIMESTAMPTZ,
    fecha_limite_correccion TIMESTAMPTZ,
    voucher_fisico_entregado BOOLEAN NOT NULL DEFAULT FALSE,

    sustentacion_fecha TIMESTAMPTZ,
    sustentacion_hora TEXT,
    sustentacion_lugar TEXT,
    sustentacion_modalidad TEXT,

    eliminada BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_tesis_estado ON tesis(estado) WHERE NOT eliminada;
CREATE INDEX idx_tesis_updated ON tesis(updated_at DESC);
`

const migration001Down = `DROP TABLE IF EXISTS tesis;`

const migration002Up = `
CREATE TABLE participantes (
    id UUID PRIMARY KEY,
    tesis_id UUID NOT NULL REFERENCES tesis(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    nombre TEXT NOT NULL DEFAULT '',
    tipo TEXT NOT NULL
        CHECK (tipo IN (
            'AUTOR_PRINCIPAL', 'AUTOR', 'ASESOR', 'COASESOR',
            'PRESIDENTE', 'VOCAL', 'SECRETARIO', 'ACCESITARIO'
        )),
    invitacion TEXT NOT NULL DEFAULT ''
        CHECK (invitacion IN ('', 'PENDIENTE', 'ACEPTADO', 'RECHAZADO')),
    activo BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_participantes_tesis ON participantes(tesis_id);
CREATE INDEX idx_participantes_user ON participantes(user_id);

CREATE TABLE documentos (
    id UUID PRIMARY KEY,
    tesis_id UUID NOT NULL REFERENCES tesis(id) ON DELETE CASCADE,
    tipo TEXT NOT NULL,
    version INTEGER NOT NULL CHECK (version >= 1),
    ronda INTEGER NOT NULL DEFAULT 0,
    firmado BOOLEAN NOT NULL DEFAULT FALSE,
    fecha_firma TIMESTAMPTZ,
    storage_ref TEXT NOT NULL DEFAULT '',
    subido_por UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE (tesis_id, tipo, version)
);

CREATE INDEX idx_documentos_tesis ON documentos(tesis_id);
`

const migration002Down = `
DROP TABLE IF EXISTS documentos;
DROP TABLE IF EXISTS participantes;
`

const migration003Up = `
CREATE TABLE evaluaciones (
    id UUID PRIMARY KEY,
    tesis_id UUID NOT NULL REFERENCES tesis(id) ON DELETE CASCADE,
    jurado_user_id UUID NOT NULL,
    ronda INTEGER NOT NULL CHECK (ronda >= 1),
    fase TEXT NOT NULL CHECK (fase IN ('PROYECTO', 'INFORME_FINAL')),
    resultado TEXT NOT NULL CHECK (resultado IN ('APROBADO', 'OBSERVADO')),
    observaciones TEXT NOT NULL DEFAULT '',
    archivo_ref TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    -- One verdict per juror per round, enforced at the storage layer too.
    UNIQUE (tesis_id, jurado_user_id, ronda)
);

CREATE INDEX idx_evaluaciones_tesis_ronda ON evaluaciones(tesis_id, ronda);

CREATE TABLE historial (
    id UUID PRIMARY KEY,
    tesis_id UUID NOT NULL REFERENCES tesis(id) ON DELETE CASCADE,
    estado_anterior TEXT NOT NULL,
    estado_nuevo TEXT NOT NULL,
    accion TEXT NOT NULL,
    comentario TEXT NOT NULL DEFAULT '',
    actor_id UUID NOT NULL,
    actor_rol TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_historial_tesis ON historial(tesis_id, created_at);

-- The history is append-only: revoke row mutation from the application role.
CREATE RULE historial_no_update AS ON UPDATE TO historial DO INSTEAD NOTHING;
CREATE RULE historial_no_delete AS ON DELETE TO historial DO INSTEAD NOTHING;
`

const migration003Down = `
DROP TABLE IF EXISTS historial;
DROP TABLE IF EXISTS evaluaciones;
`
