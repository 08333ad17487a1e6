package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tesis-hub/tesis-tracker/internal/application/command"
	"github.com/tesis-hub/tesis-tracker/internal/domain/jurado"
	"github.com/tesis-hub/tesis-tracker/internal/domain/tesis"
)

// TesisStore is the storage backend of the workflow. It implements the
// transactional unit of work used by the command layer and the read-side
// repositories used by queries.
type TesisStore struct {
	conn *Connection
}

// NewTesisStore creates the store.
func NewTesisStore(conn *Connection) *TesisStore {
	return &TesisStore{conn: conn}
}

// HistorialStore exposes the append-only transition history.
type HistorialStore struct {
	conn *Connection
}

// NewHistorialStore creates the history store.
func NewHistorialStore(conn *Connection) *HistorialStore {
	return &HistorialStore{conn: conn}
}

// EvaluacionStore exposes jury verdicts outside workflow transactions.
type EvaluacionStore struct {
	conn *Connection
}

// NewEvaluacionStore creates the evaluation store.
func NewEvaluacionStore(conn *Connection) *EvaluacionStore {
	return &EvaluacionStore{conn: conn}
}

// Interface checks.
var (
	_ command.UnitOfWork        = (*TesisStore)(nil)
	_ tesis.Repository          = (*TesisStore)(nil)
	_ tesis.HistorialRepository = (*HistorialStore)(nil)
	_ jurado.Repository         = (*EvaluacionStore)(nil)
)

// ─────────────────────────────────────────────────────────────────────────────
// Unit of work
// ─────────────────────────────────────────────────────────────────────────────

// CrearTesis inserts the aggregate and its creation record atomically.
func (s *TesisStore) CrearTesis(ctx context.Context, t *tesis.Tesis, reg *tesis.RegistroHistorial) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if err := insertTesis(ctx, tx, t); err != nil {
			if IsUniqueViolation(err) {
				return tesis.ErrCodigoDuplicado
			}
			return fmt.Errorf("postgres: insert tesis: %w", err)
		}
		if err := upsertParticipantes(ctx, tx, t); err != nil {
			return fmt.Errorf("postgres: insert participantes: %w", err)
		}
		if err := insertDocumentos(ctx, tx, t); err != nil {
			return fmt.Errorf("postgres: insert documentos: %w", err)
		}
		if reg != nil {
			if err := insertHistorial(ctx, tx, reg); err != nil {
				return fmt.Errorf("postgres: insert historial: %w", err)
			}
		}
		return nil
	})
}

// ConTesis locks the thesis row for the duration of the transaction and runs
// fn against the loaded aggregate.
func (s *TesisStore) ConTesis(ctx context.Context, tesisID uuid.UUID,
	fn func(ctx context.Context, sc command.Scope) error) error {

	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		t, err := loadTesis(ctx, tx, tesisID, true)
		if err != nil {
			return err
		}
		return fn(ctx, &txScope{tx: tx, tesis: t})
	})
}

// txScope implements command.Scope over an open transaction.
type txScope struct {
	tx    pgx.Tx
	tesis *tesis.Tesis
}

func (s *txScope) Tesis() *tesis.Tesis { return s.tesis }

func (s *txScope) Guardar(ctx context.Context) error {
	if err := updateTesis(ctx, s.tx, s.tesis); err != nil {
		return fmt.Errorf("postgres: update tesis: %w", err)
	}
	if err := upsertParticipantes(ctx, s.tx, s.tesis); err != nil {
		return fmt.Errorf("postgres: upsert participantes: %w", err)
	}
	if err := insertDocumentos(ctx, s.tx, s.tesis); err != nil {
		return fmt.Errorf("postgres: insert documentos: %w", err)
	}
	return nil
}

func (s *txScope) AgregarHistorial(ctx context.Context, reg *tesis.RegistroHistorial) error {
	if err := insertHistorial(ctx, s.tx, reg); err != nil {
		return fmt.Errorf("postgres: insert historial: %w", err)
	}
	return nil
}

func (s *txScope) AgregarEvaluacion(ctx context.Context, e *jurado.Evaluacion) error {
	err := insertEvaluacion(ctx, s.tx, e)
	if IsUniqueViolation(err) {
		return jurado.ErrEvaluacionDuplicada
	}
	if err != nil {
		return fmt.Errorf("postgres: insert evaluacion: %w", err)
	}
	return nil
}

func (s *txScope) EvaluacionesDeRonda(ctx context.Context, ronda int) ([]jurado.Evaluacion, error) {
	return listEvaluaciones(ctx, s.tx, s.tesis.ID, &ronda)
}

// ─────────────────────────────────────────────────────────────────────────────
// tesis.Repository (read side)
// ─────────────────────────────────────────────────────────────────────────────

// Create persists a new aggregate without a history record.
func (s *TesisStore) Create(ctx context.Context, t *tesis.Tesis) error {
	return s.CrearTesis(ctx, t, nil)
}

// GetByID loads the full aggregate.
func (s *TesisStore) GetByID(ctx context.Context, id uuid.UUID) (*tesis.Tesis, error) {
	return loadTesis(ctx, s.conn.Pool(), id, false)
}

// GetByCodigo loads the aggregate by institutional code.
func (s *TesisStore) GetByCodigo(ctx context.Context, codigo string) (*tesis.Tesis, error) {
	var id uuid.UUID
	err := s.conn.Pool().QueryRow(ctx,
		`SELECT id FROM tesis WHERE codigo = $1`, codigo).Scan(&id)
	if IsNoRows(err) {
		return nil, tesis.ErrTesisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get by codigo: %w", err)
	}
	return s.GetByID(ctx, id)
}

// List returns summaries matching the options, most recently updated first.
// Participants and documents are not loaded for listings.
func (s *TesisStore) List(ctx context.Context, opts tesis.ListOptions) ([]*tesis.Tesis, error) {
	query := `
		SELECT id, codigo, titulo, resumen, palabras_clave, linea_investigacion,
		       estado, fase, ronda_actual,
		       fecha_limite_evaluacion, fecha_limite_correccion,
		       voucher_fisico_entregado, eliminada, created_at, updated_at
		FROM tesis
		WHERE ($1 = '' OR estado = $1)
		  AND ($2 OR NOT eliminada)
		ORDER BY updated_at DESC
		OFFSET $3 LIMIT $4`

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Pool().Query(ctx, query,
		string(opts.Estado), opts.IncluirEliminadas, opts.Offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tesis: %w", err)
	}
	defer rows.Close()

	var out []*tesis.Tesis
	for rows.Next() {
		t, err := scanTesisRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the number of matching theses.
func (s *TesisStore) Count(ctx context.Context, opts tesis.ListOptions) (int, error) {
	var n int
	err := s.conn.Pool().QueryRow(ctx, `
		SELECT COUNT(*) FROM tesis
		WHERE ($1 = '' OR estado = $1)
		  AND ($2 OR NOT eliminada)`,
		string(opts.Estado), opts.IncluirEliminadas).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count tesis: %w", err)
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// tesis.HistorialRepository
// ─────────────────────────────────────────────────────────────────────────────

// Append stores one transition record.
func (s *HistorialStore) Append(ctx context.Context, r *tesis.RegistroHistorial) error {
	return insertHistorial(ctx, s.conn.Pool(), r)
}

// ListByTesis returns the full transition history, oldest first.
func (s *HistorialStore) ListByTesis(ctx context.Context, tesisID uuid.UUID) ([]tesis.RegistroHistorial, error) {
	rows, err := s.conn.Pool().Query(ctx, `
		SELECT id, tesis_id, estado_anterior, estado_nuevo, accion,
		       comentario, actor_id, actor_rol, created_at
		FROM historial WHERE tesis_id = $1 ORDER BY created_at, id`, tesisID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list historial: %w", err)
	}
	defer rows.Close()

	var out []tesis.RegistroHistorial
	for rows.Next() {
		var r tesis.RegistroHistorial
		var estadoAnterior, estadoNuevo, accion, rol string
		if err := rows.Scan(&r.ID, &r.TesisID, &estadoAnterior, &estadoNuevo,
			&accion, &r.Comentario, &r.ActorID, &rol, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan historial: %w", err)
		}
		r.EstadoAnterior = tesis.Estado(estadoAnterior)
		r.EstadoNuevo = tesis.Estado(estadoNuevo)
		r.Accion = tesis.Accion(accion)
		r.ActorRol = tesis.Rol(rol)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// jurado.Repository
// ─────────────────────────────────────────────────────────────────────────────

// Create persists a verdict outside a workflow transaction.
func (s *EvaluacionStore) Create(ctx context.Context, e *jurado.Evaluacion) error {
	err := insertEvaluacion(ctx, s.conn.Pool(), e)
	if IsUniqueViolation(err) {
		return jurado.ErrEvaluacionDuplicada
	}
	return err
}

// ListByTesis returns every verdict of a thesis, oldest first.
func (s *EvaluacionStore) ListByTesis(ctx context.Context, tesisID uuid.UUID) ([]jurado.Evaluacion, error) {
	return listEvaluaciones(ctx, s.conn.Pool(), tesisID, nil)
}

// ListByRonda returns the verdicts of one round.
func (s *EvaluacionStore) ListByRonda(ctx context.Context, tesisID uuid.UUID, ronda int) ([]jurado.Evaluacion, error) {
	return listEvaluaciones(ctx, s.conn.Pool(), tesisID, &ronda)
}

// ─────────────────────────────────────────────────────────────────────────────
// Row helpers
// ─────────────────────────────────────────────────────────────────────────────

func loadTesis(ctx context.Context, q Querier, id uuid.UUID, forUpdate bool) (*tesis.Tesis, error) {
	query := `
		SELECT id, codigo, titulo, resumen, palabras_clave, linea_investigacion,
		       estado, fase, ronda_actual,
		       fecha_limite_evaluacion, fecha_limite_correccion,
		       voucher_fisico_entregado, eliminada, created_at, updated_at,
		       sustentacion_fecha, sustentacion_hora, sustentacion_lugar, sustentacion_modalidad
		FROM tesis WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	row := q.QueryRow(ctx, query, id)
	t := &tesis.Tesis{}
	var estado, fase string
	var sustFecha *time.Time
	var sustHora, sustLugar, sustModalidad *string

	err := row.Scan(&t.ID, &t.Codigo, &t.Titulo, &t.Resumen, &t.PalabrasClave,
		&t.LineaInvestigacion, &estado, &fase, &t.RondaActual,
		&t.FechaLimiteEvaluacion, &t.FechaLimiteCorreccion,
		&t.VoucherFisicoEntregado, &t.Eliminada, &t.CreatedAt, &t.UpdatedAt,
		&sustFecha, &sustHora, &sustLugar, &sustModalidad)
	if IsNoRows(err) {
		return nil, tesis.ErrTesisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load tesis: %w", err)
	}
	t.Estado = tesis.Estado(estado)
	t.Fase = tesis.Fase(fase)
	if sustFecha != nil {
		t.Sustentacion = &tesis.Sustentacion{Fecha: *sustFecha}
		if sustHora != nil {
			t.Sustentacion.Hora = *sustHora
		}
		if sustLugar != nil {
			t.Sustentacion.Lugar = *sustLugar
		}
		if sustModalidad != nil {
			t.Sustentacion.Modalidad = *sustModalidad
		}
	}

	if err := loadParticipantes(ctx, q, t); err != nil {
		return nil, err
	}
	if err := loadDocumentos(ctx, q, t); err != nil {
		return nil, err
	}
	return t, nil
}

// scanTesisRow scans a listing row (no sustentación, no children).
func scanTesisRow(rows pgx.Rows) (*tesis.Tesis, error) {
	t := &tesis.Tesis{}
	var estado, fase string
	err := rows.Scan(&t.ID, &t.Codigo, &t.Titulo, &t.Resumen, &t.PalabrasClave,
		&t.LineaInvestigacion, &estado, &fase, &t.RondaActual,
		&t.FechaLimiteEvaluacion, &t.FechaLimiteCorreccion,
		&t.VoucherFisicoEntregado, &t.Eliminada, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan tesis: %w", err)
	}
	t.Estado = tesis.Estado(estado)
	t.Fase = tesis.Fase(fase)
	return t, nil
}

func loadParticipantes(ctx context.Context, q Querier, t *tesis.Tesis) error {
	rows, err := q.Query(ctx, `
		SELECT id, user_id, nombre, tipo, invitacion, activo, created_at
		FROM participantes WHERE tesis_id = $1 ORDER BY created_at, id`, t.ID)
	if err != nil {
		return fmt.Errorf("postgres: load participantes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p tesis.Participante
		var tipo, invitacion string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Nombre, &tipo, &invitacion,
			&p.Activo, &p.CreatedAt); err != nil {
			return fmt.Errorf("postgres: scan participante: %w", err)
		}
		p.TesisID = t.ID
		p.Tipo = tesis.TipoParticipante(tipo)
		p.Invitacion = tesis.EstadoInvitacion(invitacion)
		t.Participantes = append(t.Participantes, p)
	}
	return rows.Err()
}

func loadDocumentos(ctx context.Context, q Querier, t *tesis.Tesis) error {
	rows, err := q.Query(ctx, `
		SELECT id, tipo, version, ronda, firmado, fecha_firma, storage_ref,
		       COALESCE(subido_por, '00000000-0000-0000-0000-000000000000'), created_at
		FROM documentos WHERE tesis_id = $1 ORDER BY created_at, id`, t.ID)
	if err != nil {
		return fmt.Errorf("postgres: load documentos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d tesis.Documento
		var tipo string
		if err := rows.Scan(&d.ID, &tipo, &d.Version, &d.Ronda, &d.Firmado,
			&d.FechaFirma, &d.StorageRef, &d.SubidoPor, &d.CreatedAt); err != nil {
			return fmt.Errorf("postgres: scan documento: %w", err)
		}
		d.TesisID = t.ID
		d.Tipo = tesis.TipoDocumento(tipo)
		t.Documentos = append(t.Documentos, d)
	}
	return rows.Err()
}

func insertTesis(ctx context.Context, q Querier, t *tesis.Tesis) error {
	_, err := q.Exec(ctx, `
		INSERT INTO tesis (
			id, codigo, titulo, resumen, palabras_clave, linea_investigacion,
			estado, fase, ronda_actual, fecha_limite_evaluacion,
			fecha_limite_correccion, voucher_fisico_entregado, eliminada,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		t.ID, t.Codigo, t.Titulo, t.Resumen, t.PalabrasClave, t.LineaInvestigacion,
		string(t.Estado), string(t.Fase), t.RondaActual,
		t.FechaLimiteEvaluacion, t.FechaLimiteCorreccion,
		t.VoucherFisicoEntregado, t.Eliminada, t.CreatedAt, t.UpdatedAt)
	return err
}

func updateTesis(ctx context.Context, q Querier, t *tesis.Tesis) error {
	var sustFecha *time.Time
	var sustHora, sustLugar, sustModalidad *string
	if t.Sustentacion != nil {
		sustFecha = &t.Sustentacion.Fecha
		sustHora = &t.Sustentacion.Hora
		sustLugar = &t.Sustentacion.Lugar
		sustModalidad = &t.Sustentacion.Modalidad
	}

	_, err := q.Exec(ctx, `
		UPDATE tesis SET
			titulo = $2, resumen = $3, palabras_clave = $4, linea_investigacion = $5,
			estado = $6, fase = $7, ronda_actual = $8,
			fecha_limite_evaluacion = $9, fecha_limite_correccion = $10,
			voucher_fisico_entregado = $11, eliminada = $12, updated_at = $13,
			sustentacion_fecha = $14, sustentacion_hora = $15,
			sustentacion_lugar = $16, sustentacion_modalidad = $17
		WHERE id = $1`,
		t.ID, t.Titulo, t.Resumen, t.PalabrasClave, t.LineaInvestigacion,
		string(t.Estado), string(t.Fase), t.RondaActual,
		t.FechaLimiteEvaluacion, t.FechaLimiteCorreccion,
		t.VoucherFisicoEntregado, t.Eliminada, t.UpdatedAt,
		sustFecha, sustHora, sustLugar, sustModalidad)
	return err
}

func upsertParticipantes(ctx context.Context, q Querier, t *tesis.Tesis) error {
	for _, p := range t.Participantes {
		_, err := q.Exec(ctx, `
			INSERT INTO participantes (id, tesis_id, user_id, nombre, tipo, invitacion, activo, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET
				nombre = EXCLUDED.nombre,
				tipo = EXCLUDED.tipo,
				invitacion = EXCLUDED.invitacion,
				activo = EXCLUDED.activo`,
			p.ID, t.ID, p.UserID, p.Nombre, string(p.Tipo), string(p.Invitacion),
			p.Activo, p.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// insertDocumentos inserts documents not yet stored. Documents are immutable
// once written, so conflicts on id are skipped rather than updated.
func insertDocumentos(ctx context.Context, q Querier, t *tesis.Tesis) error {
	for _, d := range t.Documentos {
		_, err := q.Exec(ctx, `
			INSERT INTO documentos (id, tesis_id, tipo, version, ronda, firmado,
				fecha_firma, storage_ref, subido_por, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO NOTHING`,
			d.ID, t.ID, string(d.Tipo), d.Version, d.Ronda, d.Firmado,
			d.FechaFirma, d.StorageRef, nullableUUID(d.SubidoPor), d.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func insertHistorial(ctx context.Context, q Querier, r *tesis.RegistroHistorial) error {
	_, err := q.Exec(ctx, `
		INSERT INTO historial (id, tesis_id, estado_anterior, estado_nuevo,
			accion, comentario, actor_id, actor_rol, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.TesisID, string(r.EstadoAnterior), string(r.EstadoNuevo),
		string(r.Accion), r.Comentario, r.ActorID, string(r.ActorRol), r.CreatedAt)
	return err
}

func insertEvaluacion(ctx context.Context, q Querier, e *jurado.Evaluacion) error {
	_, err := q.Exec(ctx, `
		INSERT INTO evaluaciones (id, tesis_id, jurado_user_id, ronda, fase,
			resultado, observaciones, archivo_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.TesisID, e.JuradoUserID, e.Ronda, string(e.Fase),
		string(e.Resultado), e.Observaciones, e.ArchivoRef, e.CreatedAt)
	return err
}

func listEvaluaciones(ctx context.Context, q Querier, tesisID uuid.UUID, ronda *int) ([]jurado.Evaluacion, error) {
	query := `
		SELECT id, tesis_id, jurado_user_id, ronda, fase, resultado,
		       observaciones, archivo_ref, created_at
		FROM evaluaciones WHERE tesis_id = $1`
	args := []interface{}{tesisID}
	if ronda != nil {
		query += " AND ronda = $2"
		args = append(args, *ronda)
	}
	query += " ORDER BY created_at, id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list evaluaciones: %w", err)
	}
	defer rows.Close()

	var out []jurado.Evaluacion
	for rows.Next() {
		var e jurado.Evaluacion
		var fase, resultado string
		if err := rows.Scan(&e.ID, &e.TesisID, &e.JuradoUserID, &e.Ronda,
			&fase, &resultado, &e.Observaciones, &e.ArchivoRef, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan evaluacion: %w", err)
		}
		e.Fase = tesis.Fase(fase)
		e.Resultado = tesis.Resultado(resultado)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}
