package records

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tiopaulo/anamnese/internal/platform/db"
)

var ErrMissingPatientID = errors.New("consultation has no paciente_id")

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func connFrom(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// placeholder returns the bind parameter for a column. Dates travel as text
// so "YYYY-MM-DD" strings are parsed by Postgres.
func placeholder(n int, kind FieldKind) string {
	p := "$" + strconv.Itoa(n)
	if kind == KindDate {
		return p + "::text::date"
	}
	return p
}

func selectExpr(name string, kind FieldKind) string {
	if kind == KindDate {
		return name + "::text AS " + name
	}
	return name
}

// -- Paciente Repository --

var patientSelectCols = func() string {
	cols := []string{"id"}
	for _, f := range PatientFields {
		cols = append(cols, selectExpr(f.Name, f.Kind))
	}
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}()

var patientInsertSQL = func() string {
	cols := []string{"id"}
	vals := []string{"$1"}
	for i, f := range PatientFields {
		cols = append(cols, f.Name)
		vals = append(vals, placeholder(i+2, f.Kind))
	}
	return `INSERT INTO pacientes (` + strings.Join(cols, ", ") + `)
		VALUES (` + strings.Join(vals, ", ") + `)
		RETURNING created_at, updated_at`
}()

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) querier {
	return connFrom(ctx, r.pool)
}

func (r *patientRepoPG) List(ctx context.Context, orderBy string) ([]*Patient, error) {
	order, err := ParseOrder(orderBy, PatientOrderColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientSelectCols+` FROM pacientes ORDER BY `+order.SQL())
	if err != nil {
		return nil, fmt.Errorf("paciente list: %w", err)
	}
	patients, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Patient])
	if err != nil {
		return nil, fmt.Errorf("paciente list: %w", err)
	}
	return patients, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.MapaDental == nil {
		p.MapaDental = []int{}
	}
	_, args := p.Columns()
	args = append([]any{p.ID}, args...)
	if err := r.conn(ctx).QueryRow(ctx, patientInsertSQL, args...).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("paciente create: %w", err)
	}
	return nil
}

func (r *patientRepoPG) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*Patient, error) {
	var patch Patient
	if err := ApplyPatientFields(&patch, fields); err != nil {
		return nil, err
	}
	if _, ok := fields["mapa_dental"]; ok && patch.MapaDental == nil {
		patch.MapaDental = []int{}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	rv := reflect.ValueOf(&patch).Elem()
	sets := make([]string, 0, len(names)+1)
	args := []any{id}
	for _, name := range names {
		f := fieldsByName[name]
		args = append(args, rv.Field(patientFieldIndex[name]).Interface())
		sets = append(sets, name+" = "+placeholder(len(args), f.Kind))
	}
	sets = append(sets, "updated_at = NOW()")

	rows, err := r.conn(ctx).Query(ctx,
		`UPDATE pacientes SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+patientSelectCols,
		args...)
	if err != nil {
		return nil, fmt.Errorf("paciente update: %w", err)
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Patient])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("paciente update: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM pacientes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("paciente delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}
	return true, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientSelectCols+` FROM pacientes WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("paciente get: %w", err)
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Patient])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("paciente get: %w", err)
	}
	return p, nil
}

// -- Consulta Repository --

const consultationCols = `id, paciente_id, data_atendimento::text AS data_atendimento, peso,
	observacoes, procedimentos, created_at, updated_at`

const consultationInsertSQL = `INSERT INTO consultas
	(id, paciente_id, data_atendimento, peso, observacoes, procedimentos)
	VALUES ($1, $2, $3::text::date, $4, $5, $6)
	RETURNING created_at, updated_at`

type consultationRepoPG struct {
	pool *pgxpool.Pool
}

func NewConsultationRepo(pool *pgxpool.Pool) ConsultationRepository {
	return &consultationRepoPG{pool: pool}
}

func (r *consultationRepoPG) conn(ctx context.Context) querier {
	return connFrom(ctx, r.pool)
}

func (r *consultationRepoPG) List(ctx context.Context, orderBy string) ([]*Consultation, error) {
	order, err := ParseOrder(orderBy, ConsultationOrderColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+consultationCols+` FROM consultas ORDER BY `+order.SQL())
	if err != nil {
		return nil, fmt.Errorf("consulta list: %w", err)
	}
	cs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Consultation])
	if err != nil {
		return nil, fmt.Errorf("consulta list: %w", err)
	}
	return cs, nil
}

func (r *consultationRepoPG) Create(ctx context.Context, c *Consultation) error {
	if c.PacienteID == uuid.Nil {
		return ErrMissingPatientID
	}
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, consultationInsertSQL,
		c.ID, c.PacienteID, c.DataAtendimento, c.Peso, c.Observacoes, c.Procedimentos,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("consulta create: %w", err)
	}
	return nil
}

// BulkCreate inserts every consultation in one batch. Outside an explicit
// transaction the batch is still atomic.
func (r *consultationRepoPG) BulkCreate(ctx context.Context, cs []*Consultation) error {
	if len(cs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range cs {
		if c.PacienteID == uuid.Nil {
			return ErrMissingPatientID
		}
		c.ID = uuid.New()
		batch.Queue(consultationInsertSQL,
			c.ID, c.PacienteID, c.DataAtendimento, c.Peso, c.Observacoes, c.Procedimentos)
	}

	br := r.conn(ctx).SendBatch(ctx, batch)
	for _, c := range cs {
		if err := br.QueryRow().Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
			br.Close()
			return fmt.Errorf("consulta bulk create: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("consulta bulk create: %w", err)
	}
	return nil
}

func (r *consultationRepoPG) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*Consultation, error) {
	var patch Consultation
	if err := ApplyConsultationFields(&patch, fields); err != nil {
		return nil, err
	}
	if _, ok := fields["paciente_id"]; ok && patch.PacienteID == uuid.Nil {
		return nil, ErrMissingPatientID
	}

	values := map[string]any{
		"paciente_id":      patch.PacienteID,
		"data_atendimento": patch.DataAtendimento,
		"peso":             patch.Peso,
		"observacoes":      patch.Observacoes,
		"procedimentos":    patch.Procedimentos,
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := []any{id}
	for _, name := range names {
		args = append(args, values[name])
		kind := KindText
		if name == "data_atendimento" {
			kind = KindDate
		}
		sets = append(sets, name+" = "+placeholder(len(args), kind))
	}
	sets = append(sets, "updated_at = NOW()")

	rows, err := r.conn(ctx).Query(ctx,
		`UPDATE consultas SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+consultationCols,
		args...)
	if err != nil {
		return nil, fmt.Errorf("consulta update: %w", err)
	}
	c, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Consultation])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consulta update: %w", err)
	}
	return c, nil
}

func (r *consultationRepoPG) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultas WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("consulta delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}
	return true, nil
}

func (r *consultationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+consultationCols+` FROM consultas WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("consulta get: %w", err)
	}
	c, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Consultation])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consulta get: %w", err)
	}
	return c, nil
}

// -- Transactor --

type pgTransactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, t.pool, fn)
}
