package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"docvault/internal/errs"
	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/repository"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const documentColumns = "d.id, d.patient_id, d.uploader_id, d.uploader_role, d.category, d.file_name, " +
	"d.mime_type, d.file_size, d.storage_key, d.appointment_id, d.is_shared_with_patient, d.is_deleted, " +
	"d.status, d.created_at, d.updated_at"

var sortColumns = map[model.SortField]string{
	model.SortByCreatedAt: "d.created_at",
	model.SortByUpdatedAt: "d.updated_at",
	model.SortByFileName:  "d.file_name",
}

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db  *sql.DB
	now func() time.Time
	set repository.Settings
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB, opts ...repository.Option) *DocumentPostgres {
	return &DocumentPostgres{db: db, now: time.Now, set: repository.Apply(opts...)}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, in model.CreateDocumentInput) (*model.Document, error) {
	if err := repository.ValidateCreate(in, r.set.Validator); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	now := r.now().UTC()

	q := "INSERT INTO documents AS d (id, patient_id, uploader_id, uploader_role, category, file_name, " +
		"mime_type, file_size, storage_key, appointment_id, is_shared_with_patient, status, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13) " +
		"RETURNING " + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		uuid.NewString(),
		in.PatientID,
		in.UploaderID,
		string(in.UploaderRole),
		in.Category,
		in.FileName,
		in.MimeType,
		in.FileSize,
		in.StorageKey,
		in.AppointmentID,
		in.IsSharedWithPatient,
		string(in.Status),
		now,
	)
	d, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Conflict("storage key %s already exists", in.StorageKey)
		}
		return nil, errs.Database(err, "insert document")
	}
	return d, nil
}

// FindByID fetches a single non-deleted document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.NotFound("document %s not found", id)
	}
	q := "SELECT " + documentColumns + " FROM documents d WHERE d.id = $1 AND NOT d.is_deleted"
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("document %s not found", id)
		}
		return nil, errs.Database(err, "select document")
	}
	return d, nil
}

// FindMany returns a page of documents matching f.
func (r *DocumentPostgres) FindMany(ctx context.Context, f model.DocumentFilter, lq repository.ListQuery) ([]model.Document, error) {
	lq = lq.Normalized(0, 0)
	return r.selectDocuments(ctx, f, lq.Sort, lq.Limit, lq.Offset)
}

// FindManyWithUploader is FindMany with a LEFT JOIN on users. Uploaders without a users row keep
// their id and role and an empty name.
func (r *DocumentPostgres) FindManyWithUploader(ctx context.Context, f model.DocumentFilter, lq repository.ListQuery) ([]model.DocumentWithUploader, error) {
	lq = lq.Normalized(0, 0)
	w := buildWhere(f)
	q := "SELECT " + documentColumns + ", COALESCE(u.name, ''), COALESCE(u.role, d.uploader_role) " +
		"FROM documents d LEFT JOIN users u ON u.id = d.uploader_id" + w.clause() + orderBy(lq.Sort) +
		w.page(lq.Limit, lq.Offset)

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, errs.Database(err, "select documents with uploader")
	}
	defer rows.Close()

	items := make([]model.DocumentWithUploader, 0)
	for rows.Next() {
		var (
			d    model.DocumentWithUploader
			appt sql.NullString
		)
		if err := rows.Scan(append(documentDest(&d.Document, &appt), &d.Uploader.Name, &d.Uploader.Role)...); err != nil {
			return nil, errs.Database(err, "scan document with uploader")
		}
		finishScan(&d.Document, appt)
		d.Uploader.ID = d.UploaderID
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database(err, "iterate documents with uploader")
	}
	return items, nil
}

// Count returns the number of documents matching f.
func (r *DocumentPostgres) Count(ctx context.Context, f model.DocumentFilter) (int, error) {
	w := buildWhere(f)
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents d"+w.clause(), w.args...).Scan(&total); err != nil {
		return 0, errs.Database(err, "count documents")
	}
	return total, nil
}

// Update changes metadata columns of a non-deleted document.
func (r *DocumentPostgres) Update(ctx context.Context, id string, u model.DocumentUpdate) (*model.Document, error) {
	if u.Empty() {
		return nil, errs.Validation("no metadata fields to update")
	}
	var (
		sets []string
		args []any
	)
	if u.Category != nil {
		args = append(args, *u.Category)
		sets = append(sets, fmt.Sprintf("category = $%d", len(args)))
	}
	if u.IsSharedWithPatient != nil {
		args = append(args, *u.IsSharedWithPatient)
		sets = append(sets, fmt.Sprintf("is_shared_with_patient = $%d", len(args)))
	}
	return r.updateReturning(ctx, id, sets, args)
}

// SetStatus moves a document to the given lifecycle status.
func (r *DocumentPostgres) SetStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	return r.updateReturning(ctx, id, []string{"status = $1"}, []any{string(status)})
}

// TogglePatientSharing sets is_shared_with_patient.
func (r *DocumentPostgres) TogglePatientSharing(ctx context.Context, id string, shared bool) (*model.Document, error) {
	return r.Update(ctx, id, model.DocumentUpdate{IsSharedWithPatient: &shared})
}

// Delete soft-deletes a document. Repeating it leaves updated_at alone and still succeeds.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.NotFound("document %s not found", id)
	}
	const q = `UPDATE documents SET is_deleted = TRUE, updated_at = CASE WHEN is_deleted THEN updated_at ELSE $2 END WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, r.now().UTC())
	if err != nil {
		return errs.Database(err, "delete document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Database(err, "delete document")
	}
	if n == 0 {
		return errs.NotFound("document %s not found", id)
	}
	return nil
}

func (r *DocumentPostgres) FindByPatientID(ctx context.Context, patientID string, includePrivate bool) ([]model.Document, error) {
	return r.selectDocuments(ctx, model.DocumentFilter{PatientID: patientID, VisibleToPatient: !includePrivate}, model.DefaultSort, 0, 0)
}

func (r *DocumentPostgres) FindByAppointmentID(ctx context.Context, appointmentID string) ([]model.Document, error) {
	return r.selectDocuments(ctx, model.DocumentFilter{AppointmentID: appointmentID}, model.DefaultSort, 0, 0)
}

func (r *DocumentPostgres) FindByUploaderID(ctx context.Context, uploaderID string) ([]model.Document, error) {
	return r.selectDocuments(ctx, model.DocumentFilter{UploaderID: uploaderID}, model.DefaultSort, 0, 0)
}

// CheckAccess loads the document and evaluates the access policy against it.
func (r *DocumentPostgres) CheckAccess(ctx context.Context, id string, actor model.Actor) (bool, error) {
	d, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return policy.Evaluate(actor.ID, actor.Role, d) == policy.Allow, nil
}

// GetPatientDocumentStats aggregates per category and attaches the most recent documents.
func (r *DocumentPostgres) GetPatientDocumentStats(ctx context.Context, patientID string, recent int) (*model.DocumentStats, error) {
	const q = `SELECT category, COUNT(*), COALESCE(SUM(file_size), 0) FROM documents WHERE patient_id = $1 AND NOT is_deleted GROUP BY category`
	rows, err := r.db.QueryContext(ctx, q, patientID)
	if err != nil {
		return nil, errs.Database(err, "aggregate documents")
	}
	defer rows.Close()

	stats := &model.DocumentStats{PatientID: patientID, ByCategory: make(map[string]int)}
	for rows.Next() {
		var (
			category string
			count    int
			size     int64
		)
		if err := rows.Scan(&category, &count, &size); err != nil {
			return nil, errs.Database(err, "scan aggregate")
		}
		stats.ByCategory[category] = count
		stats.Total += count
		stats.TotalSize += size
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database(err, "iterate aggregate")
	}

	stats.RecentDocuments, err = r.FindMany(ctx, model.DocumentFilter{PatientID: patientID},
		repository.ListQuery{Sort: model.DefaultSort, Limit: recent})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *DocumentPostgres) updateReturning(ctx context.Context, id string, sets []string, args []any) (*model.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.NotFound("document %s not found", id)
	}
	args = append(args, r.now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)
	q := fmt.Sprintf("UPDATE documents AS d SET %s WHERE d.id = $%d AND NOT d.is_deleted RETURNING %s",
		strings.Join(sets, ", "), len(args), documentColumns)

	d, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("document %s not found", id)
		}
		return nil, errs.Database(err, "update document")
	}
	return d, nil
}

// selectDocuments runs a filtered query. A zero limit returns every match.
func (r *DocumentPostgres) selectDocuments(ctx context.Context, f model.DocumentFilter, s model.Sort, limit, offset int) ([]model.Document, error) {
	w := buildWhere(f)
	q := "SELECT " + documentColumns + " FROM documents d" + w.clause() + orderBy(s) + w.page(limit, offset)

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, errs.Database(err, "select documents")
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errs.Database(err, "scan document")
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Database(err, "iterate documents")
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d    model.Document
		appt sql.NullString
	)
	if err := s.Scan(documentDest(&d, &appt)...); err != nil {
		return nil, err
	}
	finishScan(&d, appt)
	return &d, nil
}

func documentDest(d *model.Document, appt *sql.NullString) []any {
	return []any{
		&d.ID,
		&d.PatientID,
		&d.UploaderID,
		&d.UploaderRole,
		&d.Category,
		&d.FileName,
		&d.MimeType,
		&d.FileSize,
		&d.StorageKey,
		appt,
		&d.IsSharedWithPatient,
		&d.IsDeleted,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
}

func finishScan(d *model.Document, appt sql.NullString) {
	if appt.Valid {
		v := appt.String
		d.AppointmentID = &v
	}
}

// where accumulates AND-ed conditions with numbered placeholders.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *where) page(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

func buildWhere(f model.DocumentFilter) *where {
	w := &where{}
	if !f.IncludeDeleted {
		w.conds = append(w.conds, "NOT d.is_deleted")
	}
	if f.PatientID != "" {
		w.add("d.patient_id = $%d", f.PatientID)
	}
	if f.AppointmentID != "" {
		w.add("d.appointment_id = $%d", f.AppointmentID)
	}
	if f.UploaderID != "" {
		w.add("d.uploader_id = $%d", f.UploaderID)
	}
	if f.Category != "" {
		w.add("d.category = $%d", f.Category)
	}
	if f.CreatedFrom != nil {
		w.add("d.created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		w.add("d.created_at <= $%d", *f.CreatedTo)
	}
	if f.IsShared != nil {
		w.add("d.is_shared_with_patient = $%d", *f.IsShared)
	}
	if f.Status != "" {
		w.add("d.status = $%d", string(f.Status))
	}
	if f.VisibleToPatient {
		w.conds = append(w.conds, "(d.is_shared_with_patient OR d.uploader_id = d.patient_id)")
	}
	return w
}

func orderBy(s model.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		s = model.DefaultSort
		col = sortColumns[s.Field]
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, d.id %s", col, dir, dir)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
