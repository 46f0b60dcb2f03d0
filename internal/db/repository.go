package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

type Repository interface {
	// Sync engine
	GetSheetConfig(ctx context.Context, ownerID int64) (*model.SheetConfig, error)
	GetSubjectPlacement(ctx context.Context, subjectID int64) (*model.SubjectPlacement, error)
	GetUnsyncedRecords(ctx context.Context, ownerID int64, kind model.RecordKind) ([]model.SyncRecord, error)
	GetFailedRecords(ctx context.Context, ownerID int64, kind model.RecordKind) ([]model.SyncRecord, error)
	MarkRecordsSynced(ctx context.Context, kind model.RecordKind, ids []int64) error
	MarkRecordsFailed(ctx context.Context, kind model.RecordKind, ids []int64, errorMessage string) error
	GetSyncStatus(ctx context.Context, ownerID int64, kind model.RecordKind) (*model.SyncStatus, error)

	// Identity reconciliation
	GetGuardianLinks(ctx context.Context, guardianID int64) ([]model.GuardianLink, error)
	FindCandidatesByNameAndGroup(ctx context.Context, name, group string) ([]model.SubjectCandidate, error)
	FindCandidatesByGroup(ctx context.Context, group string) ([]model.SubjectCandidate, error)
	UpdateLinkRepair(ctx context.Context, linkID, subjectID int64) error
	UpdateLinkStatus(ctx context.Context, linkID int64, status model.LinkStatus) error

	// Diagnostic audit
	GetAllLinks(ctx context.Context) ([]model.GuardianLink, error)
	FindDuplicateEvaluationKeys(ctx context.Context) ([]string, error)
	FindDuplicateAttendanceKeys(ctx context.Context) ([]string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func recordTable(kind model.RecordKind) string {
	if kind == model.RecordKindAttendance {
		return "attendance_entries"
	}
	return "evaluation_entries"
}

func (r *repository) GetSheetConfig(ctx context.Context, ownerID int64) (*model.SheetConfig, error) {
	query := `SELECT owner_id, spreadsheet_id, origin_date, eval_base_column, attendance_base_column
			  FROM sheet_configs WHERE owner_id = ?`

	var cfg model.SheetConfig
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&cfg.OwnerID, &cfg.SpreadsheetID, &cfg.OriginDate,
		&cfg.EvalBaseColumn, &cfg.AttendBaseColumn,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSheetConfigAbsent
	}
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (r *repository) GetSubjectPlacement(ctx context.Context, subjectID int64) (*model.SubjectPlacement, error) {
	query := `SELECT id, name, class_name, sheet_row FROM students WHERE id = ? AND active = 1`

	var p model.SubjectPlacement
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(&p.SubjectID, &p.Name, &p.SheetName, &p.Row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) GetUnsyncedRecords(ctx context.Context, ownerID int64, kind model.RecordKind) ([]model.SyncRecord, error) {
	return r.getRecords(ctx, ownerID, kind, `synced_to_sheet = 0 AND sync_error IS NULL`)
}

func (r *repository) GetFailedRecords(ctx context.Context, ownerID int64, kind model.RecordKind) ([]model.SyncRecord, error) {
	return r.getRecords(ctx, ownerID, kind, `synced_to_sheet = 0 AND sync_error IS NOT NULL`)
}

func (r *repository) getRecords(ctx context.Context, ownerID int64, kind model.RecordKind, cond string) ([]model.SyncRecord, error) {
	var query string
	if kind == model.RecordKindAttendance {
		query = `SELECT id, owner_id, student_id, entry_date, '' AS category, status AS value,
						COALESCE(note, ''), synced_to_sheet, sync_error, created_at, updated_at
				 FROM attendance_entries WHERE owner_id = ? AND ` + cond + ` ORDER BY id`
	} else {
		query = `SELECT id, owner_id, student_id, period_date, category, CAST(score AS CHAR) AS value,
						COALESCE(note, ''), synced_to_sheet, sync_error, created_at, updated_at
				 FROM evaluation_entries WHERE owner_id = ? AND ` + cond + ` ORDER BY id`
	}

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.SyncRecord
	for rows.Next() {
		rec := model.SyncRecord{Kind: kind}
		err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.SubjectID, &rec.Date, &rec.Category,
			&rec.Value, &rec.Note, &rec.Synced, &rec.SyncError, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// MarkRecordsSynced updates a completed sheet group in one transaction so an
// interruption cannot leave the group half-marked.
func (r *repository) MarkRecordsSynced(ctx context.Context, kind model.RecordKind, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET synced_to_sheet = 1, sync_error = NULL, updated_at = NOW()
						  WHERE id IN (%s)`, recordTable(kind), placeholders(len(ids)))

	return r.execGroup(ctx, query, ids, nil)
}

func (r *repository) MarkRecordsFailed(ctx context.Context, kind model.RecordKind, ids []int64, errorMessage string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET synced_to_sheet = 0, sync_error = ?, updated_at = NOW()
						  WHERE id IN (%s)`, recordTable(kind), placeholders(len(ids)))

	return r.execGroup(ctx, query, ids, &errorMessage)
}

func (r *repository) execGroup(ctx context.Context, query string, ids []int64, errorMessage *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	args := make([]interface{}, 0, len(ids)+1)
	if errorMessage != nil {
		args = append(args, *errorMessage)
	}
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) GetSyncStatus(ctx context.Context, ownerID int64, kind model.RecordKind) (*model.SyncStatus, error) {
	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total_records,
		COUNT(CASE WHEN synced_to_sheet = 1 THEN 1 END) AS synced_count,
		COUNT(CASE WHEN synced_to_sheet = 0 AND sync_error IS NOT NULL THEN 1 END) AS failed_count,
		COALESCE(MAX(updated_at), NOW()) AS updated_at
	FROM %s WHERE owner_id = ?`, recordTable(kind))

	status := model.SyncStatus{OwnerID: ownerID, Kind: string(kind)}
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&status.TotalRecords, &status.SyncedCount, &status.FailedCount, &status.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	errorQuery := fmt.Sprintf(`SELECT DISTINCT sync_error FROM %s
							   WHERE owner_id = ? AND synced_to_sheet = 0 AND sync_error IS NOT NULL`,
		recordTable(kind))

	rows, err := r.db.QueryContext(ctx, errorQuery, ownerID)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var errorMsg string
			if rows.Scan(&errorMsg) == nil {
				status.Errors = append(status.Errors, errorMsg)
			}
		}
	}

	return &status, nil
}

func (r *repository) GetGuardianLinks(ctx context.Context, guardianID int64) ([]model.GuardianLink, error) {
	query := `SELECT id, guardian_id, student_id, declared_name, declared_group, verified, status,
					 COALESCE(note, ''), created_at, updated_at
			  FROM guardian_links WHERE guardian_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, guardianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLinks(rows)
}

func (r *repository) GetAllLinks(ctx context.Context) ([]model.GuardianLink, error) {
	query := `SELECT id, guardian_id, student_id, declared_name, declared_group, verified, status,
					 COALESCE(note, ''), created_at, updated_at
			  FROM guardian_links ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]model.GuardianLink, error) {
	var links []model.GuardianLink
	for rows.Next() {
		var link model.GuardianLink
		err := rows.Scan(&link.ID, &link.GuardianID, &link.SubjectID, &link.DeclaredName,
			&link.DeclaredGroup, &link.Verified, &link.Status, &link.Note,
			&link.CreatedAt, &link.UpdatedAt)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (r *repository) FindCandidatesByNameAndGroup(ctx context.Context, name, group string) ([]model.SubjectCandidate, error) {
	query := `SELECT id, name, year_level FROM students
			  WHERE active = 1 AND LOWER(TRIM(name)) = LOWER(TRIM(?)) AND year_level = ?
			  ORDER BY id`

	return r.queryCandidates(ctx, query, name, group)
}

func (r *repository) FindCandidatesByGroup(ctx context.Context, group string) ([]model.SubjectCandidate, error) {
	query := `SELECT id, name, year_level FROM students
			  WHERE active = 1 AND year_level = ? ORDER BY id`

	return r.queryCandidates(ctx, query, group)
}

func (r *repository) queryCandidates(ctx context.Context, query string, args ...interface{}) ([]model.SubjectCandidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []model.SubjectCandidate
	for rows.Next() {
		var c model.SubjectCandidate
		if err := rows.Scan(&c.ID, &c.Name, &c.GroupID); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

func (r *repository) UpdateLinkRepair(ctx context.Context, linkID, subjectID int64) error {
	query := `UPDATE guardian_links SET student_id = ?, status = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, subjectID, model.LinkStatusRepaired, linkID)
	return err
}

func (r *repository) UpdateLinkStatus(ctx context.Context, linkID int64, status model.LinkStatus) error {
	query := `UPDATE guardian_links SET status = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, status, linkID)
	return err
}

func (r *repository) FindDuplicateEvaluationKeys(ctx context.Context) ([]string, error) {
	query := `SELECT CONCAT(student_id, '/', DATE(period_date), '/', category)
			  FROM evaluation_entries
			  GROUP BY student_id, period_date, category HAVING COUNT(*) > 1`

	return r.queryStrings(ctx, query)
}

func (r *repository) FindDuplicateAttendanceKeys(ctx context.Context) ([]string, error) {
	query := `SELECT CONCAT(student_id, '/', DATE(entry_date))
			  FROM attendance_entries
			  GROUP BY student_id, entry_date HAVING COUNT(*) > 1`

	return r.queryStrings(ctx, query)
}

func (r *repository) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
