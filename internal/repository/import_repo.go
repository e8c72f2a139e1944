package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voucherdesk/reconciler/internal/domain"
)

type ImportRepo struct {
	db *sql.DB
}

func NewImportRepo(db *sql.DB) *ImportRepo {
	return &ImportRepo{db: db}
}

// ReportExistsByHash checks whether a workbook with the given checksum has
// already been imported (idempotency check).
func (r *ImportRepo) ReportExistsByHash(hash string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM import_reports WHERE file_hash = ?", hash,
	).Scan(&count)
	return count > 0, err
}

// GetByHash returns the report stored for a checksum, or sql.ErrNoRows.
func (r *ImportRepo) GetByHash(hash string) (*domain.ImportReport, error) {
	row := r.db.QueryRow("SELECT "+reportColumns+" FROM import_reports WHERE file_hash = ?", hash)
	return scanReport(row)
}

func (r *ImportRepo) GetByID(id string) (*domain.ImportReport, error) {
	row := r.db.QueryRow("SELECT "+reportColumns+" FROM import_reports WHERE id = ?", id)
	return scanReport(row)
}

// InsertReport stores a report and its rows in one transaction.
func (r *ImportRepo) InsertReport(rpt *domain.ImportReport, rows []domain.ImportRow) error {
	roles, err := json.Marshal(rpt.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO import_reports
		(id, file_name, file_hash, row_count, dropped, roles, imported_at)
		VALUES (?,?,?,?,?,?,?)`,
		rpt.ID, rpt.FileName, rpt.FileHash, rpt.RowCount, rpt.Dropped,
		string(roles), rpt.ImportedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO import_rows
		(report_id, position, reference, created_at, mobile_number,
		 amount_smaller, amount_larger, rate, status)
		VALUES (?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.Exec(
			rpt.ID, i, row.Reference, row.CreatedAt, row.MobileNumber,
			row.AmountSmaller, row.AmountLarger, row.Rate, row.Status,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRows returns the stored rows of a report in import order.
func (r *ImportRepo) GetRows(reportID string) ([]domain.ImportRow, error) {
	rows, err := r.db.Query(
		`SELECT reference, created_at, mobile_number, amount_smaller, amount_larger, rate, status
		FROM import_rows WHERE report_id = ? ORDER BY position`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ImportRow
	for rows.Next() {
		var row domain.ImportRow
		if err := rows.Scan(
			&row.Reference, &row.CreatedAt, &row.MobileNumber,
			&row.AmountSmaller, &row.AmountLarger, &row.Rate, &row.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type ImportFilter struct {
	Page  int
	Limit int
}

func (r *ImportRepo) List(f ImportFilter) ([]domain.ImportReport, int, error) {
	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM import_reports").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	rows, err := r.db.Query(
		"SELECT "+reportColumns+" FROM import_reports ORDER BY imported_at DESC, id LIMIT ? OFFSET ?",
		f.Limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var reports []domain.ImportReport
	for rows.Next() {
		rpt, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		reports = append(reports, *rpt)
	}
	return reports, total, rows.Err()
}

// --- helpers ---

const reportColumns = "id, file_name, file_hash, row_count, dropped, roles, imported_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*domain.ImportReport, error) {
	var rpt domain.ImportReport
	var roles, importedAt string

	if err := s.Scan(
		&rpt.ID, &rpt.FileName, &rpt.FileHash, &rpt.RowCount, &rpt.Dropped, &roles, &importedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(roles), &rpt.Roles); err != nil {
		return nil, fmt.Errorf("unmarshal roles: %w", err)
	}
	rpt.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	return &rpt, nil
}
