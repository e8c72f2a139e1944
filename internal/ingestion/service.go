package ingestion

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/voucherdesk/reconciler/internal/domain"
	"github.com/voucherdesk/reconciler/internal/repository"
)

// IngestResult is returned from a successful workbook ingestion.
type IngestResult struct {
	ReportID string             `json:"report_id"`
	FileName string             `json:"file_name"`
	Roles    domain.ColumnRoles `json:"roles"`
	Rows     []domain.ImportRow `json:"rows"`
	Amounts  []float64          `json:"amounts"`
	Dropped  int                `json:"dropped"`
	// Duplicate is set when the same workbook was imported before; Rows then
	// come from storage.
	Duplicate bool `json:"duplicate"`
}

// Service imports voucher workbooks and records them.
type Service struct {
	importRepo *repository.ImportRepo
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewService creates a new ingestion service.
func NewService(importRepo *repository.ImportRepo, log logrus.FieldLogger) *Service {
	return &Service{
		importRepo: importRepo,
		log:        log.WithField("component", "ingestion"),
		now:        time.Now,
	}
}

// Checksum returns the hex xxhash of a workbook's bytes.
func Checksum(data []byte) string {
	h := xxhash.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// IngestWorkbook parses a workbook, normalizes its rows and stores them.
// Importing identical bytes twice returns the stored report.
func (s *Service) IngestWorkbook(data []byte, fileName string) (*IngestResult, error) {
	hash := Checksum(data)
	exists, err := s.importRepo.ReportExistsByHash(hash)
	if err != nil {
		return nil, errors.Wrap(err, "check hash")
	}
	if exists {
		return s.storedResult(hash)
	}

	sheet, err := ReadWorkbook(data, fileName)
	if err != nil {
		return nil, err
	}
	imported, err := Import(sheet)
	if err != nil {
		s.log.WithFields(logrus.Fields{"file": fileName, "rows": len(sheet.Rows)}).
			Warnf("import rejected: %v", err)
		return nil, err
	}

	rpt := &domain.ImportReport{
		ID:         fmt.Sprintf("IMP-%s", uuid.NewString()),
		FileName:   fileName,
		FileHash:   hash,
		RowCount:   len(imported.Rows),
		Dropped:    imported.Dropped,
		Roles:      imported.Roles,
		ImportedAt: s.now(),
	}
	if err := s.importRepo.InsertReport(rpt, imported.Rows); err != nil {
		return nil, errors.Wrap(err, "store import")
	}

	s.log.WithFields(logrus.Fields{
		"report":  rpt.ID,
		"file":    fileName,
		"rows":    rpt.RowCount,
		"dropped": rpt.Dropped,
		"amounts": len(imported.Amounts),
	}).Info("workbook imported")

	return &IngestResult{
		ReportID: rpt.ID,
		FileName: fileName,
		Roles:    imported.Roles,
		Rows:     imported.Rows,
		Amounts:  imported.Amounts,
		Dropped:  imported.Dropped,
	}, nil
}

func (s *Service) storedResult(hash string) (*IngestResult, error) {
	rpt, err := s.importRepo.GetByHash(hash)
	if err != nil {
		return nil, errors.Wrap(err, "load stored import")
	}
	res, err := s.resultFor(rpt)
	if err != nil {
		return nil, err
	}
	s.log.WithField("report", rpt.ID).Info("workbook already imported")
	res.Duplicate = true
	return res, nil
}

func (s *Service) resultFor(rpt *domain.ImportReport) (*IngestResult, error) {
	rows, err := s.importRepo.GetRows(rpt.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load stored rows")
	}
	return &IngestResult{
		ReportID: rpt.ID,
		FileName: rpt.FileName,
		Roles:    rpt.Roles,
		Rows:     rows,
		Amounts:  LargerAmounts(rows),
		Dropped:  rpt.Dropped,
	}, nil
}

// Report loads a stored import with its rows. A missing report yields an
// error wrapping sql.ErrNoRows.
func (s *Service) Report(reportID string) (*IngestResult, error) {
	rpt, err := s.importRepo.GetByID(reportID)
	if err != nil {
		return nil, errors.Wrapf(err, "load import %s", reportID)
	}
	return s.resultFor(rpt)
}

func (s *Service) ListReports(f repository.ImportFilter) ([]domain.ImportReport, int, error) {
	return s.importRepo.List(f)
}

// ExportReport renders a stored import as an xlsx workbook.
func (s *Service) ExportReport(reportID string) (*domain.ImportReport, []byte, error) {
	rpt, err := s.importRepo.GetByID(reportID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load import %s", reportID)
	}
	rows, err := s.importRepo.GetRows(reportID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load rows of %s", reportID)
	}
	data, err := ExportWorkbook(rows)
	if err != nil {
		return nil, nil, err
	}
	return rpt, data, nil
}
