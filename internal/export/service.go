package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/repository"
)

// Service is a tiny façade over the case repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.CaseRepository
	logger *slog.Logger
}

func NewService(repo repository.CaseRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportCaseXLSX returns a workbook with Ledger, Timeline and
// Relations sheets for one document.
func (s *Service) ExportCaseXLSX(ctx context.Context, documentID string) ([]byte, error) {
	start := time.Now()

	rec, err := s.repo.GetCase(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}

	f := excelize.NewFile()
	if err := writeLedgerSheet(f, rec); err != nil {
		return nil, err
	}
	if err := writeTimelineSheet(f, rec); err != nil {
		return nil, err
	}
	if err := writeRelationsSheet(f, rec); err != nil {
		return nil, err
	}
	// excelize seeds "Sheet1"; drop it once our sheets exist.
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("exported case workbook",
		"document_id", documentID,
		"bytes", buf.Len(),
		"elapsed", time.Since(start),
	)
	return buf.Bytes(), nil
}

func newSheet(f *excelize.File, name string, headers []string) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func writeLedgerSheet(f *excelize.File, rec *entity.CaseRecord) error {
	const sheet = "Ledger"
	if err := newSheet(f, sheet, []string{
		"Account", "EE Share", "ER Share", "Admin Charges", "Damages", "Total", "Reconciled",
	}); err != nil {
		return err
	}
	row := 2
	for _, sl := range rec.Ledger.Rows {
		writeRow(f, sheet, row, []any{
			sl.AccountCode, sl.EEShare, sl.ERShare, sl.AdminCharge, sl.Damages, sl.Total, !sl.Mismatch,
		})
		row++
	}
	writeRow(f, sheet, row+1, []any{"Grand Total", "", "", "", "", rec.Ledger.GrandTotal, rec.Ledger.Reconciled})
	if rec.Ledger.DeclaredTotal != nil {
		writeRow(f, sheet, row+2, []any{"Declared Total", "", "", "", "", *rec.Ledger.DeclaredTotal, ""})
	}
	return nil
}

func writeTimelineSheet(f *excelize.File, rec *entity.CaseRecord) error {
	const sheet = "Timeline"
	if err := newSheet(f, sheet, []string{"Date", "Kind", "Reason", "Source Line"}); err != nil {
		return err
	}
	for i, ev := range rec.Timeline {
		date := ""
		if ev.Date != nil {
			date = ev.Date.Format("2006-01-02")
		}
		writeRow(f, sheet, i+2, []any{date, string(ev.Kind), ev.Reason, ev.SourceLine})
	}
	return nil
}

func writeRelationsSheet(f *excelize.File, rec *entity.CaseRecord) error {
	const sheet = "Relations"
	if err := newSheet(f, sheet, []string{"Actor", "Predicate", "Object", "Confidence", "Source Line"}); err != nil {
		return err
	}
	for i, rel := range rec.Relations {
		writeRow(f, sheet, i+2, []any{
			rel.Actor, string(rel.Predicate), rel.Object, rel.Confidence, rel.SupportingLine,
		})
	}
	return nil
}

// SafeFilename derives an export filename from a document ID.
func SafeFilename(documentID string) string {
	repl := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return repl.Replace(documentID) + ".xlsx"
}
