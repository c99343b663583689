package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/saleflow/backend/internal/reporting"
)

const projectSheet = "Danh sách dự án"

var projectColumns = []interface{}{
	"Mã HĐ", "Khách hàng", "Số điện thoại", "Công ty/Brand", "Lĩnh vực", "Khu vực",
	"Web Link", "Trạng thái", "Tổng giá trị", "Đã thu", "Còn lại", "Ngày ký", "Người ký chung",
}

// ProjectExportFilename names the workbook for userID exported at t.
func ProjectExportFilename(userID string, t time.Time) string {
	return fmt.Sprintf("Du_lieu_du_an_%s_%s.xlsx", userID, t.Format("2006-01-02"))
}

type ExportService struct {
	records *RecordService
	now     func() time.Time
}

func NewExportService(records *RecordService) *ExportService {
	return &ExportService{records: records, now: time.Now}
}

// ProjectsWorkbook builds the project ledger workbook for userID. The caller
// closes the returned file.
func (s *ExportService) ProjectsWorkbook(ctx context.Context, userID string) (*excelize.File, string, error) {
	ledger, err := s.records.Projects(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	f, err := BuildProjectWorkbook(ledger)
	if err != nil {
		return nil, "", err
	}
	return f, ProjectExportFilename(userID, s.now()), nil
}

// BuildProjectWorkbook writes one header row and one row per project.
func BuildProjectWorkbook(ledger []reporting.ProjectLedger) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", projectSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(projectSheet, "A1", &projectColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetCellStyle(projectSheet, "A1", "M1", style)
	}
	f.SetColWidth(projectSheet, "A", "M", 18)

	for i, l := range ledger {
		p := l.Project
		row := []interface{}{
			p.ContractCode, p.CustomerName, p.Phone, p.CompanyName, p.Industry, p.Region,
			p.WebLink, l.Status, p.ContractValue, l.Paid, l.Remaining, p.SignDate, p.JointSigner,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(projectSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}
