package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crms/internal/repository"
	"crms/internal/workflow"
	"crms/pkg/apperror"
)

// reportPageSize bounds each query while a report walks all rows
const reportPageSize = 500

type ReportService interface {
	PurchaseOrders(ctx context.Context, actor Actor, projectID int64) (*bytes.Buffer, string, error)
	Expenses(ctx context.Context, actor Actor, projectID int64) (*bytes.Buffer, string, error)
}

type reportService struct {
	orders   repository.PurchaseOrderRepository
	expenses repository.ExpenseRepository
	logger   *zap.Logger
}

func NewReportService(orders repository.PurchaseOrderRepository, expenses repository.ExpenseRepository, logger *zap.Logger) ReportService {
	return &reportService{orders: orders, expenses: expenses, logger: logger}
}

func cell(col string, row int) string { return fmt.Sprintf("%s%d", col, row) }

// newSheet creates a workbook with a styled header row
func newSheet(sheet string, headers []string, widths []float64) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(sheet, cell(col, 1), h)
		if i < len(widths) {
			_ = f.SetColWidth(sheet, col, col, widths[i])
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(sheet, "A1", cell(last, 1), headerStyle)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func (s *reportService) write(f *excelize.File, name string, projectID int64) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("Failed to write Excel report", zap.String("report", name), zap.Error(err))
		return nil, "", apperror.Internal(err, "failed to generate report")
	}
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102"))
	if projectID != 0 {
		filename = fmt.Sprintf("%s_project%d_%s.xlsx", name, projectID, time.Now().Format("20060102"))
	}
	return buf, filename, nil
}

func (s *reportService) PurchaseOrders(ctx context.Context, actor Actor, projectID int64) (*bytes.Buffer, string, error) {
	const sheet = "Purchase Orders"
	f, err := newSheet(sheet,
		[]string{"PO Number", "Project", "Supplier", "Status", "Total", "Items", "Created", "Decided", "Delivered"},
		[]float64{22, 10, 28, 12, 14, 8, 18, 18, 18},
	)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to generate report")
	}
	defer f.Close()

	row := 2
	for page := 1; ; page++ {
		orders, total, err := s.orders.List(ctx, repository.PurchaseOrderFilter{
			Scope:     scopeFor(actor),
			ProjectID: projectID,
			Page:      page,
			Limit:     reportPageSize,
		})
		if err != nil {
			return nil, "", apperror.Internal(err, "failed to load purchase orders")
		}
		for _, po := range orders {
			supplier := ""
			if po.Supplier != nil {
				supplier = po.Supplier.Name
			}
			amount, _ := po.Total.Float64()
			values := []interface{}{po.Number, po.ProjectID, supplier, string(po.Status), amount, len(po.Items),
				po.CreatedAt.Format("2006-01-02 15:04"), formatTime(po.DecidedAt), formatTime(po.DeliveredAt)}
			if err := f.SetSheetRow(sheet, cell("A", row), &values); err != nil {
				return nil, "", apperror.Internal(err, "failed to generate report")
			}
			row++
		}
		if int64(page*reportPageSize) >= total || len(orders) == 0 {
			break
		}
	}

	return s.write(f, "purchase_orders", projectID)
}

func (s *reportService) Expenses(ctx context.Context, actor Actor, projectID int64) (*bytes.Buffer, string, error) {
	const sheet = "Expenses"
	f, err := newSheet(sheet,
		[]string{"ID", "Project", "Category", "Description", "Amount", "Status", "Created", "Decided", "Paid"},
		[]float64{8, 10, 14, 40, 14, 12, 18, 18, 18},
	)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to generate report")
	}
	defer f.Close()

	row := 2
	sum := map[workflow.Status]float64{}
	for page := 1; ; page++ {
		items, total, err := s.expenses.List(ctx, repository.ExpenseFilter{
			Scope:     scopeFor(actor),
			ProjectID: projectID,
			Page:      page,
			Limit:     reportPageSize,
		})
		if err != nil {
			return nil, "", apperror.Internal(err, "failed to load expenses")
		}
		for _, e := range items {
			amount, _ := e.Amount.Float64()
			sum[e.Status] += amount
			values := []interface{}{e.ID, e.ProjectID, e.Category, e.Description, amount, string(e.Status),
				e.CreatedAt.Format("2006-01-02 15:04"), formatTime(e.DecidedAt), formatTime(e.PaidAt)}
			if err := f.SetSheetRow(sheet, cell("A", row), &values); err != nil {
				return nil, "", apperror.Internal(err, "failed to generate report")
			}
			row++
		}
		if int64(page*reportPageSize) >= total || len(items) == 0 {
			break
		}
	}

	row++
	for _, status := range []workflow.Status{workflow.StatusApproved, workflow.StatusPaid} {
		_ = f.SetCellValue(sheet, cell("D", row), "Total "+string(status))
		_ = f.SetCellValue(sheet, cell("E", row), sum[status])
		row++
	}

	return s.write(f, "expenses", projectID)
}
