package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Purchase Orders"

var poExportHeaders = []string{
	"PO Number", "Vendor", "PO Date", "Due Date", "Status",
	"Total Amount", "Total Paid", "Outstanding",
}

// Export 导出采购订单为xlsx
func (s *PurchaseOrderService) Export(ctx context.Context, filter repository.POFilter) (*excelize.File, string, error) {
	orders, err := s.poRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("list purchase orders: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, "", err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4})

	for i, h := range poExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(exportSheet, cell, h)
		f.SetCellStyle(exportSheet, cell, cell, headerStyle)
	}

	var sumTotal, sumPaid decimal.Decimal
	for idx, po := range orders {
		row := idx + 2
		paid := entity.SumPayments(po.Payments)
		outstanding := po.TotalAmount.Sub(paid)
		vendorName := ""
		if po.Vendor != nil {
			vendorName = po.Vendor.VendorName
		}

		f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), po.PONumber)
		f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), vendorName)
		f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), po.PODate.String())
		f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), po.DueDate.String())
		f.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), string(po.Status))
		f.SetCellValue(exportSheet, fmt.Sprintf("F%d", row), po.TotalAmount.InexactFloat64())
		f.SetCellValue(exportSheet, fmt.Sprintf("G%d", row), paid.InexactFloat64())
		f.SetCellValue(exportSheet, fmt.Sprintf("H%d", row), outstanding.InexactFloat64())
		f.SetCellStyle(exportSheet, fmt.Sprintf("F%d", row), fmt.Sprintf("H%d", row), moneyStyle)

		sumTotal = sumTotal.Add(po.TotalAmount)
		sumPaid = sumPaid.Add(paid)
	}

	// 汇总行
	summaryRow := len(orders) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: 4,
	})
	f.SetCellValue(exportSheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(exportSheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("%d orders", len(orders)))
	f.SetCellValue(exportSheet, fmt.Sprintf("F%d", summaryRow), sumTotal.InexactFloat64())
	f.SetCellValue(exportSheet, fmt.Sprintf("G%d", summaryRow), sumPaid.InexactFloat64())
	f.SetCellValue(exportSheet, fmt.Sprintf("H%d", summaryRow), sumTotal.Sub(sumPaid).InexactFloat64())
	f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("H%d", summaryRow), summaryStyle)

	colWidths := []float64{20, 28, 12, 12, 16, 16, 16, 16}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, w)
	}

	filename := fmt.Sprintf("purchase_orders_%s.xlsx", s.now().UTC().Format("20060102"))
	return f, filename, nil
}
