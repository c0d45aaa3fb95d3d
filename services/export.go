package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	ExportXLSX = "xlsx"
	ExportCSV  = "csv"
)

var exportHeadings = []string{"Order #", "Address", "Client", "Status", "Due Date", "Fee"}

// ExportContentType returns the MIME type for an export format
func ExportContentType(format string) string {
	if format == ExportCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func exportRow(o *models.Order) []string {
	return []string{
		o.OrderNumber,
		strings.Join([]string{o.PropertyAddress, o.PropertyCity, o.PropertyState + " " + o.PropertyZip}, ", "),
		o.ClientName,
		string(o.Status),
		utils.FormatDate(o.DueDate),
		utils.FormatCurrency(o.FeeAmount),
	}
}

// Export writes every live order matching the filter in the requested format
func (s *OrderService) Export(ctx context.Context, p ListParams, format string, w io.Writer) error {
	orders, err := s.store.LiveOrders(ctx, store.Filter{Search: p.Search, Statuses: p.Statuses, Priorities: p.Priorities})
	if err != nil {
		return err
	}

	switch format {
	case ExportCSV:
		return writeCSV(orders, w)
	case ExportXLSX, "":
		return writeXLSX(orders, w)
	default:
		return ValidationErrors{{Field: "format", Message: fmt.Sprintf("%q is not a supported export format", format)}}
	}
}

func writeCSV(orders []models.Order, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeadings); err != nil {
		return err
	}
	for i := range orders {
		if err := cw.Write(exportRow(&orders[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(orders []models.Order, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Orders"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	col := 'A'
	for _, h := range exportHeadings {
		if err := f.SetCellValue(sheetName, string(col)+"1", h); err != nil {
			return err
		}
		col++
	}

	rowNo := 2
	for i := range orders {
		col := 'A'
		for _, value := range exportRow(&orders[i]) {
			if err := f.SetCellValue(sheetName, string(col)+fmt.Sprint(rowNo), value); err != nil {
				return err
			}
			col++
		}
		rowNo++
	}

	return f.Write(w)
}
