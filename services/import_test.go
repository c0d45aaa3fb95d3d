package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const importHeader = "property_address,property_city,property_state,property_zip,property_type,order_type,client_id,borrower_name,due_date,fee_amount,tech_fee\n"

func TestImport_CSVKeepsGoingPastBadRows(t *testing.T) {
	f := newFixture(t)
	csvData := importHeader +
		"12 Oak Ave,Austin,TX,78701,single_family,purchase,client-1,Jane Doe,2024-06-10,\"$1,450.00\",25\n" +
		",,,,,,,,,,\n" +
		"9 Elm St,Austin,TX,78701,single_family,purchase,client-9,John Roe,2024-06-10,300,0\n" +
		"4 Pine Rd,Austin,TX,78701,single_family,purchase,client-1,Ann Lee,next week,300,0\n" +
		"7 Birch Ln,Austin,TX,78701,condo,refinance,client-2,Sam Park,06/12/2024,500,\n"

	res, err := f.svc.Import(context.Background(), ExportCSV, strings.NewReader(csvData), "importer")
	require.NoError(t, err)

	require.Len(t, res.Imported, 2)
	assert.Equal(t, 2, res.Imported[0].Row)
	assert.Equal(t, "APR-2024-0001", res.Imported[0].OrderNumber)
	assert.Equal(t, 6, res.Imported[1].Row)

	require.Len(t, res.Failed, 2)
	assert.Equal(t, 4, res.Failed[0].Row)
	assert.Equal(t, "VALIDATION_ERROR", res.Failed[0].Code)
	assert.Equal(t, "client_id", res.Failed[0].Fields[0].Field)
	assert.Equal(t, 5, res.Failed[1].Row)
	assert.Equal(t, "due_date", res.Failed[1].Fields[0].Field)

	first, err := f.svc.Get(context.Background(), res.Imported[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SourceImport, first.Source)
	assert.Equal(t, "importer", first.CreatedBy)
	assert.Equal(t, "First National Bank", first.ClientName)
	assert.True(t, decimal.NewFromInt(1475).Equal(first.TotalAmount), "total_amount = %s", first.TotalAmount)
	assert.Equal(t, models.StatusNew, first.Status)

	second, err := f.svc.Get(context.Background(), res.Imported[1].ID)
	require.NoError(t, err)
	require.NotNil(t, second.DueDate)
	assert.Equal(t, "2024-06-12", second.DueDate.Format("2006-01-02"))
}

func TestImport_XLSX(t *testing.T) {
	f := newFixture(t)

	book := excelize.NewFile()
	defer book.Close()
	rows := [][]any{
		{"Property Address", "Property City", "Property State", "Property Zip", "Property Type", "Order Type", "Client ID", "Borrower Name", "Due Date", "Fee Amount"},
		{"12 Oak Ave", "Austin", "TX", "78701", "single_family", "purchase", "client-1", "Jane Doe", "2024-06-10", 450},
		{"12", "Austin", "TX", "78701", "single_family", "purchase", "client-1", "Jo", "2024-06-10", -5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	res, err := f.svc.Import(context.Background(), ExportXLSX, &buf, "importer")
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Failed[0].Row)
	fields := res.Failed[0].Fields.Fields()
	assert.Contains(t, fields, "property_address")
	assert.Contains(t, fields, "borrower_name")
	assert.Contains(t, fields, "fee_amount")

	got, err := f.svc.Get(context.Background(), res.Imported[0].ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(450).Equal(got.FeeAmount))
}

func TestImport_RejectsBadFilesBeforeCreatingAnything(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   string
	}{
		{"unknown format", "pdf", importHeader},
		{"empty file", ExportCSV, ""},
		{"unknown column", ExportCSV, "property_address,favourite_colour\n12 Oak Ave,blue\n"},
		{"read-only column", ExportCSV, "order_number,property_address\nAPR-1,12 Oak Ave\n"},
		{"repeated column", ExportCSV, "property_address,Property Address\n12 Oak Ave,12 Oak Ave\n"},
		{"not a workbook", ExportXLSX, "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Import(context.Background(), tt.format, strings.NewReader(tt.data), "importer")
			require.Error(t, err)
			assert.True(t, IsValidation(err), "got %v", err)

			count, err := f.store.CountOrders(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestImport_RowLimit(t *testing.T) {
	f := newFixture(t)
	var b strings.Builder
	b.WriteString("property_address\n")
	for i := 0; i <= MaxImportRows; i++ {
		b.WriteString("12 Oak Ave\n")
	}
	_, err := f.svc.Import(context.Background(), ExportCSV, strings.NewReader(b.String()), "importer")
	require.Error(t, err)
	verrs, ok := AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, "file", verrs[0].Field)
}

func TestImportFormat(t *testing.T) {
	assert.Equal(t, ExportCSV, ImportFormat("orders.CSV"))
	assert.Equal(t, ExportXLSX, ImportFormat("march/orders.xlsx"))
	assert.Equal(t, "", ImportFormat("orders.xls"))
	assert.Equal(t, "", ImportFormat("orders"))
}
