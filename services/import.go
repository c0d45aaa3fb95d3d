package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// MaxImportRows caps the order rows read from one file
const MaxImportRows = 1000

// ImportedRow is one spreadsheet row that became an order
type ImportedRow struct {
	Row         int    `json:"row"`
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
}

// ImportFailure reports why one spreadsheet row was not imported
type ImportFailure struct {
	Row    int              `json:"row"`
	Code   string           `json:"code"`
	Error  string           `json:"error"`
	Fields ValidationErrors `json:"fields,omitempty"`
}

// ImportResult accounts for every non-blank row of the file exactly once
type ImportResult struct {
	Imported []ImportedRow   `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

var importDateFields = map[string]bool{
	"due_date":       true,
	"ordered_date":   true,
	"completed_date": true,
	"delivered_date": true,
	"assigned_date":  true,
}

var importMoneyFields = map[string]bool{
	"loan_amount": true,
	"fee_amount":  true,
	"tech_fee":    true,
}

// ImportFormat picks the import format from a file name, or "" when it is not supported
func ImportFormat(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case ExportXLSX:
		return ExportXLSX
	case ExportCSV:
		return ExportCSV
	default:
		return ""
	}
}

// Import creates one order per spreadsheet row. The header row names order fields by their json key.
// A bad row is reported and skipped; a bad file fails as a whole before anything is created.
func (s *OrderService) Import(ctx context.Context, format string, r io.Reader, actor string) (*ImportResult, error) {
	var rows [][]string
	var err error
	switch format {
	case ExportCSV:
		rows, err = readCSVRows(r)
	case ExportXLSX:
		rows, err = readXLSXRows(r)
	default:
		return nil, ValidationErrors{{Field: "format", Message: fmt.Sprintf("%q is not a supported import format", format)}}
	}
	if err != nil {
		return nil, ValidationErrors{{Field: "file", Message: "could not be read: " + err.Error()}}
	}
	if len(rows) == 0 {
		return nil, ValidationErrors{{Field: "file", Message: "has no header row"}}
	}
	columns, err := importColumns(rows[0])
	if err != nil {
		return nil, err
	}
	body := rows[1:]
	if len(body) > MaxImportRows {
		return nil, ValidationErrors{{Field: "file", Message: fmt.Sprintf("has more than %d rows", MaxImportRows)}}
	}

	result := &ImportResult{Imported: []ImportedRow{}, Failed: []ImportFailure{}}
	for i, row := range body {
		line := i + 2
		if blankRow(row) {
			continue
		}
		order, err := orderFromRow(columns, row)
		var created *models.Order
		if err == nil {
			created, err = s.Create(ctx, order, actor)
		}
		if err != nil {
			failure := ImportFailure{Row: line, Code: ErrorCode(err), Error: err.Error()}
			if verrs, ok := AsValidationErrors(err); ok {
				failure.Fields = verrs
			} else {
				config.LogError(s.logger, "OrderService", "Import", "import row failed", line, err)
			}
			result.Failed = append(result.Failed, failure)
			continue
		}
		result.Imported = append(result.Imported, ImportedRow{Row: line, ID: created.ID, OrderNumber: created.OrderNumber})
	}

	s.logger.WithFields(logrus.Fields{
		"format":   format,
		"imported": len(result.Imported),
		"failed":   len(result.Failed),
	}).Info("order import finished")
	return result, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// readXLSXRows reads the first sheet of the workbook
func readXLSXRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// importColumns maps each header cell to an order field. Blank headings are skipped.
func importColumns(header []string) ([]string, error) {
	var errs ValidationErrors
	columns := make([]string, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
		switch {
		case name == "":
			continue
		case readOnlyFields[name]:
			errs.add("file", fmt.Sprintf("column %q is read-only", h))
		case !orderFields[name]:
			errs.add("file", fmt.Sprintf("column %q is not an order field", h))
		case seen[name]:
			errs.add("file", fmt.Sprintf("column %q appears more than once", h))
		default:
			seen[name] = true
			columns[i] = name
		}
	}
	if len(seen) == 0 && len(errs) == 0 {
		errs.add("file", "has no order columns")
	}
	return columns, errs.orNil()
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// orderFromRow decodes the non-empty cells of a row one field at a time so each bad cell is named
func orderFromRow(columns, row []string) (models.Order, error) {
	var order models.Order
	var errs ValidationErrors

	cells := map[string]string{}
	for i, name := range columns {
		if name == "" || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			cells[name] = v
		}
	}
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var value any = cells[name]
		switch {
		case importDateFields[name]:
			t, err := utils.ParseDate(cells[name])
			if err != nil {
				errs.add(name, "is not a recognized date")
				continue
			}
			value = t
		case importMoneyFields[name]:
			value = strings.NewReplacer("$", "", ",", "").Replace(cells[name])
		}
		raw, err := json.Marshal(map[string]any{name: value})
		if err != nil {
			errs.add(name, "has an unsupported value")
			continue
		}
		if err := json.Unmarshal(raw, &order); err != nil {
			errs.add(name, "has an invalid value")
		}
	}
	order.Source = models.SourceImport
	return order, errs.orNil()
}
