package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *apiFixture) importFile(t *testing.T, filename string, content []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(middleware.ActorHeader, "processor-12")
	w := serve(f, req)

	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func TestImportOrders(t *testing.T) {
	f := newAPI(t)
	csvData := "property_address,property_city,property_state,property_zip,property_type,order_type,client_id,borrower_name,due_date,fee_amount\n" +
		"12 Oak Ave,Austin,TX,78701,single_family,purchase,client-1,Jane Doe,2024-06-10,450\n" +
		"9 Elm St,Austin,TX,78701,single_family,purchase,,John Roe,2024-06-10,300\n"

	w, response := f.importFile(t, "orders.csv", []byte(csvData))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataMap(response)
	imported := data["imported"].([]any)
	require.Len(t, imported, 1)
	row := imported[0].(map[string]any)
	assert.Equal(t, float64(2), row["row"])

	failed := data["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Equal(t, float64(3), failed[0].(map[string]any)["row"])
	assert.Equal(t, "VALIDATION_ERROR", failed[0].(map[string]any)["code"])

	_, response = f.do(t, http.MethodGet, "/api/v1/orders/"+row["id"].(string), nil)
	order := dataMap(response)
	assert.Equal(t, "import", order["source"])
	assert.Equal(t, "processor-12", order["created_by"])
}

func TestImportOrders_RejectsBadUploads(t *testing.T) {
	f := newAPI(t)

	w, response := f.importFile(t, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", errorCode(response))

	w, response = f.importFile(t, "orders.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_FORMAT", errorCode(response))

	w, response = f.importFile(t, "orders.csv", []byte("colour\nblue\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
}

func TestEmailIntakeOrder(t *testing.T) {
	f := newAPI(t)

	w, response := f.do(t, http.MethodPost, "/api/v1/orders/email-intake", map[string]any{
		"from":    "pat@lender.example",
		"subject": "Urgent: new appraisal",
		"body":    "Address: 12 Oak Ave\nBorrower: Jane Doe\nClient: First National Bank\nPhone: 5551234567",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := dataMap(response)
	assert.Equal(t, "email", order["source"])
	assert.Equal(t, "rush", order["priority"])
	assert.Equal(t, testClientID, order["client_id"])
	assert.Equal(t, "(555) 123-4567", order["borrower_phone"])
	assert.Equal(t, "APR-2024-0001", order["order_number"])

	w, response = f.do(t, http.MethodPost, "/api/v1/orders/email-intake", map[string]any{
		"subject": "New order",
		"body":    "Address: 9 Elm St\nClient: Nobody Lending",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, _ = f.do(t, http.MethodPost, "/api/v1/orders/email-intake", map[string]any{"subject": "empty"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
