package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *apiFixture) upload(t *testing.T, orderID, filename, docType string, content []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if docType != "" {
		require.NoError(t, writer.WriteField("document_type", docType))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(middleware.ActorHeader, "processor-12")
	w := serve(f, req)

	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func TestUploadDocument(t *testing.T) {
	f := newAPI(t)
	o := f.createOrder(t, "12 Oak Ave")

	w, response := f.upload(t, o.ID, "report.pdf", "report", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusCreated, w.Code)
	doc := dataMap(response)
	assert.Equal(t, "report.pdf", doc["file_name"])
	assert.Equal(t, "report", doc["document_type"])
	assert.Equal(t, "processor-12", doc["uploaded_by"])
	assert.True(t, strings.HasPrefix(doc["file_url"].(string), "https://test-bucket.s3.us-east-1.amazonaws.com/orders/"+o.ID+"/"))
	assert.NotContains(t, doc, "StorageKey")

	_, response = f.do(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/documents", nil)
	assert.Len(t, response["data"], 1)

	_, response = f.do(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/history", nil)
	history := response["data"].([]any)
	assert.Equal(t, "document_uploaded", history[len(history)-1].(map[string]any)["action"])
}

func TestUploadDocument_Rejections(t *testing.T) {
	f := newAPI(t)
	o := f.createOrder(t, "12 Oak Ave")

	tests := []struct {
		name           string
		orderID        string
		filename       string
		docType        string
		expectedStatus int
		expectedError  string
	}{
		{"missing file", o.ID, "", "report", http.StatusBadRequest, "MISSING_FILE"},
		{"unsupported extension", o.ID, "run.exe", "report", http.StatusBadRequest, "INVALID_FILE_FORMAT"},
		{"unknown document type", o.ID, "report.pdf", "selfie", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing order", "missing", "report.pdf", "report", http.StatusNotFound, "ORDER_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := f.upload(t, tt.orderID, tt.filename, tt.docType, []byte("data"))
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, errorCode(response))
		})
	}
	assert.Empty(t, f.storage.GetUploadedFiles())
}

func TestDeleteDocument(t *testing.T) {
	f := newAPI(t)
	o := f.createOrder(t, "12 Oak Ave")

	_, response := f.upload(t, o.ID, "photo.jpg", "photo", []byte("jpeg"))
	docID := dataMap(response)["id"].(string)

	w, _ := f.do(t, http.MethodDelete, "/api/v1/orders/"+o.ID+"/documents/"+docID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, response = f.do(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/documents", nil)
	assert.Empty(t, response["data"])
	assert.Empty(t, f.storage.GetUploadedFiles())

	w, response = f.do(t, http.MethodDelete, "/api/v1/orders/"+o.ID+"/documents/"+docID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(response))
}
