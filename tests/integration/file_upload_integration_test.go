package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/kendall-kelly/appraisal-orders-api/middleware"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
)

// uploadDocument posts a multipart document for the order
func (suite *OrderIntegrationTestSuite) uploadDocument(orderID, filename string, content []byte, docType string) (*httptest.ResponseRecorder, map[string]any) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" && content != nil {
		part, err := writer.CreateFormFile("file", filename)
		suite.Require().NoError(err)
		_, err = part.Write(content)
		suite.Require().NoError(err)
	}
	suite.Require().NoError(writer.WriteField("document_type", docType))
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(middleware.ActorHeader, "processor-3")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func (suite *OrderIntegrationTestSuite) TestUploadDocument_ServedFromLocalDisk() {
	id := suite.createOrder("400 Congress Ave")
	content := []byte("%PDF-1.7 appraisal report")

	w, response := suite.uploadDocument(id, "final report.pdf", content, "report")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	doc := response["data"].(map[string]any)
	url := doc["file_url"].(string)
	suite.Contains(url, "/api/v1/uploads/")

	var stored models.OrderDocument
	suite.Require().NoError(suite.db.First(&stored, "id = ?", doc["id"]).Error)
	suite.FileExists(filepath.Join(suite.uploadDir, stored.StorageKey))

	req := httptest.NewRequest(http.MethodGet, url, nil)
	w = httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("application/pdf", w.Header().Get("Content-Type"))
	suite.Equal(content, w.Body.Bytes())
}

func (suite *OrderIntegrationTestSuite) TestUploadDocument_InvalidFileFormat() {
	id := suite.createOrder("402 Congress Ave")

	w, response := suite.uploadDocument(id, "payload.exe", []byte("MZ"), "other")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.False(response["success"].(bool))
	suite.Equal("INVALID_FILE_FORMAT", response["error"].(map[string]any)["code"])

	var count int64
	suite.db.Model(&models.OrderDocument{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *OrderIntegrationTestSuite) TestUploadDocument_FileTooLarge() {
	id := suite.createOrder("404 Congress Ave")

	w, response := suite.uploadDocument(id, "scan.pdf", make([]byte, utils.MaxFileSize+1), "contract")
	suite.Equal(http.StatusBadRequest, w.Code)
	errorData := response["error"].(map[string]any)
	suite.Equal("FILE_TOO_LARGE", errorData["code"])
	suite.Contains(errorData["message"], "File size exceeds")

	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func (suite *OrderIntegrationTestSuite) TestDeleteDocument_RemovesFile() {
	id := suite.createOrder("406 Congress Ave")
	w, response := suite.uploadDocument(id, "front.jpg", []byte("jpeg"), "photo")
	suite.Require().Equal(http.StatusCreated, w.Code)
	docID := response["data"].(map[string]any)["id"].(string)

	w, _ = suite.request(http.MethodDelete, "/api/v1/orders/"+id+"/documents/"+docID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	suite.Empty(entries)

	_, response = suite.request(http.MethodGet, "/api/v1/orders/"+id+"/history", nil)
	history := response["data"].([]any)
	suite.Equal(models.ActionDocumentDeleted, history[len(history)-1].(map[string]any)["action"])
}
