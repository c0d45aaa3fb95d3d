package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a mock multipart.FileHeader for testing
func createTestFileHeader(filename string, size int64, content []byte) *multipart.FileHeader {
	// Create a buffer to write our multipart form
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// Create form file
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, _ := writer.CreatePart(h)
	part.Write(content)
	writer.Close()

	// Parse the multipart form
	reader := multipart.NewReader(body, writer.Boundary())
	form, _ := reader.ReadForm(int64(len(content)) + 1024)
	defer form.RemoveAll()

	if len(form.File["file"]) > 0 {
		fileHeader := form.File["file"][0]
		// Override size for testing purposes
		fileHeader.Size = size
		return fileHeader
	}

	return nil
}

func TestValidateDocumentFile_Allowed(t *testing.T) {
	for _, name := range []string{"report.pdf", "photo.png", "front.jpg", "rear.JPEG", "contract.docx", "comps.xlsx", "legacy.doc", "old.xls"} {
		t.Run(name, func(t *testing.T) {
			content := []byte("fake content")
			fileHeader := createTestFileHeader(name, int64(len(content)), content)
			require.NotNil(t, fileHeader)

			assert.NoError(t, ValidateDocumentFile(fileHeader))
		})
	}
}

func TestValidateDocumentFile_FileTooLarge(t *testing.T) {
	content := []byte("fake pdf content")
	fileHeader := createTestFileHeader("large.pdf", 26*1024*1024, content)
	require.NotNil(t, fileHeader)

	err := ValidateDocumentFile(fileHeader)
	assert.Error(t, err)

	fileErr, ok := err.(*FileUploadError)
	require.True(t, ok, "Error should be of type FileUploadError")
	assert.Equal(t, "FILE_TOO_LARGE", fileErr.Code)
	assert.Contains(t, fileErr.Message, "maximum allowed size of 25 MB")
}

func TestValidateDocumentFile_InvalidFormat(t *testing.T) {
	for _, name := range []string{"animation.gif", "script.exe", "noextension"} {
		t.Run(name, func(t *testing.T) {
			content := []byte("fake content")
			fileHeader := createTestFileHeader(name, int64(len(content)), content)
			require.NotNil(t, fileHeader)

			err := ValidateDocumentFile(fileHeader)
			fileErr, ok := err.(*FileUploadError)
			require.True(t, ok, "Error should be of type FileUploadError")
			assert.Equal(t, "INVALID_FILE_FORMAT", fileErr.Code)
			assert.Contains(t, fileErr.Message, ".pdf")
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("Report.PDF"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("a.jpg"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("blob"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("../../etc/report.pdf"))
	assert.Equal(t, "report.pdf", SanitizeFilename(`C:\docs\report.pdf`))
	assert.Equal(t, "file", SanitizeFilename(""))
}

func TestSaveUploadedFile(t *testing.T) {
	content := []byte("%PDF-1.4 fake")
	fileHeader := createTestFileHeader("report.pdf", int64(len(content)), content)
	require.NotNil(t, fileHeader)

	dir := t.TempDir()
	require.NoError(t, SaveUploadedFile(fileHeader, dir, "1700000000_report.pdf"))

	saved, err := os.ReadFile(filepath.Join(dir, "1700000000_report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, content, saved)
}

func TestGetDocumentURL(t *testing.T) {
	assert.Equal(t, "/api/v1/uploads/1_report.pdf", GetDocumentURL("1_report.pdf"))
	assert.Equal(t, "", GetDocumentURL(""))
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{
		Code:    "TEST_CODE",
		Message: "Test error message",
	}

	assert.Equal(t, "Test error message", err.Error())
}
