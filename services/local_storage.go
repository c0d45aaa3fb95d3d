package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/utils"
)

// LocalFileStorage keeps documents on local disk when no bucket is configured
type LocalFileStorage struct {
	dir string
	now func() time.Time
}

// NewLocalFileStorage stores uploads under dir
func NewLocalFileStorage(dir string) *LocalFileStorage {
	return &LocalFileStorage{dir: dir, now: time.Now}
}

// Dir is where files are written
func (l *LocalFileStorage) Dir() string {
	return l.dir
}

// UploadFile writes the file flat under dir; the key doubles as the served filename
func (l *LocalFileStorage) UploadFile(_ context.Context, prefix string, fileHeader *multipart.FileHeader) (string, error) {
	flat := strings.ReplaceAll(strings.Trim(prefix, "/"), "/", "_")
	name := fmt.Sprintf("%d_%s", l.now().Unix(), utils.SanitizeFilename(fileHeader.Filename))
	if flat != "" {
		name = flat + "_" + name
	}
	if err := utils.SaveUploadedFile(fileHeader, l.dir, name); err != nil {
		return "", err
	}
	return name, nil
}

// GetPresignedURL returns the local download path for key
func (l *LocalFileStorage) GetPresignedURL(_ context.Context, key string) (string, error) {
	return utils.GetDocumentURL(key), nil
}

// DeleteFile removes the stored file
func (l *LocalFileStorage) DeleteFile(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, filepath.Base(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
