package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/sirupsen/logrus"
)

// DocumentService manages files attached to orders
type DocumentService struct {
	store   store.OrderStore
	storage FileStorage
	logger  *logrus.Logger
	now     func() time.Time
}

// NewDocumentService builds the document service over the order store and file storage
func NewDocumentService(s store.OrderStore, storage FileStorage, logger *logrus.Logger) *DocumentService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DocumentService{store: s, storage: storage, logger: logger, now: time.Now}
}

func documentPrefix(orderID string) string {
	return fmt.Sprintf("orders/%s/", orderID)
}

// List returns the order's documents with a fresh download URL each
func (d *DocumentService) List(ctx context.Context, orderID string) ([]models.OrderDocument, error) {
	if _, err := d.store.GetOrder(ctx, orderID); err != nil {
		return nil, notFound("order", orderID, err)
	}
	docs, err := d.store.ListDocuments(ctx, orderID)
	if err != nil {
		return nil, notFound("order", orderID, err)
	}
	for i := range docs {
		d.withURL(ctx, &docs[i])
	}
	return docs, nil
}

func (d *DocumentService) withURL(ctx context.Context, doc *models.OrderDocument) {
	url, err := d.storage.GetPresignedURL(ctx, doc.StorageKey)
	if err != nil {
		config.LogError(d.logger, "DocumentService", "withURL", "failed to build document URL", doc.ID, err)
		return
	}
	doc.FileURL = url
}

// Upload validates and stores the file, then records its metadata and a history entry
func (d *DocumentService) Upload(ctx context.Context, orderID string, docType models.DocumentType, fileHeader *multipart.FileHeader, actor string) (*models.OrderDocument, error) {
	if docType == "" {
		docType = models.DocumentOther
	}
	if !docType.Valid() {
		return nil, ValidationErrors{{Field: "document_type", Message: fmt.Sprintf("%q is not a valid value", docType)}}
	}
	if err := utils.ValidateDocumentFile(fileHeader); err != nil {
		return nil, err
	}
	if _, err := d.store.GetOrder(ctx, orderID); err != nil {
		return nil, notFound("order", orderID, err)
	}

	key, err := d.storage.UploadFile(ctx, documentPrefix(orderID), fileHeader)
	if err != nil {
		return nil, err
	}

	now := d.now()
	doc := &models.OrderDocument{
		ID:           uuid.NewString(),
		OrderID:      orderID,
		DocumentType: docType,
		FileName:     utils.SanitizeFilename(fileHeader.Filename),
		StorageKey:   key,
		FileSize:     fileHeader.Size,
		ContentType:  utils.ContentTypeFor(fileHeader.Filename),
		UploadedBy:   actor,
		UploadedAt:   now,
	}
	if err := d.store.AddDocument(ctx, doc); err != nil {
		if delErr := d.storage.DeleteFile(ctx, key); delErr != nil {
			config.LogError(d.logger, "DocumentService", "Upload", "failed to remove orphaned file", key, delErr)
		}
		return nil, notFound("order", orderID, err)
	}

	name := doc.FileName
	if err := d.store.AppendHistory(ctx, models.OrderHistoryEntry{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Action:    models.ActionDocumentUploaded,
		ToValue:   &name,
		ChangedBy: actor,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	d.withURL(ctx, doc)
	return doc, nil
}

// Delete removes the metadata first; a failed blob delete is logged and left behind
func (d *DocumentService) Delete(ctx context.Context, orderID, documentID, actor string) error {
	doc, err := d.store.GetDocument(ctx, orderID, documentID)
	if err != nil {
		return notFound("document", documentID, err)
	}
	if err := d.store.DeleteDocument(ctx, orderID, documentID); err != nil {
		return notFound("document", documentID, err)
	}
	if err := d.storage.DeleteFile(ctx, doc.StorageKey); err != nil {
		config.LogError(d.logger, "DocumentService", "Delete", "failed to delete stored file", doc.StorageKey, err)
	}

	name := doc.FileName
	return d.store.AppendHistory(ctx, models.OrderHistoryEntry{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Action:    models.ActionDocumentDeleted,
		FromValue: &name,
		ChangedBy: actor,
		CreatedAt: d.now(),
	})
}
