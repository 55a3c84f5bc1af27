package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"ai-docqa-be/internal/constant"
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/filestore"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/pkg/cancellation"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/normalizer"
	"ai-docqa-be/pkg/vectorindex"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type UploadConfig struct {
	MaxBytes          int64
	AllowedExtensions []string
	// StaleAfter lets reprocess and delete take over a PROCESSING document
	// whose run stopped reporting progress. Zero disables it.
	StaleAfter time.Duration
}

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, filename string, size int64, src io.Reader) (*dto.UploadDocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Reprocess(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
	Cancel(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
}

type documentService struct {
	documents        contract.DocumentRepository
	files            filestore.FileStore
	index            *vectorindex.Index
	publisherService IPublisherService
	cancels          cancellation.Registry
	events           events.Publisher
	logger           logger.ILogger
	cfg              UploadConfig
}

func NewDocumentService(
	documents contract.DocumentRepository,
	files filestore.FileStore,
	index *vectorindex.Index,
	publisherService IPublisherService,
	cancels cancellation.Registry,
	publisher events.Publisher,
	log logger.ILogger,
	cfg UploadConfig,
) IDocumentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &documentService{
		documents:        documents,
		files:            files,
		index:            index,
		publisherService: publisherService,
		cancels:          cancels,
		events:           publisher,
		logger:           log,
		cfg:              cfg,
	}
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, filename string, size int64, src io.Reader) (*dto.UploadDocumentResponse, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	if !s.allowed(ext) {
		return nil, fmt.Errorf("%w: %q", constant.ErrFileTypeNotAllowed, filepath.Ext(filename))
	}
	fileType, ok := normalizer.CanonicalType(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", constant.ErrFileTypeNotAllowed, filepath.Ext(filename))
	}
	if size <= 0 {
		return nil, constant.ErrEmptyFile
	}
	if s.cfg.MaxBytes > 0 && size > s.cfg.MaxBytes {
		return nil, fmt.Errorf("%w (max %d bytes)", constant.ErrFileTooLarge, s.cfg.MaxBytes)
	}

	doc := &entity.Document{
		Id:        uuid.New(),
		UserId:    userId,
		Filename:  filename,
		FileType:  fileType,
		FileSize:  size,
		Status:    entity.DocumentStatusUploaded,
		CreatedAt: time.Now(),
	}

	path, err := s.files.Save(ctx, doc.Id.String()+"."+ext, src)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	doc.StoragePath = path

	if err := s.documents.Create(ctx, doc); err != nil {
		_ = s.files.Delete(ctx, path)
		return nil, err
	}

	if err := s.enqueue(ctx, doc.Id, false); err != nil {
		doc.Status = entity.DocumentStatusFailed
		doc.ErrorMessage = "could not queue document for processing"
		_ = s.documents.Update(ctx, doc)
		return nil, err
	}

	s.logger.Info("DocumentService", "Document uploaded", map[string]interface{}{
		"document_id": doc.Id.String(),
		"user_id":     userId.String(),
		"file_type":   fileType,
		"size":        size,
	})
	s.notify(ctx, doc)

	return &dto.UploadDocumentResponse{
		Id:       doc.Id,
		Filename: doc.Filename,
		FileType: doc.FileType,
		FileSize: doc.FileSize,
		Status:   string(doc.Status),
	}, nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	filters := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.NotDeleted{},
	}
	if req.Status != "" {
		filters = append(filters, specification.ByStatus{Statuses: []entity.DocumentStatus{entity.DocumentStatus(req.Status)}})
	}
	if req.FileType != "" {
		filters = append(filters, specification.ByFileType{FileType: req.FileType})
	}
	if q := strings.TrimSpace(req.Search); q != "" {
		filters = append(filters, specification.FilenameSearch{Query: q})
	}

	total, err := s.documents.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	order := specification.OrderBy{Field: req.Sort, Desc: req.Order != "asc"}
	docs, err := s.documents.FindAll(ctx, append(filters,
		order,
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)...)
	if err != nil {
		return nil, err
	}

	res := &dto.ListDocumentsResponse{
		Documents: make([]*dto.DocumentResponse, 0, len(docs)),
		Total:     total,
		Page:      page,
		Limit:     limit,
	}
	for _, d := range docs {
		res.Documents = append(res.Documents, toDocumentResponse(d))
	}
	return res, nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	doc, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	collection := vectorindex.CollectionName(doc.Id.String())
	n, err := s.index.Count(ctx, collection)
	if err != nil {
		s.logger.Warn("DocumentService", "Collection count unavailable", map[string]interface{}{"document_id": id.String(), "error": err.Error()})
		n = -1
	}

	return &dto.ShowDocumentResponse{
		DocumentResponse: *toDocumentResponse(doc),
		Stats: dto.CollectionStats{
			Collection:   collection,
			IndexedCount: n,
			InSync:       n == doc.ChunkCount,
		},
	}, nil
}

// Delete removes the document, its collection and the stored file. A
// document being processed has to be cancelled first; a queued one is
// withdrawn from the queue before anything is removed.
func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	doc, err := s.owned(ctx, userId, id)
	if err != nil {
		return err
	}

	switch {
	case doc.Status == entity.DocumentStatusUploaded:
		doc.Status = entity.DocumentStatusCancelled
		doc.ErrorMessage = "deleted before processing started"
		if err := s.claim(ctx, doc, contract.StatusGuard{From: []entity.DocumentStatus{entity.DocumentStatusUploaded}}, "cancel processing before deleting"); err != nil {
			return err
		}
	case doc.Status == entity.DocumentStatusProcessing:
		doc.Status = entity.DocumentStatusFailed
		doc.ErrorMessage = "processing stalled"
		if err := s.claim(ctx, doc, s.staleGuard(), "cancel processing before deleting"); err != nil {
			return err
		}
	}

	if err := s.index.DeleteCollection(ctx, vectorindex.CollectionName(doc.Id.String())); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.Warn("DocumentService", "Failed to remove stored file", map[string]interface{}{"document_id": id.String(), "error": err.Error()})
	}
	if err := s.documents.Delete(ctx, doc.Id); err != nil {
		return err
	}
	_ = s.cancels.Clear(ctx, doc.Id.String())

	s.logger.Info("DocumentService", "Document deleted", map[string]interface{}{"document_id": id.String()})
	return nil
}

// Reprocess puts a finished document back into the queue. The move to
// UPLOADED is conditional, so a second request for the same document is
// rejected instead of queueing a duplicate run. A stalled PROCESSING
// document can be reprocessed as well.
func (s *documentService) Reprocess(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	from := doc.Status

	guard := contract.StatusGuard{From: entity.TerminalStatuses}
	if from == entity.DocumentStatusProcessing {
		guard = s.staleGuard()
	}

	doc.Status = entity.DocumentStatusUploaded
	doc.ErrorMessage = ""
	doc.ProcessedAt = nil
	if err := s.claim(ctx, doc, guard, fmt.Sprintf("%s documents cannot be reprocessed", from)); err != nil {
		return nil, err
	}
	if err := s.cancels.Clear(ctx, doc.Id.String()); err != nil {
		s.logger.Warn("DocumentService", "Failed to clear cancellation flag", map[string]interface{}{"document_id": id.String(), "error": err.Error()})
	}

	if err := s.enqueue(ctx, doc.Id, true); err != nil {
		now := time.Now()
		doc.Status = entity.DocumentStatusFailed
		doc.ErrorMessage = "could not queue document for processing"
		doc.ProcessedAt = &now
		if _, uerr := s.documents.UpdateStatus(ctx, doc, contract.StatusGuard{From: []entity.DocumentStatus{entity.DocumentStatusUploaded}}); uerr != nil {
			s.logger.Error("DocumentService", "Failed to restore document after queue error", map[string]interface{}{"document_id": id.String(), "error": uerr.Error()})
		}
		return nil, err
	}

	s.logger.Info("DocumentService", "Reprocess queued", map[string]interface{}{"document_id": id.String(), "from": string(from)})
	s.notify(ctx, doc)
	return toDocumentResponse(doc), nil
}

// Cancel stops a document before or during processing. Queued documents are
// cancelled at once; running ones stop at the next batch boundary. A worker
// may claim a queued document while the cancel is in flight, in which case
// the request falls through to the running path.
func (s *documentService) Cancel(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.owned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	if doc.Status == entity.DocumentStatusUploaded {
		now := time.Now()
		doc.Status = entity.DocumentStatusCancelled
		doc.ErrorMessage = "cancelled before processing started"
		doc.ProcessedAt = &now
		applied, err := s.documents.UpdateStatus(ctx, doc, contract.StatusGuard{From: []entity.DocumentStatus{entity.DocumentStatusUploaded}})
		if err != nil {
			return nil, err
		}
		if applied {
			s.notify(ctx, doc)
			s.logger.Info("DocumentService", "Queued document cancelled", map[string]interface{}{"document_id": id.String()})
			return toDocumentResponse(doc), nil
		}
		if doc, err = s.owned(ctx, userId, id); err != nil {
			return nil, err
		}
	}

	if doc.Status != entity.DocumentStatusProcessing {
		return nil, fmt.Errorf("%w: %s documents cannot be cancelled", constant.ErrInvalidDocumentState, doc.Status)
	}
	if err := s.cancels.Request(ctx, doc.Id.String()); err != nil {
		return nil, err
	}
	s.logger.Info("DocumentService", "Cancellation requested", map[string]interface{}{"document_id": id.String()})
	return toDocumentResponse(doc), nil
}

// claim applies doc's status under guard. A document that no longer
// satisfies the guard yields ErrInvalidDocumentState with reason.
func (s *documentService) claim(ctx context.Context, doc *entity.Document, guard contract.StatusGuard, reason string) error {
	applied, err := s.documents.UpdateStatus(ctx, doc, guard)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("%w: %s", constant.ErrInvalidDocumentState, reason)
	}
	return nil
}

// staleGuard admits a PROCESSING document whose run has stopped reporting.
// With StaleAfter unset it admits nothing.
func (s *documentService) staleGuard() contract.StatusGuard {
	if s.cfg.StaleAfter <= 0 {
		return contract.StatusGuard{}
	}
	return contract.StatusGuard{
		From:        []entity.DocumentStatus{entity.DocumentStatusProcessing},
		StaleBefore: time.Now().Add(-s.cfg.StaleAfter),
	}
}

func (s *documentService) owned(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Document, error) {
	doc, err := s.documents.FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, constant.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) allowed(ext string) bool {
	for _, a := range s.cfg.AllowedExtensions {
		if strings.TrimPrefix(strings.ToLower(a), ".") == ext {
			return true
		}
	}
	return false
}

func (s *documentService) enqueue(ctx context.Context, id uuid.UUID, reprocess bool) error {
	payload, err := json.Marshal(dto.ProcessDocumentMessage{DocumentId: id, Reprocess: reprocess})
	if err != nil {
		return err
	}
	return s.publisherService.Publish(ctx, payload)
}

func (s *documentService) notify(ctx context.Context, doc *entity.Document) {
	err := s.events.Publish(ctx, events.DocumentStatusChanged{
		DocumentID: doc.Id.String(),
		UserID:     doc.UserId.String(),
		Filename:   doc.Filename,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		Error:      doc.ErrorMessage,
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("DocumentService", "Failed to publish status event", map[string]interface{}{"document_id": doc.Id.String(), "error": err.Error()})
	}
}

func toDocumentResponse(d *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:           d.Id,
		Filename:     d.Filename,
		FileType:     d.FileType,
		FileSize:     d.FileSize,
		Status:       string(d.Status),
		ChunkCount:   d.ChunkCount,
		ErrorMessage: d.ErrorMessage,
		ProcessedAt:  d.ProcessedAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
