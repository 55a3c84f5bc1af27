package service

import (
	"context"
	"fmt"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/filestore"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/pkg/cancellation"
	"ai-docqa-be/pkg/chunker"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/normalizer"
	"ai-docqa-be/pkg/vectorindex"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Chunk metadata keys written on every indexed chunk.
const (
	MetaDocumentID  = "document_id"
	MetaUserID      = "user_id"
	MetaFilename    = "filename"
	MetaFileType    = "file_type"
	MetaChunkIndex  = "chunk_index"
	MetaStrategy    = "strategy"
	MetaChunkLength = "chunk_length"
)

// The final status write is retried before the run gives up on it.
const finishAttempts = 3

var finishBackoff = 200 * time.Millisecond

type IngestionConfig struct {
	BatchSize  int
	AddPause   time.Duration
	BatchPause time.Duration
}

type IIngestionService interface {
	// Process runs one ingestion of a queued (UPLOADED) document. The claim
	// into PROCESSING is conditional, so concurrent jobs for the same
	// document run it once and a cancel that lands first wins.
	Process(ctx context.Context, documentId uuid.UUID) error
}

type ingestionService struct {
	documents  contract.DocumentRepository
	files      filestore.FileStore
	normalizer *normalizer.Normalizer
	assembler  *chunker.Assembler
	index      *vectorindex.Index
	cancels    cancellation.Registry
	events     events.Publisher
	logger     logger.ILogger
	cfg        IngestionConfig
}

func NewIngestionService(
	documents contract.DocumentRepository,
	files filestore.FileStore,
	norm *normalizer.Normalizer,
	assembler *chunker.Assembler,
	index *vectorindex.Index,
	cancels cancellation.Registry,
	publisher events.Publisher,
	log logger.ILogger,
	cfg IngestionConfig,
) IIngestionService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ingestionService{
		documents:  documents,
		files:      files,
		normalizer: norm,
		assembler:  assembler,
		index:      index,
		cancels:    cancels,
		events:     publisher,
		logger:     log,
		cfg:        cfg,
	}
}

// indexOutcome folds per-chunk results of one run.
type indexOutcome struct {
	total     int
	succeeded int
	failed    int
	lastErr   error
	cancelled bool
	// lost is set when the document stopped being this run's to write.
	lost bool
}

func (o indexOutcome) add(err error) indexOutcome {
	if err != nil {
		o.failed++
		o.lastErr = err
	} else {
		o.succeeded++
	}
	return o
}

func (o indexOutcome) status() (entity.DocumentStatus, string) {
	switch {
	case o.cancelled && o.succeeded == 0:
		return entity.DocumentStatusCancelled, "cancelled before any chunk was indexed"
	case o.cancelled:
		return entity.DocumentStatusPartiallyProcessed, fmt.Sprintf("cancelled after %d/%d chunks", o.succeeded, o.total)
	case o.succeeded == o.total:
		return entity.DocumentStatusProcessed, ""
	case o.succeeded == 0:
		return entity.DocumentStatusFailed, fmt.Sprintf("indexed 0/%d chunks: %v", o.total, o.lastErr)
	default:
		return entity.DocumentStatusPartiallyProcessed, fmt.Sprintf("indexed %d/%d chunks: %v", o.succeeded, o.total, o.lastErr)
	}
}

func (s *ingestionService) Process(ctx context.Context, documentId uuid.UUID) error {
	doc, err := s.documents.FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil {
		return err
	}
	if doc == nil {
		s.logger.Warn("Ingestion", "Document no longer exists, skipping", map[string]interface{}{"document_id": documentId.String()})
		return nil
	}
	if doc.Status != entity.DocumentStatusUploaded {
		s.logger.Info("Ingestion", "Skipping document that is not queued", map[string]interface{}{
			"document_id": doc.Id.String(),
			"status":      string(doc.Status),
		})
		return nil
	}

	doc.Status = entity.DocumentStatusProcessing
	doc.ChunkCount = 0
	doc.ErrorMessage = ""
	doc.ProcessedAt = nil
	claimed, err := s.transition(ctx, doc, entity.DocumentStatusUploaded)
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Info("Ingestion", "Document was claimed or cancelled before this run", map[string]interface{}{"document_id": doc.Id.String()})
		return nil
	}

	collection := vectorindex.CollectionName(doc.Id.String())
	if err := s.index.DeleteCollection(ctx, collection); err != nil {
		return s.finish(ctx, doc, entity.DocumentStatusFailed, 0, err.Error())
	}

	data, err := s.files.Read(ctx, doc.StoragePath)
	if err != nil {
		return s.finish(ctx, doc, entity.DocumentStatusFailed, 0, fmt.Sprintf("could not read uploaded file: %v", err))
	}

	text, err := s.normalizer.Normalize(data, doc.Filename, doc.FileType)
	if err != nil {
		return s.finish(ctx, doc, entity.DocumentStatusFailed, 0, err.Error())
	}

	chunks, err := s.assembler.Assemble(ctx, text, doc.FileType)
	if err != nil {
		return s.finish(ctx, doc, entity.DocumentStatusFailed, 0, err.Error())
	}
	if len(chunks) == 0 {
		return s.finish(ctx, doc, entity.DocumentStatusFailed, 0, "no chunks produced")
	}

	s.logger.Info("Ingestion", "Indexing document", map[string]interface{}{
		"document_id": doc.Id.String(),
		"chunks":      len(chunks),
		"collection":  collection,
	})

	outcome := s.indexChunks(ctx, doc, collection, chunks)
	if outcome.lost {
		s.release(ctx, doc)
		return nil
	}
	status, message := outcome.status()

	if outcome.cancelled {
		if err := s.cancels.Clear(ctx, doc.Id.String()); err != nil {
			s.logger.Warn("Ingestion", "Failed to clear cancellation flag", map[string]interface{}{"document_id": doc.Id.String(), "error": err.Error()})
		}
	}
	return s.finish(ctx, doc, status, outcome.succeeded, message)
}

// indexChunks adds chunks batch by batch. Cancellation is observed only at
// batch boundaries; chunks already indexed stay in the collection.
func (s *ingestionService) indexChunks(ctx context.Context, doc *entity.Document, collection string, chunks []chunker.Chunk) indexOutcome {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.cfg.AddPause > 0 {
		limiter = rate.NewLimiter(rate.Every(s.cfg.AddPause), 1)
	}

	outcome := indexOutcome{total: len(chunks)}
	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		if start > 0 {
			if err := sleep(ctx, s.cfg.BatchPause); err != nil {
				return s.abort(outcome, len(chunks)-start, err)
			}
			if !s.heartbeat(ctx, doc, outcome.succeeded) {
				outcome.lost = true
				return outcome
			}
		}
		if s.cancelRequested(ctx, doc.Id) {
			outcome.cancelled = true
			s.logger.Info("Ingestion", "Cancellation observed", map[string]interface{}{
				"document_id": doc.Id.String(),
				"indexed":     outcome.succeeded,
				"total":       outcome.total,
			})
			return outcome
		}

		end := start + s.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		for i, c := range chunks[start:end] {
			if err := limiter.Wait(ctx); err != nil {
				return s.abort(outcome, len(chunks)-start-i, err)
			}
			_, err := s.index.Add(ctx, collection, c.Text, chunkMetadata(doc, c))
			if err != nil {
				s.logger.Warn("Ingestion", "Chunk failed to index", map[string]interface{}{
					"document_id": doc.Id.String(),
					"chunk_index": c.Index,
					"error":       err.Error(),
				})
			}
			outcome = outcome.add(err)
		}
	}
	return outcome
}

// abort counts the remaining chunks as failed when the run's context ends.
func (s *ingestionService) abort(o indexOutcome, remaining int, err error) indexOutcome {
	for i := 0; i < remaining; i++ {
		o = o.add(err)
	}
	return o
}

// heartbeat records progress and refreshes updated_at so the run is not
// taken for stalled. It reports false once the document is no longer
// PROCESSING, i.e. it was deleted or reclaimed.
func (s *ingestionService) heartbeat(ctx context.Context, doc *entity.Document, indexed int) bool {
	doc.ChunkCount = indexed
	held, err := s.documents.UpdateStatus(ctx, doc, contract.StatusGuard{From: []entity.DocumentStatus{entity.DocumentStatusProcessing}})
	if err != nil {
		s.logger.Warn("Ingestion", "Progress update failed", map[string]interface{}{"document_id": doc.Id.String(), "error": err.Error()})
		return true
	}
	if !held {
		s.logger.Warn("Ingestion", "Document left PROCESSING during the run, stopping", map[string]interface{}{
			"document_id": doc.Id.String(),
			"indexed":     indexed,
		})
	}
	return held
}

// release drops what a run indexed once its document is gone.
func (s *ingestionService) release(ctx context.Context, doc *entity.Document) {
	ctx = context.WithoutCancel(ctx)
	current, err := s.documents.FindOne(ctx, specification.ByID{ID: doc.Id})
	if err != nil || current != nil {
		return
	}
	if err := s.index.DeleteCollection(ctx, vectorindex.CollectionName(doc.Id.String())); err != nil {
		s.logger.Warn("Ingestion", "Failed to drop collection of deleted document", map[string]interface{}{"document_id": doc.Id.String(), "error": err.Error()})
	}
}

func (s *ingestionService) cancelRequested(ctx context.Context, documentId uuid.UUID) bool {
	if s.cancels == nil {
		return false
	}
	requested, err := s.cancels.IsRequested(ctx, documentId.String())
	if err != nil {
		s.logger.Warn("Ingestion", "Cancellation lookup failed", map[string]interface{}{"document_id": documentId.String(), "error": err.Error()})
		return false
	}
	return requested
}

func chunkMetadata(doc *entity.Document, c chunker.Chunk) map[string]interface{} {
	meta := make(map[string]interface{}, len(c.Extras)+7)
	for k, v := range c.Extras {
		meta[k] = v
	}
	meta[MetaDocumentID] = doc.Id.String()
	meta[MetaUserID] = doc.UserId.String()
	meta[MetaFilename] = doc.Filename
	meta[MetaFileType] = doc.FileType
	meta[MetaChunkIndex] = c.Index
	meta[MetaStrategy] = string(c.Strategy)
	meta[MetaChunkLength] = len([]rune(c.Text))
	return meta
}

func (s *ingestionService) finish(ctx context.Context, doc *entity.Document, status entity.DocumentStatus, chunkCount int, message string) error {
	now := time.Now()
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.ErrorMessage = message
	doc.ProcessedAt = &now

	details := map[string]interface{}{
		"document_id": doc.Id.String(),
		"status":      string(status),
		"chunk_count": chunkCount,
	}
	if message != "" {
		details["error"] = message
	}
	if status == entity.DocumentStatusProcessed {
		s.logger.Info("Ingestion", "Document processed", details)
	} else {
		s.logger.Warn("Ingestion", "Document finished with problems", details)
	}

	// The run's context may already be done; the final status must still land.
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= finishAttempts; attempt++ {
		var applied bool
		applied, err = s.transition(ctx, doc, entity.DocumentStatusProcessing)
		if err == nil {
			if !applied {
				s.logger.Warn("Ingestion", "Document left PROCESSING before the run finished", details)
				s.release(ctx, doc)
			}
			return nil
		}
		if attempt < finishAttempts {
			_ = sleep(ctx, finishBackoff*time.Duration(attempt))
		}
	}
	return err
}

// transition moves doc to its in-memory status if the stored status is one
// of from, and publishes the change.
func (s *ingestionService) transition(ctx context.Context, doc *entity.Document, from ...entity.DocumentStatus) (bool, error) {
	applied, err := s.documents.UpdateStatus(ctx, doc, contract.StatusGuard{From: from})
	if err != nil {
		s.logger.Error("Ingestion", "Failed to persist document status", map[string]interface{}{
			"document_id": doc.Id.String(),
			"status":      string(doc.Status),
			"error":       err.Error(),
		})
		return false, err
	}
	if !applied {
		return false, nil
	}

	evt := events.DocumentStatusChanged{
		DocumentID: doc.Id.String(),
		UserID:     doc.UserId.String(),
		Filename:   doc.Filename,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		Error:      doc.ErrorMessage,
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("Ingestion", "Failed to publish status event", map[string]interface{}{"document_id": doc.Id.String(), "error": err.Error()})
	}
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
