package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/filestore"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/internal/service"
	"ai-docqa-be/pkg/cancellation"
	"ai-docqa-be/pkg/normalizer"
	"ai-docqa-be/pkg/vectorindex"
	vmemory "ai-docqa-be/pkg/vectorindex/memory"

	"github.com/google/uuid"
)

// workspace runs the server's ingestion and chat services in memory over
// files read straight from disk.
type workspace struct {
	pipeline  *bootstrap.Pipeline
	documents contract.DocumentRepository
	ingestion service.IIngestionService
	chat      service.IChatService
	user      uuid.UUID

	mu      sync.Mutex
	byPath  map[string]uuid.UUID
	session uuid.UUID
}

// newWorkspace serves files below root.
func newWorkspace(cfg *config.Config, root string, log logger.ILogger) (*workspace, error) {
	pipeline, err := bootstrap.NewPipeline(cfg, vmemory.NewStore(), log)
	if err != nil {
		return nil, err
	}
	files, err := filestore.NewLocalStore(root)
	if err != nil {
		return nil, err
	}

	documents := memory.NewDocumentRepository()
	return &workspace{
		pipeline:  pipeline,
		documents: documents,
		ingestion: service.NewIngestionService(
			documents,
			files,
			pipeline.Normalizer,
			pipeline.Assembler,
			pipeline.Index,
			cancellation.NewMemoryRegistry(0),
			nil,
			log,
			service.IngestionConfig{
				BatchSize:  cfg.Rag.BatchSize,
				AddPause:   cfg.Rag.AddPause,
				BatchPause: cfg.Rag.BatchPause,
			},
		),
		chat: service.NewChatService(
			unitofwork.NewMemoryRepositoryFactory(documents, memory.NewChatSessionRepository(), memory.NewChatMessageRepository()),
			pipeline.Coordinator,
			pipeline.Synthesizer,
			log,
			service.ChatConfig{TopK: cfg.Rag.TopK, HistoryTurns: cfg.Rag.HistoryTurns},
		),
		user:   uuid.New(),
		byPath: make(map[string]uuid.UUID),
	}, nil
}

func supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := normalizer.CanonicalType(filepath.Ext(base))
	return ok
}

// ingest indexes path, replacing whatever an earlier run indexed for it.
func (w *workspace) ingest(ctx context.Context, path string) (*entity.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	fileType, ok := normalizer.CanonicalType(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}

	w.mu.Lock()
	id, known := w.byPath[path]
	if !known {
		id = uuid.New()
		w.byPath[path] = id
	}
	w.mu.Unlock()

	if !known {
		err = w.documents.Create(ctx, &entity.Document{
			Id:          id,
			UserId:      w.user,
			Filename:    filepath.Base(path),
			FileType:    fileType,
			FileSize:    info.Size(),
			StoragePath: path,
			Status:      entity.DocumentStatusUploaded,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return nil, err
		}
	} else {
		// Re-queue a finished document; one still running keeps its run.
		requeued, err := w.documents.UpdateStatus(ctx, &entity.Document{Id: id, Status: entity.DocumentStatusUploaded},
			contract.StatusGuard{From: entity.TerminalStatuses})
		if err != nil {
			return nil, err
		}
		if !requeued {
			return w.documents.FindOne(ctx, specification.ByID{ID: id})
		}
	}

	if err := w.ingestion.Process(ctx, id); err != nil {
		return nil, err
	}
	return w.documents.FindOne(ctx, specification.ByID{ID: id})
}

func (w *workspace) forget(ctx context.Context, path string) error {
	w.mu.Lock()
	id, known := w.byPath[path]
	delete(w.byPath, path)
	w.mu.Unlock()
	if !known {
		return nil
	}
	if err := w.pipeline.Index.DeleteCollection(ctx, vectorindex.CollectionName(id.String())); err != nil {
		return err
	}
	return w.documents.Delete(ctx, id)
}

// ask keeps one chat session for the lifetime of the workspace.
func (w *workspace) ask(ctx context.Context, question string, topK int) (*dto.AskResponse, error) {
	w.mu.Lock()
	session := w.session
	w.mu.Unlock()

	res, err := w.chat.Ask(ctx, w.user, &dto.AskRequest{
		ChatSessionId: session,
		Question:      question,
		TopK:          topK,
	})
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.session = res.ChatSessionId
	w.mu.Unlock()
	return res, nil
}
