package bootstrap

import (
	"context"
	"log"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/controller"
	"ai-docqa-be/internal/handler"
	"ai-docqa-be/internal/pkg/filestore"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/pkg/serverutils"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/implementation"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/internal/service"
	"ai-docqa-be/internal/websocket"
	"ai-docqa-be/pkg/cancellation"
	"ai-docqa-be/pkg/events"
	pktNats "ai-docqa-be/pkg/nats"
	"ai-docqa-be/pkg/vectorindex"
	vmemory "ai-docqa-be/pkg/vectorindex/memory"
	"ai-docqa-be/pkg/vectorindex/qdrant"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Background services, started by Start
	ConsumerService service.IConsumerService
	StatusNotifier  *service.StatusNotifier

	HealthService service.IHealthService

	// WebSockets
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db may be nil, in which case document
// and chat records live in memory; this only makes sense together with the
// memory vector backend.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	var (
		documentRepo contract.DocumentRepository
		uowFactory   unitofwork.RepositoryFactory
	)
	if db != nil {
		documentRepo = implementation.NewDocumentRepository(db)
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		log.Println("[WARN] No database configured, documents and chats are kept in memory")
		documentRepo = memory.NewDocumentRepository()
		uowFactory = unitofwork.NewMemoryRepositoryFactory(documentRepo, memory.NewChatSessionRepository(), memory.NewChatMessageRepository())
	}

	store := c.newVectorStore(db, cfg.Vector)
	pipeline, err := NewPipeline(cfg, store, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to build RAG pipeline: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s, LLM Provider: %s, Vector Backend: %s",
		cfg.Ai.EmbeddingProvider, cfg.Ai.LLMProvider, cfg.Vector.Backend)

	files, err := filestore.NewLocalStore(cfg.App.UploadDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to prepare upload directory: %v", err)
	}

	// 2. Job queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure: NATS for status events, Redis for cancel flags and
	// websocket fan-out. Both are optional.
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.Messaging.NatsURL != "" {
		if natsPub, err = pktNats.NewPublisher(cfg.Messaging.NatsURL, sysLogger); err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			c.closers = append(c.closers, natsPub.Close)
		}
		if natsSub, err = pktNats.NewSubscriber(cfg.Messaging.NatsURL, sysLogger); err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	rdb := c.newRedis(cfg.Messaging.RedisURL)
	var cancels cancellation.Registry = cancellation.NewMemoryRegistry(cancellation.DefaultTTL)
	if rdb != nil {
		cancels = cancellation.NewRedisRegistry(rdb, cancellation.DefaultTTL)
	}

	wsHub := websocket.NewHub(rdb, sysLogger)
	statusNotifier := service.NewStatusNotifier(natsSub, wsHub, sysLogger)

	// Without a working NATS pair, events go straight to the notifier.
	var statusEvents events.Publisher = statusNotifier
	if natsPub != nil && natsSub != nil {
		statusEvents = natsPub
	}

	// 4. Services
	publisherService := service.NewPublisherService(cfg.Rag.IngestTopic, pubSub)
	ingestionService := service.NewIngestionService(
		documentRepo,
		files,
		pipeline.Normalizer,
		pipeline.Assembler,
		pipeline.Index,
		cancels,
		statusEvents,
		sysLogger,
		service.IngestionConfig{
			BatchSize:  cfg.Rag.BatchSize,
			AddPause:   cfg.Rag.AddPause,
			BatchPause: cfg.Rag.BatchPause,
		},
	)
	consumerService := service.NewConsumerService(pubSub, cfg.Rag.IngestTopic, ingestionService, sysLogger, cfg.Rag.Workers)

	documentService := service.NewDocumentService(
		documentRepo,
		files,
		pipeline.Index,
		publisherService,
		cancels,
		statusEvents,
		sysLogger,
		service.UploadConfig{
			MaxBytes:          int64(cfg.App.MaxUploadBytes),
			AllowedExtensions: cfg.App.AllowedExtensions,
			StaleAfter:        cfg.Rag.StaleAfter,
		},
	)
	chatService := service.NewChatService(
		uowFactory,
		pipeline.Coordinator,
		pipeline.Synthesizer,
		sysLogger,
		service.ChatConfig{TopK: cfg.Rag.TopK, HistoryTurns: cfg.Rag.HistoryTurns},
	)

	// 5. Controllers
	auth := serverutils.JwtMiddleware(cfg.App.JwtSecret)
	c.DocumentController = controller.NewDocumentController(documentService, auth)
	c.ChatController = controller.NewChatController(chatService, auth)
	c.ConsumerService = consumerService
	c.HealthService = service.NewHealthService(db, store, sysLogger)
	c.StatusNotifier = statusNotifier
	c.WebSocketHub = wsHub
	c.NotificationHandler = handler.NewNotificationHandler(wsHub, cfg.App.JwtSecret, sysLogger)
	return c
}

// Start runs the background workers until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	if err := c.StatusNotifier.Start(ctx); err != nil {
		return err
	}
	return c.ConsumerService.Consume(ctx)
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func (c *Container) newVectorStore(db *gorm.DB, cfg config.VectorConfig) vectorindex.Store {
	switch cfg.Backend {
	case "pgvector":
		if db == nil {
			log.Fatalf("[FATAL] pgvector backend requires DB_CONNECTION_STRING")
		}
		return implementation.NewDocumentChunkRepository(db)
	case "qdrant":
		store, err := qdrant.New(cfg.QdrantAddress)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to Qdrant: %v", err)
		}
		c.closers = append(c.closers, func() { _ = store.Close() })
		return store
	case "memory":
		return vmemory.NewStore()
	default:
		log.Fatalf("[FATAL] Unsupported vector backend: %s", cfg.Backend)
		return nil
	}
}

func (c *Container) newRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-process state", err)
		_ = rdb.Close()
		return nil
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return rdb
}
