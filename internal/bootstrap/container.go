package bootstrap

import (
	"context"
	"log"

	"rag-chat-be/internal/config"
	"rag-chat-be/internal/controller"
	"rag-chat-be/internal/pkg/logger"
	memcache "rag-chat-be/internal/repository/memory"
	"rag-chat-be/internal/repository/unitofwork"
	"rag-chat-be/internal/service"
	"rag-chat-be/internal/websocket"
	"rag-chat-be/pkg/embedding"
	"rag-chat-be/pkg/events"
	"rag-chat-be/pkg/llm/factory"
	"rag-chat-be/pkg/rag/decision"
	"rag-chat-be/pkg/rag/sessionlock"
	"rag-chat-be/pkg/rag/workflow"
	"rag-chat-be/pkg/tokenizer"

	pktNats "rag-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	DocumentController  controller.IDocumentController
	RetrievalController controller.IRetrievalController

	// WebSockets
	StreamHandler *websocket.StreamHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		baseURL = cfg.Ai.OpenAIBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		baseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsEnabled {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisEnabled {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// 5. Workflow Core
	// With Redis leases other replicas commit turns too; the local memory
	// state cache cannot see their invalidations, so it runs disabled.
	stateCache := memcache.NewMemoryStateCache(rdb != nil)
	counter := tokenizer.NewTiktokenCounter(cfg.Ai.LLMModel)
	locks := sessionlock.NewRegistry(rdb)

	chatStore := service.NewChatStore(uowFactory, stateCache, counter)
	turnPublisher := service.NewTurnEventPublisher(natsPub, sysLogger)

	wfConfig := workflow.DefaultConfig()
	wfConfig.TokenBudget = cfg.Rag.TokenBudget
	wfConfig.MinTurns = cfg.Rag.MinTurns
	wfConfig.SummaryInterval = cfg.Rag.SummaryInterval
	wfConfig.WordThreshold = cfg.Rag.WordThreshold
	wfConfig.TopK = cfg.Rag.TopK
	wfConfig.UseMMR = cfg.Rag.UseMMR
	wfConfig.Lambda = cfg.Rag.Lambda
	wfConfig.Model = cfg.Ai.LLMModel

	orchestrator := workflow.NewOrchestrator(
		chatStore,
		embeddingProvider,
		llmProvider,
		turnPublisher,
		locks,
		counter,
		sysLogger,
		wfConfig,
	)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Keys.EmbedChunkTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.EmbedChunkTopic,
		uowFactory,
		embeddingProvider,
		sysLogger,
	)

	chatService := service.NewChatService(uowFactory, orchestrator, sysLogger)
	documentService := service.NewDocumentService(uowFactory, publisherService, natsPub, sysLogger)
	retrievalService := service.NewRetrievalService(
		uowFactory,
		embeddingProvider,
		decision.NewEngine(cfg.Rag.WordThreshold),
		cfg.Rag.Lambda,
		sysLogger,
	)

	// 7. Turn audit consumer: committed turns are mirrored to an isolated
	// log for offline analysis when the bus is up.
	if natsSub != nil {
		auditLogger := logger.NewIsolatedLogger("logs/turns.log")
		err := natsSub.Subscribe("ragchat."+events.TypeTurnCommitted, "turn-audit", func(ctx context.Context, evt events.Event) error {
			auditLogger.Info("audit", "turn committed", evt.Payload())
			return nil
		})
		if err != nil {
			log.Printf("[WARN] Failed to start turn audit consumer: %v", err)
		}
	}

	// 8. WebSocket streaming
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")
	streamHandler := websocket.NewStreamHandler(chatService, wsLogger)

	return &Container{
		ChatController:      controller.NewChatController(chatService),
		DocumentController:  controller.NewDocumentController(documentService),
		RetrievalController: controller.NewRetrievalController(retrievalService),

		StreamHandler: streamHandler,

		ConsumerService: consumerService,
		Logger:          sysLogger,
	}
}
