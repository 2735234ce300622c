package bootstrap

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/controller"
	"ai-orchestrator-be/internal/eventbus"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/implementation"
	"ai-orchestrator-be/internal/repository/memory"
	"ai-orchestrator-be/internal/repository/unitofwork"
	"ai-orchestrator-be/internal/service"
	"ai-orchestrator-be/internal/websocket"
	"ai-orchestrator-be/pkg/embedding"
	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/llm/ollama"
	pktNats "ai-orchestrator-be/pkg/nats"
	"ai-orchestrator-be/pkg/stt"
	sttgoogle "ai-orchestrator-be/pkg/stt/google"
	"ai-orchestrator-be/pkg/tts"
	"ai-orchestrator-be/pkg/tts/elevenlabs"
)

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	UserdataController controller.IUserdataController

	// Realtime Gateway
	Gateway *websocket.Gateway

	// Shared infrastructure exposed for shutdown
	Bus       eventbus.Bus
	Publisher *pktNats.Publisher
	Logger    logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	bus := eventbus.NewWatermillBus(sysLogger)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbedModel,
			cfg.Ai.EmbeddingDim,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(
			cfg.Ai.GeminiAPIKey,
			cfg.Ai.GeminiEmbedModel,
			cfg.Ai.EmbeddingDim,
		)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.GeminiEmbedModel)
	}

	var llmProvider llm.StreamAdapter
	switch cfg.Ai.LLMProvider {
	case "ollama":
		llmProvider = ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
		log.Printf("[INFO] Using LLM Provider: OLLAMA (%s)", cfg.Ai.LLMModel)
	default:
		log.Fatalf("[FATAL] Unknown LLM provider: %s", cfg.Ai.LLMProvider)
	}

	var sttProvider stt.Adapter
	switch cfg.Ai.STTProvider {
	case "google":
		provider, err := sttgoogle.NewGoogleProvider(context.Background())
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize Speech client: %v", err)
		}
		sttProvider = provider
		log.Printf("[INFO] Using STT Provider: GOOGLE")
	default:
		log.Fatalf("[FATAL] Unknown STT provider: %s", cfg.Ai.STTProvider)
	}

	var ttsProvider tts.Adapter
	switch cfg.Ai.TTSProvider {
	case "elevenlabs":
		ttsProvider = elevenlabs.NewElevenLabsProvider(cfg.Ai.ElevenLabsAPIKey, cfg.Ai.ElevenLabsVoiceID)
		log.Printf("[INFO] Using TTS Provider: ELEVENLABS (%s)", cfg.Ai.ElevenLabsVoiceID)
	default:
		log.Fatalf("[FATAL] Unknown TTS provider: %s", cfg.Ai.TTSProvider)
	}

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	stateRepo := memory.NewStateRepository()
	shortTermStore := implementation.NewRedisShortTermStore(rdb, cfg.Memory.ShortTermWindow)

	// 5. Services
	registryService := service.NewRegistryService(
		uowFactory,
		stateRepo,
		shortTermStore,
		natsPub,
		sysLogger,
		cfg.Auth.JWTSecret,
		cfg.Auth.ConnectionTokenTTL,
	)
	memoryService := service.NewMemoryService(
		uowFactory,
		shortTermStore,
		embeddingProvider,
		llmProvider,
		sysLogger,
		cfg.Memory.SummarizeThreshold,
		cfg.Memory.LongTermLimit,
	)
	ingestService := service.NewIngestService(
		sttProvider,
		bus,
		sysLogger,
		cfg.Ingest.BufferSize,
		cfg.Ingest.PushTimeout,
		cfg.Ingest.FlushWait,
	)
	orchestratorService := service.NewOrchestratorService(
		registryService,
		memoryService,
		llmProvider,
		ttsProvider,
		bus,
		sysLogger,
		cfg.Turn.GenerateTimeout,
		cfg.Turn.SynthesisTimeout,
	)
	userdataService := service.NewUserdataService(
		uowFactory,
		stateRepo,
		shortTermStore,
		natsPub,
		sysLogger,
	)

	// 6. Realtime Gateway
	gatewayLogger := logger.NewIsolatedLogger(cfg.App.GatewayLogPath)
	gateway := websocket.NewGateway(
		registryService,
		ingestService,
		orchestratorService,
		bus,
		gatewayLogger,
		cfg.Auth.JWTSecret,
	)

	// 7. Controllers
	sessionController := controller.NewSessionController(registryService)
	userdataController := controller.NewUserdataController(userdataService)

	return &Container{
		SessionController:  sessionController,
		UserdataController: userdataController,
		Gateway:            gateway,
		Bus:                bus,
		Publisher:          natsPub,
		Logger:             sysLogger,
	}
}
