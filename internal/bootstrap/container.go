package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-studytool-be/internal/config"
	"ai-studytool-be/internal/controller"
	"ai-studytool-be/internal/handler"
	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/pkg/mailer"
	"ai-studytool-be/internal/pkg/serverutils"
	"ai-studytool-be/internal/repository/memory"
	"ai-studytool-be/internal/repository/unitofwork"
	"ai-studytool-be/internal/service"
	"ai-studytool-be/internal/websocket"
	"ai-studytool-be/pkg/credit"
	"ai-studytool-be/pkg/llm/factory"
	pktNats "ai-studytool-be/pkg/nats"
	"ai-studytool-be/pkg/ratelimit"
	"ai-studytool-be/pkg/studytool"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	OAuthController   controller.IOAuthController
	UserController    controller.IUserController
	WalletController  controller.IWalletController
	AiToolController  controller.IAiToolController
	HistoryController controller.IHistoryController
	AdminController   controller.IAdminController

	// Background services, started by main.go
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService
	MaintenanceService  *service.MaintenanceService

	// Realtime
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	clock := credit.SystemClock{}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.App.ClientURL,
		sysLogger,
	)

	defaults := credit.Defaults{
		Pricing:        credit.DefaultPricing(),
		DailyFreeLimit: cfg.Credits.DailyFreeCredits,
	}
	configCache := credit.NewConfigCache(
		service.NewToolConfigSource(uowFactory, sysLogger),
		clock,
		cfg.Credits.ConfigCacheTTL,
		defaults,
		sysLogger,
	)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	publisherService := service.NewPublisherService(pubSub, service.CreditEventsTopic)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS
	var forwarder service.EventForwarder
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		forwarder = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	var eventSubscriber service.EventSubscriber
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		eventSubscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	rdb := connectRedis(cfg.App.RedisURL)
	var limiterStorage fiber.Storage
	if rdb != nil {
		limiterStorage = ratelimit.NewRedisStorage(rdb, "studytool:")
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/realtime.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// LLM
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  llmBaseURL(cfg.Ai),
		APIKey:   cfg.Keys.OpenAI,
		Timeout:  cfg.Ai.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	runner := studytool.NewRunner(llmProvider)

	results := memory.NewResultRepository(cfg.Credits.ResultCacheTTL)

	// 4. Services
	walletService := service.NewWalletService(uowFactory, configCache, clock, publisherService, sysLogger)
	gateService := service.NewUsageGateService(uowFactory, configCache, clock, sysLogger)
	aiToolService := service.NewAiToolService(
		uowFactory,
		configCache,
		gateService,
		walletService,
		runner,
		results,
		clock,
		cfg.Ai.RequestTimeout,
		sysLogger,
	)
	authService := service.NewAuthService(uowFactory, walletService, configCache, publisherService, emailService, clock, sysLogger)
	var googleIdentity service.GoogleIdentity
	if cfg.Keys.GoogleClientID != "" {
		googleIdentity = service.NewGoogleIdentity(cfg.Keys.GoogleClientID, cfg.Keys.GoogleClientSecret, cfg.Keys.GoogleRedirectURL)
	} else {
		log.Printf("[INFO] GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}
	oauthService := service.NewOAuthService(uowFactory, googleIdentity, walletService, configCache, publisherService, clock, sysLogger)
	userService := service.NewUserService(uowFactory, sysLogger)
	historyService := service.NewHistoryService(uowFactory, results, clock, sysLogger)
	adminService := service.NewAdminService(
		uowFactory,
		walletService,
		aiToolService,
		publisherService,
		defaults,
		clock,
		sysLogger,
	)

	var delivery service.RealtimeDelivery = wsHub
	c.ConsumerService = service.NewConsumerService(pubSub, service.CreditEventsTopic, forwarder, delivery, sysLogger)
	if eventSubscriber != nil {
		c.NotificationService = service.NewNotificationService(eventSubscriber, emailService, sysLogger)
	}
	c.MaintenanceService = service.NewMaintenanceService(
		uowFactory,
		clock,
		cfg.Credits.StaleRequestAfter,
		cfg.Credits.StaleSweepSchedule,
		sysLogger,
	)

	// 5. Controllers
	aiLimiter := serverutils.NewUserRateLimiter(cfg.Credits.AiRateLimitPerMin, time.Minute, limiterStorage)

	c.AuthController = controller.NewAuthController(authService)
	c.OAuthController = controller.NewOAuthController(oauthService, cfg.App.ClientURL, cfg.IsProduction(), sysLogger)
	c.UserController = controller.NewUserController(userService)
	c.WalletController = controller.NewWalletController(walletService)
	c.AiToolController = controller.NewAiToolController(aiToolService, aiLimiter)
	c.HistoryController = controller.NewHistoryController(historyService)
	c.AdminController = controller.NewAdminController(adminService)
	c.RealtimeHandler = handler.NewRealtimeHandler(wsHub, wsLogger)
	c.WebSocketHub = wsHub

	return c
}

// Close releases broker and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

// connectRedis returns nil when redis is unreachable; the hub and the rate limiter then stay process-local.
func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func llmBaseURL(cfg config.AIConfig) string {
	if cfg.LLMProvider == "ollama" {
		return cfg.OllamaBaseURL
	}
	return cfg.OpenAIBaseURL
}
