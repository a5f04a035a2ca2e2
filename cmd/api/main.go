package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/patronlabs/patron-gateway/internal/config"
	gateway "github.com/patronlabs/patron-gateway/internal/gateways"
	"github.com/patronlabs/patron-gateway/internal/handlers"
	"github.com/patronlabs/patron-gateway/internal/queue"
	"github.com/patronlabs/patron-gateway/internal/repository"
	"github.com/patronlabs/patron-gateway/internal/services"
	xhttp "github.com/patronlabs/patron-gateway/pkg/http"
	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/patronlabs/patron-gateway/pkg/pg"
	"github.com/patronlabs/patron-gateway/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	// settlement events fan out to the reconciler through this stream
	settlementQ, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	// external clients
	ledgerClient := gateway.NewAptosClient(gateway.AptosConfig{
		NodeURL:        config.Get().AptosNodeURL,
		RequestTimeout: config.Get().AptosRequestTimeout,
	})
	relayClient := gateway.NewRelayClient(gateway.RelayConfig{
		BaseURL:        config.Get().RelayBaseUrl,
		RequestTimeout: config.Get().RelayRequestTimeout,
	})
	llmClient := gateway.NewLLMClient(gateway.LLMConfig{
		BaseURL:        config.Get().LLMBaseUrl,
		APIKey:         config.Get().LLMAPIKey,
		Model:          config.Get().LLMModel,
		RequestTimeout: config.Get().LLMRequestTimeout,
	})

	userRepo := repository.NewUserRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	memoRepo := repository.NewMemoRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	// services
	userService := services.NewUserService(userRepo)
	campaignService := services.NewCampaignService(campaignRepo, memoRepo, userRepo, settlementQ)
	conversationService := services.NewConversationService(conversationRepo, userRepo, campaignRepo)
	swapService := services.NewSwapService(ledgerClient, relayClient, redisAdap)
	improveService := services.NewImproveService(campaignRepo, llmClient)
	healthService := services.NewHealthService()

	// v1 handlers
	userHandler := handlers.NewUserHandler(userService)
	campaignHandler := handlers.NewCampaignHandler(campaignService)
	messageHandler := handlers.NewMessageHandler(conversationService)
	swapHandler := handlers.NewSwapHandler(swapService)
	improveHandler := handlers.NewImproveHandler(improveService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterUserRoutes(g, userHandler)
	handlers.RegisterCampaignRoutes(g, campaignHandler)
	handlers.RegisterMessageRoutes(g, messageHandler)
	handlers.RegisterSwapRoutes(g, swapHandler)
	handlers.RegisterImproveRoutes(g, improveHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// Create new server
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
