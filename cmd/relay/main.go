package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DistributionStatus represents the outcome of a token distribution
type DistributionStatus string

const (
	StatusCompleted DistributionStatus = "completed"
	StatusRejected  DistributionStatus = "rejected"
)

// DistributeRequest represents a request to release tokens for a verified swap
type DistributeRequest struct {
	SwapID      string `json:"swap_id" binding:"required"`
	AptosTxHash string `json:"aptos_tx_hash" binding:"required"`
	UserAddress string `json:"user_address" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"` // octas
}

// DistributeResponse represents the relay's answer to a distribution request
type DistributeResponse struct {
	SwapID      string    `json:"swap_id"`
	TxHash      string    `json:"tx_hash"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	RelayID     string    `json:"relay_id"`
	Timestamp   time.Time `json:"timestamp"`
	SuccessRate float64   `json:"success_rate"`
}

// MockRelay simulates the external token distribution service. The real
// relay holds signing keys and talks to the token chain; this one mints
// fake transaction hashes after a configurable delay.
type MockRelay struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	relayID     string
	rng         *rand.Rand
}

// NewMockRelay creates a new mock relay instance
func NewMockRelay(successRate float64, minDelay, maxDelay time.Duration) *MockRelay {
	return &MockRelay{
		successRate: successRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		relayID:     "MOCK_RELAY_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// simulateDistribution simulates signing and submitting a token transfer
func (m *MockRelay) simulateDistribution(req *DistributeRequest) (*DistributeResponse, bool) {
	// Simulate chain latency
	time.Sleep(m.randomDelay())

	response := &DistributeResponse{
		SwapID:      req.SwapID,
		ProcessedAt: time.Now(),
	}

	if m.shouldSucceed() {
		response.Status = string(StatusCompleted)
		response.TxHash = "0x" + uuid.New().String()[:8] + uuid.New().String()[:8]

		log.Info().
			Str("swap_id", req.SwapID).
			Str("aptos_tx_hash", req.AptosTxHash).
			Str("tx_hash", response.TxHash).
			Int64("amount", req.Amount).
			Msg("Distribution completed")
		return response, true
	}

	response.Status = string(StatusRejected)

	log.Warn().
		Str("swap_id", req.SwapID).
		Str("aptos_tx_hash", req.AptosTxHash).
		Msg("Distribution rejected")
	return response, false
}

func (m *MockRelay) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockRelay) shouldSucceed() bool {
	return m.rng.Float64() < m.successRate
}

// Handler struct holds the mock relay and routes
type Handler struct {
	relay *MockRelay
}

func NewHandler(relay *MockRelay) *Handler {
	return &Handler{relay: relay}
}

// Distribute handles token distribution requests
func (h *Handler) Distribute(c *gin.Context) {
	var req DistributeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("swap_id", req.SwapID).
		Str("user_address", req.UserAddress).
		Int64("amount", req.Amount).
		Msg("Received distribution request")

	response, ok := h.relay.simulateDistribution(&req)

	statusCode := http.StatusOK
	if !ok {
		statusCode = http.StatusUnprocessableEntity
	}

	c.JSON(statusCode, response)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	// Simulate 5% downtime
	if h.relay.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "Relay temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		RelayID:     h.relay.relayID,
		Timestamp:   time.Now(),
		SuccessRate: h.relay.successRate,
	})
}

// UpdateConfig allows changing relay configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		SuccessRate *float64 `json:"success_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.SuccessRate != nil {
		if *config.SuccessRate >= 0 && *config.SuccessRate <= 1.0 {
			h.relay.successRate = *config.SuccessRate
			log.Info().Float64("rate", *config.SuccessRate).Msg("Updated success rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"success_rate": h.relay.successRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/distribute", handler.Distribute)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	successRate := getEnvFloat("SUCCESS_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 500*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 3*time.Second)

	log.Info().
		Str("port", port).
		Float64("success_rate", successRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Token Relay")

	// Create mock relay
	relay := NewMockRelay(successRate, minDelay, maxDelay)
	handler := NewHandler(relay)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
