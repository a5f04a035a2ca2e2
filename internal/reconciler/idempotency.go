package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/patronlabs/patron-gateway/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("event already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	ProcessedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "reconcile:retry:",
		LockKeyPrefix:      "reconcile:lock:",
		ProcessedKeyPrefix: "reconcile:processed:",
	}
}

// IdempotencyService coordinates settlement-event consumers. Events are
// keyed by transaction hash: a short-term lock keeps two consumers off the
// same hash, a long-term marker suppresses redelivery after success, and a
// retry counter bounds how often one bad event can come back.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	EventKey     string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, eventKey string) (*ProcessingContext, error) {
	processedKey := s.config.ProcessedKeyPrefix + eventKey
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		// Check failure is not fatal: reconciliation is idempotent, a rare
		// duplicate run beats a stalled consumer.
		logger.Warn("failed to check processed marker", "event_key", eventKey, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyProcessed
	}

	retryKey := s.config.RetryKeyPrefix + eventKey
	retryCount := 0
	if raw, err := s.redis.Get(retryKey); err == nil && len(raw) > 0 {
		fmt.Sscanf(string(raw), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: event_key=%s, retries=%d", ErrMaxRetriesExceeded, eventKey, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + eventKey
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	return &ProcessingContext{
		EventKey:     eventKey,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	processedKey := s.config.ProcessedKeyPrefix + pc.EventKey
	if err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	s.cleanup(pc)
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	retryKey := s.config.RetryKeyPrefix + pc.EventKey
	newRetryCount := pc.RetryCount + 1

	if err := s.redis.Set(retryKey, []byte(fmt.Sprintf("%d", newRetryCount)), s.config.ProcessedTTL); err != nil {
		logger.Error("failed to increment retry counter", "event_key", pc.EventKey, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + pc.EventKey
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to remove lock", "event_key", pc.EventKey, "error", err)
	}
	pc.lockAcquired = false

	logger.Warn("settlement event failed, will retry",
		"event_key", pc.EventKey,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.EventKey
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to release lock", "event_key", pc.EventKey, "error", err)
		return err
	}

	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) cleanup(pc *ProcessingContext) {
	lockKey := s.config.LockKeyPrefix + pc.EventKey
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to cleanup lock", "event_key", pc.EventKey, "error", err)
	}

	retryKey := s.config.RetryKeyPrefix + pc.EventKey
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("failed to cleanup retry counter", "event_key", pc.EventKey, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, eventKey string) (int, error) {
	raw, err := s.redis.Get(s.config.RetryKeyPrefix + eventKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(raw), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, eventKey string) (bool, error) {
	exists, err := s.redis.Exist(s.config.ProcessedKeyPrefix + eventKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
