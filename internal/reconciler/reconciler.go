package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patronlabs/patron-gateway/internal/config"
	"github.com/patronlabs/patron-gateway/internal/queue"
	"github.com/patronlabs/patron-gateway/pkg/logger"
	"github.com/patronlabs/patron-gateway/pkg/redis"
	"github.com/patronlabs/patron-gateway/pkg/worker"
)

const ProcessingTimeout = time.Second * 5
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

const consumerInstances = 4
const workerCount = 32
const workerQueueDepth = 10_000

// Processor handles one event kind from the settlement stream.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

// ReconcilerService drains the settlement stream into a worker pool and
// keeps campaign statistics consistent with the memo log.
type ReconcilerService struct {
	adapter   redis.RedisAdapter
	queues    []*queue.Queue
	processor Processor
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewReconcilerService(redisAdapter redis.RedisAdapter) (*ReconcilerService, error) {
	ctx, cancel := context.WithCancel(context.Background())
	service := &ReconcilerService{
		adapter: redisAdapter,
		queues:  make([]*queue.Queue, 0),
		ctx:     ctx,
		cancel:  cancel,
		worker:  worker.NewWorkerManager(workerQueueDepth, workerCount, nil),
	}
	return service, nil
}

func (s *ReconcilerService) RegisterProcessor(processor Processor) {
	s.processor = processor
	logger.Info("registered processor", "type", processor.GetType())
}

func (s *ReconcilerService) Start() error {
	logger.Info("starting reconciler service")

	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < consumerInstances; i++ {
		queueConfig := queue.QueueConfig{
			Name:              config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      fmt.Sprintf("%s-instance-%d", config.Get().QueueConsumerName, i),
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		}

		q, err := queue.NewQueue(s.adapter, queueConfig)
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}

		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.healthChecker()

	logger.Info("reconciler service started", "consumers", len(s.queues), "workers", workerCount)
	return nil
}

func (s *ReconcilerService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ReconcilerService) performHealthCheck() {
	if err := s.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("health check failed: redis connection error", "error", err)
		return
	}

	for i, q := range s.queues {
		stats, err := q.GetStats()
		if err != nil {
			logger.Warn("queue stats unavailable", "queue", i, "error", err)
			continue
		}
		if stats.PendingMessages > 10000 {
			logger.Warn("settlement stream has high lag", "queue", i, "pending_messages", stats.PendingMessages)
		}
	}
}

func (s *ReconcilerService) Stop() {
	logger.Info("shutting down reconciler service")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, queue *queue.Queue) {
			if err := queue.Stop(timeout); err != nil {
				logger.Error("error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("timeout waiting for queues to stop")
		}
	}

	s.worker.Exit()
	s.wg.Wait()

	logger.Info("reconciler service stopped")
}

type jobResult struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler bridges queue delivery into the worker pool and blocks
// until the worker reports back, so ack/nack reflects the real outcome.
func (s *ReconcilerService) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	job := &jobResult{
		msg:        msg,
		resultChan: resultChan,
		ctx:        msgCtx,
	}

	s.worker.Enqueue(job)

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", msgCtx.Err())
	}
}

func (s *ReconcilerService) workerHandler(workerIndex int, job interface{}) {
	jobRes, ok := job.(*jobResult)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}

	select {
	case <-jobRes.ctx.Done():
		logger.Warn("job context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	var resultErr error
	if s.processor == nil {
		logger.Error("no processor registered", "worker", workerIndex)
		resultErr = nil // ack, redelivery cannot succeed either
	} else if err := s.processor.Process(jobRes.ctx, jobRes.msg); err != nil {
		logger.Error("failed to process settlement event", "worker", workerIndex, "error", err)
		resultErr = err
	}

	select {
	case jobRes.resultChan <- resultErr:
	case <-jobRes.ctx.Done():
		logger.Warn("context cancelled while sending result", "worker", workerIndex)
	}
}
