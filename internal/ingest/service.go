package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/farewatch/fare-gateway/internal/config"
	"github.com/farewatch/fare-gateway/internal/queue"
	"github.com/farewatch/fare-gateway/pkg/logger"
	"github.com/farewatch/fare-gateway/pkg/prom"
	"github.com/farewatch/fare-gateway/pkg/redis"
	"github.com/farewatch/fare-gateway/pkg/worker"
)

const (
	consumerInstances = 4
	workerCount       = 32
	workerBuffer      = 1024
	shutdownTimeout   = time.Minute
	reportInterval    = 30 * time.Second
)

// Processor handles one queue message.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

// Service consumes the fetch-results stream and hands payloads to a worker
// pool. Several consumer instances feed one pool; ordering across payloads
// does not matter because each payload is self-contained.
type Service struct {
	adapter   redis.RedisAdapter
	queues    []*queue.Queue
	processor Processor
	worker    *worker.WorkerManager
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

type job struct {
	msg        *queue.Message
	ctx        context.Context
	resultChan chan error
}

func NewService(adapter redis.RedisAdapter, processor Processor) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		adapter:   adapter,
		queues:    make([]*queue.Queue, 0, consumerInstances),
		processor: processor,
		worker:    worker.NewWorkerManager(workerBuffer, workerCount, nil),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Service) Start() error {
	logger.Info("starting ingest service", "processor", s.processor.GetType())

	s.worker.Start(s.workerHandler)

	for i := 0; i < consumerInstances; i++ {
		cfg := queue.QueueConfig{
			Name:              config.Get().FetchQueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      fmt.Sprintf("%s-instance-%d", config.Get().QueueConsumerName, i),
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		}

		q, err := queue.NewQueue(s.adapter, cfg)
		if err != nil {
			return fmt.Errorf("failed to create queue consumer %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start queue consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.depthReporter()

	logger.Info("ingest service started", "consumers", len(s.queues), "workers", workerCount)
	return nil
}

// messageHandler bridges a queue delivery onto the worker pool and waits
// for the verdict, so the ack decision stays with the queue.
func (s *Service) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)
	s.worker.Publish(&job{msg: msg, ctx: ctx, resultChan: resultChan})

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) workerHandler(workerIndex int, j interface{}) {
	jb, ok := j.(*job)
	if !ok {
		logger.Error("unexpected job type on worker pool", "worker", workerIndex)
		return
	}
	jb.resultChan <- s.processor.Process(jb.ctx, jb.msg)
}

func (s *Service) depthReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if len(s.queues) == 0 {
				continue
			}
			depth, err := s.queues[0].Depth()
			if err != nil {
				logger.Warn("failed to read queue depth", "error", err.Error())
				continue
			}
			prom.SetGaugeVec(prom.SystemIngest, prom.MetricQueueDepth, float64(depth), config.Get().FetchQueueName)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) Stop() {
	logger.Info("shutting down ingest service")

	s.cancel()

	for i, q := range s.queues {
		if err := q.Stop(shutdownTimeout); err != nil {
			logger.Error("error stopping queue consumer", "consumer", i, "error", err.Error())
		}
	}

	s.worker.Exit()
	s.wg.Wait()

	logger.Info("ingest service stopped")
}
