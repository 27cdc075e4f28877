// Package stream buffers JSON messages from a Kafka consumer group into
// batches and hands each full batch to a flush function. Offsets are
// marked only after the flush that covers them succeeds, so a crash
// replays unflushed messages instead of losing them.
package stream

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/metrics"
	"github.com/ajitpratap0/ingestor/pkg/models"
)

// DefaultBatchSize is the number of records buffered before a flush.
const DefaultBatchSize = 1000

// FlushFunc persists one buffered batch.
type FlushFunc func(ctx context.Context, batch models.Batch) error

// NewConsumerConfig builds the sarama configuration for the ingest
// consumer group.
func NewConsumerConfig(cfg config.KafkaConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "ingestor"
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = time.Second

	switch strings.ToLower(cfg.OffsetReset) {
	case "", "earliest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	case "latest":
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported offset_reset %q", cfg.OffsetReset)
	}
	return sc, nil
}

// Dial joins the consumer group in cfg.
func Dial(cfg config.KafkaConfig) (sarama.ConsumerGroup, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "kafka brokers are required")
	}
	sc, err := NewConsumerConfig(cfg)
	if err != nil {
		return nil, err
	}
	cg, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Kafka consumer group").
			WithDetail("brokers", strings.Join(cfg.Brokers, ",")).
			WithDetail("group_id", cfg.GroupID)
	}
	return cg, nil
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithBatchSize sets the flush threshold
func WithBatchSize(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.batchSize = n
		}
	}
}

// WithFlushInterval flushes a non-empty buffer at least this often.
func WithFlushInterval(d time.Duration) Option {
	return func(h *Handler) { h.interval = d }
}

// WithMetrics records buffer depth and skipped messages on c
func WithMetrics(c *metrics.Collector, group string) Option {
	return func(h *Handler) {
		h.metrics = c
		h.group = group
	}
}

// Handler is a sarama.ConsumerGroupHandler. Claims share one buffer.
type Handler struct {
	dataset   string
	columns   []string
	flush     FlushFunc
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
	metrics   *metrics.Collector
	group     string

	mu       sync.Mutex
	buffer   models.Batch
	unmarked []*sarama.ConsumerMessage
	received int64
	flushed  int64
	skipped  int64
	failed   error
}

// NewHandler creates a handler projecting messages onto columns.
func NewHandler(dataset string, columns []string, flush FlushFunc, opts ...Option) *Handler {
	h := &Handler{
		dataset:   dataset,
		columns:   columns,
		flush:     flush,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logger.OrNop(h.logger).Named("stream").With(zap.String("dataset", dataset))
	h.buffer = make(models.Batch, 0, h.batchSize)
	return h
}

// Setup implements sarama.ConsumerGroupHandler
func (h *Handler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("consumer session started",
		zap.String("member_id", session.MemberID()),
		zap.Int32("generation", session.GenerationID()),
		zap.Any("claims", session.Claims()))
	return nil
}

// Cleanup flushes whatever is buffered so a rebalance or shutdown does not
// strand records, then marks their offsets.
func (h *Handler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.buffer) > 0 {
		h.logger.Info("flushing remaining records", zap.Int("records", len(h.buffer)))
	}
	// The session context is already cancelled during shutdown.
	return h.flushLocked(context.WithoutCancel(session.Context()), session)
}

// ConsumeClaim implements sarama.ConsumerGroupHandler
func (h *Handler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	var tick <-chan time.Time
	if h.interval > 0 {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(session, msg); err != nil {
				return err
			}
		case <-tick:
			h.mu.Lock()
			err := h.flushLocked(session.Context(), session)
			h.mu.Unlock()
			if err != nil {
				return err
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *Handler) handle(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.received++
	h.unmarked = append(h.unmarked, msg)

	row, err := h.decode(msg.Value)
	if err != nil {
		h.skipped++
		h.metrics.ObserveSkipped(h.group, h.dataset, "malformed", 1)
		h.logger.Error("failed to parse message",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}

	h.buffer = append(h.buffer, row)
	h.metrics.SetBuffered(h.group, h.dataset, len(h.buffer))
	if len(h.buffer) < h.batchSize {
		return nil
	}
	return h.flushLocked(session.Context(), session)
}

func (h *Handler) decode(value []byte) (models.Row, error) {
	var record map[string]interface{}
	if err := json.UnmarshalNumbers(value, &record); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "message is not valid JSON")
	}
	if record == nil {
		return nil, errors.New(errors.ErrorTypeData, "message is not a JSON object")
	}
	return models.Project(record, h.columns), nil
}

// flushLocked writes the buffer, if any, and marks every message seen so
// far. A failed flush keeps the buffer and leaves offsets unmarked.
func (h *Handler) flushLocked(ctx context.Context, session sarama.ConsumerGroupSession) error {
	if len(h.buffer) > 0 {
		batch := h.buffer
		if err := h.flush(ctx, batch); err != nil {
			h.logger.Error("flush failed", zap.Int("records", len(batch)), zap.Error(err))
			h.failed = errors.Annotate(err, "failed to flush stream batch")
			return h.failed
		}
		h.failed = nil
		h.flushed += int64(len(batch))
		h.logger.Info("batch flushed",
			zap.Int("records", len(batch)),
			zap.Int64("total_flushed", h.flushed))
		h.buffer = make(models.Batch, 0, h.batchSize)
		h.metrics.SetBuffered(h.group, h.dataset, 0)
	}

	for _, msg := range h.unmarked {
		session.MarkMessage(msg, "")
	}
	h.unmarked = h.unmarked[:0]
	return nil
}

// Err returns the flush failure that stopped the handler, if any.
func (h *Handler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failed
}

// Stats reports message counters.
func (h *Handler) Stats() (received, flushed, skipped int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.received, h.flushed, h.skipped
}

// Run consumes topics until ctx is cancelled or the handler fails. The
// consumer group is closed on return.
func Run(ctx context.Context, group sarama.ConsumerGroup, topics []string, h *Handler) error {
	defer func() {
		if err := group.Close(); err != nil {
			h.logger.Warn("failed to close consumer group", zap.Error(err))
		}
	}()

	errDone := make(chan struct{})
	defer close(errDone)
	go func() {
		for {
			select {
			case err, ok := <-group.Errors():
				if !ok {
					return
				}
				h.logger.Error("consumer group error", zap.Error(err))
			case <-errDone:
				return
			}
		}
	}()

	h.logger.Info("consuming", zap.Strings("topics", topics), zap.Int("batch_size", h.batchSize))
	for {
		err := group.Consume(ctx, topics, h)
		if ferr := h.Err(); ferr != nil {
			return ferr
		}
		if ctx.Err() != nil {
			received, flushed, skipped := h.Stats()
			h.logger.Info("consumer stopped",
				zap.Int64("received", received),
				zap.Int64("flushed", flushed),
				zap.Int64("skipped", skipped))
			return nil
		}
		if stderrors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "consumer group failed")
		}
	}
}
