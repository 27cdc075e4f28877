package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/models"
	"github.com/ajitpratap0/ingestor/pkg/stream"
)

// fileStamp is the timestamp layout of streamed file names.
const fileStamp = "20060102_150405"

// StreamRunner consumes a Kafka topic into a sequence of columnar files
type StreamRunner struct {
	runner
	dial func(config.KafkaConfig) (sarama.ConsumerGroup, error)
	now  func() time.Time
}

// NewStreamRunner creates a stream runner
func NewStreamRunner(d Deps) *StreamRunner {
	s := &StreamRunner{runner: newRunner(d, "stream_runner"), dial: d.DialKafka, now: d.Now}
	if s.dial == nil {
		s.dial = stream.Dial
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run consumes until ctx is cancelled. Only the first dataset is streamed;
// each flush of kafka.batch_size records becomes its own file named
// {dataset}_{YYYYmmdd_HHMMSS}, and the remainder is flushed on shutdown.
func (s *StreamRunner) Run(ctx context.Context, g *metadata.Group) error {
	if kind := g.Kind(); kind != metadata.KindStream {
		return errors.Newf(errors.ErrorTypeConfig, "group %s has source kind %s, not stream", g.ID, kind)
	}
	targets, err := s.plan(g)
	if err != nil {
		return err
	}
	t := targets[0]
	if len(targets) > 1 {
		s.logger.Warn("stream groups ingest only their first dataset",
			zap.String("group", g.ID),
			zap.Int("ignored", len(targets)-1))
	}

	kcfg := s.cfg.Kafka
	topic := firstNonEmpty(t.dataset.Source.Topic, kcfg.Topic, g.ID)

	cg, err := s.dial(kcfg)
	if err != nil {
		return datasetError(err, t.name)
	}

	names := &fileNamer{base: t.name, now: s.now}
	flush := func(ctx context.Context, batch models.Batch) error {
		ft := t
		ft.dest.Name = names.next()
		_, err := s.write(ctx, ft, models.NewSliceSource(batch), metadata.KindStream)
		return err
	}

	h := stream.NewHandler(t.name, t.dataset.Columns(), flush,
		stream.WithBatchSize(kcfg.BatchSize),
		stream.WithFlushInterval(kcfg.FlushInterval),
		stream.WithLogger(s.logger),
		stream.WithMetrics(s.metrics, g.ID))

	s.logger.Info("starting stream ingestion",
		zap.String("group", g.ID),
		zap.String("dataset", t.name),
		zap.String("topic", topic),
		zap.String("consumer_group", kcfg.GroupID),
		zap.String("output", t.dest.Dir))

	if err := stream.Run(ctx, cg, []string{topic}, h); err != nil {
		return datasetError(err, t.name)
	}
	return nil
}

// fileNamer yields {base}_{stamp}, adding _n when several flushes land in
// the same second.
type fileNamer struct {
	base string
	now  func() time.Time

	mu   sync.Mutex
	last string
	seq  int
}

func (n *fileNamer) next() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	stamp := n.now().Format(fileStamp)
	if stamp != n.last {
		n.last, n.seq = stamp, 0
		return n.base + "_" + stamp
	}
	n.seq++
	return fmt.Sprintf("%s_%s_%d", n.base, stamp, n.seq)
}
