// Package publish validates JSON records against a group's features and
// sends the projected records to Kafka.
package publish

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"github.com/ajitpratap0/ingestor/pkg/logger"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/metrics"
	"github.com/ajitpratap0/ingestor/pkg/models"
)

// maxLine bounds one JSON record read by PublishLines.
const maxLine = 4 << 20

// NewProducerConfig builds the sarama configuration for a sync producer.
func NewProducerConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = "ingestor-publisher"
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Compression = sarama.CompressionSnappy
	return sc
}

// Dial connects a sync producer to cfg.Brokers.
func Dial(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "kafka brokers are required")
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Kafka producer").
			WithDetail("brokers", strings.Join(cfg.Brokers, ","))
	}
	return p, nil
}

// Option configures a Publisher
type Option func(*Publisher)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithMetrics records outcomes on c
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Publisher) { p.metrics = c }
}

// Publisher sends one projected message per dataset for every accepted
// record.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	datasets [][]string
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// Summary counts the outcome of PublishLines.
type Summary struct {
	Sent     int
	Rejected int
}

// New creates a publisher for g. An empty topic means the group id.
func New(producer sarama.SyncProducer, g *metadata.Group, topic string, opts ...Option) (*Publisher, error) {
	if topic == "" {
		topic = g.ID
	}
	if topic == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "kafka topic is required")
	}

	p := &Publisher{producer: producer, topic: topic}
	for _, ds := range g.Datasets {
		cols := ds.Columns()
		if len(cols) == 0 {
			return nil, errors.Newf(errors.ErrorTypeConfig, "dataset %s declares no features", ds.Name(g.ID))
		}
		p.datasets = append(p.datasets, cols)
	}
	if len(p.datasets) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "group has no datasets")
	}

	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.OrNop(p.logger).Named("publisher").With(zap.String("topic", topic))
	return p, nil
}

// Validate projects record onto columns. Every column must be present;
// a null value is allowed.
func Validate(record map[string]interface{}, columns []string) (models.Row, error) {
	var missing []string
	for _, c := range columns {
		if _, ok := record[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "record is missing keys: %s", strings.Join(missing, ", ")).
			WithDetail("missing", missing)
	}
	return models.Project(record, columns), nil
}

// Publish validates record against every dataset and sends the
// projections. Nothing is sent unless all datasets accept the record.
func (p *Publisher) Publish(ctx context.Context, record map[string]interface{}) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(p.datasets))
	for _, cols := range p.datasets {
		row, err := Validate(record, cols)
		if err != nil {
			return err
		}
		value, err := json.Marshal(row)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConversion, "failed to encode record")
		}
		msgs = append(msgs, &sarama.ProducerMessage{Topic: p.topic, Value: sarama.ByteEncoder(value)})
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.producer.SendMessages(msgs); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to publish to Kafka")
	}
	return nil
}

// PublishLines reads one JSON object per line from r. Records that are
// not JSON objects or miss a feature are logged and rejected; a broker
// failure stops the run.
func (p *Publisher) PublishLines(ctx context.Context, r io.Reader) (Summary, error) {
	var sum Summary
	defer func() { p.metrics.ObservePublish(p.topic, sum.Sent, sum.Rejected) }()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var record map[string]interface{}
		if err := json.UnmarshalNumbers(data, &record); err != nil || record == nil {
			sum.Rejected++
			p.logger.Warn("invalid JSON record", zap.Int("line", line), zap.Error(err))
			continue
		}

		if err := p.Publish(ctx, record); err != nil {
			if errors.IsType(err, errors.ErrorTypeValidation) {
				sum.Rejected++
				p.logger.Warn("record rejected", zap.Int("line", line), zap.Error(err))
				continue
			}
			return sum, err
		}
		sum.Sent++
		p.logger.Debug("record published", zap.Int("line", line))
	}
	if err := scanner.Err(); err != nil {
		return sum, errors.Wrap(err, errors.ErrorTypeFile, "failed to read records")
	}

	p.logger.Info("publish complete", zap.Int("sent", sum.Sent), zap.Int("rejected", sum.Rejected))
	return sum, nil
}

// Close closes the producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}
