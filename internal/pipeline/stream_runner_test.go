package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/filesystem"
	"github.com/ajitpratap0/ingestor/pkg/formats/columnar"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/testutil"
)

type session struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *session) Claims() map[string][]int32               { return map[string][]int32{"clicks": {0}} }
func (s *session) MemberID() string                         { return "m" }
func (s *session) GenerationID() int32                      { return 1 }
func (s *session) MarkOffset(string, int32, int64, string)  {}
func (s *session) Commit()                                  {}
func (s *session) ResetOffset(string, int32, int64, string) {}
func (s *session) Context() context.Context                 { return s.ctx }

func (s *session) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type claim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "clicks" }
func (c *claim) Partition() int32                         { return 0 }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

// consumerGroup delivers a fixed set of messages in one session, then
// cancels the run the way SIGTERM would.
type consumerGroup struct {
	values []string
	cancel context.CancelFunc
	topics []string
	sess   *session
	errs   chan error
	closed bool
}

func (g *consumerGroup) Consume(ctx context.Context, topics []string, h sarama.ConsumerGroupHandler) error {
	g.topics = topics
	g.sess = &session{ctx: ctx}

	msgs := make(chan *sarama.ConsumerMessage, len(g.values))
	for i, v := range g.values {
		msgs <- &sarama.ConsumerMessage{Topic: topics[0], Offset: int64(i), Value: []byte(v)}
	}
	close(msgs)

	if err := h.Setup(g.sess); err != nil {
		return err
	}
	if err := h.ConsumeClaim(g.sess, &claim{msgs: msgs}); err != nil {
		return err
	}
	g.cancel()
	return h.Cleanup(g.sess)
}

func (g *consumerGroup) Errors() <-chan error      { return g.errs }
func (g *consumerGroup) Close() error              { g.closed = true; close(g.errs); return nil }
func (g *consumerGroup) Pause(map[string][]int32)  {}
func (g *consumerGroup) Resume(map[string][]int32) {}
func (g *consumerGroup) PauseAll()                 {}
func (g *consumerGroup) ResumeAll()                {}

func TestStreamRunner(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.TestContext(t))
	defer cancel()

	root := t.TempDir()
	out := filesystem.NewLocal(root)
	cg := &consumerGroup{
		cancel: cancel,
		errs:   make(chan error),
		values: []string{
			`{"user":"a","n":1}`,
			`{"user":"b","n":2}`,
			`{oops`,
			`{"user":"c"}`,
			`{"user":"d","n":4}`,
			`{"user":"e","n":5}`,
		},
	}

	d := testDeps(t, out)
	d.Config.Kafka.BatchSize = 2
	d.DialKafka = func(cfg config.KafkaConfig) (sarama.ConsumerGroup, error) {
		assert.Equal(t, "atlas-insights-consumer", cfg.GroupID)
		return cg, nil
	}
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	d.Now = func() time.Time { return stamp }

	g := &metadata.Group{ID: "clicks_streaming", Datasets: []metadata.Dataset{{
		Source: metadata.SourceSpec{Name: "clicks", Topic: "clicks", Path: "/lake/clicks", Features: []metadata.Feature{
			{Name: "user"},
			{Name: "n", DType: "int"},
		}},
	}}}
	require.Equal(t, metadata.KindStream, g.Kind())

	require.NoError(t, RunGroup(ctx, g, d))
	assert.Equal(t, []string{"clicks"}, cg.topics)
	assert.True(t, cg.closed)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, cg.sess.marked)

	entries, err := os.ReadDir(filepath.Join(root, "lake", "clicks"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"clicks_20240601_120000.parquet",
		"clicks_20240601_120000_1.parquet",
		"clicks_20240601_120000_2.parquet",
	}, names)

	tbl, err := columnar.ReadFile(testutil.TestContext(t), out, "/lake/clicks/clicks_20240601_120000_1.parquet")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "c", tbl.Rows[0]["user"])
	assert.Nil(t, tbl.Rows[0]["n"])
}

func TestFileNamer(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := &fileNamer{base: "ds", now: func() time.Time { return now }}

	assert.Equal(t, "ds_20240101_000000", n.next())
	assert.Equal(t, "ds_20240101_000000_1", n.next())
	now = now.Add(time.Second)
	assert.Equal(t, "ds_20240101_000001", n.next())
}
