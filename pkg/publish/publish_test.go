package publish

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/ingestor/pkg/config"
	"github.com/ajitpratap0/ingestor/pkg/errors"
	"github.com/ajitpratap0/ingestor/pkg/json"
	"github.com/ajitpratap0/ingestor/pkg/metadata"
	"github.com/ajitpratap0/ingestor/pkg/metrics"
	"github.com/ajitpratap0/ingestor/pkg/testutil"
)

func eventsGroup() *metadata.Group {
	return &metadata.Group{
		ID: "clicks",
		Datasets: []metadata.Dataset{{
			Source: metadata.SourceSpec{Topic: "clicks", Features: []metadata.Feature{
				{Name: "user", DType: "string"},
				{Name: "n", DType: "int"},
			}},
			Destination: metadata.DestinationSpec{Path: "/out"},
		}},
	}
}

func expectValue(t *testing.T, want string) mocks.ValueChecker {
	return func(val []byte) error {
		var got, exp map[string]interface{}
		require.NoError(t, json.Unmarshal(val, &got))
		require.NoError(t, json.Unmarshal([]byte(want), &exp))
		if !assert.Equal(t, exp, got) {
			return stderrors.New("unexpected payload")
		}
		return nil
	}
}

func TestValidate(t *testing.T) {
	row, err := Validate(map[string]interface{}{"user": "ada", "n": 1, "extra": true}, []string{"user", "n"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"user": "ada", "n": 1}, map[string]interface{}(row))

	_, err = Validate(map[string]interface{}{"user": "ada"}, []string{"user", "n"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "n")

	row, err = Validate(map[string]interface{}{"user": nil, "n": 2}, []string{"user", "n"})
	require.NoError(t, err)
	assert.Nil(t, row["user"])
}

func TestPublishLines(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewProducerConfig())
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectValue(t, `{"user":"ada","n":1}`))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectValue(t, `{"user":"bob","n":null}`))

	reg := prometheus.NewRegistry()
	p, err := New(sp, eventsGroup(), "", WithLogger(testutil.TestLogger(t)), WithMetrics(metrics.New(reg)))
	require.NoError(t, err)
	assert.Equal(t, "clicks", p.topic)

	input := strings.Join([]string{
		`{"user":"ada","n":1,"ignored":"x"}`,
		`not json`,
		``,
		`{"user":"cy"}`,
		`{"user":"bob","n":null}`,
		`[1,2]`,
	}, "\n")

	sum, err := p.PublishLines(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Summary{Sent: 2, Rejected: 3}, sum)
	require.NoError(t, p.Close())
}

func TestPublishBrokerFailureStops(t *testing.T) {
	sp := mocks.NewSyncProducer(t, NewProducerConfig())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p, err := New(sp, eventsGroup(), "events")
	require.NoError(t, err)

	sum, err := p.PublishLines(context.Background(), strings.NewReader(`{"user":"a","n":1}`+"\n"+`{"user":"b","n":2}`))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	assert.Equal(t, Summary{}, sum)
	require.NoError(t, p.Close())
}

func TestPublishOneMessagePerDataset(t *testing.T) {
	g := eventsGroup()
	g.Datasets = append(g.Datasets, metadata.Dataset{
		Source:      metadata.SourceSpec{Name: "users", Features: []metadata.Feature{{Name: "user"}}},
		Destination: metadata.DestinationSpec{Path: "/users"},
	})

	sp := mocks.NewSyncProducer(t, NewProducerConfig())
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectValue(t, `{"user":"ada","n":3}`))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectValue(t, `{"user":"ada"}`))

	p, err := New(sp, g, "")
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), map[string]interface{}{"user": "ada", "n": 3}))
	require.NoError(t, p.Close())
}

func TestNewRejectsEmptyGroup(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	_, err := New(sp, &metadata.Group{ID: "g"}, "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestDialRequiresBrokers(t *testing.T) {
	_, err := Dial(config.KafkaConfig{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
