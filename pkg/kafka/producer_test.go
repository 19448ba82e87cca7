package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "snappy")

	require.NoError(t, p.Publish(context.Background(), "cryptosign.signals", []byte("2024-03-07"), map[string]string{"classification": "High"}))
	require.NoError(t, p.PublishMessage(context.Background(), "cryptosign.errors", "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "cryptosign.signals", w.msgs[0].Topic)
	assert.Equal(t, []byte("2024-03-07"), w.msgs[0].Key)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "High", body["classification"])
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
}

func TestProducer_PublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.PublishBatch(context.Background(), "t", nil))
	assert.Empty(t, w.msgs)

	err := p.PublishBatch(context.Background(), "t", []Message{{Key: []byte("a"), Value: 1}, {Key: []byte("b"), Value: 2}})
	require.NoError(t, err)
	assert.Len(t, w.msgs, 2)

	w.err = errors.New("broker down")
	err = p.PublishBatch(context.Background(), "t", []Message{{Value: 3}})
	assert.ErrorContains(t, err, "broker down")
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
}

func TestProducerConfig_Validate(t *testing.T) {
	cfg := defaultProducerConfig()
	assert.ErrorContains(t, cfg.validate(), "brokers")

	WithBrokers([]string{"localhost:9092"})(&cfg)
	require.NoError(t, cfg.validate())

	WithRequiredAcks(2)(&cfg)
	assert.ErrorContains(t, cfg.validate(), "required acks")

	WithRequiredAcks(-1)(&cfg)
	WithCompression("brotli")(&cfg)
	assert.ErrorContains(t, cfg.validate(), "brotli")
}

func TestProducerConfig_Writer(t *testing.T) {
	cfg := defaultProducerConfig()
	WithBrokers([]string{"a:9092", "b:9092"})(&cfg)
	WithBatching(0, 2048, time.Second)(&cfg)

	w := cfg.writer()
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, 100, w.BatchSize, "zero keeps the default")
	assert.Equal(t, int64(2048), w.BatchBytes)
	assert.Equal(t, time.Second, w.BatchTimeout)
	assert.Equal(t, kafka.Snappy, w.Compression)
}
