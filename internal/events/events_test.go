package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/linkguard/internal/detections"
	"github.com/JaimeStill/linkguard/internal/events"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	calls  int
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func finalized(t *testing.T) *events.Config {
	t.Helper()
	cfg := &events.Config{}
	require.NoError(t, cfg.Finalize(nil))
	return cfg
}

func TestPublish_AboveThreshold(t *testing.T) {
	w := &fakeWriter{}
	p := events.NewWithWriter(w, finalized(t), discard())

	d := &detections.Detection{ID: uuid.New(), Type: "url", URL: "http://192.168.1.1/login", Score: 65, Status: "Medium Risk"}
	require.NoError(t, p.Publish(context.Background(), d))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, d.ID.String(), string(msg.Key))
	assert.Equal(t, []kafkago.Header{
		{Key: "status", Value: []byte("Medium Risk")},
		{Key: "type", Value: []byte("url")},
	}, msg.Headers)

	var decoded detections.Detection
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, d.URL, decoded.URL)
	assert.Equal(t, 65, decoded.Score)
}

func TestPublish_BelowThresholdSkipped(t *testing.T) {
	w := &fakeWriter{}
	p := events.NewWithWriter(w, finalized(t), discard())

	require.NoError(t, p.Publish(context.Background(), &detections.Detection{ID: uuid.New(), Score: 39}))
	assert.Empty(t, w.msgs)
}

func TestPublish_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := events.NewWithWriter(w, finalized(t), discard())

	err := p.Publish(context.Background(), &detections.Detection{ID: uuid.New(), Score: 90})
	assert.ErrorContains(t, err, "broker unavailable")
}

func TestPublishBatch_SingleWrite(t *testing.T) {
	w := &fakeWriter{}
	p := events.NewWithWriter(w, finalized(t), discard())

	ds := []detections.Detection{
		{ID: uuid.New(), Score: 90, Status: "High Risk", Type: "url"},
		{ID: uuid.New(), Score: 10, Status: "Safe", Type: "url"},
		{ID: uuid.New(), Score: 75, Status: "High Risk", Type: "content"},
	}
	require.NoError(t, p.PublishBatch(context.Background(), ds))

	assert.Equal(t, 1, w.calls)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, ds[0].ID.String(), string(w.msgs[0].Key))
	assert.Equal(t, ds[2].ID.String(), string(w.msgs[1].Key))
}

func TestPublishBatch_NothingToSend(t *testing.T) {
	w := &fakeWriter{}
	p := events.NewWithWriter(w, finalized(t), discard())

	require.NoError(t, p.PublishBatch(context.Background(), []detections.Detection{{ID: uuid.New(), Score: 5}}))
	assert.Zero(t, w.calls)
}

func TestPublishBatch_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := events.NewWithWriter(w, finalized(t), discard())

	err := p.PublishBatch(context.Background(), []detections.Detection{{ID: uuid.New(), Score: 90}})
	assert.ErrorContains(t, err, "publish 1 detections")
}

func TestNilPublisher(t *testing.T) {
	var p *events.Publisher
	assert.NoError(t, p.Publish(context.Background(), &detections.Detection{Score: 100}))
	assert.NoError(t, p.PublishBatch(context.Background(), []detections.Detection{{Score: 100}}))
	assert.NoError(t, p.Start(nil))
}

func TestNew_Disabled(t *testing.T) {
	assert.Nil(t, events.New(finalized(t), discard()))
}

func TestConfig_Defaults(t *testing.T) {
	cfg := finalized(t)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "linkguard.detections", cfg.Topic)
	assert.Equal(t, 40, cfg.MinScore)
	assert.Equal(t, "10ms", cfg.BatchTimeout)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_EVENTS_ENABLED", "true")
	t.Setenv("TEST_EVENTS_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("TEST_EVENTS_MIN_SCORE", "70")

	cfg := &events.Config{}
	require.NoError(t, cfg.Finalize(&events.Env{
		Enabled:  "TEST_EVENTS_ENABLED",
		Brokers:  "TEST_EVENTS_BROKERS",
		MinScore: "TEST_EVENTS_MIN_SCORE",
	}))

	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	assert.Equal(t, 70, cfg.MinScore)
}

func TestConfig_Validation(t *testing.T) {
	cfg := &events.Config{MinScore: 150}
	assert.ErrorContains(t, cfg.Finalize(nil), "min_score")

	cfg = &events.Config{BatchTimeout: "soon"}
	assert.ErrorContains(t, cfg.Finalize(nil), "batch_timeout")
}

func TestConfig_Merge(t *testing.T) {
	base := events.Config{Enabled: true, Topic: "base", MinScore: 40}
	base.Merge(&events.Config{Topic: "overlay"})

	assert.True(t, base.Enabled)
	assert.Equal(t, "overlay", base.Topic)
	assert.Equal(t, 40, base.MinScore)
}
