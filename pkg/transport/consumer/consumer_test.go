package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupConsumer() (*Consumer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Consumer{logger: &logger.Logger{Logger: zap.New(core)}}, logs
}

func delivery(t *testing.T, event *entity.Event, routingKey string) amqp.Delivery {
	t.Helper()

	body, err := sonic.Marshal(event)
	require.NoError(t, err)

	return amqp.Delivery{Body: body, RoutingKey: routingKey}
}

func TestInit_InvalidParameters(t *testing.T) {
	_, err := Init(nil, nil, nil)
	assert.Error(t, err)

	_, err = Init(&config.Config{}, &logger.Logger{Logger: zap.NewNop()}, nil)
	assert.Error(t, err)
}

func TestConsumer_ProcessMessage(t *testing.T) {
	c, _ := setupConsumer()
	out := make(chan entity.Event, 1)

	event := entity.NewEvent("form.delete", []byte(`{"form_id":"f1"}`))

	err := c.processMessage(context.Background(), delivery(t, event, "form.delete"), out)

	require.NoError(t, err)
	got := <-out
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "form.delete", got.Type)
	assert.Equal(t, event.Payload, got.Payload)
}

func TestConsumer_ProcessMessage_TypeFromRoutingKey(t *testing.T) {
	c, _ := setupConsumer()
	out := make(chan entity.Event, 1)

	event := entity.NewEvent("", []byte(`{}`))

	require.NoError(t, c.processMessage(context.Background(), delivery(t, event, "form.save"), out))
	assert.Equal(t, "form.save", (<-out).Type)
}

func TestConsumer_ProcessMessage_Malformed(t *testing.T) {
	c, logs := setupConsumer()
	out := make(chan entity.Event, 1)

	err := c.processMessage(context.Background(), amqp.Delivery{Body: []byte("{not json")}, out)

	assert.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, logs.FilterMessage("failed to unmarshal event").Len())
}

func TestConsumer_ProcessMessage_MissingPayload(t *testing.T) {
	c, _ := setupConsumer()
	out := make(chan entity.Event, 1)

	event := &entity.Event{ID: "e1", Type: "form.save"}

	err := c.processMessage(context.Background(), delivery(t, event, "form.save"), out)

	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestConsumer_ProcessMessage_Cancelled(t *testing.T) {
	c, _ := setupConsumer()
	out := make(chan entity.Event)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event := entity.NewEvent("form.save", []byte(`{}`))

	err := c.processMessage(ctx, delivery(t, event, "form.save"), out)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleep(ctx, time.Minute)

	assert.Less(t, time.Since(start), time.Second)
}
