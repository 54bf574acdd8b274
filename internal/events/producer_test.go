package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_LogOnlyWithoutBrokers(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProducer(nil, "checkout.orders", log.New(&buf, "", 0))
	require.NoError(t, err)

	require.NoError(t, p.PublishOrderPlaced(context.Background(), OrderPlaced{OrderID: "ord-1"}))
	assert.True(t, strings.Contains(buf.String(), `"orderId":"ord-1"`), buf.String())
	assert.NoError(t, p.Close())
}

func TestProducer_SendsKeyedMessage(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		assert.Equal(t, "ord-9", string(key))
		assert.Equal(t, "checkout.orders", msg.Topic)
		val, _ := msg.Value.Encode()
		var ev OrderPlaced
		require.NoError(t, json.Unmarshal(val, &ev))
		assert.Equal(t, TypeOrderPlaced, ev.Type)
		return nil
	})

	p := newWithSyncProducer(sp, "checkout.orders", log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, p.PublishOrderPlaced(context.Background(), OrderPlaced{OrderID: "ord-9", UserID: "u1"}))
	require.NoError(t, p.Close())
}
