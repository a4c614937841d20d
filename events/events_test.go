package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intechlab/models"
)

func TestEventEncoding(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	raw, err := Event{Type: CaseDelivered, CaseID: "c1", From: models.StatusReady, To: models.StatusDelivered, Actor: "admin@lab.com", At: at}.encode()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "case.delivered", got["type"])
	assert.Equal(t, "c1", got["caseId"])
	assert.Equal(t, "listo", got["from"])
	assert.Equal(t, "entregado", got["to"])
	assert.Equal(t, "2026-10-16T09:30:00Z", got["at"])
	assert.NotContains(t, got, "assignedTo")
}

func TestKafkaWriterFlushesQuickly(t *testing.T) {
	k := NewKafka([]string{"localhost:9092"}, "case-events")
	t.Cleanup(func() { _ = k.Close() })

	assert.Equal(t, "case-events", k.writer.Topic)
	assert.Equal(t, kafkaBatchTimeout, k.writer.BatchTimeout)
	assert.LessOrEqual(t, k.writer.BatchTimeout, 50*time.Millisecond)
	assert.IsType(t, &kafka.Hash{}, k.writer.Balancer)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: CaseCreated, CaseID: "c1"}))
	assert.NoError(t, p.Close())
}
