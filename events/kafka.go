package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// kafkaBatchTimeout acota la espera del escritor antes de enviar un lote.
// Publish se llama con el caso aun reservado.
const kafkaBatchTimeout = 10 * time.Millisecond

// Kafka publica en un topico usando el id del caso como llave de particion.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{writer: kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: kafkaBatchTimeout,
	})}
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	value, err := e.encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.CaseID), Value: value}); err != nil {
		return fmt.Errorf("could not write message: %w", err)
	}
	log.Printf("Evento %s del caso %s enviado a Kafka", e.Type, e.CaseID)
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
