package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes events to one topic keyed by offering id, so events
// of one offering keep their order within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	const op = "events.NewKafkaPublisher"

	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("%s: brokers and topic are required", op)
	}

	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			BatchSize:              100,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	const op = "events.KafkaPublisher.Publish"

	body, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []kafka.Header{{Key: "type", Value: []byte(ev.Type)}}
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Key:     []byte(strconv.FormatInt(ev.OfferingID, 10)),
		Value:   body,
		Headers: headers,
		Time:    ev.OccurredAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
