package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"course-membership/internal/config"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/infra/metrics"
)

var _ adapter.EventPublisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by entity id, so all
// changes to an entity land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

// NewKafkaPublisher builds an async writer: Publish returns once the message
// is queued and delivery errors surface through the completion callback.
func NewKafkaPublisher(cfg config.KafkaConfig, log zerolog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	p := &KafkaPublisher{
		topic: cfg.Topic,
		log:   log.With().Str("component", "KafkaPublisher").Logger(),
	}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion:             p.completed,
	}
	p.log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka publisher initialized")
	return p, nil
}

func newKafkaPublisherWithWriter(w messageWriter, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev model.Event) {
	msg, err := encode(ev)
	if err != nil {
		metrics.IncEventPublished("kafka", "error")
		p.log.Error().Err(err).Str("event", string(ev.Type)).Msg("encode event")
		return
	}
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		metrics.IncEventPublished("kafka", "error")
		p.log.Error().Err(err).Str("event", string(ev.Type)).Int64("entity_id", ev.EntityID).Msg("failed to produce event")
		return
	}
	metrics.IncEventPublished("kafka", "queued")
}

func (p *KafkaPublisher) completed(msgs []kafka.Message, err error) {
	if err != nil {
		metrics.IncEventPublished("kafka", "error")
		p.log.Error().Err(err).Int("messages", len(msgs)).Msg("kafka delivery failed")
		return
	}
	for range msgs {
		metrics.IncEventPublished("kafka", "ok")
	}
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	p.log.Info().Msg("kafka publisher closed")
	return nil
}

func encode(ev model.Event) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(entityKind(ev.Type) + ":" + strconv.FormatInt(ev.EntityID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
		Time: ev.OccurredAt,
	}, nil
}

// entityKind is the prefix of an event type, e.g. "order" for "order.created".
func entityKind(t model.EventType) string {
	s := string(t)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return s
}
