package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	l            *slog.Logger
	w            *kafka.Writer
	sessionTopic string
}

func NewProducer(l *slog.Logger, brokers []string, topic string) *Producer {
	l = l.WithGroup("kafka").With("topic", topic)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "",
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		Compression:            0,
		Logger:                 &infoLogger{l: l},
		ErrorLogger:            &errorLogger{l: l},
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		l:            l,
		w:            w,
		sessionTopic: topic,
	}
}

const (
	SessionEventCreated = "session_created"
	SessionEventRevoked = "session_revoked"
)

// SessionEvent tells other gateway instances that a session changed in the
// shared store, so their local caches must drop it.
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Origin    string `json:"origin"`
}

func (p *Producer) PublishSessionEvent(ctx context.Context, eventType, sessionID, origin string) {
	event := SessionEvent{
		Type:      eventType,
		SessionID: sessionID,
		Origin:    origin,
	}

	b, err := json.Marshal(event)
	if err != nil {
		p.l.Error(fmt.Sprintf("marshal event: %s", err))
		return
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: b,
		Topic: p.sessionTopic,
	})
	if err != nil {
		p.l.Error(fmt.Sprintf("write kafka message: %s", err))
		return
	}
}

func (p *Producer) Close() {
	err := p.w.Close()
	if err != nil {
		p.l.Error(fmt.Sprintf("close kafka writer: %s", err))
	}
}
