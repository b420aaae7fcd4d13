package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"github.com/ddfinv/portal/pkg/broker"
)

var sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "portal",
	Name:      "session_events_total",
	Help:      "Session lifecycle events processed, by type and source.",
}, []string{"type", "source"})

type Service interface {
	HandleSessionEvent(ctx context.Context, event broker.SessionEvent) error
	InstanceID() string
}

// Handler consumes session lifecycle events published by the other portal
// instances and drops the matching local caches.
type Handler struct {
	s Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s: s}
}

func (h *Handler) HandleSessionEvent(ctx context.Context, m kafka.Message) error {
	var event broker.SessionEvent

	err := json.Unmarshal(m.Value, &event)
	if err != nil {
		return fmt.Errorf("unmarshal session event: %w", err)
	}

	// The raw origin is an instance UUID; labeling with it would grow the
	// series set without bound.
	source := "remote"
	if event.Origin == h.s.InstanceID() {
		source = "self"
	}

	sessionEvents.WithLabelValues(event.Type, source).Inc()

	slog.DebugContext(ctx, "session event received",
		"type", event.Type, "session_id", event.SessionID, "origin", event.Origin)

	err = h.s.HandleSessionEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("handle session event: %w", err)
	}

	return nil
}
