package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/ddfinv/portal/pkg/broker"
)

type fakeService struct {
	instanceID string
	handled    []broker.SessionEvent
}

func (f *fakeService) HandleSessionEvent(_ context.Context, event broker.SessionEvent) error {
	f.handled = append(f.handled, event)
	return nil
}

func (f *fakeService) InstanceID() string {
	return f.instanceID
}

func message(payload string) kafka.Message {
	return kafka.Message{Value: []byte(payload)}
}

func TestHandleSessionEvent(t *testing.T) {
	t.Parallel()

	svc := &fakeService{instanceID: "instance-a"}
	h := NewHandler(svc)

	err := h.HandleSessionEvent(context.Background(), message(
		`{"type":"session_revoked","session_id":"sid-1","origin":"instance-b"}`))
	require.NoError(t, err)

	require.Len(t, svc.handled, 1)
	require.Equal(t, broker.SessionEventRevoked, svc.handled[0].Type)
	require.Equal(t, "sid-1", svc.handled[0].SessionID)
}

func TestHandleSessionEvent_BadPayload(t *testing.T) {
	t.Parallel()

	svc := &fakeService{instanceID: "instance-a"}
	h := NewHandler(svc)

	err := h.HandleSessionEvent(context.Background(), message(`{not json`))
	require.Error(t, err)
	require.Empty(t, svc.handled)
}

func TestHandleSessionEvent_SourceLabelIsBounded(t *testing.T) {
	svc := &fakeService{instanceID: "instance-a"}
	h := NewHandler(svc)

	selfBefore := testutil.ToFloat64(sessionEvents.WithLabelValues(broker.SessionEventCreated, "self"))
	remoteBefore := testutil.ToFloat64(sessionEvents.WithLabelValues(broker.SessionEventCreated, "remote"))

	require.NoError(t, h.HandleSessionEvent(context.Background(), message(
		`{"type":"session_created","session_id":"sid-1","origin":"instance-a"}`)))
	require.NoError(t, h.HandleSessionEvent(context.Background(), message(
		`{"type":"session_created","session_id":"sid-2","origin":"instance-b"}`)))
	require.NoError(t, h.HandleSessionEvent(context.Background(), message(
		`{"type":"session_created","session_id":"sid-3","origin":"instance-c"}`)))

	// Origins collapse to self/remote; instance ids never become labels.
	require.Equal(t, selfBefore+1, testutil.ToFloat64(sessionEvents.WithLabelValues(broker.SessionEventCreated, "self")))
	require.Equal(t, remoteBefore+2, testutil.ToFloat64(sessionEvents.WithLabelValues(broker.SessionEventCreated, "remote")))
}
