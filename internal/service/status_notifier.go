package service

import (
	"context"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/events"
	pktNats "ai-docqa-be/pkg/nats"

	"github.com/google/uuid"
)

const MessageTypeDocumentStatus = "document_status"

// StatusDelivery pushes realtime frames to a user. The topic is the document
// id, so connections watching other documents can skip the frame.
// Implemented by the websocket hub.
type StatusDelivery interface {
	Send(userID uuid.UUID, topic string, messageType string, data interface{})
}

// StatusNotifier forwards document status events to the owner's browser
// sessions. With NATS it consumes the event stream; without it, it doubles
// as the in-process events.Publisher.
type StatusNotifier struct {
	subscriber *pktNats.Subscriber
	delivery   StatusDelivery
	logger     logger.ILogger
}

func NewStatusNotifier(sub *pktNats.Subscriber, delivery StatusDelivery, log logger.ILogger) *StatusNotifier {
	return &StatusNotifier{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

func (s *StatusNotifier) Start(ctx context.Context) error {
	if s.subscriber == nil {
		return nil
	}
	if err := s.subscriber.Subscribe(ctx, events.TypeDocumentStatus, "docqa-status-notifier", s.handleEvent); err != nil {
		s.logger.Error("StatusNotifier", "Failed to start status subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("StatusNotifier", "Listening for document status events", nil)
	return nil
}

func (s *StatusNotifier) Publish(ctx context.Context, event events.Event) error {
	return s.handleEvent(ctx, event)
}

func (s *StatusNotifier) handleEvent(ctx context.Context, event events.Event) error {
	evt, err := events.DocumentStatusFromEvent(event)
	if err != nil {
		// Malformed events are not retried.
		s.logger.Warn("StatusNotifier", "Ignoring event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		return nil
	}
	userID, err := uuid.Parse(evt.UserID)
	if err != nil {
		s.logger.Warn("StatusNotifier", "Event has no valid owner", map[string]interface{}{"document_id": evt.DocumentID})
		return nil
	}

	s.delivery.Send(userID, evt.DocumentID, MessageTypeDocumentStatus, evt.Payload())
	s.logger.Debug("StatusNotifier", "Status delivered", map[string]interface{}{
		"document_id": evt.DocumentID,
		"status":      evt.Status,
	})
	return nil
}
