// Package notification delivers workflow events to connected websocket
// clients and, when SMTP is configured, by email. Delivery is strictly
// fire-and-forget: a transition commits whether or not anyone hears about it.
package notification

import (
	"encoding/json"
	"time"

	"travel-expense-api/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the wire shape broadcast to websocket clients.
type Event struct {
	Event      string         `json:"event"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Notifier fans workflow events out to the websocket hub and the mailer.
type Notifier struct {
	hub    *websocket.Hub
	mailer *Mailer
	logger *zap.Logger
}

func NewNotifier(hub *websocket.Hub, mailer *Mailer, logger *zap.Logger) *Notifier {
	return &Notifier{hub: hub, mailer: mailer, logger: logger}
}

// Notify never blocks and never reports failure to the caller. Errors are
// logged and dropped.
func (n *Notifier) Notify(event string, entityType string, entityID uuid.UUID, payload map[string]any) {
	message, err := json.Marshal(Event{
		Event:      event,
		EntityType: entityType,
		EntityID:   entityID.String(),
		Payload:    payload,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		n.logger.Error("failed to marshal notification", zap.String("event", event), zap.Error(err))
		return
	}

	go func() {
		if n.hub != nil {
			select {
			case n.hub.Broadcast <- message:
			case <-time.After(5 * time.Second):
				n.logger.Warn("websocket broadcast timed out", zap.String("event", event))
			}
		}
		if n.mailer != nil {
			if err := n.mailer.SendEvent(event, entityType, entityID.String(), payload); err != nil {
				n.logger.Warn("email notification failed",
					zap.String("event", event),
					zap.String("entity_id", entityID.String()),
					zap.Error(err))
			}
		}
	}()
}
