package service

import (
	"context"

	"campus/internal/featureflags"
	"campus/internal/middleware"
	"campus/internal/notifications"
)

// EventPublisher delivers realtime events to a variant's watchers.
type EventPublisher interface {
	PublishVariantEvent(ctx context.Context, variantID uint, event notifications.Event) error
}

type resourceEvent struct {
	ResourceID uint   `json:"idRecurso"`
	VariantID  uint   `json:"idVariante"`
	Title      string `json:"titulo,omitempty"`
	ActorID    uint   `json:"actor"`
}

// emitVariantEvent publishes best-effort. Failures are logged and never fail the caller.
func emitVariantEvent(ctx context.Context, events EventPublisher, flags *featureflags.Manager, actorID, variantID uint, event notifications.Event) {
	if events == nil || !flags.Enabled(featureflags.RealtimeEvents, actorID) {
		return
	}
	if err := events.PublishVariantEvent(ctx, variantID, event); err != nil {
		middleware.Logger.WarnContext(ctx, "publish variant event failed",
			"variant_id", variantID, "type", event.Type, "error", err)
	}
}
