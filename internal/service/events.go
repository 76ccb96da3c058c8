package service

import (
	"context"
	"strconv"

	"github.com/Skotchmaster/shop_api/internal/events"
	"github.com/Skotchmaster/shop_api/pkg/logging"
)

// publish runs after the store write has committed. A failed publish is
// logged and never fails the request.
func publish(ctx context.Context, p events.Publisher, topic string, id uint, typ string, payload any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, strconv.FormatUint(uint64(id), 10), events.NewEvent(typ, payload)); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", typ, "id", id, "error", err)
	}
}
