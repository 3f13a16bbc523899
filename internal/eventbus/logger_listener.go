package eventbus

import (
	"context"

	"github.com/annel0/game-hub/internal/logging"
)

// StartLoggingListener subscribes to every event and writes it to the
// events log. It does not block.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	log := logging.GetEventsLogger()
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		if ev.EventType == ContentEventType {
			if c, err := DecodeContent(ev); err == nil {
				log.Info("%s %s %s by %s", c.Kind, c.DocumentID, c.Action, c.Actor)
				return
			}
		}
		log.Debug("[EventBus] %s %s src=%s size=%dB", ev.ID, ev.EventType, ev.Source, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	log.Info("LoggingListener subscribed to all events")
	return sub, nil
}
