package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBridge shares rooms between API instances. Publish goes through NATS
// and every instance, this one included, delivers what it receives into its
// local hub.
type NATSBridge struct {
	nc     *nats.Conn
	hub    *Hub
	prefix string
	sub    *nats.Subscription
	logger *zap.Logger
	now    func() time.Time
}

// NewNATSBridge subscribes to prefix.> and starts relaying into hub.
func NewNATSBridge(nc *nats.Conn, hub *Hub, prefix string, logger *zap.Logger) (*NATSBridge, error) {
	if prefix == "" {
		prefix = "dotted.rooms"
	}
	b := &NATSBridge{
		nc:     nc,
		hub:    hub,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}

	sub, err := nc.Subscribe(prefix+".>", b.relay)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s.>: %w", prefix, err)
	}
	b.sub = sub
	return b, nil
}

func (b *NATSBridge) subject(room string) string {
	return b.prefix + "." + room
}

func (b *NATSBridge) relay(msg *nats.Msg) {
	room := strings.TrimPrefix(msg.Subject, b.prefix+".")
	if room == msg.Subject || room == "" {
		return
	}
	b.hub.Deliver(room, msg.Data)
}

func (b *NATSBridge) Publish(_ context.Context, room, eventType string, payload any) error {
	frame, err := encode(room, eventType, payload, b.now())
	if err != nil {
		return err
	}
	if err := b.nc.Publish(b.subject(room), frame); err != nil {
		b.logger.Warn("nats publish failed", zap.String("room", room), zap.Error(err))
		return err
	}
	return nil
}

// Close drains the subscription.
func (b *NATSBridge) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Drain()
}
