// Package notifications publishes resource events over Redis pub/sub and fans
// them out to websocket clients watching a variant.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"campus/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types published on variant channels.
const (
	EventResourceCreated = "resource.created"
	EventResourceDeleted = "resource.deleted"
)

const (
	variantChannelPrefix  = "campus:variant:"
	variantChannelPattern = variantChannelPrefix + "*"
)

// Event is the envelope written to a variant channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier publishes events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// VariantChannel returns the pub/sub channel for a variant.
func VariantChannel(variantID uint) string {
	return fmt.Sprintf("%s%d", variantChannelPrefix, variantID)
}

// ParseVariantChannel extracts the variant id from a channel name.
func ParseVariantChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, variantChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// PublishVariantEvent sends an event to everyone watching variantID.
func (n *Notifier) PublishVariantEvent(ctx context.Context, variantID uint, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, VariantChannel(variantID), payload).Err()
}

// StartVariantSubscriber subscribes to every variant channel and calls onMessage
// for each message until ctx is cancelled.
func (n *Notifier) StartVariantSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, variantChannelPattern)
	// Wait for the subscription confirmation so publishes right after
	// startup are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("psubscribe %s: %w", variantChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in variant subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
